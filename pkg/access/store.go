package access

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store handles persistence for users, groups, resources and shares. It works
// against PostgreSQL in production and in-memory SQLite in tests; queries use
// ordinal placeholders and Go-assigned timestamps so both drivers behave the
// same.
type Store struct {
	db *sql.DB
}

// NewStore creates a new access store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// isUniqueViolation reports whether err is a uniqueness-constraint failure.
// lib/pq reports "duplicate key value violates unique constraint"; go-sqlite3
// reports "UNIQUE constraint failed".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key")
}

// CreateUser inserts a new user, assigning its id and creation timestamp
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, created_at) VALUES ($1, $2, $3, $4)",
		user.ID, user.Name, user.Email, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return NewValidationError("email", "already registered")
	}
	if err != nil {
		return storageErr("CreateUser", err)
	}
	return nil
}

// GetUser retrieves a user by id
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, created_at FROM users WHERE id = $1", id,
	).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NewNotFoundError("user", id)
	}
	if err != nil {
		return nil, storageErr("GetUser", err)
	}
	return &user, nil
}

// ListUsers returns every user, ordered by name
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, created_at FROM users ORDER BY name ASC",
	)
	if err != nil {
		return nil, storageErr("ListUsers", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
			return nil, storageErr("ListUsers", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("ListUsers", err)
	}
	return users, nil
}

// CountUsers returns the total number of users
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, storageErr("CountUsers", err)
	}
	return count, nil
}

// CreateGroup inserts a new group, assigning its id and creation timestamp
func (s *Store) CreateGroup(ctx context.Context, group *Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	group.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO groups (id, name, description, created_at) VALUES ($1, $2, $3, $4)",
		group.ID, group.Name, group.Description, group.CreatedAt,
	)
	if err != nil {
		return storageErr("CreateGroup", err)
	}
	return nil
}

// GetGroup retrieves a group by id
func (s *Store) GetGroup(ctx context.Context, id string) (*Group, error) {
	var group Group
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at FROM groups WHERE id = $1", id,
	).Scan(&group.ID, &group.Name, &description, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NewNotFoundError("group", id)
	}
	if err != nil {
		return nil, storageErr("GetGroup", err)
	}
	group.Description = description.String
	return &group, nil
}

// AddMember adds a user to a group. Both must exist; adding the same member
// twice fails the composite primary key and is reported as a validation error.
func (s *Store) AddMember(ctx context.Context, userID, groupID string) (*Membership, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	m := Membership{UserID: userID, GroupID: groupID, JoinedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO user_groups (user_id, group_id, joined_at) VALUES ($1, $2, $3)",
		m.UserID, m.GroupID, m.JoinedAt,
	)
	if isUniqueViolation(err) {
		return nil, NewValidationError("membership", "user is already a member of this group")
	}
	if err != nil {
		return nil, storageErr("AddMember", err)
	}
	return &m, nil
}

// CreateResource inserts a new resource, assigning its id and creation timestamp
func (s *Store) CreateResource(ctx context.Context, resource *Resource) error {
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	resource.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO resources (id, name, description, is_global, created_at) VALUES ($1, $2, $3, $4, $5)",
		resource.ID, resource.Name, resource.Description, resource.IsGlobal, resource.CreatedAt,
	)
	if err != nil {
		return storageErr("CreateResource", err)
	}
	return nil
}

// GetResource retrieves a resource by id
func (s *Store) GetResource(ctx context.Context, id string) (*Resource, error) {
	var resource Resource
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, is_global, created_at FROM resources WHERE id = $1", id,
	).Scan(&resource.ID, &resource.Name, &description, &resource.IsGlobal, &resource.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, NewNotFoundError("resource", id)
	}
	if err != nil {
		return nil, storageErr("GetResource", err)
	}
	resource.Description = description.String
	return &resource, nil
}

// ListResources returns every resource, ordered by name
func (s *Store) ListResources(ctx context.Context) ([]Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, is_global, created_at FROM resources ORDER BY name ASC",
	)
	if err != nil {
		return nil, storageErr("ListResources", err)
	}
	defer rows.Close()
	return scanResources(rows, "ListResources")
}

// ListGlobalResources returns every resource flagged globally accessible
func (s *Store) ListGlobalResources(ctx context.Context) ([]Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, is_global, created_at FROM resources WHERE is_global ORDER BY name ASC",
	)
	if err != nil {
		return nil, storageErr("ListGlobalResources", err)
	}
	defer rows.Close()
	return scanResources(rows, "ListGlobalResources")
}

func scanResources(rows *sql.Rows, op string) ([]Resource, error) {
	var resources []Resource
	for rows.Next() {
		var resource Resource
		var description sql.NullString
		if err := rows.Scan(&resource.ID, &resource.Name, &description, &resource.IsGlobal, &resource.CreatedAt); err != nil {
			return nil, storageErr(op, err)
		}
		resource.Description = description.String
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return resources, nil
}

// CountResources returns the total number of resources
func (s *Store) CountResources(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM resources",
	).Scan(&count); err != nil {
		return 0, storageErr("CountResources", err)
	}
	return count, nil
}

// CountGlobalResources returns the number of globally accessible resources
func (s *Store) CountGlobalResources(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM resources WHERE is_global",
	).Scan(&count); err != nil {
		return 0, storageErr("CountGlobalResources", err)
	}
	return count, nil
}

// CreateShare records a grant on a resource after validating that both the
// resource and the share target exist. A duplicate (resource, target) grant
// fails the uniqueness constraint and is reported as ErrDuplicateShare;
// exactly one of two racing inserts wins.
func (s *Store) CreateShare(ctx context.Context, resourceID string, target ShareTarget) (*Share, error) {
	if _, err := s.GetResource(ctx, resourceID); err != nil {
		return nil, err
	}

	switch target.Kind {
	case ShareTypeUser:
		if _, err := s.GetUser(ctx, target.ID); err != nil {
			return nil, err
		}
	case ShareTypeGroup:
		if _, err := s.GetGroup(ctx, target.ID); err != nil {
			return nil, err
		}
	default:
		return nil, NewValidationError("share_type", "must be \"user\" or \"group\"")
	}

	share := Share{
		ID:         uuid.NewString(),
		ResourceID: resourceID,
		Target:     target,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO resource_shares (id, resource_id, share_type, target_id, created_at) VALUES ($1, $2, $3, $4, $5)",
		share.ID, share.ResourceID, string(share.Target.Kind), share.Target.ID, share.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateShare
	}
	if err != nil {
		return nil, storageErr("CreateShare", err)
	}
	return &share, nil
}

// CountShares returns the raw number of direct (user-type) and group-type
// share rows on a resource. These are grant-record counts, not deduplicated
// user counts.
func (s *Store) CountShares(ctx context.Context, resourceID string) (direct, group int, err error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT share_type, COUNT(*) FROM resource_shares WHERE resource_id = $1 GROUP BY share_type",
		resourceID,
	)
	if err != nil {
		return 0, 0, storageErr("CountShares", err)
	}
	defer rows.Close()

	for rows.Next() {
		var shareType string
		var count int
		if err := rows.Scan(&shareType, &count); err != nil {
			return 0, 0, storageErr("CountShares", err)
		}
		switch ShareType(shareType) {
		case ShareTypeUser:
			direct = count
		case ShareTypeGroup:
			group = count
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, storageErr("CountShares", err)
	}
	return direct, group, nil
}

// UserGrant is a user reached through a share, with the share's timestamp
type UserGrant struct {
	User      User
	GrantedAt time.Time
}

// ListDirectAccessors returns the users directly targeted by shares on a
// resource, ordered by share creation time
func (s *Store) ListDirectAccessors(ctx context.Context, resourceID string) ([]UserGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.created_at, s.created_at
		FROM resource_shares s
		JOIN users u ON u.id = s.target_id
		WHERE s.resource_id = $1 AND s.share_type = 'user'
		ORDER BY s.created_at ASC`,
		resourceID,
	)
	if err != nil {
		return nil, storageErr("ListDirectAccessors", err)
	}
	defer rows.Close()
	return scanUserGrants(rows, "ListDirectAccessors")
}

// ListGroupAccessors returns the members of every group targeted by shares on
// a resource, ordered by share creation time. A user belonging to several
// shared groups appears once per share row; callers deduplicate.
func (s *Store) ListGroupAccessors(ctx context.Context, resourceID string) ([]UserGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.created_at, s.created_at
		FROM resource_shares s
		JOIN user_groups ug ON ug.group_id = s.target_id
		JOIN users u ON u.id = ug.user_id
		WHERE s.resource_id = $1 AND s.share_type = 'group'
		ORDER BY s.created_at ASC`,
		resourceID,
	)
	if err != nil {
		return nil, storageErr("ListGroupAccessors", err)
	}
	defer rows.Close()
	return scanUserGrants(rows, "ListGroupAccessors")
}

func scanUserGrants(rows *sql.Rows, op string) ([]UserGrant, error) {
	var grants []UserGrant
	for rows.Next() {
		var g UserGrant
		if err := rows.Scan(&g.User.ID, &g.User.Name, &g.User.Email, &g.User.CreatedAt, &g.GrantedAt); err != nil {
			return nil, storageErr(op, err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return grants, nil
}

// CountDistinctAccessors returns the size of the deduplicated set of users
// reachable through direct or group shares on a resource
func (s *Store) CountDistinctAccessors(ctx context.Context, resourceID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT target_id AS user_id
			FROM resource_shares
			WHERE resource_id = $1 AND share_type = 'user'
			UNION
			SELECT ug.user_id
			FROM resource_shares s
			JOIN user_groups ug ON ug.group_id = s.target_id
			WHERE s.resource_id = $2 AND s.share_type = 'group'
		) accessors`,
		resourceID, resourceID,
	).Scan(&count)
	if err != nil {
		return 0, storageErr("CountDistinctAccessors", err)
	}
	return count, nil
}

// SharedResource is a resource reached through a share, with the share's
// timestamp
type SharedResource struct {
	Resource  Resource
	GrantedAt time.Time
}

// ListDirectResourceGrants returns the resources directly shared with a user,
// ordered by share creation time
func (s *Store) ListDirectResourceGrants(ctx context.Context, userID string) ([]SharedResource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.is_global, r.created_at, s.created_at
		FROM resource_shares s
		JOIN resources r ON r.id = s.resource_id
		WHERE s.share_type = 'user' AND s.target_id = $1
		ORDER BY s.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, storageErr("ListDirectResourceGrants", err)
	}
	defer rows.Close()
	return scanResourceGrants(rows, "ListDirectResourceGrants")
}

// ListGroupResourceGrants returns the resources shared with any group the
// user belongs to, ordered by share creation time. A resource shared with two
// of the user's groups appears twice; callers deduplicate keeping the
// earliest grant.
func (s *Store) ListGroupResourceGrants(ctx context.Context, userID string) ([]SharedResource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.is_global, r.created_at, s.created_at
		FROM resource_shares s
		JOIN resources r ON r.id = s.resource_id
		JOIN user_groups ug ON ug.group_id = s.target_id
		WHERE s.share_type = 'group' AND ug.user_id = $1
		ORDER BY s.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, storageErr("ListGroupResourceGrants", err)
	}
	defer rows.Close()
	return scanResourceGrants(rows, "ListGroupResourceGrants")
}

func scanResourceGrants(rows *sql.Rows, op string) ([]SharedResource, error) {
	var grants []SharedResource
	for rows.Next() {
		var g SharedResource
		var description sql.NullString
		if err := rows.Scan(&g.Resource.ID, &g.Resource.Name, &description, &g.Resource.IsGlobal, &g.Resource.CreatedAt, &g.GrantedAt); err != nil {
			return nil, storageErr(op, err)
		}
		g.Resource.Description = description.String
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return grants, nil
}

// FindDirectShare looks up the share directly granting a user access to a
// resource. Returns (nil, nil) when no such share exists.
func (s *Store) FindDirectShare(ctx context.Context, resourceID, userID string) (*Share, error) {
	share := Share{ResourceID: resourceID, Target: UserTarget(userID)}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at
		FROM resource_shares
		WHERE resource_id = $1 AND share_type = 'user' AND target_id = $2`,
		resourceID, userID,
	).Scan(&share.ID, &share.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("FindDirectShare", err)
	}
	return &share, nil
}

// FindGroupShare looks up the earliest share granting a user access to a
// resource through one of their groups. Returns (nil, nil) when no such share
// exists.
func (s *Store) FindGroupShare(ctx context.Context, resourceID, userID string) (*Share, error) {
	var share Share
	var groupID string
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.target_id, s.created_at
		FROM resource_shares s
		JOIN user_groups ug ON ug.group_id = s.target_id
		WHERE s.resource_id = $1 AND s.share_type = 'group' AND ug.user_id = $2
		ORDER BY s.created_at ASC
		LIMIT 1`,
		resourceID, userID,
	).Scan(&share.ID, &groupID, &share.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("FindGroupShare", err)
	}
	share.ResourceID = resourceID
	share.Target = GroupTarget(groupID)
	return &share, nil
}

// CountUserShareRows returns the raw grant counts for a user: direct is the
// number of share rows naming the user, group is the number of share rows
// reachable through the user's memberships. Neither is deduplicated; the same
// resource may be counted in both, or counted twice within group via two
// memberships.
func (s *Store) CountUserShareRows(ctx context.Context, userID string) (direct, group int, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM resource_shares WHERE share_type = 'user' AND target_id = $1",
		userID,
	).Scan(&direct)
	if err != nil {
		return 0, 0, storageErr("CountUserShareRows", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM resource_shares s
		JOIN user_groups ug ON ug.group_id = s.target_id
		WHERE s.share_type = 'group' AND ug.user_id = $1`,
		userID,
	).Scan(&group)
	if err != nil {
		return 0, 0, storageErr("CountUserShareRows", err)
	}
	return direct, group, nil
}

// CountAccessibleResources returns the deduplicated number of non-global
// resources a user can reach through direct or group shares
func (s *Store) CountAccessibleResources(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT s.resource_id
			FROM resource_shares s
			JOIN resources r ON r.id = s.resource_id
			WHERE s.share_type = 'user' AND s.target_id = $1 AND NOT r.is_global
			UNION
			SELECT s.resource_id
			FROM resource_shares s
			JOIN resources r ON r.id = s.resource_id
			JOIN user_groups ug ON ug.group_id = s.target_id
			WHERE s.share_type = 'group' AND ug.user_id = $2 AND NOT r.is_global
		) accessible`,
		userID, userID,
	).Scan(&count)
	if err != nil {
		return 0, storageErr("CountAccessibleResources", err)
	}
	return count, nil
}
