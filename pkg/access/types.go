package access

import (
	"time"
)

// ShareType identifies the kind of entity a share targets
type ShareType string

const (
	ShareTypeUser  ShareType = "user"
	ShareTypeGroup ShareType = "group"
)

// AccessReason classifies why a user has access to a resource
type AccessReason string

const (
	ReasonGlobal AccessReason = "global"
	ReasonDirect AccessReason = "direct"
	ReasonGroup  AccessReason = "group"
)

// User represents an identity with a unique email
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Group represents a named collection of users
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Membership represents a user's membership in a group. The (user, group)
// pair is unique; a user cannot join the same group twice.
type Membership struct {
	UserID   string    `json:"user_id"`
	GroupID  string    `json:"group_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Resource represents a shareable entity. When IsGlobal is set every user in
// the system has implicit access and share rows contribute nothing.
type Resource struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsGlobal    bool      `json:"is_global"`
	CreatedAt   time.Time `json:"created_at"`
}

// ShareTarget is the tagged variant a share grant points at: either a user or
// a group. The referenced id must exist in the table named by Kind, validated
// at write time.
type ShareTarget struct {
	Kind ShareType `json:"kind"`
	ID   string    `json:"id"`
}

// UserTarget returns a share target naming a specific user
func UserTarget(userID string) ShareTarget {
	return ShareTarget{Kind: ShareTypeUser, ID: userID}
}

// GroupTarget returns a share target naming a group
func GroupTarget(groupID string) ShareTarget {
	return ShareTarget{Kind: ShareTypeGroup, ID: groupID}
}

// Share represents a grant record on a resource. (resource, target kind,
// target id) is unique; duplicate grants are rejected.
type Share struct {
	ID         string      `json:"id"`
	ResourceID string      `json:"resource_id"`
	Target     ShareTarget `json:"target"`
	CreatedAt  time.Time   `json:"created_at"`
}

// AccessEntry is one user in a resource access list, tagged with the reason
// that grants the access
type AccessEntry struct {
	User      User         `json:"user"`
	Reason    AccessReason `json:"reason"`
	GrantedAt *time.Time   `json:"granted_at,omitempty"`
}

// AccessListMeta carries the raw grant-record counts for an access list.
// DirectShares and GroupShares count share rows, not deduplicated users;
// TotalUsers is the deduplicated user count. For a global resource both share
// counts are zero by policy regardless of any stray rows.
type AccessListMeta struct {
	TotalUsers   int  `json:"total_users"`
	DirectShares int  `json:"direct_shares"`
	GroupShares  int  `json:"group_shares"`
	IsGlobal     bool `json:"is_global"`
}

// ResourceAccessList is the full deduplicated access list for one resource,
// sorted by user name ascending
type ResourceAccessList struct {
	Resource Resource       `json:"resource"`
	Users    []AccessEntry  `json:"users"`
	Meta     AccessListMeta `json:"meta"`
}

// ResourceGrant is one accessible resource in a user's resource list
type ResourceGrant struct {
	Resource  Resource     `json:"resource"`
	Reason    AccessReason `json:"reason"`
	GrantedAt *time.Time   `json:"granted_at,omitempty"`
}

// Page holds limit/offset pagination parameters
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Pagination describes the window returned by a paginated operation. Total is
// the size of the full filtered set, independent of the window.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// UserResourceList is the paginated list of resources a user can access
type UserResourceList struct {
	User       User            `json:"user"`
	Resources  []ResourceGrant `json:"resources"`
	Pagination Pagination      `json:"pagination"`
}

// AccessCheck is the result of a single (user, resource) access check
type AccessCheck struct {
	HasAccess bool         `json:"has_access"`
	Reason    AccessReason `json:"reason,omitempty"`
	GrantedAt *time.Time   `json:"granted_at,omitempty"`
}

// ResourceStats aggregates access counts for one resource. UserCount is the
// deduplicated accessor count; DirectShares and GroupShares are raw share-row
// counts.
type ResourceStats struct {
	Resource     Resource `json:"resource"`
	UserCount    int      `json:"user_count"`
	DirectShares int      `json:"direct_shares"`
	GroupShares  int      `json:"group_shares"`
}

// ResourceStatsSummary summarizes the returned page of resource statistics.
// AvgUsersPerResource is the mean over the returned page, not the full table.
type ResourceStatsSummary struct {
	AvgUsersPerResource float64 `json:"avg_users_per_resource"`
}

// ResourceStatsPage is a page of per-resource statistics
type ResourceStatsPage struct {
	Resources  []ResourceStats      `json:"resources"`
	Pagination Pagination           `json:"pagination"`
	Summary    ResourceStatsSummary `json:"summary"`
}

// ResourceStatsOptions controls the resource statistics report. MinUsers
// filters resources by deduplicated user count before pagination is applied.
type ResourceStatsOptions struct {
	Page
	MinUsers int `json:"min_users"`
}

// UserStats aggregates accessible-resource counts for one user.
// ResourceCount is the deduplicated accessible-resource count.
// DirectResources and GroupResources are raw grant counts that may overlap
// each other and the global set; they can sum to more than ResourceCount.
type UserStats struct {
	User            User `json:"user"`
	ResourceCount   int  `json:"resource_count"`
	DirectResources int  `json:"direct_resources"`
	GroupResources  int  `json:"group_resources"`
}

// UserStatsSummary summarizes the returned page of user statistics
type UserStatsSummary struct {
	AvgResourcesPerUser float64 `json:"avg_resources_per_user"`
}

// UserStatsPage is a page of per-user statistics
type UserStatsPage struct {
	Users      []UserStats      `json:"users"`
	Pagination Pagination       `json:"pagination"`
	Summary    UserStatsSummary `json:"summary"`
}

// Sort fields accepted by UserStatistics. Anything else falls back to
// SortByName ascending.
const (
	SortByName          = "name"
	SortByEmail         = "email"
	SortByCreatedAt     = "createdAt"
	SortByResourceCount = "resourceCount"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// UserStatsOptions controls the user statistics report. MinResources filters
// users by deduplicated resource count before pagination is applied.
type UserStatsOptions struct {
	Page
	MinResources int    `json:"min_resources"`
	SortBy       string `json:"sort_by"`
	SortOrder    string `json:"sort_order"`
}
