package access

import (
	"context"
	"sort"
	"strings"
)

// Pagination bounds applied by the resolver. Requests above MaxPageLimit are
// rejected rather than clamped.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Resolver computes deduplicated access grants over the store. It holds no
// state of its own; every method is an independent read (or, for CreateShare,
// a single insert) and the resolver is safe for unlimited concurrent use.
type Resolver struct {
	store *Store
}

// NewResolver creates a resolver over the given store
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// normalizePage applies defaults and validates pagination parameters
func normalizePage(page Page) (Page, error) {
	if page.Limit == 0 {
		page.Limit = DefaultPageLimit
	}
	if page.Limit < 0 {
		return page, NewValidationError("limit", "must be positive")
	}
	if page.Limit > MaxPageLimit {
		return page, NewValidationError("limit", "must not exceed 200")
	}
	if page.Offset < 0 {
		return page, NewValidationError("offset", "must not be negative")
	}
	return page, nil
}

// paginate windows a list of n items and reports the resulting bounds
func paginate(n int, page Page) (start, end int, p Pagination) {
	start = page.Offset
	if start > n {
		start = n
	}
	end = start + page.Limit
	if end > n {
		end = n
	}
	return start, end, Pagination{
		Limit:   page.Limit,
		Offset:  page.Offset,
		Total:   n,
		HasMore: page.Offset+page.Limit < n,
	}
}

// ResolveResourceAccessList computes the complete deduplicated set of users
// with access to a resource, each tagged with the reason granting it.
//
// A global resource short-circuits: every user is returned with reason
// "global" and both share counts are zero by policy, regardless of any stray
// share rows. Otherwise direct and group grants are unioned and deduplicated
// by user id; a user reachable both ways is reported once with reason
// "direct". The result is sorted by user name, ascending and case-sensitive.
func (r *Resolver) ResolveResourceAccessList(ctx context.Context, resourceID string) (*ResourceAccessList, error) {
	resource, err := r.store.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	if resource.IsGlobal {
		users, err := r.store.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		entries := make([]AccessEntry, 0, len(users))
		for _, user := range users {
			entries = append(entries, AccessEntry{User: user, Reason: ReasonGlobal})
		}
		sortAccessEntries(entries)
		return &ResourceAccessList{
			Resource: *resource,
			Users:    entries,
			Meta: AccessListMeta{
				TotalUsers: len(entries),
				IsGlobal:   true,
			},
		}, nil
	}

	directShares, groupShares, err := r.store.CountShares(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	direct, err := r.store.ListDirectAccessors(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	viaGroup, err := r.store.ListGroupAccessors(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	// Union, deduplicated by user id. Direct wins the reason tie-break; group
	// rows keep the earliest share timestamp (rows arrive ordered).
	byUser := make(map[string]AccessEntry, len(direct)+len(viaGroup))
	for _, g := range direct {
		if _, seen := byUser[g.User.ID]; !seen {
			granted := g.GrantedAt
			byUser[g.User.ID] = AccessEntry{User: g.User, Reason: ReasonDirect, GrantedAt: &granted}
		}
	}
	for _, g := range viaGroup {
		if _, seen := byUser[g.User.ID]; !seen {
			granted := g.GrantedAt
			byUser[g.User.ID] = AccessEntry{User: g.User, Reason: ReasonGroup, GrantedAt: &granted}
		}
	}

	entries := make([]AccessEntry, 0, len(byUser))
	for _, entry := range byUser {
		entries = append(entries, entry)
	}
	sortAccessEntries(entries)

	return &ResourceAccessList{
		Resource: *resource,
		Users:    entries,
		Meta: AccessListMeta{
			TotalUsers:   len(entries),
			DirectShares: directShares,
			GroupShares:  groupShares,
		},
	}, nil
}

// sortAccessEntries orders entries by user name ascending, case-sensitive,
// with id as a deterministic tie-break
func sortAccessEntries(entries []AccessEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].User.Name != entries[j].User.Name {
			return entries[i].User.Name < entries[j].User.Name
		}
		return entries[i].User.ID < entries[j].User.ID
	})
}

// ResolveUserResources computes the paginated list of resources a user can
// access, each tagged with its reason. Precedence per resource is global >
// direct > group; resources the user cannot reach are excluded entirely.
// Pagination windows the final deduplicated list, so Total always equals the
// full accessible count.
func (r *Resolver) ResolveUserResources(ctx context.Context, userID string, page Page) (*UserResourceList, error) {
	page, err := normalizePage(page)
	if err != nil {
		return nil, err
	}

	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	globals, err := r.store.ListGlobalResources(ctx)
	if err != nil {
		return nil, err
	}
	direct, err := r.store.ListDirectResourceGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	viaGroup, err := r.store.ListGroupResourceGrants(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Dedup by resource id in precedence order. Global carries no grant
	// timestamp; shares on a global resource are redundant and never surface.
	byResource := make(map[string]ResourceGrant, len(globals)+len(direct)+len(viaGroup))
	for _, resource := range globals {
		byResource[resource.ID] = ResourceGrant{Resource: resource, Reason: ReasonGlobal}
	}
	for _, g := range direct {
		if _, seen := byResource[g.Resource.ID]; !seen {
			granted := g.GrantedAt
			byResource[g.Resource.ID] = ResourceGrant{Resource: g.Resource, Reason: ReasonDirect, GrantedAt: &granted}
		}
	}
	for _, g := range viaGroup {
		if _, seen := byResource[g.Resource.ID]; !seen {
			granted := g.GrantedAt
			byResource[g.Resource.ID] = ResourceGrant{Resource: g.Resource, Reason: ReasonGroup, GrantedAt: &granted}
		}
	}

	grants := make([]ResourceGrant, 0, len(byResource))
	for _, grant := range byResource {
		grants = append(grants, grant)
	}
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].Resource.Name != grants[j].Resource.Name {
			return grants[i].Resource.Name < grants[j].Resource.Name
		}
		return grants[i].Resource.ID < grants[j].Resource.ID
	})

	start, end, pagination := paginate(len(grants), page)
	return &UserResourceList{
		User:       *user,
		Resources:  grants[start:end],
		Pagination: pagination,
	}, nil
}

// CheckAccess answers whether a single user can access a single resource,
// short-circuiting on the first applicable rule: global, then direct, then
// group. It touches only rows relevant to this pair.
//
// A nonexistent resource grants nothing and returns hasAccess=false rather
// than an error; this is a deliberate asymmetry from the list operations,
// which report NotFound.
func (r *Resolver) CheckAccess(ctx context.Context, userID, resourceID string) (*AccessCheck, error) {
	resource, err := r.store.GetResource(ctx, resourceID)
	if err != nil {
		if IsNotFound(err) {
			return &AccessCheck{HasAccess: false}, nil
		}
		return nil, err
	}

	if resource.IsGlobal {
		return &AccessCheck{HasAccess: true, Reason: ReasonGlobal}, nil
	}

	share, err := r.store.FindDirectShare(ctx, resourceID, userID)
	if err != nil {
		return nil, err
	}
	if share != nil {
		granted := share.CreatedAt
		return &AccessCheck{HasAccess: true, Reason: ReasonDirect, GrantedAt: &granted}, nil
	}

	share, err = r.store.FindGroupShare(ctx, resourceID, userID)
	if err != nil {
		return nil, err
	}
	if share != nil {
		granted := share.CreatedAt
		return &AccessCheck{HasAccess: true, Reason: ReasonGroup, GrantedAt: &granted}, nil
	}

	return &AccessCheck{HasAccess: false}, nil
}

// ResourceStatistics computes per-resource access statistics. UserCount is
// the deduplicated accessor count (global resources count every user); the
// share counts stay raw grant-record counts and are zero for global
// resources, matching the access-list policy.
//
// MinUsers filters the candidate set before pagination windows it, so a page
// never contains a resource below the threshold and Total counts only
// qualifying resources. The summary average is computed over the returned
// page, not the full table.
func (r *Resolver) ResourceStatistics(ctx context.Context, opts ResourceStatsOptions) (*ResourceStatsPage, error) {
	page, err := normalizePage(opts.Page)
	if err != nil {
		return nil, err
	}
	if opts.MinUsers < 0 {
		return nil, NewValidationError("min_users", "must not be negative")
	}

	resources, err := r.store.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	totalUsers, err := r.store.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]ResourceStats, 0, len(resources))
	for _, resource := range resources {
		stats := ResourceStats{Resource: resource}
		if resource.IsGlobal {
			stats.UserCount = totalUsers
		} else {
			stats.UserCount, err = r.store.CountDistinctAccessors(ctx, resource.ID)
			if err != nil {
				return nil, err
			}
			stats.DirectShares, stats.GroupShares, err = r.store.CountShares(ctx, resource.ID)
			if err != nil {
				return nil, err
			}
		}
		if stats.UserCount >= opts.MinUsers {
			filtered = append(filtered, stats)
		}
	}

	start, end, pagination := paginate(len(filtered), page)
	pageStats := filtered[start:end]

	var summary ResourceStatsSummary
	if len(pageStats) > 0 {
		sum := 0
		for _, stats := range pageStats {
			sum += stats.UserCount
		}
		summary.AvgUsersPerResource = float64(sum) / float64(len(pageStats))
	}

	return &ResourceStatsPage{
		Resources:  pageStats,
		Pagination: pagination,
		Summary:    summary,
	}, nil
}

// UserStatistics computes per-user accessible-resource statistics.
// ResourceCount is the deduplicated count: distinct non-global resources
// reachable through direct or group shares, plus every global resource.
// DirectResources and GroupResources remain raw grant counts that may overlap
// each other and the global set, so they can sum to more than ResourceCount.
//
// MinResources filters before pagination. Sort fields outside the allow-list
// (name, email, createdAt, resourceCount) fall back to name ascending.
func (r *Resolver) UserStatistics(ctx context.Context, opts UserStatsOptions) (*UserStatsPage, error) {
	page, err := normalizePage(opts.Page)
	if err != nil {
		return nil, err
	}
	if opts.MinResources < 0 {
		return nil, NewValidationError("min_resources", "must not be negative")
	}

	users, err := r.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	globalCount, err := r.store.CountGlobalResources(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]UserStats, 0, len(users))
	for _, user := range users {
		stats := UserStats{User: user}
		stats.DirectResources, stats.GroupResources, err = r.store.CountUserShareRows(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		shared, err := r.store.CountAccessibleResources(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		stats.ResourceCount = shared + globalCount
		if stats.ResourceCount >= opts.MinResources {
			filtered = append(filtered, stats)
		}
	}

	sortUserStats(filtered, opts.SortBy, opts.SortOrder)

	start, end, pagination := paginate(len(filtered), page)
	pageStats := filtered[start:end]

	var summary UserStatsSummary
	if len(pageStats) > 0 {
		sum := 0
		for _, stats := range pageStats {
			sum += stats.ResourceCount
		}
		summary.AvgResourcesPerUser = float64(sum) / float64(len(pageStats))
	}

	return &UserStatsPage{
		Users:      pageStats,
		Pagination: pagination,
		Summary:    summary,
	}, nil
}

// sortUserStats orders stats by the requested field. Unknown fields fall back
// to name ascending rather than erroring.
func sortUserStats(stats []UserStats, sortBy, sortOrder string) {
	desc := strings.EqualFold(sortOrder, SortDesc)

	var less func(a, b UserStats) bool
	switch sortBy {
	case SortByEmail:
		less = func(a, b UserStats) bool { return a.User.Email < b.User.Email }
	case SortByCreatedAt:
		less = func(a, b UserStats) bool { return a.User.CreatedAt.Before(b.User.CreatedAt) }
	case SortByResourceCount:
		less = func(a, b UserStats) bool { return a.ResourceCount < b.ResourceCount }
	case SortByName:
		less = func(a, b UserStats) bool { return a.User.Name < b.User.Name }
	default:
		less = func(a, b UserStats) bool { return a.User.Name < b.User.Name }
		desc = false
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if desc {
			return less(stats[j], stats[i])
		}
		return less(stats[i], stats[j])
	})
}

// CreateShare grants access to a resource for a user or a group. The target
// must exist; a duplicate grant is rejected with ErrDuplicateShare, which
// callers may treat as "already shared".
func (r *Resolver) CreateShare(ctx context.Context, resourceID string, target ShareTarget) (*Share, error) {
	return r.store.CreateShare(ctx, resourceID, target)
}
