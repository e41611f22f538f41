// Package access implements the access resolution core: given a user or a
// resource, it computes the complete deduplicated set of access grants across
// the three overlapping grant mechanisms (direct share, group share, global
// flag) and aggregates them into paginated reports.
//
// # Grant precedence
//
// A user can reach the same resource through several mechanisms at once. The
// reported reason follows a fixed precedence:
//
//	global > direct > group
//
// A global resource short-circuits everything: every user has access and share
// rows on the resource are not consulted. Otherwise direct and group grants
// are unioned and deduplicated by user id, with "direct" winning the reason
// tie-break for display.
//
// # Usage
//
// Build a Resolver over a Store and call its query methods:
//
//	store := access.NewStore(db)
//	resolver := access.NewResolver(store)
//	list, err := resolver.ResolveResourceAccessList(ctx, resourceID)
//
// The resolver is stateless and safe for unlimited concurrent use; every call
// is an independent read against the database.
package access
