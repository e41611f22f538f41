package api

import (
	"net/http"
	"time"

	"github.com/grantway/grantway/pkg/access"
	"github.com/grantway/grantway/pkg/httputil"
)

// parsePage extracts limit/offset query parameters. Defaults and range checks
// are applied by the resolver.
func parsePage(r *http.Request) (access.Page, error) {
	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil {
		return access.Page{}, err
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		return access.Page{}, err
	}
	return access.Page{Limit: limit, Offset: offset}, nil
}

// getResourceAccessList handles GET /resources/{id}/access-list
func (s *Server) getResourceAccessList(w http.ResponseWriter, r *http.Request) {
	resourceID, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	start := time.Now()
	list, err := s.resolver.ResolveResourceAccessList(r.Context(), resourceID)
	s.observe("ResolveResourceAccessList", err, start)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// getUserResources handles GET /users/{id}/resources
func (s *Server) getUserResources(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	page, err := parsePage(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	start := time.Now()
	list, err := s.resolver.ResolveUserResources(r.Context(), userID, page)
	s.observe("ResolveUserResources", err, start)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// checkAccess handles GET /users/{id}/access-check/{resourceId}
func (s *Server) checkAccess(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	resourceID, err := httputil.ParsePathString(r, "resourceId")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	start := time.Now()
	check, err := s.resolver.CheckAccess(r.Context(), userID, resourceID)
	s.observe("CheckAccess", err, start)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveAccessCheck(check.HasAccess, string(check.Reason))
	}
	httputil.WriteSuccess(w, check)
}

// getResourceStats handles GET /resources/stats
func (s *Server) getResourceStats(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	minUsers, err := httputil.ParseQueryInt(r, "minUsers", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	start := time.Now()
	stats, err := s.resolver.ResourceStatistics(r.Context(), access.ResourceStatsOptions{
		Page:     page,
		MinUsers: minUsers,
	})
	s.observe("ResourceStatistics", err, start)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, stats)
}

// getUserStats handles GET /users/with-resource-count
func (s *Server) getUserStats(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	minResources, err := httputil.ParseQueryInt(r, "minResources", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	start := time.Now()
	stats, err := s.resolver.UserStatistics(r.Context(), access.UserStatsOptions{
		Page:         page,
		MinResources: minResources,
		SortBy:       httputil.ParseQueryString(r, "sortBy", access.SortByName),
		SortOrder:    httputil.ParseQueryString(r, "sortOrder", access.SortAsc),
	})
	s.observe("UserStatistics", err, start)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, stats)
}
