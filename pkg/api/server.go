package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/grantway/grantway/pkg/access"
	"github.com/grantway/grantway/pkg/httputil"
	"github.com/grantway/grantway/pkg/observability"
)

// Server represents the API server
type Server struct {
	store    *access.Store
	resolver *access.Resolver
	router   *mux.Router
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewServer creates a new API server over the given store. The metrics
// argument may be nil, in which case resolver instrumentation is skipped.
func NewServer(store *access.Store, logger *observability.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		store:    store,
		resolver: access.NewResolver(store),
		router:   mux.NewRouter(),
		logger:   logger,
		metrics:  metrics,
	}
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router returns the underlying mux router for middleware wrapping
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Access resolution routes
	s.router.HandleFunc("/resources/{id}/access-list", s.getResourceAccessList).Methods("GET")
	s.router.HandleFunc("/users/{id}/resources", s.getUserResources).Methods("GET")
	s.router.HandleFunc("/users/{id}/access-check/{resourceId}", s.checkAccess).Methods("GET")

	// Statistics routes
	s.router.HandleFunc("/resources/stats", s.getResourceStats).Methods("GET")
	s.router.HandleFunc("/users/with-resource-count", s.getUserStats).Methods("GET")

	// Management routes
	s.router.HandleFunc("/users", s.createUser).Methods("POST")
	s.router.HandleFunc("/groups", s.createGroup).Methods("POST")
	s.router.HandleFunc("/groups/{id}/members", s.addGroupMember).Methods("POST")
	s.router.HandleFunc("/resources", s.createResource).Methods("POST")
	s.router.HandleFunc("/resources/{id}/shares", s.createShare).Methods("POST")

	s.router.HandleFunc("/health", s.health).Methods("GET")
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}

// writeError translates resolver and store errors onto HTTP status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var nf *access.NotFoundError
	if errors.As(err, &nf) {
		httputil.WriteNotFound(w, nf.Error())
		return
	}

	var verr *access.ValidationError
	if errors.As(err, &verr) {
		httputil.WriteBadRequest(w, verr.Error())
		return
	}

	if errors.Is(err, access.ErrDuplicateShare) {
		httputil.WriteConflict(w, err.Error())
		return
	}

	s.logger.WithError(err).Error("request failed")
	httputil.WriteInternalError(w, "internal server error")
}

// observe records one resolver operation when metrics are enabled
func (s *Server) observe(operation string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveResolverOperation(operation, err, time.Since(start))
	}
}
