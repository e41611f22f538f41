package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/grantway/grantway/pkg/access"
	"github.com/grantway/grantway/pkg/httputil"
)

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type addMemberRequest struct {
	UserID string `json:"userId"`
}

type createResourceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsGlobal    bool   `json:"isGlobal"`
}

type createShareRequest struct {
	ShareType string `json:"shareType"`
	TargetID  string `json:"targetId"`
}

// createUser handles POST /users
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.WriteBadRequest(w, access.NewValidationError("name", "must not be empty").Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httputil.WriteBadRequest(w, access.NewValidationError("email", "must not be empty").Error())
		return
	}

	user := access.User{Name: req.Name, Email: req.Email}
	if err := s.store.CreateUser(r.Context(), &user); err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteCreated(w, user)
}

// createGroup handles POST /groups
func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.WriteBadRequest(w, access.NewValidationError("name", "must not be empty").Error())
		return
	}

	group := access.Group{Name: req.Name, Description: req.Description}
	if err := s.store.CreateGroup(r.Context(), &group); err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteCreated(w, group)
}

// addGroupMember handles POST /groups/{id}/members
func (s *Server) addGroupMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	var req addMemberRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.UserID == "" {
		httputil.WriteBadRequest(w, access.NewValidationError("userId", "must not be empty").Error())
		return
	}

	membership, err := s.store.AddMember(r.Context(), req.UserID, groupID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteCreated(w, membership)
}

// createResource handles POST /resources
func (s *Server) createResource(w http.ResponseWriter, r *http.Request) {
	var req createResourceRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.WriteBadRequest(w, access.NewValidationError("name", "must not be empty").Error())
		return
	}

	resource := access.Resource{
		Name:        req.Name,
		Description: req.Description,
		IsGlobal:    req.IsGlobal,
	}
	if err := s.store.CreateResource(r.Context(), &resource); err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteCreated(w, resource)
}

// createShare handles POST /resources/{id}/shares
func (s *Server) createShare(w http.ResponseWriter, r *http.Request) {
	resourceID, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	var req createShareRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.TargetID == "" {
		httputil.WriteBadRequest(w, access.NewValidationError("targetId", "must not be empty").Error())
		return
	}

	var target access.ShareTarget
	switch access.ShareType(req.ShareType) {
	case access.ShareTypeUser:
		target = access.UserTarget(req.TargetID)
	case access.ShareTypeGroup:
		target = access.GroupTarget(req.TargetID)
	default:
		httputil.WriteBadRequest(w, access.NewValidationError("shareType", "must be user or group").Error())
		return
	}

	start := time.Now()
	share, err := s.resolver.CreateShare(r.Context(), resourceID, target)
	s.observe("CreateShare", err, start)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteCreated(w, share)
}
