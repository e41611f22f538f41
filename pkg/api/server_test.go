package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantway/grantway/pkg/access"
	"github.com/grantway/grantway/pkg/observability"
)

func newTestServer(t *testing.T) (*Server, *access.Store) {
	t.Helper()
	store := access.NewStore(access.NewTestDB(t))
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewServer(store, logger, nil), store
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func createUserViaAPI(t *testing.T, srv *Server, name, email string) access.User {
	t.Helper()
	rec := doJSON(t, srv, "POST", "/users", map[string]string{"name": name, "email": email})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user access.User
	decodeBody(t, rec, &user)
	return user
}

func createResourceViaAPI(t *testing.T, srv *Server, name string, global bool) access.Resource {
	t.Helper()
	rec := doJSON(t, srv, "POST", "/resources", map[string]interface{}{
		"name":     name,
		"isGlobal": global,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resource access.Resource
	decodeBody(t, rec, &resource)
	return resource
}

func TestCreateUserEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	user := createUserViaAPI(t, srv, "Alice", "alice@example.com")
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Alice", user.Name)
	assert.False(t, user.CreatedAt.IsZero())

	t.Run("duplicate email rejected", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/users", map[string]string{
			"name":  "Alice Again",
			"email": "alice@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/users", map[string]string{
			"name":  "  ",
			"email": "blank@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/users", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGroupEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	user := createUserViaAPI(t, srv, "Bob", "bob@example.com")

	rec := doJSON(t, srv, "POST", "/groups", map[string]string{
		"name":        "engineering",
		"description": "builders",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var group access.Group
	decodeBody(t, rec, &group)
	assert.NotEmpty(t, group.ID)

	rec = doJSON(t, srv, "POST", "/groups/"+group.ID+"/members", map[string]string{
		"userId": user.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	t.Run("duplicate membership rejected", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/groups/"+group.ID+"/members", map[string]string{
			"userId": user.ID,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown user 404", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/groups/"+group.ID+"/members", map[string]string{
			"userId": "no-such-user",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown group 404", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/groups/no-such-group/members", map[string]string{
			"userId": user.ID,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCreateShareEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	user := createUserViaAPI(t, srv, "Carol", "carol@example.com")
	resource := createResourceViaAPI(t, srv, "roadmap", false)

	rec := doJSON(t, srv, "POST", "/resources/"+resource.ID+"/shares", map[string]string{
		"shareType": "user",
		"targetId":  user.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var share access.Share
	decodeBody(t, rec, &share)
	assert.Equal(t, resource.ID, share.ResourceID)
	assert.Equal(t, access.ShareTypeUser, share.Target.Kind)

	t.Run("duplicate share conflicts", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/resources/"+resource.ID+"/shares", map[string]string{
			"shareType": "user",
			"targetId":  user.ID,
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown share type rejected", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/resources/"+resource.ID+"/shares", map[string]string{
			"shareType": "org",
			"targetId":  user.ID,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown target 404", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/resources/"+resource.ID+"/shares", map[string]string{
			"shareType": "group",
			"targetId":  "no-such-group",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown resource 404", func(t *testing.T) {
		rec := doJSON(t, srv, "POST", "/resources/no-such-resource/shares", map[string]string{
			"shareType": "user",
			"targetId":  user.ID,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAccessListEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	alice := createUserViaAPI(t, srv, "Alice", "alice@example.com")
	bob := createUserViaAPI(t, srv, "Bob", "bob@example.com")
	resource := createResourceViaAPI(t, srv, "budget", false)

	_, err := store.CreateShare(ctx, resource.ID, access.UserTarget(alice.ID))
	require.NoError(t, err)
	_, err = store.CreateShare(ctx, resource.ID, access.UserTarget(bob.ID))
	require.NoError(t, err)

	rec := doJSON(t, srv, "GET", "/resources/"+resource.ID+"/access-list", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list access.ResourceAccessList
	decodeBody(t, rec, &list)
	require.Len(t, list.Users, 2)
	assert.Equal(t, "Alice", list.Users[0].User.Name)
	assert.Equal(t, "Bob", list.Users[1].User.Name)
	assert.Equal(t, 2, list.Meta.TotalUsers)
	assert.Equal(t, 2, list.Meta.DirectShares)

	t.Run("unknown resource 404", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/resources/no-such-resource/access-list", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUserResourcesEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	alice := createUserViaAPI(t, srv, "Alice", "alice@example.com")
	createResourceViaAPI(t, srv, "handbook", true)
	private := createResourceViaAPI(t, srv, "budget", false)
	_, err := store.CreateShare(ctx, private.ID, access.UserTarget(alice.ID))
	require.NoError(t, err)

	rec := doJSON(t, srv, "GET", "/users/"+alice.ID+"/resources", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list access.UserResourceList
	decodeBody(t, rec, &list)
	require.Len(t, list.Resources, 2)
	assert.Equal(t, 2, list.Pagination.Total)
	assert.False(t, list.Pagination.HasMore)

	t.Run("pagination window", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/users/"+alice.ID+"/resources?limit=1&offset=0", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var page access.UserResourceList
		decodeBody(t, rec, &page)
		assert.Len(t, page.Resources, 1)
		assert.True(t, page.Pagination.HasMore)
	})

	t.Run("limit over maximum rejected", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/users/"+alice.ID+"/resources?limit=5000", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non-numeric limit rejected", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/users/"+alice.ID+"/resources?limit=abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown user 404", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/users/no-such-user/resources", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAccessCheckEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	alice := createUserViaAPI(t, srv, "Alice", "alice@example.com")
	resource := createResourceViaAPI(t, srv, "budget", false)

	t.Run("no access", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/users/"+alice.ID+"/access-check/"+resource.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var check access.AccessCheck
		decodeBody(t, rec, &check)
		assert.False(t, check.HasAccess)
	})

	_, err := store.CreateShare(ctx, resource.ID, access.UserTarget(alice.ID))
	require.NoError(t, err)

	t.Run("direct access", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/users/"+alice.ID+"/access-check/"+resource.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var check access.AccessCheck
		decodeBody(t, rec, &check)
		assert.True(t, check.HasAccess)
		assert.Equal(t, access.ReasonDirect, check.Reason)
		assert.NotNil(t, check.GrantedAt)
	})

	t.Run("missing resource reports no access", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/users/"+alice.ID+"/access-check/no-such-resource", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var check access.AccessCheck
		decodeBody(t, rec, &check)
		assert.False(t, check.HasAccess)
	})
}

func TestResourceStatsEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	alice := createUserViaAPI(t, srv, "Alice", "alice@example.com")
	bob := createUserViaAPI(t, srv, "Bob", "bob@example.com")
	popular := createResourceViaAPI(t, srv, "popular", false)
	createResourceViaAPI(t, srv, "lonely", false)

	_, err := store.CreateShare(ctx, popular.ID, access.UserTarget(alice.ID))
	require.NoError(t, err)
	_, err = store.CreateShare(ctx, popular.ID, access.UserTarget(bob.ID))
	require.NoError(t, err)

	rec := doJSON(t, srv, "GET", "/resources/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page access.ResourceStatsPage
	decodeBody(t, rec, &page)
	assert.Len(t, page.Resources, 2)
	assert.Equal(t, 1.0, page.Summary.AvgUsersPerResource)

	t.Run("minUsers filter", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/resources/stats?minUsers=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var filtered access.ResourceStatsPage
		decodeBody(t, rec, &filtered)
		require.Len(t, filtered.Resources, 1)
		assert.Equal(t, "popular", filtered.Resources[0].Resource.Name)
		assert.Equal(t, 1, filtered.Pagination.Total)
	})
}

func TestUserStatsEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	alice := createUserViaAPI(t, srv, "Alice", "alice@example.com")
	createUserViaAPI(t, srv, "Bob", "bob@example.com")
	budget := createResourceViaAPI(t, srv, "budget", false)
	_, err := store.CreateShare(ctx, budget.ID, access.UserTarget(alice.ID))
	require.NoError(t, err)

	rec := doJSON(t, srv, "GET", "/users/with-resource-count?sortBy=resourceCount&sortOrder=desc", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page access.UserStatsPage
	decodeBody(t, rec, &page)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "Alice", page.Users[0].User.Name)
	assert.Equal(t, 1, page.Users[0].ResourceCount)

	t.Run("minResources filter", func(t *testing.T) {
		rec := doJSON(t, srv, "GET", "/users/with-resource-count?minResources=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var filtered access.UserStatsPage
		decodeBody(t, rec, &filtered)
		require.Len(t, filtered.Users, 1)
		assert.Equal(t, "Alice", filtered.Users[0].User.Name)
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, "GET", fmt.Sprintf("/nope/%d", 1), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
