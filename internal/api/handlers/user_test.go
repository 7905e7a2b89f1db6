package handlers_test

import (
	"net/http"
	"testing"

	"github.com/mealmate/server/internal/api/respond"
	"github.com/mealmate/server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_Me(t *testing.T) {
	ts := testutil.NewTestServer(t)
	login := ts.LoginWithKakao(t, "code", testutil.KakaoAccount{ID: 12345, Email: "a@b.com", Nickname: "Kim"})

	resp := testutil.DoJSON(t, http.MethodGet, ts.APIURL("/user/me"), nil, login.Token)
	defer resp.Body.Close()

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var me struct {
		UserID     uint64 `json:"userId"`
		FriendCode string `json:"friendCode"`
		Status     string `json:"status"`
	}
	testutil.AssertJSONResponse(t, resp, &me)
	assert.Equal(t, login.User.UserID, me.UserID)
	assert.Equal(t, login.User.FriendCode, me.FriendCode)
	assert.Equal(t, "ACTIVE", me.Status)
}

func TestUserHandler_ProtectedRoutesRequireToken(t *testing.T) {
	ts := testutil.NewTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/user/me"},
		{http.MethodPost, "/user/logout"},
		{http.MethodDelete, "/user/delete_account"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := testutil.DoJSON(t, tt.method, ts.APIURL(tt.path), nil, "")
			defer resp.Body.Close()
			testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, respond.CodeMissingToken)
		})
	}

	t.Run("tampered token", func(t *testing.T) {
		resp := testutil.DoJSON(t, http.MethodGet, ts.APIURL("/user/me"), nil, "eyJhbGciOiJIUzI1NiJ9.e30.bm9wZQ")
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusForbidden, respond.CodeTokenInvalid)
	})
}

func TestUserHandler_Logout(t *testing.T) {
	ts := testutil.NewTestServer(t)
	login := ts.LoginWithKakao(t, "code", testutil.KakaoAccount{ID: 12345, Email: "a@b.com", Nickname: "Kim"})

	resp := testutil.DoJSON(t, http.MethodPost, ts.APIURL("/user/logout"), nil, login.Token)
	defer resp.Body.Close()

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	testutil.AssertJSONResponse(t, resp, &result)
	assert.True(t, result.Success)

	// Tokens are stateless; logout does not revoke them.
	again := testutil.DoJSON(t, http.MethodGet, ts.APIURL("/user/me"), nil, login.Token)
	defer again.Body.Close()
	testutil.AssertStatusCode(t, again, http.StatusOK)
}

func TestUserHandler_DeleteAccountLifecycle(t *testing.T) {
	ts := testutil.NewTestServer(t)
	account := testutil.KakaoAccount{ID: 12345, Email: "a@b.com", Nickname: "Kim"}
	login := ts.LoginWithKakao(t, "code-1", account)

	resp := testutil.DoJSON(t, http.MethodDelete, ts.APIURL("/user/delete_account"), nil, login.Token)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := ts.Repos.User.GetByID(t.Context(), login.User.UserID)
	require.NoError(t, err)
	assert.Equal(t, "DELETED", string(stored.Status))
	assert.NotNil(t, stored.DeletedAt)

	// The old token now belongs to an inactive account.
	resp = testutil.DoJSON(t, http.MethodGet, ts.APIURL("/user/me"), nil, login.Token)
	testutil.AssertErrorResponse(t, resp, http.StatusForbidden, respond.CodeAccountInactive)
	resp.Body.Close()

	// Logging in again reactivates the same row.
	relogin := ts.LoginWithKakao(t, "code-2", account)
	assert.False(t, relogin.IsNewUser)
	assert.Equal(t, login.User.UserID, relogin.User.UserID)
	assert.Equal(t, "ACTIVE", relogin.User.Status)

	resp = testutil.DoJSON(t, http.MethodGet, ts.APIURL("/user/me"), nil, login.Token)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserHandler_TokenForRemovedUser(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user := testutil.NewUserBuilder().Build(t, ts.Repos.User)
	token, _, err := ts.Services.Sessions.Issue(user)
	require.NoError(t, err)

	// A token signed for an id that no longer resolves.
	user.ID += 1000
	orphan, _, err := ts.Services.Sessions.Issue(user)
	require.NoError(t, err)

	resp := testutil.DoJSON(t, http.MethodGet, ts.APIURL("/user/me"), nil, token)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = testutil.DoJSON(t, http.MethodGet, ts.APIURL("/user/me"), nil, orphan)
	defer resp.Body.Close()
	testutil.AssertErrorResponse(t, resp, http.StatusNotFound, respond.CodeUserNotFound)
}

func TestHealthHandler(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var body struct {
		Status string `json:"status"`
	}
	testutil.AssertJSONResponse(t, resp, &body)
	assert.Equal(t, "ok", body.Status)
}
