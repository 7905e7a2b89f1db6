package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// KakaoAccount is a user known to FakeKakao.
type KakaoAccount struct {
	ID              int64
	Email           string
	Nickname        string
	ProfileImageURL string
}

// FakeKakao serves the token and user-info endpoints of Kakao. Codes are
// single use, like the real ones.
type FakeKakao struct {
	server *httptest.Server

	mu            sync.Mutex
	codes         map[string]string
	accounts      map[string]KakaoAccount
	tokenStatus   int
	profileStatus int
	tokenCalls    int
	profileCalls  int
}

func NewFakeKakao(t *testing.T) *FakeKakao {
	t.Helper()

	f := &FakeKakao{
		codes:    make(map[string]string),
		accounts: make(map[string]KakaoAccount),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", f.handleToken)
	mux.HandleFunc("GET /v2/user/me", f.handleUserMe)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	return f
}

func (f *FakeKakao) URL() string {
	return f.server.URL
}

// AddAccount registers account and returns an authorization code and an
// access token that both resolve to it.
func (f *FakeKakao) AddAccount(code string, account KakaoAccount) (accessToken string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	accessToken = "access-" + code
	f.codes[code] = accessToken
	f.accounts[accessToken] = account
	return accessToken
}

// FailToken makes the token endpoint answer every request with status.
func (f *FakeKakao) FailToken(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus = status
}

// FailProfile makes the user-info endpoint answer every request with status.
func (f *FakeKakao) FailProfile(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileStatus = status
}

func (f *FakeKakao) Calls() (token, profile int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls, f.profileCalls
}

func (f *FakeKakao) handleToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenCalls++

	if f.tokenStatus != 0 {
		writeFakeJSON(w, f.tokenStatus, map[string]string{"error": "server_error"})
		return
	}

	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "authorization_code" {
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	code := r.PostForm.Get("code")
	accessToken, ok := f.codes[code]
	if !ok {
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "authorization code not found for code=" + code,
		})
		return
	}
	delete(f.codes, code)

	writeFakeJSON(w, http.StatusOK, map[string]any{
		"access_token":  accessToken,
		"token_type":    "bearer",
		"refresh_token": "refresh-" + code,
		"expires_in":    21599,
	})
}

func (f *FakeKakao) handleUserMe(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++

	if f.profileStatus != 0 {
		writeFakeJSON(w, f.profileStatus, map[string]any{"msg": "forced failure", "code": -1})
		return
	}

	accessToken, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	account, known := f.accounts[accessToken]
	if !ok || !known {
		writeFakeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "this access token does not exist", "code": -401})
		return
	}

	profile := map[string]any{"nickname": account.Nickname}
	if account.ProfileImageURL != "" {
		profile["profile_image_url"] = account.ProfileImageURL
	}
	kakaoAccount := map[string]any{"profile": profile}
	if account.Email != "" {
		kakaoAccount["email"] = account.Email
	}

	writeFakeJSON(w, http.StatusOK, map[string]any{
		"id":            account.ID,
		"kakao_account": kakaoAccount,
	})
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
