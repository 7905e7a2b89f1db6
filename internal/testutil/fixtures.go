package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mealmate/server/internal/domain"
	"github.com/mealmate/server/internal/repository"
)

var fixtureSeq atomic.Int64

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	kakaoID    int64
	email      string
	nickname   string
	friendCode string
	status     domain.UserStatus
}

// NewUserBuilder creates a new UserBuilder with unique default values
func NewUserBuilder() *UserBuilder {
	n := fixtureSeq.Add(1)
	return &UserBuilder{
		kakaoID:    1_000_000 + n,
		email:      fmt.Sprintf("user%d@example.com", n),
		nickname:   fmt.Sprintf("user%d", n),
		friendCode: fmt.Sprintf("TST%05d", n),
		status:     domain.UserStatusActive,
	}
}

func (b *UserBuilder) WithKakaoID(id int64) *UserBuilder {
	b.kakaoID = id
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithNickname(nickname string) *UserBuilder {
	b.nickname = nickname
	return b
}

func (b *UserBuilder) WithFriendCode(code string) *UserBuilder {
	b.friendCode = code
	return b
}

// Deleted builds the user in the soft-deleted state.
func (b *UserBuilder) Deleted() *UserBuilder {
	b.status = domain.UserStatusDeleted
	return b
}

// Build stores the user through users and returns it with its assigned id
func (b *UserBuilder) Build(t *testing.T, users repository.UserRepository) *domain.User {
	t.Helper()

	kakaoID := b.kakaoID
	user := &domain.User{
		KakaoID:    &kakaoID,
		Email:      b.email,
		Nickname:   b.nickname,
		FriendCode: b.friendCode,
		Status:     b.status,
	}
	if b.status == domain.UserStatusDeleted {
		deletedAt := time.Now().UTC().Truncate(time.Millisecond)
		user.DeletedAt = &deletedAt
	}

	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// TokenExchangeResponse mirrors the body of a successful token exchange
type TokenExchangeResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		UserID          uint64  `json:"userId"`
		FriendCode      string  `json:"friendCode"`
		Nickname        string  `json:"nickname"`
		Email           string  `json:"email"`
		ProfileImageURL *string `json:"profileImageUrl"`
		Status          string  `json:"status"`
	} `json:"user"`
	IsNewUser bool `json:"isNewUser"`
}

// ErrorResponse mirrors the JSON error envelope
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// LoginWithKakao registers account with the fake provider and runs the token
// exchange, returning the decoded response.
func (ts *TestServer) LoginWithKakao(t *testing.T, code string, account KakaoAccount) *TokenExchangeResponse {
	t.Helper()

	ts.Kakao.AddAccount(code, account)
	resp := DoJSON(t, http.MethodPost, ts.APIURL("/auth/kakao/token_exchange"), map[string]string{"code": code}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		t.Fatalf("token exchange failed with status %d", resp.StatusCode)
	}

	var result TokenExchangeResponse
	AssertJSONResponse(t, resp, &result)
	return &result
}

// CreateAuthenticatedRequest builds a request with an optional JSON body and bearer token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// DoJSON sends a request built by CreateAuthenticatedRequest
func DoJSON(t *testing.T, method, url string, body interface{}, token string) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(CreateAuthenticatedRequest(t, method, url, body, token))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}
