package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mealmate/server/internal/api/middleware"
	"github.com/mealmate/server/internal/api/respond"
	"github.com/mealmate/server/internal/domain"
	"github.com/mealmate/server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authenticatorFunc func(ctx context.Context, token string) (*domain.User, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	return f(ctx, token)
}

func TestAuth(t *testing.T) {
	activeUser := &domain.User{ID: 7, Email: "a@b.com", Nickname: "Kim", Status: domain.UserStatusActive}

	tests := []struct {
		name       string
		header     string
		authErr    error
		wantStatus int
		wantCode   string
	}{
		{name: "authenticated", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusOK},
		{name: "no header", header: "", wantStatus: http.StatusUnauthorized, wantCode: respond.CodeMissingToken},
		{name: "wrong scheme", header: "Basic dXNlcjpwdw==", wantStatus: http.StatusUnauthorized, wantCode: respond.CodeMissingToken},
		{name: "empty bearer", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantCode: respond.CodeMissingToken},
		{name: "expired", header: "Bearer t", authErr: service.ErrTokenExpired, wantStatus: http.StatusUnauthorized, wantCode: respond.CodeTokenExpired},
		{name: "invalid signature", header: "Bearer t", authErr: service.ErrTokenInvalid, wantStatus: http.StatusForbidden, wantCode: respond.CodeTokenInvalid},
		{name: "user missing", header: "Bearer t", authErr: service.ErrUserNotFound, wantStatus: http.StatusNotFound, wantCode: respond.CodeUserNotFound},
		{name: "account inactive", header: "Bearer t", authErr: service.ErrAccountInactive, wantStatus: http.StatusForbidden, wantCode: respond.CodeAccountInactive},
		{name: "directory failure", header: "Bearer t", authErr: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantCode: respond.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotToken string
			auth := authenticatorFunc(func(ctx context.Context, token string) (*domain.User, error) {
				gotToken = token
				if tt.authErr != nil {
					return nil, tt.authErr
				}
				return activeUser, nil
			})

			var reached bool
			handler := middleware.Auth(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				user, ok := middleware.GetUser(r.Context())
				require.True(t, ok)
				assert.Equal(t, activeUser.ID, user.ID)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/user/logout", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				assert.True(t, reached)
				assert.Equal(t, "good", gotToken)
				return
			}

			assert.False(t, reached)
			var body respond.ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestGetUser_Missing(t *testing.T) {
	_, ok := middleware.GetUser(context.Background())
	assert.False(t, ok)
}
