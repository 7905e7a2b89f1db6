package service_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mealmate/server/internal/domain"
	"github.com/mealmate/server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionIssuer_RequiresSecret(t *testing.T) {
	_, err := service.NewSessionIssuer("", time.Hour)
	assert.ErrorIs(t, err, service.ErrMissingSigningSecret)

	_, err = service.NewSessionIssuer("secret", 0)
	assert.Error(t, err)
}

func TestSessionIssuer_IssueAndParse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := service.NewSessionIssuer("test-secret", 7*24*time.Hour, service.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	user := &domain.User{ID: 42, Email: "a@b.com", Nickname: "Kim"}

	token, expiresAt, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, now.Add(7*24*time.Hour), expiresAt)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "Kim", claims.Nickname)
	assert.Equal(t, strconv.Itoa(42), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestSessionIssuer_TokensAreUnique(t *testing.T) {
	issuer, err := service.NewSessionIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	user := &domain.User{ID: 1, Email: "a@b.com", Nickname: "Kim"}
	first, _, err := issuer.Issue(user)
	require.NoError(t, err)
	second, _, err := issuer.Issue(user)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestSessionIssuer_Parse(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer, err := service.NewSessionIssuer("test-secret", time.Hour, service.WithClock(func() time.Time { return issuedAt }))
	require.NoError(t, err)
	valid, _, err := signer.Issue(&domain.User{ID: 7, Email: "a@b.com", Nickname: "Kim"})
	require.NoError(t, err)

	otherSigner, err := service.NewSessionIssuer("other-secret", time.Hour, service.WithClock(func() time.Time { return issuedAt }))
	require.NoError(t, err)
	foreign, _, err := otherSigner.Issue(&domain.User{ID: 7, Email: "a@b.com", Nickname: "Kim"})
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, service.SessionClaims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, service.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		at      time.Time
		wantErr error
	}{
		{name: "valid", token: valid, at: issuedAt.Add(30 * time.Minute)},
		{name: "expired", token: valid, at: issuedAt.Add(2 * time.Hour), wantErr: service.ErrTokenExpired},
		{name: "wrong secret", token: foreign, at: issuedAt, wantErr: service.ErrTokenInvalid},
		{name: "unexpected algorithm", token: hs512, at: issuedAt, wantErr: service.ErrTokenInvalid},
		{name: "missing user id", token: noUser, at: issuedAt, wantErr: service.ErrTokenInvalid},
		{name: "garbage", token: "not-a-jwt", at: issuedAt, wantErr: service.ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			verifier, err := service.NewSessionIssuer("test-secret", time.Hour, service.WithClock(func() time.Time { return at }))
			require.NoError(t, err)

			claims, err := verifier.Parse(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(7), claims.UserID)
		})
	}
}
