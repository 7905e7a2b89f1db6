package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mealmate/server/internal/domain"
	"github.com/mealmate/server/internal/repository"
	"golang.org/x/oauth2"
)

var (
	ErrMissingCode     = errors.New("authorization code or access token is required")
	ErrUserNotFound    = errors.New("user not found")
	ErrAccountInactive = errors.New("account is not active")
)

const defaultUpsertAttempts = 3

// ProviderClient is the identity provider as seen by AuthService.
type ProviderClient interface {
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*domain.ProviderProfile, error)
	AuthCodeURL(state string) (string, error)
}

type AuthService struct {
	provider  ProviderClient
	directory *UserDirectory
	issuer    *SessionIssuer
	users     repository.UserRepository
	tx        repository.Transactor

	dbTimeout      time.Duration
	upsertAttempts int
}

func NewAuthService(provider ProviderClient, directory *UserDirectory, issuer *SessionIssuer, repos *repository.Repositories, dbTimeout time.Duration) *AuthService {
	return &AuthService{
		provider:       provider,
		directory:      directory,
		issuer:         issuer,
		users:          repos.User,
		tx:             repos.Tx,
		dbTimeout:      dbTimeout,
		upsertAttempts: defaultUpsertAttempts,
	}
}

type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
	IsNewUser bool
}

// ExchangeKakaoCode runs the full login: code for provider token, provider
// token for profile, profile into the user table, then a session token.
// Nothing is written unless every provider call succeeded.
func (s *AuthService) ExchangeKakaoCode(ctx context.Context, code string) (*AuthResult, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	token, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.loginWithProviderToken(ctx, token)
}

// ExchangeKakaoAccessToken logs in with a provider access token the client
// obtained itself, skipping the code exchange.
func (s *AuthService) ExchangeKakaoAccessToken(ctx context.Context, accessToken string) (*AuthResult, error) {
	if accessToken == "" {
		return nil, ErrMissingCode
	}
	return s.loginWithProviderToken(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}

func (s *AuthService) loginWithProviderToken(ctx context.Context, token *oauth2.Token) (*AuthResult, error) {
	profile, err := s.provider.FetchProfile(ctx, token)
	if err != nil {
		return nil, err
	}

	user, isNew, err := s.upsert(ctx, profile)
	if err != nil {
		return nil, err
	}

	signed, expiresAt, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:      user,
		Token:     signed,
		ExpiresAt: expiresAt,
		IsNewUser: isNew,
	}, nil
}

// upsert retries the whole transaction when a concurrent login for the same
// identity inserted first or the database aborted on a lock conflict. The
// retry observes the committed row and takes the update path.
func (s *AuthService) upsert(ctx context.Context, profile *domain.ProviderProfile) (*domain.User, bool, error) {
	var (
		user  *domain.User
		isNew bool
		err   error
	)

	for attempt := 1; attempt <= s.upsertAttempts; attempt++ {
		user, isNew, err = s.upsertOnce(ctx, profile)
		if err == nil {
			return user, isNew, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) && !errors.Is(err, repository.ErrConflict) {
			return nil, false, err
		}
		if ctx.Err() != nil {
			break
		}
		slog.WarnContext(ctx, "retrying user upsert",
			"kakao_id", profile.ProviderID,
			"attempt", attempt,
			"error", err,
		)
	}

	return nil, false, err
}

func (s *AuthService) upsertOnce(ctx context.Context, profile *domain.ProviderProfile) (*domain.User, bool, error) {
	if s.dbTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.dbTimeout)
		defer cancel()
	}

	var (
		user  *domain.User
		isNew bool
	)
	err := s.tx.WithinTransaction(ctx, func(users repository.UserRepository) error {
		var err error
		user, isNew, err = s.directory.UpsertFromProvider(ctx, users, profile)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrDirectory) {
			err = fmt.Errorf("%w: commit: %w", domain.ErrDirectory, err)
		}
		return nil, false, err
	}
	return user, isNew, nil
}

// Authenticate resolves a session token to the live user row. A validly
// signed token for a deleted account is refused.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: lookup session user: %w", domain.ErrDirectory, err)
	}

	if !user.IsActive() {
		return nil, ErrAccountInactive
	}
	return user, nil
}

// Logout is a no-op on the server; session tokens stay valid until expiry.
func (s *AuthService) Logout(ctx context.Context, user *domain.User) error {
	slog.InfoContext(ctx, "user logged out", "user_id", user.ID)
	return nil
}

// DeleteAccount soft-deletes the user. Existing tokens stop authenticating
// immediately; a later Kakao login reactivates the row.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uint64) error {
	deleted, err := s.users.SoftDelete(ctx, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: delete user: %w", domain.ErrDirectory, err)
	}
	if !deleted {
		return ErrUserNotFound
	}
	return nil
}

// KakaoAuthorizeURL returns the consent page URL and the state embedded in it.
func (s *AuthService) KakaoAuthorizeURL() (string, string, error) {
	state := uuid.NewString()
	authURL, err := s.provider.AuthCodeURL(state)
	if err != nil {
		return "", "", err
	}
	return authURL, state, nil
}
