package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/mealmate/server/internal/domain"
	"github.com/mealmate/server/internal/repository"
)

// 32 symbols, no 0/O/1/I.
const friendCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// UserDirectory owns the user row for a provider identity. Its methods take
// the repository to write through, so callers decide the transaction scope.
type UserDirectory struct {
	now          func() time.Time
	friendCodeFn func() (string, error)
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{
		now:          time.Now,
		friendCodeFn: generateFriendCode,
	}
}

// UpsertFromProvider creates the user for profile.ProviderID or refreshes the
// existing one. An existing user is always left ACTIVE, including one that
// was soft-deleted. The bool result is true when a row was inserted.
//
// A repository.ErrDuplicate from the insert means another login won the race
// or the friend code collided; the caller should roll back and retry.
func (d *UserDirectory) UpsertFromProvider(ctx context.Context, users repository.UserRepository, profile *domain.ProviderProfile) (*domain.User, bool, error) {
	now := d.now().UTC()

	existing, err := users.GetByKakaoIDForUpdate(ctx, profile.ProviderID)
	switch {
	case err == nil:
		existing.Email = profile.Email
		existing.Nickname = profile.Nickname
		if profile.ProfileImageURL != "" {
			image := profile.ProfileImageURL
			existing.ProfileImageURL = &image
		}
		existing.Reactivate(now)

		if err := existing.Validate(); err != nil {
			return nil, false, directoryError("invalid user", err)
		}
		if err := users.Update(ctx, existing); err != nil {
			return nil, false, directoryError("update user", err)
		}
		return existing, false, nil

	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, directoryError("lookup user", err)
	}

	code, err := d.friendCodeFn()
	if err != nil {
		return nil, false, directoryError("generate friend code", err)
	}

	providerID := profile.ProviderID
	user := &domain.User{
		KakaoID:     &providerID,
		Email:       profile.Email,
		Nickname:    profile.Nickname,
		FriendCode:  code,
		Status:      domain.UserStatusActive,
		LastLoginAt: &now,
	}
	if profile.ProfileImageURL != "" {
		image := profile.ProfileImageURL
		user.ProfileImageURL = &image
	}

	if err := user.Validate(); err != nil {
		return nil, false, directoryError("invalid user", err)
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, false, directoryError("create user", err)
	}

	// Re-read so the caller sees database defaults and the generated id.
	created, err := users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, false, directoryError("reload user", err)
	}
	return created, true, nil
}

func directoryError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrDirectory, op, err)
}

func generateFriendCode() (string, error) {
	buf := make([]byte, domain.FriendCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = friendCodeAlphabet[int(b)%len(friendCodeAlphabet)]
	}
	return string(buf), nil
}
