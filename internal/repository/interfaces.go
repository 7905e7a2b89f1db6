package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mealmate/server/internal/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate reports a unique constraint violation (kakao_id or friend_code).
	ErrDuplicate = errors.New("duplicate key")
	// ErrConflict reports a deadlock or serialization failure; the transaction
	// was rolled back by the database and may be retried.
	ErrConflict = errors.New("transaction conflict")
)

type UserRepository interface {
	GetByID(ctx context.Context, id uint64) (*domain.User, error)
	// GetByKakaoIDForUpdate reads the row and, inside a transaction, holds a
	// write lock on it until commit.
	GetByKakaoIDForUpdate(ctx context.Context, kakaoID int64) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	// SoftDelete marks an ACTIVE user DELETED. It reports false when no
	// active row matched.
	SoftDelete(ctx context.Context, id uint64, at time.Time) (bool, error)
}

// Transactor runs fn inside one database transaction. The repository handed
// to fn is bound to that transaction; returning an error rolls it back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(users UserRepository) error) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Repositories struct {
	User   UserRepository
	Tx     Transactor
	Health Pinger
}
