// Package memory implements an in-memory user store for development and testing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mealmate/server/internal/domain"
	"github.com/mealmate/server/internal/repository"
)

// DB holds users in memory. A transaction holds the store lock for its whole
// duration and restores the previous state when it fails.
type DB struct {
	mu        sync.Mutex
	users     map[uint64]*domain.User
	idCounter uint64
}

func New() *DB {
	return &DB{users: make(map[uint64]*domain.User)}
}

var _ repository.UserRepository = (*users)(nil)
var _ repository.Transactor = (*DB)(nil)
var _ repository.Pinger = (*DB)(nil)

func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		User:   db.Users(),
		Tx:     db,
		Health: db,
	}
}

// Users returns a repository that locks the store per call.
func (db *DB) Users() repository.UserRepository {
	return &users{db: db}
}

func (db *DB) WithinTransaction(ctx context.Context, fn func(users repository.UserRepository) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := make(map[uint64]*domain.User, len(db.users))
	for id, u := range db.users {
		snapshot[id] = u
	}
	counter := db.idCounter

	err := fn(&users{db: db, inTx: true})
	if err == nil {
		// A transaction whose context ended before commit is rolled back.
		err = ctx.Err()
	}
	if err != nil {
		db.users = snapshot
		db.idCounter = counter
		return err
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Count returns the number of stored users.
func (db *DB) Count() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users)
}

type users struct {
	db   *DB
	inTx bool
}

func (r *users) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.db.mu.Lock()
	return r.db.mu.Unlock
}

func (r *users) GetByID(ctx context.Context, id uint64) (*domain.User, error) {
	defer r.lock()()

	u, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (r *users) GetByKakaoIDForUpdate(ctx context.Context, kakaoID int64) (*domain.User, error) {
	defer r.lock()()

	for _, u := range r.db.users {
		if u.KakaoID != nil && *u.KakaoID == kakaoID {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *users) Create(ctx context.Context, user *domain.User) error {
	defer r.lock()()

	for _, u := range r.db.users {
		if user.KakaoID != nil && u.KakaoID != nil && *u.KakaoID == *user.KakaoID {
			return repository.ErrDuplicate
		}
		if u.FriendCode == user.FriendCode {
			return repository.ErrDuplicate
		}
	}

	r.db.idCounter++
	user.ID = r.db.idCounter
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.db.users[user.ID] = clone(user)
	return nil
}

func (r *users) Update(ctx context.Context, user *domain.User) error {
	defer r.lock()()

	existing, ok := r.db.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := clone(existing)
	updated.Email = user.Email
	updated.Nickname = user.Nickname
	updated.Status = user.Status
	updated.ProfileImageURL = user.ProfileImageURL
	updated.LastLoginAt = user.LastLoginAt
	updated.DeletedAt = user.DeletedAt
	r.db.users[user.ID] = updated
	return nil
}

func (r *users) SoftDelete(ctx context.Context, id uint64, at time.Time) (bool, error) {
	defer r.lock()()

	existing, ok := r.db.users[id]
	if !ok || existing.Status != domain.UserStatusActive {
		return false, nil
	}
	updated := clone(existing)
	updated.Status = domain.UserStatusDeleted
	updated.DeletedAt = &at
	r.db.users[id] = updated
	return true, nil
}

// clone copies u so callers never share pointers with the store.
func clone(u *domain.User) *domain.User {
	c := *u
	if u.KakaoID != nil {
		id := *u.KakaoID
		c.KakaoID = &id
	}
	if u.ProfileImageURL != nil {
		url := *u.ProfileImageURL
		c.ProfileImageURL = &url
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	if u.DeletedAt != nil {
		t := *u.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}
