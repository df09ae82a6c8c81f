package repository

import (
	"context"
	"fmt"
	"sync"

	"book-service/internal/entity"
)

// UserRepository is the in-memory credential store.
type UserRepository struct {
	mu     sync.RWMutex
	users  []*entity.User
	nextID int
}

func NewUserRepository() *UserRepository {
	return &UserRepository{nextID: 1}
}

// Create appends a user with an already hashed password.
// Usernames are unique; a second registration fails with entity.ErrUsernameTaken.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findLocked(username) != nil {
		return nil, fmt.Errorf("create user %q: %w", username, entity.ErrUsernameTaken)
	}
	u := &entity.User{ID: r.nextID, Username: username, PasswordHash: passwordHash}
	r.nextID++
	r.users = append(r.users, u)

	out := *u
	return &out, nil
}

// GetByUsername returns (nil, nil) when no user matches.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u := r.findLocked(username)
	if u == nil {
		return nil, nil
	}
	out := *u
	return &out, nil
}

// GetByID returns (nil, nil) when no user matches.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) findLocked(username string) *entity.User {
	for _, u := range r.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}
