package identity

import (
	"context"
	"sync"

	"classtrack/internal/domain"
)

// InMemRepository is a map-backed repository for tests and local development.
type InMemRepository struct {
	mu     sync.RWMutex
	users  map[int]User
	nextID int
}

func NewInMemRepository() *InMemRepository {
	return &InMemRepository{users: make(map[int]User), nextID: 1}
}

func (r *InMemRepository) Create(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return User{}, ErrEmailExists
		}
		if existing.UserNumber == u.UserNumber {
			return User{}, ErrUserNumberExists
		}
	}
	u.ID = r.nextID
	r.nextID++
	r.users[u.ID] = u
	return u, nil
}

func (r *InMemRepository) ByID(_ context.Context, id int) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *InMemRepository) ByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, domain.ErrNotFound
}
