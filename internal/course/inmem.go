package course

import (
	"context"
	"sort"
	"sync"

	"classtrack/internal/domain"
)

// InMemRepository is a map-backed repository for tests and local development.
type InMemRepository struct {
	mu      sync.RWMutex
	courses map[int]Course
	nextID  int
}

func NewInMemRepository() *InMemRepository {
	return &InMemRepository{courses: make(map[int]Course), nextID: 1}
}

func (r *InMemRepository) Create(_ context.Context, c Course) (Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.courses {
		if existing.Code == c.Code {
			return Course{}, ErrCodeExists
		}
	}
	c.ID = r.nextID
	r.nextID++
	r.courses[c.ID] = c
	return c, nil
}

func (r *InMemRepository) ByID(_ context.Context, id int) (Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.courses[id]
	if !ok {
		return Course{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *InMemRepository) Update(_ context.Context, c Course) (Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[c.ID]; !ok {
		return Course{}, domain.ErrNotFound
	}
	r.courses[c.ID] = c
	return c, nil
}

func (r *InMemRepository) SetLifecycle(_ context.Context, id int, lc domain.Lifecycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Lifecycle = lc
	r.courses[id] = c
	return nil
}

func (r *InMemRepository) Active(_ context.Context) ([]Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []Course
	for _, c := range r.courses {
		if c.Lifecycle == domain.LifecycleActive {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res, nil
}

func (r *InMemRepository) ByOwner(_ context.Context, ownerID int) ([]Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []Course
	for _, c := range r.courses {
		if c.OwnerID == ownerID {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res, nil
}
