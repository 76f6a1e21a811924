package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hackgods/appointment-booking/internal/apperr"
)

var (
	ErrServiceNotFound    = apperr.NotFound("service_not_found", "service not found")
	ErrServiceUnavailable = apperr.BadRequest("service_unavailable", "service not found or inactive")
	ErrDuplicateName      = apperr.Conflict("service_name_taken", "a service with this name already exists")
)

// Repository persists services.
type Repository interface {
	ListActive(ctx context.Context) ([]Service, error)
	// GetByID returns the service regardless of its active flag.
	GetByID(ctx context.Context, id int64) (*Service, error)
	Create(ctx context.Context, in CreateInput) (*Service, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*Service, error)
}

// InMemoryRepository keeps services in a map. Backs STORAGE=memory runs and tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	services map[int64]*Service
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{services: make(map[int64]*Service)}
}

func (r *InMemoryRepository) ListActive(ctx context.Context) ([]Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Service
	for _, s := range r.services {
		if s.Active {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, in CreateInput) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(in.Name, 0) {
		return nil, ErrDuplicateName
	}
	r.nextID++
	now := time.Now().UTC()
	s := &Service{
		ID:           r.nextID,
		Name:         in.Name,
		Description:  in.Description,
		Duration:     in.Duration,
		Price:        in.Price,
		Active:       true,
		DisplayOrder: in.DisplayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.services[s.ID] = s
	cp := *s
	return &cp, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id int64, in UpdateInput) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	if in.Name != nil {
		if r.nameTaken(*in.Name, id) {
			return nil, ErrDuplicateName
		}
		s.Name = *in.Name
	}
	if in.Description != nil {
		s.Description = in.Description
	}
	if in.Duration != nil {
		s.Duration = *in.Duration
	}
	if in.Price != nil {
		s.Price = in.Price
	}
	if in.Active != nil {
		s.Active = *in.Active
	}
	if in.DisplayOrder != nil {
		s.DisplayOrder = *in.DisplayOrder
	}
	s.UpdatedAt = time.Now().UTC()
	cp := *s
	return &cp, nil
}

func (r *InMemoryRepository) nameTaken(name string, except int64) bool {
	for id, s := range r.services {
		if id != except && s.Name == name {
			return true
		}
	}
	return false
}
