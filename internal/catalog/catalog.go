package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hackgods/appointment-booking/internal/validation"
	"github.com/hackgods/appointment-booking/pkg/logging"
)

// Catalog exposes the service offering to customers and administrators.
type Catalog struct {
	repo   Repository
	logger *logging.Logger
}

func NewCatalog(repo Repository, logger *logging.Logger) *Catalog {
	if repo == nil {
		panic("catalog: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Catalog{repo: repo, logger: logger}
}

// GetAll lists active services ordered by display order, then name.
func (c *Catalog) GetAll(ctx context.Context) ([]Service, error) {
	services, err := c.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if services == nil {
		services = []Service{}
	}
	return services, nil
}

// GetByID returns an active service. Inactive services read as not found.
func (c *Catalog) GetByID(ctx context.Context, id int64) (*Service, error) {
	s, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Active {
		return nil, ErrServiceNotFound
	}
	return s, nil
}

// GetActive is the booking-side lookup: missing and inactive services are both rejected
// with ErrServiceUnavailable.
func (c *Catalog) GetActive(ctx context.Context, id int64) (*Service, error) {
	s, err := c.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, ErrServiceUnavailable
		}
		return nil, fmt.Errorf("load service: %w", err)
	}
	return s, nil
}

// GetAny returns the service regardless of its active flag.
func (c *Catalog) GetAny(ctx context.Context, id int64) (*Service, error) {
	return c.repo.GetByID(ctx, id)
}

func (c *Catalog) Create(ctx context.Context, in CreateInput) (*Service, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	s, err := c.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	c.logger.Info("service created", "service_id", s.ID, "name", s.Name, "duration", s.Duration)
	return s, nil
}

func (c *Catalog) Update(ctx context.Context, id int64, in UpdateInput) (*Service, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	s, err := c.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	c.logger.Info("service updated", "service_id", s.ID, "active", s.Active)
	return s, nil
}

// Delete deactivates the service. Rows are never removed so that historical
// appointments keep their service details.
func (c *Catalog) Delete(ctx context.Context, id int64) (*Service, error) {
	inactive := false
	s, err := c.repo.Update(ctx, id, UpdateInput{Active: &inactive})
	if err != nil {
		return nil, err
	}
	c.logger.Info("service deactivated", "service_id", s.ID)
	return s, nil
}
