package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/appointment-booking/internal/validation"
	"github.com/hackgods/appointment-booking/pkg/logging"
)

// CacheKey holds the serialized BusinessHours.
const CacheKey = "settings:business_hours"

// Provider supplies the scheduling settings to the availability and booking paths.
type Provider interface {
	BusinessHours(ctx context.Context) (BusinessHours, error)
}

// Static is a Provider returning fixed values.
type Static BusinessHours

func (s Static) BusinessHours(context.Context) (BusinessHours, error) {
	return BusinessHours(s), nil
}

// Service reads and updates settings. Business hours are cached in Redis when a client is
// configured; any update drops the cached copy.
type Service struct {
	store  Store
	cache  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewService(store Store, cache *redis.Client, ttl time.Duration, logger *logging.Logger) *Service {
	if store == nil {
		panic("settings: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, cache: cache, ttl: ttl, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]Setting, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Setting{}
	}
	return rows, nil
}

// Update replaces a setting's value after checking it against the setting's type and, for
// scheduling keys, against the other scheduling settings.
func (s *Service) Update(ctx context.Context, key string, in UpdateInput) (*Setting, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	current, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := checkType(current.Type, in.Value); err != nil {
		return nil, err
	}

	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Key == key {
			rows[i].Value = in.Value
		}
	}
	if _, err := FromSettings(rows); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateValue(ctx, key, in.Value)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	s.logger.Info("setting updated", "key", key, "value", in.Value)
	return updated, nil
}

// BusinessHours implements Provider.
func (s *Service) BusinessHours(ctx context.Context) (BusinessHours, error) {
	if bh, ok := s.cached(ctx); ok {
		return bh, nil
	}

	rows, err := s.store.List(ctx)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("settings: load: %w", err)
	}
	bh, err := FromSettings(rows)
	if err != nil {
		return BusinessHours{}, err
	}

	if s.cache != nil {
		data, err := json.Marshal(bh)
		if err == nil {
			err = s.cache.Set(ctx, CacheKey, data, s.ttl).Err()
		}
		if err != nil {
			s.logger.Warn("settings cache write failed", "error", err)
		}
	}
	return bh, nil
}

// Invalidate drops the cached business hours.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, CacheKey).Err(); err != nil {
		s.logger.Warn("settings cache invalidate failed", "error", err)
	}
}

func (s *Service) cached(ctx context.Context) (BusinessHours, bool) {
	if s.cache == nil {
		return BusinessHours{}, false
	}
	data, err := s.cache.Get(ctx, CacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("settings cache read failed", "error", err)
		}
		return BusinessHours{}, false
	}
	var bh BusinessHours
	if err := json.Unmarshal(data, &bh); err != nil {
		s.logger.Warn("settings cache entry corrupt", "error", err)
		return BusinessHours{}, false
	}
	return bh, true
}
