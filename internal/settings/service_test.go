package settings

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/appointment-booking/internal/apperr"
	"github.com/hackgods/appointment-booking/pkg/logging"
)

func newCachedService(t *testing.T) (*Service, *InMemoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewInMemoryStore(Defaults()...)
	svc := NewService(store, client, time.Minute, logging.NewWithWriter("error", io.Discard))
	return svc, store, mr
}

func TestFromSettingsDefaults(t *testing.T) {
	bh, err := FromSettings(Defaults())
	require.NoError(t, err)
	assert.Equal(t, DefaultBusinessHours(), bh)
}

func TestFromSettingsRejectsBadRows(t *testing.T) {
	tests := []struct {
		name string
		rows []Setting
	}{
		{"non numeric hour", []Setting{{Key: KeyBusinessHoursStart, Value: "eight"}}},
		{"bad json days", []Setting{{Key: KeyBusinessDays, Value: "[1,2"}}},
		{"start after end", []Setting{{Key: KeyBusinessHoursStart, Value: "19"}}},
		{"day out of range", []Setting{{Key: KeyBusinessDays, Value: "[1,7]"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromSettings(tt.rows)
			assert.Error(t, err)
		})
	}
}

func TestIsBusinessDay(t *testing.T) {
	bh := DefaultBusinessHours()
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, bh.IsBusinessDay(monday))
	assert.False(t, bh.IsBusinessDay(monday.AddDate(0, 0, 5)))
	assert.False(t, bh.IsBusinessDay(monday.AddDate(0, 0, 6)))

	bh.BusinessDays = []int{6}
	assert.True(t, bh.IsBusinessDay(monday.AddDate(0, 0, 5)))
}

func TestBusinessHoursIsCached(t *testing.T) {
	svc, store, mr := newCachedService(t)
	ctx := context.Background()

	bh, err := svc.BusinessHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, bh.StartHour)
	assert.True(t, mr.Exists(CacheKey))

	// A write that bypasses the service is not seen until the entry expires.
	_, err = store.UpdateValue(ctx, KeyBusinessHoursStart, "9")
	require.NoError(t, err)

	bh, err = svc.BusinessHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, bh.StartHour)

	mr.FastForward(2 * time.Minute)
	bh, err = svc.BusinessHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, bh.StartHour)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	svc, _, mr := newCachedService(t)
	ctx := context.Background()

	_, err := svc.BusinessHours(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists(CacheKey))

	updated, err := svc.Update(ctx, KeyBusinessHoursEnd, UpdateInput{Value: "17"})
	require.NoError(t, err)
	assert.Equal(t, "17", updated.Value)
	assert.False(t, mr.Exists(CacheKey))

	bh, err := svc.BusinessHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, 17, bh.EndHour)
}

func TestUpdateValidation(t *testing.T) {
	svc, _, _ := newCachedService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		val  string
		kind apperr.Kind
	}{
		{"unknown key", "theme", "dark", apperr.KindNotFound},
		{"empty value", KeySlotDuration, "", apperr.KindValidation},
		{"wrong type", KeySlotDuration, "sixty", apperr.KindValidation},
		{"invalid json", KeyBusinessDays, "[1,2,", apperr.KindValidation},
		{"end before start", KeyBusinessHoursEnd, "6", apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tt.key, UpdateInput{Value: tt.val})
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	rows, err := svc.List(ctx)
	require.NoError(t, err)
	for _, r := range rows {
		if r.Key == KeyBusinessHoursEnd {
			assert.Equal(t, "18", r.Value)
		}
	}
}

func TestBusinessHoursWithoutCache(t *testing.T) {
	svc := NewService(NewInMemoryStore(), nil, time.Minute, logging.NewWithWriter("error", io.Discard))

	bh, err := svc.BusinessHours(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultBusinessHours(), bh)
}

func TestBusinessHoursSurvivesRedisOutage(t *testing.T) {
	svc, _, mr := newCachedService(t)
	mr.Close()

	bh, err := svc.BusinessHours(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 18, bh.EndHour)
}
