package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/catalog"
	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/metrics"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
	"github.com/hackgods/appointment-booking/internal/schedule"
	"github.com/hackgods/appointment-booking/internal/settings"
	"github.com/hackgods/appointment-booking/pkg/logging"
)

const testSecret = "test-secret"

var brt = time.FixedZone("BRT", -3*60*60)

type okPinger struct{ err error }

func (p okPinger) Ping(ctx context.Context) error { return p.err }

type testServer struct {
	handler http.Handler
	fiscal  *catalog.Service
	metrics *metrics.SchedulingMetrics
}

func newTestServer(t *testing.T, rdb *redis.Client, rateLimit int) *testServer {
	t.Helper()
	logger := logging.NewWithWriter("error", io.Discard)

	services := catalog.NewInMemoryRepository()
	cat := catalog.NewCatalog(services, logger)
	fiscal, err := cat.Create(context.Background(), catalog.CreateInput{Name: "Consultoria Fiscal", Duration: 60, DisplayOrder: 1})
	require.NoError(t, err)
	_, err = cat.Create(context.Background(), catalog.CreateInput{Name: "Abertura de Empresa", Duration: 90, DisplayOrder: 2})
	require.NoError(t, err)

	settingsSvc := settings.NewService(settings.NewInMemoryStore(settings.Defaults()...), rdb, time.Minute, logger)

	reg := prometheus.NewRegistry()
	m := metrics.NewSchedulingMetrics(reg)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, brt)
	var locker redisclient.Locker
	if rdb != nil {
		locker = redisclient.NewRedisLocker(rdb, 5*time.Second)
	}
	svc := appointment.NewService(
		appointment.NewInMemoryRepository(services),
		cat,
		settingsSvc,
		locker,
		config.Config{Location: brt},
		logger,
		appointment.WithMetrics(m),
		appointment.WithClock(func() time.Time { return now }),
	)

	h := NewRouter(RouterConfig{
		Appointments:   svc,
		Catalog:        cat,
		Settings:       settingsSvc,
		PgPool:         okPinger{},
		Redis:          rdb,
		Logger:         logger,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminSecret:    testSecret,
		RateLimit:      rateLimit,
		Env:            "test",
		Version:        "v-test",
	})
	return &testServer{handler: h, fiscal: fiscal, metrics: m}
}

func adminToken(t *testing.T, secret string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken(t, testSecret))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func bookingBody(serviceID int64, at string) map[string]any {
	return map[string]any{
		"name":        "Maria Silva",
		"email":       "maria@example.com",
		"phone":       "(11) 98765-4321",
		"serviceId":   serviceID,
		"scheduledAt": at,
	}
}

func TestPublicBookingFlow(t *testing.T) {
	s := newTestServer(t, nil, 0)

	rec := s.do(t, http.MethodGet, "/services", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	services := decodeBody[[]catalog.Service](t, rec)
	require.Len(t, services, 2)
	assert.Equal(t, "Consultoria Fiscal", services[0].Name)

	rec = s.do(t, http.MethodPost, "/appointments", bookingBody(s.fiscal.ID, "2025-03-10T09:00"), false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[CreatedResponse](t, rec)
	require.Positive(t, created.ID)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/appointments/%d", created.ID), nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[appointment.AppointmentDetail](t, rec)
	assert.Equal(t, appointment.StatusPending, detail.Status)
	require.NotNil(t, detail.Service)
	assert.Equal(t, "Consultoria Fiscal", detail.Service.Name)
	assert.Equal(t, "2025-03-10T09:00", schedule.FormatAPI(detail.ScheduledAt.In(brt)))

	slotsPath := fmt.Sprintf("/appointments/slots?date=2025-03-10&serviceId=%d", s.fiscal.ID)
	rec = s.do(t, http.MethodGet, slotsPath, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decodeBody[[]schedule.Slot](t, rec)
	assert.Len(t, slots, 9)
	for _, sl := range slots {
		assert.NotEqual(t, "09:00", sl.Start.In(brt).Format("15:04"))
	}

	rec = s.do(t, http.MethodPost, "/appointments", bookingBody(s.fiscal.ID, "2025-03-10T09:00"), false)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_conflict", decodeBody[ErrorResponse](t, rec).Error)

	cancelPath := fmt.Sprintf("/appointments/%d/cancel", created.ID)
	rec = s.do(t, http.MethodPost, cancelPath, map[string]string{"email": "someone@example.com"}, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, cancelPath, map[string]string{"email": "maria@example.com"}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appointment.StatusCancelled, decodeBody[appointment.Appointment](t, rec).Status)

	rec = s.do(t, http.MethodGet, slotsPath, nil, false)
	assert.Len(t, decodeBody[[]schedule.Slot](t, rec), 10)
}

func TestGetByIDUnknownReturnsNull(t *testing.T) {
	s := newTestServer(t, nil, 0)

	for _, path := range []string{"/appointments/999", "/services/999"} {
		rec := s.do(t, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()), path)
	}
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t, nil, 0)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		raw        string
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{
			name:       "invalid email",
			method:     http.MethodPost,
			path:       "/appointments",
			body:       map[string]any{"name": "Maria", "email": "nope", "phone": "11987654321", "serviceId": 1, "scheduledAt": "2025-03-10T09:00"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_failed",
			wantField:  "email",
		},
		{
			name:       "malformed json",
			method:     http.MethodPost,
			path:       "/appointments",
			raw:        "{not json",
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request_body",
		},
		{
			name:       "wrong field type",
			method:     http.MethodPost,
			path:       "/appointments",
			raw:        `{"serviceId": "one"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request_body",
			wantField:  "serviceId",
		},
		{
			name:       "non numeric id",
			method:     http.MethodGet,
			path:       "/appointments/abc",
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_id",
		},
		{
			name:       "slots for unknown service",
			method:     http.MethodGet,
			path:       "/appointments/slots?date=2025-03-10&serviceId=999",
			wantStatus: http.StatusNotFound,
			wantCode:   "service_not_found",
		},
		{
			name:       "slots with non numeric service",
			method:     http.MethodGet,
			path:       "/appointments/slots?date=2025-03-10&serviceId=x",
			wantStatus: http.StatusBadRequest,
			wantField:  "serviceId",
		},
		{
			name:       "booking an unknown service",
			method:     http.MethodPost,
			path:       "/appointments",
			body:       bookingBody(999, "2025-03-10T09:00"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "service_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if tt.raw != "" {
				req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.raw))
				rec = httptest.NewRecorder()
				s.handler.ServeHTTP(rec, req)
			} else {
				rec = s.do(t, tt.method, tt.path, tt.body, false)
			}

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			got := decodeBody[ErrorResponse](t, rec)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, got.Error)
			}
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, got.Field)
			}
		})
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil, 0)

	rec := s.do(t, http.MethodGet, "/admin/appointments", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "other-secret"))
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/appointments", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]appointment.AppointmentDetail](t, rec))
}

func TestAdminAppointmentsAndStatus(t *testing.T) {
	s := newTestServer(t, nil, 0)

	rec := s.do(t, http.MethodPost, "/appointments", bookingBody(s.fiscal.ID, "2025-03-10T09:00"), false)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody[CreatedResponse](t, rec).ID

	rec = s.do(t, http.MethodPatch, fmt.Sprintf("/admin/appointments/%d/status", id), map[string]string{"status": "confirmed"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, appointment.StatusConfirmed, decodeBody[appointment.Appointment](t, rec).Status)

	rec = s.do(t, http.MethodPatch, fmt.Sprintf("/admin/appointments/%d/status", id), map[string]string{"status": "archived"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	q := url.Values{
		"startDate": {"2025-03-10T03:00:00.000Z"},
		"endDate":   {"2025-03-11T02:59:59.999Z"},
		"status":    {"confirmed"},
	}
	rec = s.do(t, http.MethodGet, "/admin/appointments/range?"+q.Encode(), nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decodeBody[[]appointment.AppointmentDetail](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	q.Set("status", "pending")
	rec = s.do(t, http.MethodGet, "/admin/appointments/range?"+q.Encode(), nil, true)
	assert.Empty(t, decodeBody[[]appointment.AppointmentDetail](t, rec))
}

func TestAdminServiceLifecycle(t *testing.T) {
	s := newTestServer(t, nil, 0)

	rec := s.do(t, http.MethodPost, "/admin/services", map[string]any{"name": "Contabilidade Mensal", "duration": 45}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[catalog.Service](t, rec)

	rec = s.do(t, http.MethodPost, "/admin/services", map[string]any{"name": "Curto", "duration": 10}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "duration", decodeBody[ErrorResponse](t, rec).Field)

	rec = s.do(t, http.MethodPatch, fmt.Sprintf("/admin/services/%d", created.ID), map[string]any{"duration": 50}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, decodeBody[catalog.Service](t, rec).Duration)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/admin/services/%d", created.ID), nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[catalog.Service](t, rec).Active)

	rec = s.do(t, http.MethodGet, "/services", nil, false)
	assert.Len(t, decodeBody[[]catalog.Service](t, rec), 2)
}

func TestAdminBlockedSlots(t *testing.T) {
	s := newTestServer(t, nil, 0)

	rec := s.do(t, http.MethodPost, "/admin/blocked-slots", map[string]any{
		"startAt": "2025-03-10T12:00",
		"endAt":   "2025-03-10T13:00",
		"reason":  "Almoço",
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	block := decodeBody[appointment.BlockedSlot](t, rec)

	rec = s.do(t, http.MethodGet, "/admin/blocked-slots?start=2025-03-10&end=2025-03-10", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]appointment.BlockedSlot](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/admin/blocked-slots?start=2025-03-11&end=2025-03-12", nil, true)
	assert.Empty(t, decodeBody[[]appointment.BlockedSlot](t, rec))

	rec = s.do(t, http.MethodGet, "/admin/blocked-slots?start=yesterday", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/appointments", bookingBody(s.fiscal.ID, "2025-03-10T11:00"), false)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_blocked", decodeBody[ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/admin/blocked-slots/%d", block.ID), nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/admin/blocked-slots/%d", block.ID), nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminSettingsDriveSlots(t *testing.T) {
	s := newTestServer(t, nil, 0)

	rec := s.do(t, http.MethodGet, "/admin/settings", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]settings.Setting](t, rec), 6)

	rec = s.do(t, http.MethodPut, "/admin/settings/business_hours_start", map[string]string{"value": "10"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/admin/settings/business_hours_end", map[string]string{"value": "9"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/admin/settings/unknown_key", map[string]string{"value": "1"}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/appointments/slots?date=2025-03-10&serviceId=%d", s.fiscal.ID), nil, false)
	slots := decodeBody[[]schedule.Slot](t, rec)
	require.Len(t, slots, 8)
	assert.Equal(t, "10:00", slots[0].Start.In(brt).Format("15:04"))
}

func TestPublicBookingIsRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newTestServer(t, rdb, 2)

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodPost, "/appointments", map[string]any{}, false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/appointments", map[string]any{}, false)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Reads are not limited.
	rec = s.do(t, http.MethodGet, "/services", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, 0)
	s.do(t, http.MethodGet, "/services", nil, false)

	rec := s.do(t, http.MethodGet, "/metrics", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "agenda_http_requests_total")
}

func TestBookingDuringRedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newTestServer(t, rdb, 30)
	mr.Close()

	rec := s.do(t, http.MethodGet, "/health/ready", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", decodeBody[ReadinessResponse](t, rec).Status)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/appointments/slots?date=2025-03-10&serviceId=%d", s.fiscal.ID), nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/appointments", bookingBody(s.fiscal.ID, "2025-03-10T09:00"), false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/appointments", bookingBody(s.fiscal.ID, "2025-03-10T09:00"), false)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
