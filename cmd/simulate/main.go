package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/hackgods/appointment-booking/internal/db"
	"github.com/hackgods/appointment-booking/internal/schedule"
)

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	BookRatio   float64
	CancelRatio float64
	ReadRatio   float64
	Days        int
	Timezone    string
	PostgresDSN string // optional, enables the double-booking check after the run
}

type service struct {
	ID       int64 `json:"id"`
	Duration int   `json:"duration"`
}

type slot struct {
	ServiceID   int64
	ScheduledAt string
}

type booked struct {
	ID    int64
	Email string
}

// DataPool holds the targets workers pick from. Slots are shared so workers contend for them.
type DataPool struct {
	Slots        []slot
	mu           sync.RWMutex
	appointments []booked
}

func (dp *DataPool) AddAppointment(b booked) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, b)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (booked, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return booked{}, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Limited   int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err != nil:
		atomic.AddInt64(&om.Error, 1)
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case status == http.StatusTooManyRequests:
		atomic.AddInt64(&om.Limited, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Booking  OperationMetrics
	Cancel   OperationMetrics
	ReadByID OperationMetrics
	Slots    OperationMetrics
}

type Simulator struct {
	config   SimConfig
	pool     *DataPool
	services []service
	client   *http.Client
	metrics  Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d book=%.2f cancel=%.2f read=%.2f days=%d",
		cfg.Duration, cfg.Workers, cfg.BookRatio, cfg.CancelRatio, cfg.ReadRatio, cfg.Days)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sim.loadDataPool(ctx); err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded: %d services, %d open slots", len(sim.services), len(sim.pool.Slots))

	sim.Run()
	sim.PrintReport()

	if cfg.PostgresDSN != "" {
		if err := verifyNoDoubleBookings(cfg.PostgresDSN); err != nil {
			log.Fatalf("verification failed: %v", err)
		}
	}
}

func loadConfig() SimConfig {
	_ = godotenv.Load()

	cfg := SimConfig{
		APIBaseURL:  strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 10),
		BookRatio:   getFloat("SIM_BOOK_RATIO", 0.6),
		CancelRatio: getFloat("SIM_CANCEL_RATIO", 0.1),
		ReadRatio:   getFloat("SIM_READ_RATIO", 0.3),
		Days:        getInt("SIM_DAYS", 3),
		Timezone:    getEnv("BUSINESS_TIMEZONE", "America/Sao_Paulo"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}

	// Normalize ratios
	total := cfg.BookRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Days <= 0 {
		return fmt.Errorf("SIM_DAYS must be > 0")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("BUSINESS_TIMEZONE: %w", err)
	}
	return nil
}

// loadDataPool collects every open slot over the next SIM_DAYS days for every active service.
func (s *Simulator) loadDataPool(ctx context.Context) error {
	if err := s.getJSON(ctx, "/services", &s.services); err != nil {
		return fmt.Errorf("load services: %w", err)
	}
	if len(s.services) == 0 {
		return fmt.Errorf("no services loaded")
	}

	loc, _ := time.LoadLocation(s.config.Timezone)
	tomorrow := schedule.StartOfDay(time.Now().In(loc)).AddDate(0, 0, 1)

	pool := &DataPool{}
	for d := 0; d < s.config.Days; d++ {
		date := tomorrow.AddDate(0, 0, d).Format(schedule.DateLayout)
		for _, svc := range s.services {
			var slots []schedule.Slot
			q := url.Values{"date": {date}, "serviceId": {strconv.FormatInt(svc.ID, 10)}}
			if err := s.getJSON(ctx, "/appointments/slots?"+q.Encode(), &slots); err != nil {
				return fmt.Errorf("load slots for %s: %w", date, err)
			}
			for _, sl := range slots {
				pool.Slots = append(pool.Slots, slot{ServiceID: svc.ID, ScheduledAt: schedule.FormatAPI(sl.Start.In(loc))})
			}
		}
	}
	if len(pool.Slots) == 0 {
		return fmt.Errorf("no open slots in the next %d days", s.config.Days)
	}
	s.pool = pool
	return nil
}

func (s *Simulator) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	// Each worker poses as its own client so the per-IP rate limit applies per worker.
	clientIP := gofakeit.IPv4Address()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookRatio:
				s.doBooking(ctx, rng, clientIP)
			case r < s.config.BookRatio+s.config.CancelRatio:
				s.doCancel(ctx, rng, clientIP)
			default:
				if rng.Intn(2) == 0 {
					s.doReadByID(ctx, rng)
				} else {
					s.doSlots(ctx, rng)
				}
			}
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, clientIP string) {
	target := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	email := gofakeit.Email()

	body, _ := json.Marshal(map[string]any{
		"name":        gofakeit.Name(),
		"email":       email,
		"phone":       gofakeit.Numerify("(##) 9####-####"),
		"serviceId":   target.ServiceID,
		"scheduledAt": target.ScheduledAt,
	})

	start := time.Now()
	status, respBody, err := s.send(ctx, http.MethodPost, "/appointments", body, clientIP)
	latency := time.Since(start)

	if err == nil && status == http.StatusCreated {
		var created struct {
			ID int64 `json:"id"`
		}
		if json.Unmarshal(respBody, &created) == nil && created.ID > 0 {
			s.pool.AddAppointment(booked{ID: created.ID, Email: email})
		}
	}

	s.metrics.Booking.Record(latency, status, err)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand, clientIP string) {
	appt, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	body, _ := json.Marshal(map[string]string{"email": appt.Email})

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/cancel", appt.ID), body, clientIP)
	s.metrics.Cancel.Record(time.Since(start), status, err)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodGet, fmt.Sprintf("/appointments/%d", appt.ID), nil, "")
	s.metrics.ReadByID.Record(time.Since(start), status, err)
}

func (s *Simulator) doSlots(ctx context.Context, rng *rand.Rand) {
	target := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	q := url.Values{
		"date":      {target.ScheduledAt[:len(schedule.DateLayout)]},
		"serviceId": {strconv.FormatInt(target.ServiceID, 10)},
	}

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodGet, "/appointments/slots?"+q.Encode(), nil, "")
	s.metrics.Slots.Record(time.Since(start), status, err)
}

func (s *Simulator) send(ctx context.Context, method, path string, body []byte, clientIP string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if clientIP != "" {
		req.Header.Set("X-Forwarded-For", clientIP)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, nil
}

// verifyNoDoubleBookings checks that no two active appointments sit closer than the buffer.
func verifyNoDoubleBookings(dsn string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	return countOverlaps(ctx, pool)
}

func countOverlaps(ctx context.Context, pool *pgxpool.Pool) error {
	var overlaps int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointment a
		JOIN service sa ON sa.id = a.service_id
		JOIN appointment b ON b.id > a.id
		JOIN service sb ON sb.id = b.service_id
		WHERE a.status IN ('pending', 'confirmed')
		  AND b.status IN ('pending', 'confirmed')
		  AND a.scheduled_at - make_interval(mins => $1) < b.scheduled_at + make_interval(mins => sb.duration)
		  AND b.scheduled_at < a.scheduled_at + make_interval(mins => sa.duration + $1)
	`, int(schedule.Buffer/time.Minute)).Scan(&overlaps)
	if err != nil {
		return fmt.Errorf("count overlaps: %w", err)
	}
	if overlaps > 0 {
		return fmt.Errorf("%d pairs of active appointments violate the %s buffer", overlaps, schedule.Buffer)
	}
	log.Println("verification: no overlapping active appointments")
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Open slots at start: %d\n", len(s.pool.Slots))
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("Available slots", &s.metrics.Slots)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	limited := atomic.LoadInt64(&om.Limited)
	errs := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if limited > 0 {
		fmt.Printf("  Rate limited: %d (%.1f%%)\n", limited, float64(limited)/float64(total)*100)
	}
	if errs > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errs, float64(errs)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
