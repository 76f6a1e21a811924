package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/catalog"
	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/db"
	"github.com/hackgods/appointment-booking/internal/schedule"
	"github.com/hackgods/appointment-booking/internal/settings"
	"github.com/hackgods/appointment-booking/pkg/logging"
)

func main() {
	fake := flag.Int("fake", 0, "number of fake pending appointments to book")
	days := flag.Int("days", 14, "spread fake appointments over this many days from tomorrow")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)
	logger.Info("seed starting", "fake", *fake)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	services := catalog.NewPgRepository(pool)
	cat := catalog.NewCatalog(services, logger)
	if err := seedServices(ctx, cat, logger); err != nil {
		logger.Error("seed services", "error", err)
		os.Exit(1)
	}

	store := settings.NewPgStore(pool)
	inserted, err := store.Seed(ctx, settings.Defaults())
	if err != nil {
		logger.Error("seed settings", "error", err)
		os.Exit(1)
	}
	logger.Info("settings seeded", "inserted", inserted)

	if *fake > 0 {
		settingsSvc := settings.NewService(store, nil, 0, logger)
		svc := appointment.NewService(appointment.NewPgRepository(pool), cat, settingsSvc, nil, cfg, logger)
		if err := seedAppointments(ctx, svc, cat, *fake, *days, logger); err != nil {
			logger.Error("seed appointments", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("seed complete")
}

// seedServices inserts the default catalog only when no active service exists.
func seedServices(ctx context.Context, cat *catalog.Catalog, logger *logging.Logger) error {
	existing, err := cat.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info("services already exist, skipping", "count", len(existing))
		return nil
	}
	for _, in := range catalog.DefaultServices() {
		if _, err := cat.Create(ctx, in); err != nil {
			return fmt.Errorf("create %q: %w", in.Name, err)
		}
	}
	logger.Info("services created", "count", len(catalog.DefaultServices()))
	return nil
}

// seedAppointments books through the service so every fake row passes validation and the
// conflict checks. Attempts that hit a taken or blocked slot are skipped.
func seedAppointments(ctx context.Context, svc *appointment.Service, cat *catalog.Catalog, count, days int, logger *logging.Logger) error {
	services, err := cat.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		return errors.New("no active services")
	}
	if days <= 0 {
		days = 1
	}

	hours := settings.DefaultBusinessHours()
	tomorrow := schedule.StartOfDay(time.Now().In(svc.Location())).AddDate(0, 0, 1)

	created, skipped := 0, 0
	for attempt := 0; created < count && attempt < count*10; attempt++ {
		day := tomorrow.AddDate(0, 0, gofakeit.Number(0, days-1))
		if !hours.IsBusinessDay(day) {
			continue
		}
		start := day.Add(time.Duration(gofakeit.Number(hours.StartHour, hours.EndHour-1)) * time.Hour)
		s := services[gofakeit.Number(0, len(services)-1)]

		_, err := svc.CreateAppointment(ctx, appointment.CreateInput{
			Name:        gofakeit.Name(),
			Email:       gofakeit.Email(),
			Phone:       gofakeit.Numerify("(##) 9####-####"),
			ServiceID:   s.ID,
			ScheduledAt: schedule.FormatAPI(start),
		})
		if err != nil {
			skipped++
			logger.Debug("fake booking skipped", "scheduled_at", start, "error", err)
			continue
		}
		created++
	}

	logger.Info("fake appointments booked", "created", created, "skipped", skipped)
	return nil
}
