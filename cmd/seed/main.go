package main

import (
	"context"
	"os"
	"time"

	"dormly/internal/laundry/repository"
	"dormly/internal/laundry/service"
	"dormly/internal/laundry/validator"
	"dormly/pkg/config"
	mongotx "dormly/pkg/db/mongo"
)

const JobName = "laundry-seed"

// The seed job creates or refreshes the slots of every day in the booking
// window from LAUNDRY_SEED_TEMPLATE. It is safe to run repeatedly; booked
// counts are never reset.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	if err := seed(ctx, cfg); err != nil {
		cfg.Log.Error("Seeding failed", "error", err)
		cancel()
		cfg.GracefulShutdown()
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg *config.Config) error {
	seeds, err := service.ParseTemplate(cfg.SeedTemplate)
	if err != nil {
		return err
	}

	admin := service.NewAdminService(
		repository.NewMongoSlotRepository(cfg),
		repository.NewMongoBookingRepository(cfg),
		mongotx.NewTransactionManager(cfg.Client.Mongo),
		validator.NewReservationValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Seeding booking window", "slots_per_day", len(seeds), "days", cfg.BookingWindowDays)
	results, err := admin.SeedWindow(ctx, seeds)
	for _, r := range results {
		cfg.Log.Info("Day seeded", "date_key", r.DateKey, "created", r.Created, "updated", r.Updated)
	}
	return err
}
