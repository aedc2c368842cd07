package main

import (
	"context"
	"os"
	"time"

	mongoMigration "dormly/internal/migrations/mongo"
	"dormly/pkg/config"
)

const JobName = "laundry-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Mongo migration job")
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.Log.Error("Migration failed", "error", err)
		cancel()
		cfg.GracefulShutdown()
		os.Exit(1)
	}
	cfg.Log.Info("Migration completed successfully")
}
