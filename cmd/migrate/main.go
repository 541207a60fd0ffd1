package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Davayme/chasquigo-backend-sub000/internal/config"
	"github.com/Davayme/chasquigo-backend-sub000/internal/database"
	"github.com/Davayme/chasquigo-backend-sub000/internal/database/migrations"
	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration instead of applying them")
	seed := flag.Bool("seed", false, "insert the sample departure, seats and fares after migrating")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger("migrate", "", logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer db.Close()

	if cfg.Database.Driver == "sqlite" {
		if *down {
			log.Fatal("MIGRATE", "rollback is only supported on postgres")
		}
		log.Info("MIGRATE", "Creating schema from models...")
		if err := database.CreateSchema(ctx, db); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
	} else {
		runner := migrations.NewRunner(db, log)
		if *down {
			log.Info("MIGRATE", "Rolling back all migrations...")
			err = runner.MigrateDown(ctx)
		} else {
			log.Info("MIGRATE", "Applying migrations...")
			err = runner.MigrateUp(ctx)
		}
		if closeErr := runner.Close(); closeErr != nil {
			log.Warn("MIGRATE", closeErr.Error())
		}
		if err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
	}

	if *seed && !*down {
		log.Info("MIGRATE", "Seeding sample data...")
		if err := database.SeedSample(ctx, db, time.Now()); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		log.Info("MIGRATE", fmt.Sprintf("Sample departure: %s", database.SampleDepartureID))
	}

	log.Info("MIGRATE", "✅ Done.")
}
