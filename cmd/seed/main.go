// Command main runs the database seeder for Open Observatory.
package main

import (
	"context"
	"flag"
	"os"

	"openobservatory/internal/config"
	"openobservatory/internal/database"
	"openobservatory/internal/middleware"
	"openobservatory/internal/seed"
)

func main() {
	catalog := flag.Bool("catalog", true, "Load the built-in celestial body catalog")
	numUsers := flag.Int("users", 25, "Number of fake observers to create")
	numObservations := flag.Int("observations", 150, "Number of observations to create")
	maxVotes := flag.Int("votes", 10, "Maximum votes cast by each fake observer")
	maxDays := flag.Int("days", 30, "Spread observation creation times over this many days")
	clean := flag.Bool("clean", false, "Delete all existing domain data first")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	fakeSeed := flag.Int64("seed", 0, "Seed for the fake data generator (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		middleware.Logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		middleware.Logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	res, err := seed.NewSeeder(db).Run(context.Background(), seed.Options{
		Catalog:             *catalog,
		NumUsers:            *numUsers,
		NumObservations:     *numObservations,
		MaxVotesPerObserver: *maxVotes,
		MaxDays:             *maxDays,
		Clean:               *clean,
		DryRun:              *dryRun,
		BcryptCost:          cfg.BcryptCost,
		Seed:                *fakeSeed,
	})
	if err != nil {
		middleware.Logger.Error("seeding failed", "error", err)
		database.Close()
		os.Exit(1)
	}

	middleware.Logger.Info("seeding complete",
		"celestial_bodies", res.CelestialBodies,
		"users", res.Users,
		"observations", res.Observations,
		"votes", res.Votes,
		"dry_run", *dryRun,
		"password", seed.DefaultPassword)
}
