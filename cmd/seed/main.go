// seed applies a YAML fixture of users and venues to the configured
// Postgres database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"venuepermits/internal/config"
	"venuepermits/internal/db"
	"venuepermits/internal/db/migrations"
	"venuepermits/internal/repository"
	"venuepermits/internal/seed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var file string
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVarP(&file, "file", "f", "default", `fixture path, or "default" for the built-in admin account`)
	flagSet.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres connection string")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	ctx := context.Background()

	fixture, err := seed.Load(file)
	if err != nil {
		return err
	}

	database, err := db.New(ctx, cfg.DatabaseURL, db.Options{}, logger)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := migrations.RunMigrations(ctx, database.DB, logger); err != nil {
		return err
	}

	seeder := seed.NewSeeder(repository.NewUserRepository(database.DB), repository.NewVenueRepository(database.DB), logger)
	res, err := seeder.Apply(ctx, fixture)
	if err != nil {
		return err
	}
	logger.Info("seed complete",
		"users_created", res.UsersCreated,
		"users_skipped", res.UsersSkipped,
		"venues_created", res.VenuesCreated,
		"venues_skipped", res.VenuesSkipped,
	)
	return nil
}
