// Command migrate runs schema operations against the configured database.
//
//	migrate [-timeout 2m] up            apply pending SQL migrations
//	migrate [-timeout 2m] auto          run GORM AutoMigrate
//	migrate [-timeout 2m] status        print the schema plan
//	migrate [-timeout 2m] down VERSION  roll back one migration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"openobservatory/internal/config"
	"openobservatory/internal/database"
	"openobservatory/internal/middleware"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: migrate [-timeout 2m] <up|auto|status|down> [version]")

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "Abort schema operations after this long")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, errUsage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		middleware.Logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		middleware.Logger.Error("failed to connect database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err = run(ctx, db, cfg, os.Stdout, flag.Args())
	cancel()
	database.Close()
	if err != nil {
		middleware.Logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, db *gorm.DB, cfg *config.Config, out io.Writer, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		middleware.Logger.Info("sql migrations applied")
	case "auto":
		autoCfg := *cfg
		autoCfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, &autoCfg); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		middleware.Logger.Info("automigrations applied")
	case "status":
		return printStatus(ctx, db, cfg, out)
	case "down":
		if len(args) < 2 {
			return errors.New("usage: migrate down <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
	default:
		return errUsage
	}
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config, out io.Writer) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status: %w", err)
	}
	fmt.Fprintf(out, "mode=%s env=%s sql=%t auto=%t applied=%d\n",
		status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate, len(status.AppliedVersions))
	for _, m := range status.PendingMigrations {
		fmt.Fprintf(out, "pending: %s\n", m.String())
	}
	return nil
}
