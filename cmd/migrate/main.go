package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"cleaning-backend/internal/config"
	"cleaning-backend/internal/infrastructure/database"
	"cleaning-backend/migrations"
	"cleaning-backend/pkg/logger"
)

const usage = `usage: migrate [-timeout 2m] <up|down|status|version>`

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.App.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, flag.Arg(0)); err != nil {
		log.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("Migration failed")
	}
}

func run(ctx context.Context, cfg *config.Config, command string) error {
	m, err := database.OpenMigrator(ctx, cfg.DBConfig(), migrations.FS)
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		return m.Up(ctx)
	case "down":
		return m.Down(ctx)
	case "status":
		return m.Status(ctx)
	case "version":
		v, err := m.Version(ctx)
		if err != nil {
			return err
		}
		logger.Info("Current migration version", map[string]interface{}{"version": v})
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
