package main

import (
	"context"
	"flag"
	"os"

	"github.com/Varun5711/tinyauth/internal/config"
	"github.com/Varun5711/tinyauth/internal/database"
	"github.com/Varun5711/tinyauth/internal/logger"
)

func main() {
	log := logger.New("migrate")

	flag.Usage = func() {
		_, _ = os.Stderr.WriteString("usage: migrate [up|down|status]\n")
	}
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.LoadUnvalidated()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}
	if cfg.Database.PrimaryDSN == "" {
		log.Fatal("DB_PRIMARY_DSN is required")
	}

	ctx := context.Background()

	switch command {
	case "up":
		err = database.Migrate(ctx, cfg.Database.PrimaryDSN)
	case "down":
		err = database.MigrateDown(ctx, cfg.Database.PrimaryDSN)
	case "status":
		err = database.MigrationStatus(ctx, cfg.Database.PrimaryDSN)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("migrate %s: %v", command, err)
	}

	log.Info("migrate %s done", command)
}
