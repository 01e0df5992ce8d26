package main

import (
	"flag"
	"fmt"
	"os"

	"photoquest/internal/db"
	"photoquest/internal/logger"

	"github.com/joho/godotenv"
)

// Usage: migrate [-steps N] up|down|status
func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Parse()

	_ = godotenv.Load()
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	switch cmd {
	case "up":
		if err := db.MigrateUp(dsn); err != nil {
			logger.Fatal("migrate up failed", "error", err)
		}
		logger.Info("migrations applied")
	case "down":
		if err := db.MigrateDown(dsn, *steps); err != nil {
			logger.Fatal("migrate down failed", "error", err)
		}
		logger.Info("migrations rolled back", "steps", *steps)
	case "status":
		version, dirty, err := db.MigrateStatus(dsn)
		if err != nil {
			logger.Fatal("migrate status failed", "error", err)
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
	default:
		logger.Fatal("unknown command", "command", cmd)
	}
}
