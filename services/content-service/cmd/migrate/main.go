package main

import (
	"database/sql"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/safegergis/tome/services/content-service/config"
	"github.com/safegergis/tome/services/content-service/migrations"
)

func main() {
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		slog.Error("❌ Invalid database URL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		slog.Error("❌ Database ping failed", "error", err)
		os.Exit(1)
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		slog.Error("❌ Goose dialect", "error", err)
		os.Exit(1)
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		err = goose.Up(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		var version int64
		version, err = goose.GetDBVersion(db)
		if err == nil {
			slog.Info("Schema version", "version", version)
		}
	default:
		slog.Error("❌ Unknown command", "command", command)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("💥 Migration failed", "command", command, "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Migrations applied", "command", command)
}
