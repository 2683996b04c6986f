package main

import (
	"context"
	"flag"
	"log"
	"time"

	"bikerental/internal/config"
	"bikerental/pkg/database"
	"bikerental/pkg/logger"
)

func main() {
	down := flag.Int("down", -1, "roll back to this schema version instead of migrating up")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg.LoggerOptions())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.NewMongoDB(ctx, &database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		AppName:        cfg.App.Name + "-migrate",
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Close(context.Background())

	migrator := database.NewMigrator(db.Database, appLogger)
	if *down >= 0 {
		err = migrator.Down(ctx, *down)
	} else {
		err = migrator.Up(ctx)
	}
	if err != nil {
		appLogger.WithError(err).Fatal("Migration failed")
	}

	appLogger.Info("Migrations complete")
}
