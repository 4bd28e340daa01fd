package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linkloom/pkg/config"
	"linkloom/pkg/database"
	"linkloom/pkg/logger"
	"linkloom/pkg/server"
)

func main() {
	cfg := config.LoadConfig()

	log := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", logger.Error(err))
	}

	db, err := database.NewDatabase(database.DatabaseConfig{
		PostgresDSN: cfg.PostgresDSN,
		UseLocalDB:  cfg.UseLocalDB,
		Debug:       cfg.Debug,
	})
	if err != nil {
		log.Fatal("failed to connect to database", logger.Error(err))
	}
	defer db.Close()

	if pg, ok := db.(*database.PostgresDatabase); ok {
		if err := pg.EnsureSchema(); err != nil {
			log.Fatal("failed to ensure database schema", logger.Error(err))
		}
	}

	srv := server.New(cfg, db, log)

	go func() {
		log.Info("starting server",
			logger.String("port", cfg.Port),
			logger.String("environment", cfg.Environment),
		)
		if err := srv.Start(); err != nil {
			log.Fatal("server stopped unexpectedly", logger.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Error("graceful shutdown failed", logger.Error(err))
	}
	log.Info("server stopped")
}
