// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/danielhkuo/party-survey/cliparse"
	"github.com/danielhkuo/party-survey/db"
	"github.com/danielhkuo/party-survey/middleware"
	"github.com/danielhkuo/party-survey/notify"
	"github.com/danielhkuo/party-survey/router"
)

func main() {
	var err error

	cliparse.LoadDotEnv()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err, "type", cfg.DatabaseType)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn, cfg.DatabaseType); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	if cfg.SeedFile != "" {
		parties, err := db.LoadSeed(cfg.SeedFile)
		if err != nil {
			slog.Error("seed file unreadable", "error", err, "path", cfg.SeedFile)
			os.Exit(1)
		}
		n, err := db.SeedParties(dbConn, parties)
		if err != nil {
			slog.Error("seeding failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Seed applied", "inserted", n, "path", cfg.SeedFile)
	}

	// Change broker for the live event stream
	target := cfg.RedisURL
	if cfg.Broker == cliparse.BrokerPostgres {
		target = cfg.DatabaseURL
	}
	broker, err := notify.New(context.Background(), cfg.Broker, target, db.ChangeChannel)
	if err != nil {
		slog.Error("change broker unavailable", "error", err, "broker", cfg.Broker)
		os.Exit(1)
	}
	defer broker.Close()
	slog.Info("Change broker ready", "broker", cfg.Broker)

	// Create router
	mux := router.NewRouter(dbConn, cfg, broker)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "trusted_proxies", len(cfg.TrustedProxies))
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
