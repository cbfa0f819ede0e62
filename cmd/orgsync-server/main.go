// Package main runs the orgsync directory server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"cloud.google.com/go/datastore"
	"github.com/joho/godotenv"
	"go.etcd.io/bbolt"

	"github.com/tavre/orgsync/pkg/session"
	"github.com/tavre/orgsync/server"
	"github.com/tavre/orgsync/server/stores"
)

func main() {
	// A missing .env file is fine; the environment may be set elsewhere.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	jwtSecret := os.Getenv("ORGSYNC_JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("ORGSYNC_JWT_SECRET must be set")
		os.Exit(1)
	}
	sessionHours, _ := strconv.Atoi(os.Getenv("ORGSYNC_SESSION_HOURS"))
	if err := session.Configure(jwtSecret, sessionHours); err != nil {
		logger.Error("failed to configure sessions", "error", err)
		os.Exit(1)
	}

	orgStore, cleanup, err := buildStore(logger)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	h := server.NewHandler(orgStore, logger, nil)
	router := server.NewRouter(h, server.RouterConfig{
		Logger:    logger,
		RateLimit: envFloat("ORGSYNC_RATE_LIMIT", 20),
		RateBurst: 40,
	})

	addr := os.Getenv("ORGSYNC_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	logger.Info("orgsync server listening", "addr", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func buildStore(logger *slog.Logger) (stores.OrganizationStore, func(), error) {
	switch os.Getenv("ORGSYNC_STORE") {
	case "bolt":
		boltPath := os.Getenv("ORGSYNC_BOLT_PATH")
		if boltPath == "" {
			boltPath = "orgsync.db"
		}
		db, err := bbolt.Open(boltPath, 0600, nil)
		if err != nil {
			return nil, nil, err
		}
		orgStore, err := stores.NewBoltOrganizationStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("using BoltDB store", "path", boltPath)
		return orgStore, func() { db.Close() }, nil
	case "datastore":
		projectID := os.Getenv("ORGSYNC_GCP_PROJECT")
		client, err := datastore.NewClient(context.Background(), projectID)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using Cloud Datastore", "project", projectID)
		return stores.NewOrganizationDataStore(logger, client), func() { client.Close() }, nil
	default:
		logger.Info("using in-memory store")
		return stores.NewOrganizationMemoryStore(), func() {}, nil
	}
}

func logLevel() slog.Level {
	if os.Getenv("ORGSYNC_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
