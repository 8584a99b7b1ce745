package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"genekb/api/internal/app"
	"genekb/api/internal/archive"
	"genekb/api/internal/config"
	"genekb/api/internal/docstore"
	"genekb/api/internal/export"
	"genekb/api/internal/refdata"
	"genekb/api/internal/search"
	"genekb/api/internal/snapshot"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := refdata.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := refdata.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	drugs := refdata.NewStore(db)
	if err := drugs.Refresh(ctx); err != nil {
		log.Printf("WARNING: drug cache refresh failed (names resolve lazily): %v", err)
	}
	go func() {
		ticker := time.NewTicker(cfg.DrugCacheTTL)
		defer ticker.Stop()
		for range ticker.C {
			if err := drugs.Refresh(ctx); err != nil {
				log.Printf("drug cache refresh: %v", err)
			}
		}
	}()

	docs, err := docstore.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("document store connection failed: %v", err)
	}
	defer docs.Close()

	if err := os.MkdirAll(cfg.SnapshotsDir, 0o755); err != nil {
		log.Fatalf("failed to create snapshots dir: %v", err)
	}
	snaps := snapshot.New(cfg.SnapshotsDir)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewDocScan(docs))

	service := app.New(cfg, docs, drugs)
	service.SetHistoryIndexer(searchService)
	service.SetSnapshotter(snaps)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	httpServer.SetSearch(searchService)
	httpServer.SetSnapshots(snaps)
	httpServer.SetExporter(export.New(service))

	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		artifacts, err := archive.New(ctx, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			log.Printf("WARNING: artifact archive unavailable: %v", err)
		} else {
			httpServer.SetArchive(artifacts)
		}
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("GeneKB API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
