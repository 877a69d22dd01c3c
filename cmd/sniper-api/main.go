package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"sniper/internal/config"
	"sniper/internal/fetch"
	server "sniper/internal/http"
	"sniper/internal/jobs"
	"sniper/internal/llm"
	"sniper/internal/marketplace"
	"sniper/internal/migrate"
	"sniper/internal/services"
	"sniper/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// Secrets may live in a local .env; missing file is fine.
	_ = godotenv.Load()

	cfg := config.Load(*configPath)

	// Run migrations on a short-lived connection
	if err := migrate.Run(cfg.Database.DSN, ""); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Create a shared *sql.DB with pooling for the Store
	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(db)

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	scorer, err := llm.NewOpenAIScorer(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.BaseURL, cfg.LLM.OpenAI.Model)
	if err != nil {
		log.Fatalf("scorer setup failed: %v", err)
	}

	fetchTimeout := time.Duration(cfg.Scraper.TimeoutMs) * time.Millisecond
	fetcher := fetch.NewHTTPFetcher(fetchTimeout, cfg.Scraper.UserAgent, cfg.Scraper.AcceptLanguage, cfg.Robots.Respect)

	var rendered fetch.Fetcher
	if cfg.Renderer.Enabled {
		rendered = fetch.NewRenderedFetcher(cfg.Renderer.BrowserURL, time.Duration(cfg.Renderer.TimeoutMs)*time.Millisecond)
	}

	registry := marketplace.NewRegistry(marketplace.Options{
		Client:            &http.Client{Timeout: fetchTimeout},
		Headers:           fetcher.BrowserHeaders(),
		AliExpressAPIBase: cfg.Marketplaces.AliExpress.APIBaseURL,
	})

	svc := services.NewAnalyzeService(cfg, registry, fetcher, rendered, scorer, st, logger)

	rootCtx := context.Background()
	jobs.StartRetentionLoop(rootCtx, cfg, st, logger)

	s := server.NewServer(cfg, st, svc, logger)
	if err := s.Listen(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
