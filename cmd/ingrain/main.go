package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/conorfennell/ingrain/internal/config"
	"github.com/conorfennell/ingrain/internal/deckset"
	"github.com/conorfennell/ingrain/internal/storage"
	"github.com/conorfennell/ingrain/internal/web"
)

func main() {
	flags := config.Flags()
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	db, err := storage.Open(cfg.DB)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DB, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DB)

	sources := make([]deckset.Source, len(cfg.Sources))
	for i, s := range cfg.Sources {
		sources[i] = deckset.Source{Path: s}
	}

	catalog, err := deckset.Load(sources, cfg.ReposDir)
	if err != nil {
		slog.Error("failed to load deck sources", "error", err)
		os.Exit(1)
	}
	catalog.CheckFingerprints(db)
	slog.Info("deck sources loaded", "sets", len(catalog.Sets))

	server, err := web.NewServer(db, catalog, sources, cfg.ReposDir)
	if err != nil {
		slog.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	slog.Info("serving", "addr", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, server); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
