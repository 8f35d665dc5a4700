package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"resenas/internal/reviews"
	"resenas/internal/storage"
	"resenas/pkg/logger"
	"resenas/pkg/utils"
)

func main() {
	os.Exit(exportMain(os.Args[1:]))
}

func exportMain(args []string) int {
	fs := flag.NewFlagSet("export-csv", flag.ContinueOnError)
	var (
		configPath = fs.String("config", os.Getenv("RESENAS_CONFIG"), "path to YAML config file")
		data       = fs.String("data", "", "review document path (overrides config)")
		out        = fs.String("out", "data/resenas.csv", "output CSV path, - for stdout")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	log := logger.Must("info", "console")
	defer func() { _ = log.Sync() }()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		log.Error("load config", zap.Error(err))
		return 1
	}
	if *data != "" {
		cfg.StoragePath = *data
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", zap.Error(err))
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := exportFile(ctx, cfg, log, *out)
	if err != nil {
		log.Error("export failed", zap.String("out", *out), zap.Error(err))
		return 1
	}
	log.Info("exported reviews", zap.Int("count", n), zap.String("out", *out))
	return 0
}

func exportFile(ctx context.Context, cfg utils.Config, log *zap.Logger, path string) (int, error) {
	backend, err := storage.Open(cfg)
	if err != nil {
		return 0, err
	}
	defer backend.Close()

	// strict so an unreadable document is an error, not an empty export
	store := reviews.NewStore(backend, log.Named("reviews"), reviews.WithStrictLoad(true))
	items, err := store.List(ctx)
	if err != nil {
		return 0, err
	}

	var dst io.Writer = os.Stdout
	if path != "-" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return 0, err
		}
		f, err := os.Create(path)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		dst = f
	}

	if err := reviews.EncodeCSV(dst, items); err != nil {
		return 0, err
	}
	return len(items), nil
}
