package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"resenas/internal/reviews"
	"resenas/internal/storage"
	"resenas/pkg/logger"
	"resenas/pkg/utils"
)

func main() {
	os.Exit(importMain(os.Args[1:]))
}

func importMain(args []string) int {
	fs := flag.NewFlagSet("import-csv", flag.ContinueOnError)
	var (
		configPath = fs.String("config", os.Getenv("RESENAS_CONFIG"), "path to YAML config file")
		data       = fs.String("data", "", "review document path (overrides config)")
		in         = fs.String("in", "data/resenas.csv", "input CSV path, - for stdin")
		replace    = fs.Bool("replace", false, "overwrite the collection keeping CSV ids instead of appending")
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

	n, err := importFile(ctx, cfg, log, *in, *replace)
	if err != nil {
		log.Error("import failed", zap.String("in", *in), zap.Int("imported", n), zap.Error(err))
		return 1
	}
	log.Info("imported reviews", zap.Int("count", n), zap.String("in", *in), zap.Bool("replace", *replace))
	return 0
}

func importFile(ctx context.Context, cfg utils.Config, log *zap.Logger, path string, replace bool) (int, error) {
	var src io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		src = f
	}

	items, err := reviews.DecodeCSV(src)
	if err != nil {
		return 0, err
	}

	backend, err := storage.Open(cfg)
	if err != nil {
		return 0, err
	}
	defer backend.Close()

	store := reviews.NewStore(backend, log.Named("reviews"), reviews.WithStrictLoad(true))

	if replace {
		if err := store.Replace(ctx, items); err != nil {
			return 0, err
		}
		return len(items), nil
	}

	for i, item := range items {
		if _, err := store.Create(ctx, reviews.AsCreateInput(item)); err != nil {
			var verr *reviews.ValidationError
			if errors.As(err, &verr) {
				return i, fmt.Errorf("row %d (%q): %s", i+1, item.Title, verr.Message)
			}
			return i, err
		}
	}
	return len(items), nil
}
