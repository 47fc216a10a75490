// Command seed-aliases applies an operator-maintained alias seed file to the
// store, for use before the first reconciliation run or after corrections.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"prop-reconciler/internal/alias"
	"prop-reconciler/internal/config"
	"prop-reconciler/internal/store"
)

func main() {
	path := flag.String("file", "", "path to the alias seed YAML file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := config.Load()

	if *path == "" {
		*path = cfg.AliasSeedPath
	}
	if *path == "" {
		logger.Error("no seed file: pass -file or set ALIAS_SEED_PATH")
		os.Exit(1)
	}

	seeds, err := alias.LoadSeeds(*path)
	if err != nil {
		logger.Error("loading seed file", "error", err)
		os.Exit(1)
	}

	var st store.Store
	if cfg.DatabaseURL != "" {
		st, err = store.NewPostgres(cfg.DatabaseURL)
	} else {
		st, err = store.NewSQLite(cfg.DBPath)
	}
	if err != nil {
		logger.Error("opening store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := seeds.Apply(context.Background(), st); err != nil {
		logger.Error("applying seeds", "error", err)
		os.Exit(1)
	}
	logger.Info("alias seeds applied",
		"file", *path, "players", len(seeds.Players), "prop_types", len(seeds.PropTypes))
}
