package commands

import (
	"database/sql"
	"os"

	"github.com/teranos/dialogue/am"
	"github.com/teranos/dialogue/asset"
	"github.com/teranos/dialogue/db"
	"github.com/teranos/dialogue/errors"
	"github.com/teranos/dialogue/graph"
	"github.com/teranos/dialogue/logger"
)

// graphOptions applies graph authoring rules from configuration
func graphOptions(cfg *am.Config) []graph.Option {
	if cfg != nil && cfg.Graph.StrictInsert {
		return []graph.Option{graph.WithStrictInsert()}
	}
	return nil
}

// loadAssetFile reads and decodes a dialogue document from disk
func loadAssetFile(path string, cfg *am.Config) (*asset.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	a, err := asset.Parse(data, graphOptions(cfg)...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return a, nil
}

// checkGraph runs structural validation, plus the text branching lint when strict
func checkGraph(g *graph.Graph, strict bool) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if strict {
		return g.CheckTextBranching()
	}
	return nil
}

// openDatabase opens and migrates the configured asset database.
// An explicit dbPath overrides store.path.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		path, err := am.GetDatabasePath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get database path")
		}
		dbPath = path
	}

	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}
