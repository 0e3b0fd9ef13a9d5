package metadata

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/leapstack-labs/fetchsql/pkg/core"
)

// Options selects the metadata source.
type Options struct {
	Catalog string // YAML catalog path
	SQLite  string // SQLite export path; wins over Catalog when set
}

// Open returns the provider selected by opts and a function releasing it.
// A catalog path that does not exist yields an empty catalog, so commands
// work without metadata.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (core.MetadataProvider, func() error, error) {
	noop := func() error { return nil }

	if opts.SQLite != "" {
		p, err := OpenSQLite(ctx, opts.SQLite, logger)
		if err != nil {
			return nil, noop, err
		}
		logger.Debug("using sqlite metadata", "path", opts.SQLite)
		return p, p.Close, nil
	}

	if opts.Catalog == "" {
		return &Catalog{}, noop, nil
	}
	cat, err := LoadCatalog(opts.Catalog)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("metadata catalog not found", "path", opts.Catalog)
		return &Catalog{}, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	logger.Debug("using catalog metadata", "path", opts.Catalog, "entities", len(cat.entities))
	return cat, noop, nil
}
