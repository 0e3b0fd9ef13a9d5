package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/fetchsql/pkg/core"
)

// SQLite export layout read by SQLiteProvider:
//
//	CREATE TABLE entities (
//	    logical_name TEXT PRIMARY KEY,
//	    display_name TEXT,
//	    primary_key  TEXT
//	);
//	CREATE TABLE attributes (
//	    entity       TEXT NOT NULL,
//	    logical_name TEXT NOT NULL,
//	    display_name TEXT,
//	    type         TEXT
//	);
const (
	listEntitiesQuery   = `SELECT logical_name, display_name, primary_key FROM entities ORDER BY logical_name`
	entityExistsQuery   = `SELECT COUNT(*) FROM entities WHERE logical_name = ? COLLATE NOCASE`
	listAttributesQuery = `SELECT logical_name, display_name, type FROM attributes WHERE entity = ? COLLATE NOCASE ORDER BY logical_name`
)

// SQLiteProvider serves metadata from a SQLite export.
type SQLiteProvider struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ core.MetadataProvider = (*SQLiteProvider)(nil)

// OpenSQLite opens the export at path read-only.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open metadata database %s: %w", path, err)
	}
	return NewSQLiteProvider(db, logger), nil
}

// NewSQLiteProvider wraps an open database handle.
func NewSQLiteProvider(db *sql.DB, logger *slog.Logger) *SQLiteProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteProvider{db: db, logger: logger}
}

// Close closes the database.
func (p *SQLiteProvider) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// ListEntities returns every exported entity.
func (p *SQLiteProvider) ListEntities(ctx context.Context) ([]core.Entity, error) {
	rows, err := p.db.QueryContext(ctx, listEntitiesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []core.Entity
	for rows.Next() {
		var e core.Entity
		var display, pk sql.NullString
		if err := rows.Scan(&e.LogicalName, &display, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		e.DisplayName = display.String
		e.PrimaryKey = pk.String
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	p.logger.Debug("listed entities", "count", len(entities))
	return entities, nil
}

// ListAttributes returns the attributes of entity, matched case-insensitively.
func (p *SQLiteProvider) ListAttributes(ctx context.Context, entity string) ([]core.Attribute, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, entityExistsQuery, entity).Scan(&n); err != nil {
		return nil, fmt.Errorf("failed to look up entity %s: %w", entity, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownEntity, entity)
	}

	rows, err := p.db.QueryContext(ctx, listAttributesQuery, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to list attributes of %s: %w", entity, err)
	}
	defer func() { _ = rows.Close() }()

	var attrs []core.Attribute
	for rows.Next() {
		var a core.Attribute
		var display, typ sql.NullString
		if err := rows.Scan(&a.LogicalName, &display, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		a.DisplayName = display.String
		a.Type = typ.String
		attrs = append(attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list attributes of %s: %w", entity, err)
	}

	p.logger.Debug("listed attributes", "entity", entity, "count", len(attrs))
	return attrs, nil
}
