package sqlstore

import (
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"quoteflow/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know; queries are
	// written with ? placeholders and rebound per driver.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the configured store.
func Open(cfg *config.Config) (*sqlx.DB, error) {
	switch cfg.Store.Driver {
	case DriverSQLite:
		return NewSQLiteDB(cfg.Store.SQLitePath)
	default:
		return NewPostgresDB(&cfg.DB)
	}
}

// NewPostgresDB creates a new PostgreSQL connection pool. The schema is
// managed by cmd/migrate.
func NewPostgresDB(cfg *config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	return db, nil
}

// NewSQLiteDB opens (or creates) a SQLite database and applies the schema.
// Use ":memory:" for tests.
func NewSQLiteDB(path string) (*sqlx.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite dir: %w", err)
		}
	}
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling sqlite foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying sqlite schema: %w", err)
	}
	return db, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS parts (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  supplier_part_number TEXT NOT NULL DEFAULT '',
  manufacturer_id TEXT NOT NULL DEFAULT '',
  catalog_code TEXT NOT NULL DEFAULT '',
  sub_catalog_code TEXT NOT NULL DEFAULT '',
  attributes TEXT NOT NULL DEFAULT '{}',
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS extractions (
  id TEXT PRIMARY KEY,
  document_id TEXT NOT NULL,
  supplier_id TEXT,
  provider TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending_review',
  raw_response TEXT NOT NULL DEFAULT '{}',
  original_data TEXT NOT NULL DEFAULT '{}',
  normalized_data TEXT NOT NULL DEFAULT '{}',
  metrics TEXT NOT NULL DEFAULT '{}',
  reviewer_notes TEXT NOT NULL DEFAULT '',
  reviewed_at TIMESTAMP,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extractions_status ON extractions(status, created_at);

CREATE TABLE IF NOT EXISTS part_prices (
  id TEXT PRIMARY KEY,
  part_id TEXT NOT NULL REFERENCES parts(id) ON DELETE CASCADE,
  supplier_id TEXT NOT NULL,
  unit_price REAL NOT NULL CHECK (unit_price >= 0),
  currency TEXT NOT NULL DEFAULT '',
  moq REAL NOT NULL DEFAULT 1 CHECK (moq >= 0),
  lead_time_days INTEGER CHECK (lead_time_days >= 0),
  valid_from DATE NOT NULL,
  valid_through DATE,
  extraction_id TEXT REFERENCES extractions(id) ON DELETE SET NULL,
  created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_part_prices_part ON part_prices(part_id);
`
