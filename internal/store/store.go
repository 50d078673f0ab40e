// Package store provides the SQLite storage layer for bidsage.
//
// All auction data lives in a single SQLite database file. Records are
// keyed by the external auction id: re-ingesting the same export is an
// upsert, the latest parse wins, never a duplicate.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.bidsage/bidsage.db"

// SaleRecord is one completed ([SOLD]) auction.
// Optional numeric fields are nil when the embed did not carry them;
// optional string fields are empty.
type SaleRecord struct {
	ID         int64     `json:"-"`
	AuctionID  string    `json:"auction_id"`
	Species    string    `json:"species"`
	Level      *int      `json:"level,omitempty"`
	Shiny      bool      `json:"shiny"`
	Gender     string    `json:"gender,omitempty"`
	Nature     string    `json:"nature,omitempty"`
	IVHP       *int      `json:"iv_hp,omitempty"`
	IVAtk      *int      `json:"iv_atk,omitempty"`
	IVDef      *int      `json:"iv_def,omitempty"`
	IVSpAtk    *int      `json:"iv_spatk,omitempty"`
	IVSpDef    *int      `json:"iv_spdef,omitempty"`
	IVSpeed    *int      `json:"iv_speed,omitempty"`
	IVTotal    *float64  `json:"iv_total,omitempty"`
	WinningBid *int64    `json:"winning_bid,omitempty"`
	WinnerID   string    `json:"winner_id,omitempty"`
	Seller     string    `json:"seller,omitempty"`
	Timestamp  string    `json:"timestamp,omitempty"`
	Title      string    `json:"title"`
	Raw        string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter selects a cohort of sales. All fields are optional and
// conjunctive: zero values mean "no constraint".
type Filter struct {
	Species    string // case-insensitive substring match
	Shiny      *bool  // nil = any
	Gender     string // case-insensitive exact match
	Nature     string // case-insensitive exact match
	MinIVTotal *float64
	MinIVHP    *int
	MinIVAtk   *int
	MinIVDef   *int
	MinIVSpAtk *int
	MinIVSpDef *int
	MinIVSpeed *int
	MinLevel   *int
	MaxLevel   *int
	RequireBid bool // only records with a positive winning bid
}

// Order controls result ordering for QuerySales.
type Order int

const (
	// OrderChronological sorts oldest to newest by embed timestamp,
	// falling back to insertion order for records without one.
	OrderChronological Order = iota
	// OrderPriceDesc sorts by winning bid, highest first.
	OrderPriceDesc
)

// Stats holds observability counters about the store.
type Stats struct {
	TotalSales      int64 `json:"total_sales"`
	WithWinningBid  int64 `json:"with_winning_bid"`
	ShinySales      int64 `json:"shiny_sales"`
	DistinctSpecies int64 `json:"distinct_species"`
}

// Store is the persistence collaborator for the ingestion pipeline and
// the pricing advisor.
type Store interface {
	UpsertSales(ctx context.Context, sales []*SaleRecord) error
	QuerySales(ctx context.Context, f Filter, order Order, limit int) ([]*SaleRecord, error)
	CountSales(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Config holds configuration for NewStore.
type Config struct {
	DBPath string
}

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the SQLite database and runs the
// schema bootstrap. Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg Config) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = ExpandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// migrate creates the schema if it does not exist. All statements are
// idempotent, so re-running against an existing database is safe.
func (s *SQLiteStore) migrate() error {
	ddl := `
CREATE TABLE IF NOT EXISTS auctions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	auction_id  TEXT NOT NULL UNIQUE,
	species     TEXT NOT NULL,
	level       INTEGER,
	shiny       INTEGER NOT NULL DEFAULT 0,
	gender      TEXT,
	nature      TEXT,
	iv_hp       INTEGER,
	iv_atk      INTEGER,
	iv_def      INTEGER,
	iv_spatk    INTEGER,
	iv_spdef    INTEGER,
	iv_speed    INTEGER,
	iv_total    REAL,
	winning_bid INTEGER,
	winner_id   TEXT,
	seller      TEXT,
	timestamp   TEXT,
	title       TEXT NOT NULL,
	raw         TEXT,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_auctions_species_shiny ON auctions (species, shiny);
CREATE INDEX IF NOT EXISTS idx_auctions_timestamp ON auctions (timestamp);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("bootstrapping schema: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for diagnostic queries.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
