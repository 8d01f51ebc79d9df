package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so repositories can run
// inside or outside an explicit transaction. The exchange executor builds
// transaction-scoped repositories from a single *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ErrOptimisticLockFailed is returned when a version-guarded update matched
// no row: the record changed (or vanished) since it was read.
var ErrOptimisticLockFailed = fmt.Errorf("optimistic lock failed: record was modified concurrently")

// Open opens the SQLite database with WAL journaling and a single writer
// connection, and initializes the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer: SQLite serializes writers anyway, one connection keeps
	// transactions from fighting over the file lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		reputation REAL NOT NULL DEFAULT 3,
		premium INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK(reputation >= 1 AND reputation <= 5),
		CHECK(premium IN (0, 1))
	);

	-- Products table: the inventory ledger (single source of truth for stock)
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		stock INTEGER NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT 'unidades',
		image_url TEXT NOT NULL DEFAULT '',
		published INTEGER NOT NULL DEFAULT 1,
		tradable INTEGER NOT NULL DEFAULT 0,
		perishable INTEGER NOT NULL DEFAULT 0,
		freshness_certified INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (owner_id) REFERENCES users(id),
		CHECK(stock >= 0),
		CHECK(price >= 0)
	);

	CREATE TABLE IF NOT EXISTS proposals (
		id TEXT PRIMARY KEY,
		proposer_id TEXT NOT NULL,
		recipient_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		message TEXT NOT NULL DEFAULT '',
		parent_id TEXT,
		root_id TEXT,
		equity_comparable INTEGER NOT NULL DEFAULT 0,
		equity_fair INTEGER NOT NULL DEFAULT 0,
		equity_blocked INTEGER NOT NULL DEFAULT 0,
		equity_message TEXT NOT NULL DEFAULT '',
		equity_difference_pct REAL NOT NULL DEFAULT 0,
		equity_suggested_diff REAL NOT NULL DEFAULT 0,
		equity_offered_value REAL NOT NULL DEFAULT 0,
		equity_requested_value REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (proposer_id) REFERENCES users(id),
		FOREIGN KEY (recipient_id) REFERENCES users(id),
		FOREIGN KEY (parent_id) REFERENCES proposals(id),
		CHECK(status IN ('pending', 'accepted', 'rejected', 'countered', 'cancelled', 'completed'))
	);

	-- Line items snapshot the product at proposal time; quantity is stored
	-- structured (value + unit), never as free text
	CREATE TABLE IF NOT EXISTS proposal_items (
		id TEXT PRIMARY KEY,
		proposal_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		side TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		quantity_value REAL NOT NULL,
		quantity_unit TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL DEFAULT 0,
		FOREIGN KEY (proposal_id) REFERENCES proposals(id) ON DELETE CASCADE,
		CHECK(side IN ('offered', 'requested'))
	);

	CREATE INDEX IF NOT EXISTS idx_products_owner ON products(owner_id);
	CREATE INDEX IF NOT EXISTS idx_products_version ON products(version);
	CREATE INDEX IF NOT EXISTS idx_proposals_proposer ON proposals(proposer_id);
	CREATE INDEX IF NOT EXISTS idx_proposals_recipient ON proposals(recipient_id);
	CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status);
	CREATE INDEX IF NOT EXISTS idx_proposals_parent ON proposals(parent_id);
	CREATE INDEX IF NOT EXISTS idx_proposal_items_proposal ON proposal_items(proposal_id, side, position);
	`

	_, err := db.Exec(schema)
	return err
}
