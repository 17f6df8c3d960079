package db

import "fmt"

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS trade_events (
    id TEXT PRIMARY KEY,
    ts DATETIME NOT NULL,
    type TEXT NOT NULL,
    asset TEXT,
    trade_id TEXT,
    direction TEXT,
    setup TEXT,
    result TEXT,
    r REAL DEFAULT 0,
    status TEXT NOT NULL,
    reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_trade_events_ts ON trade_events(ts);
CREATE INDEX IF NOT EXISTS idx_trade_events_asset ON trade_events(asset);
`

// ApplyMigrations creates the journal schema if missing.
func ApplyMigrations(d *Database) error {
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply journal schema: %w", err)
	}
	return nil
}
