package db

import (
	"context"
	"time"
)

// JournalEntry is one applied (or ignored) event in the append-only journal.
// The journal is advisory: the JSON state document stays the source of truth
// and journal failures never fail a request.
type JournalEntry struct {
	ID        string
	TS        time.Time
	Type      string
	Asset     string
	TradeID   string
	Direction string
	Setup     string
	Result    string
	R         float64
	Status    string // active_set, closed, ignored, price_noted
	Reason    string // ignore reason, if any
}

// tsLayout stores timestamps as ISO-8601 UTC text; SQLite's date() can group
// on that directly, which the daily aggregate relies on.
const tsLayout = "2006-01-02 15:04:05"

// InsertEvent appends one entry.
func (d *Database) InsertEvent(ctx context.Context, e JournalEntry) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trade_events (id, ts, type, asset, trade_id, direction, setup, result, r, status, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.TS.UTC().Format(tsLayout), e.Type, e.Asset, e.TradeID, e.Direction, e.Setup, e.Result, e.R, e.Status, e.Reason)
	return err
}

// RecentEvents returns the newest entries, most recent first.
func (d *Database) RecentEvents(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, ts, type, asset, trade_id, direction, setup, result, r, status, reason
		FROM trade_events
		ORDER BY ts DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Type, &e.Asset, &e.TradeID, &e.Direction, &e.Setup, &e.Result, &e.R, &e.Status, &e.Reason); err != nil {
			return nil, err
		}
		if e.TS, err = time.Parse(tsLayout, ts); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DayOutcome aggregates closed trades for one UTC day.
type DayOutcome struct {
	Day    string
	Closed int
	Wins   int
	Losses int
	RSum   float64
}

// DailyOutcomes aggregates closed trades per day over the last `days` days,
// newest first. Serves the dashboard endpoint.
func (d *Database) DailyOutcomes(ctx context.Context, days int) ([]DayOutcome, error) {
	if days <= 0 {
		days = 30
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT date(ts) AS day,
		       COUNT(*),
		       SUM(CASE WHEN r > 0 THEN 1 ELSE 0 END),
		       SUM(CASE WHEN r < 0 THEN 1 ELSE 0 END),
		       COALESCE(SUM(r), 0)
		FROM trade_events
		WHERE status = 'closed'
		GROUP BY day
		ORDER BY day DESC
		LIMIT ?
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayOutcome
	for rows.Next() {
		var o DayOutcome
		if err := rows.Scan(&o.Day, &o.Closed, &o.Wins, &o.Losses, &o.RSum); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
