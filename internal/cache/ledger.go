package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Ledger records which segments consumed which leaf-layer keys, enabling
// automatic cascade enumeration. It is an optional upgrade over the manual
// contract: nothing in the build pipeline requires it, and the manual
// invalidation calls behave identically with or without it.
type Ledger struct {
	db   *sql.DB
	path string
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS generated_consumers (
	key         TEXT NOT NULL,
	segment_id  TEXT NOT NULL,
	mode        TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	PRIMARY KEY (key, segment_id, mode)
);
CREATE TABLE IF NOT EXISTS tts_consumers (
	key         TEXT NOT NULL,
	segment_id  TEXT NOT NULL,
	mode        TEXT NOT NULL,
	engine      TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	PRIMARY KEY (key, segment_id, mode, engine)
);
`

// OpenLedger initializes or connects to the ledger database.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open ledger db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("cache: apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: apply ledger schema: %w", err)
	}
	return &Ledger{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// RecordGenerated upserts a consumer row for a generated key.
func (l *Ledger) RecordGenerated(ctx context.Context, key string, ref SegmentRef) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO generated_consumers (key, segment_id, mode, recorded_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key, segment_id, mode) DO UPDATE SET recorded_at = excluded.recorded_at`,
		key, ref.SegmentID, ref.Mode, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("cache: record generated consumer: %w", err)
	}
	return nil
}

// RecordTTS upserts a consumer row for a TTS key.
func (l *Ledger) RecordTTS(ctx context.Context, key string, ref CombinedRef) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO tts_consumers (key, segment_id, mode, engine, recorded_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key, segment_id, mode, engine) DO UPDATE SET recorded_at = excluded.recorded_at`,
		key, ref.SegmentID, ref.Mode, ref.Engine, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("cache: record tts consumer: %w", err)
	}
	return nil
}

// GeneratedDependents lists every (segment, mode) recorded against key.
func (l *Ledger) GeneratedDependents(ctx context.Context, key string) ([]SegmentRef, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT segment_id, mode FROM generated_consumers WHERE key = ? ORDER BY segment_id, mode`, key)
	if err != nil {
		return nil, fmt.Errorf("cache: query generated consumers: %w", err)
	}
	defer rows.Close()

	var refs []SegmentRef
	for rows.Next() {
		var ref SegmentRef
		if err := rows.Scan(&ref.SegmentID, &ref.Mode); err != nil {
			return nil, fmt.Errorf("cache: scan generated consumer: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// TTSDependents lists every (segment, mode, engine) recorded against key.
func (l *Ledger) TTSDependents(ctx context.Context, key string) ([]CombinedRef, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT segment_id, mode, engine FROM tts_consumers WHERE key = ? ORDER BY segment_id, mode, engine`, key)
	if err != nil {
		return nil, fmt.Errorf("cache: query tts consumers: %w", err)
	}
	defer rows.Close()

	var refs []CombinedRef
	for rows.Next() {
		var ref CombinedRef
		if err := rows.Scan(&ref.SegmentID, &ref.Mode, &ref.Engine); err != nil {
			return nil, fmt.Errorf("cache: scan tts consumer: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ForgetGenerated removes all consumer rows for a generated key.
func (l *Ledger) ForgetGenerated(ctx context.Context, key string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM generated_consumers WHERE key = ?`, key); err != nil {
		return fmt.Errorf("cache: forget generated key: %w", err)
	}
	return nil
}

// ForgetTTS removes all consumer rows for a TTS key.
func (l *Ledger) ForgetTTS(ctx context.Context, key string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM tts_consumers WHERE key = ?`, key); err != nil {
		return fmt.Errorf("cache: forget tts key: %w", err)
	}
	return nil
}
