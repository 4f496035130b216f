package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "mcxdesk/internal/errors"
	"mcxdesk/internal/models"
)

// SQLiteStore implements Journal using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (creating if needed) the journal database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		instrument TEXT NOT NULL,
		expiry TEXT NOT NULL,
		underlying REAL NOT NULL,
		record_count INTEGER NOT NULL,
		put_call_ratio REAL,
		sentiment TEXT,
		source TEXT,
		fetched_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		strike REAL NOT NULL,
		old_price REAL NOT NULL,
		new_price REAL NOT NULL,
		change_percent REAL NOT NULL,
		critical INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		instrument TEXT NOT NULL,
		expiry TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		auto INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_instrument ON snapshots(instrument, fetched_at);
	CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
	CREATE INDEX IF NOT EXISTS idx_exports_created ON exports(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return apperrors.ErrStoreClosed
	}
	return nil
}

// RecordSnapshot journals a snapshot header. Records themselves are not
// stored; CSV export covers row-level history.
func (s *SQLiteStore) RecordSnapshot(ctx context.Context, snap *models.Snapshot, summary *models.AnalyticsSummary) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	var pcr sql.NullFloat64
	var sentiment sql.NullString
	if summary != nil {
		pcr = sql.NullFloat64{Float64: summary.PutCallRatio, Valid: true}
		sentiment = sql.NullString{String: summary.Sentiment, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (instrument, expiry, underlying, record_count, put_call_ratio, sentiment, source, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.Instrument, snap.Expiry, snap.UnderlyingValue, snap.Len(), pcr, sentiment, snap.Source, snap.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// RecordAlert saves a price alert.
func (s *SQLiteStore) RecordAlert(ctx context.Context, alert models.PriceAlert) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	critical := 0
	if alert.Critical {
		critical = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO alerts (id, symbol, side, strike, old_price, new_price, change_percent, critical, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.Symbol, string(alert.Side), alert.Strike, alert.OldPrice, alert.NewPrice,
		alert.ChangePercent, critical, alert.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// RecordExport saves an export record.
func (s *SQLiteStore) RecordExport(ctx context.Context, rec models.ExportRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	auto := 0
	if rec.Auto {
		auto = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exports (path, instrument, expiry, row_count, auto, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Path, rec.Instrument, rec.Expiry, rec.Rows, auto, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save export: %w", err)
	}
	return nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (s *SQLiteStore) RecentAlerts(ctx context.Context, limit int) ([]models.PriceAlert, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, side, strike, old_price, new_price, change_percent, critical, created_at
		FROM alerts ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.PriceAlert
	for rows.Next() {
		var a models.PriceAlert
		var side string
		var critical int
		if err := rows.Scan(&a.ID, &a.Symbol, &side, &a.Strike, &a.OldPrice, &a.NewPrice,
			&a.ChangePercent, &critical, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Side = models.Side(side)
		a.Critical = critical == 1
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// RecentExports returns up to limit exports, newest first.
func (s *SQLiteStore) RecentExports(ctx context.Context, limit int) ([]models.ExportRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, instrument, expiry, row_count, auto, created_at
		FROM exports ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	var exports []models.ExportRecord
	for rows.Next() {
		var e models.ExportRecord
		var auto int
		if err := rows.Scan(&e.Path, &e.Instrument, &e.Expiry, &e.Rows, &auto, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		e.Auto = auto == 1
		exports = append(exports, e)
	}

	return exports, rows.Err()
}

// SnapshotCount counts journaled snapshots, for one instrument or all when
// instrument is empty.
func (s *SQLiteStore) SnapshotCount(ctx context.Context, instrument string) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var count int
	var err error
	if instrument == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE instrument = ?`, instrument).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

// LatestSnapshots returns the most recent snapshot headers.
func (s *SQLiteStore) LatestSnapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT instrument, expiry, underlying, record_count, COALESCE(put_call_ratio, 0), COALESCE(sentiment, '')
		FROM snapshots ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		if err := rows.Scan(&r.Instrument, &r.Expiry, &r.Underlying, &r.RecordCount, &r.PutCallRatio, &r.Sentiment); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
