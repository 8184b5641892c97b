package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/svacron/metals/backend/src/models"
)

// Store persists metal records, settings, and scrape logs in sqlite.
// Records are stored as one JSON document per metal, mirroring the
// key-value document shape consumed by the static-file snapshots.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetRecord loads the full document for a metal. Returns (nil, nil) when no
// record exists yet.
func (s *Store) GetRecord(ctx context.Context, metal models.MetalKind) (*models.MetalRecord, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM metal_records WHERE metal = ?`, string(metal)).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading record for %s: %w", metal, err)
	}

	var record models.MetalRecord
	if err := json.Unmarshal([]byte(document), &record); err != nil {
		return nil, fmt.Errorf("decoding record for %s: %w", metal, err)
	}
	return &record, nil
}

// SaveRecord overwrites the full document for a metal in one write.
func (s *Store) SaveRecord(ctx context.Context, metal models.MetalKind, record *models.MetalRecord) error {
	document, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record for %s: %w", metal, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO metal_records (metal, document, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(metal) DO UPDATE SET document = excluded.document, updated_at = CURRENT_TIMESTAMP`,
		string(metal), string(document))
	if err != nil {
		return fmt.Errorf("writing record for %s: %w", metal, err)
	}
	return nil
}

// GetHistory returns the stored history entries for a metal, empty when the
// metal has no record yet. Order is as stored (newest first).
func (s *Store) GetHistory(ctx context.Context, metal models.MetalKind) ([]models.HistoryEntry, error) {
	record, err := s.GetRecord(ctx, metal)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return record.History, nil
}

// GetSetting reads a settings value; ok is false when the key is absent.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value, true, nil
}

// SetSetting upserts a settings value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

// InsertScrapeLog records one fetch attempt for the audit endpoint.
func (s *Store) InsertScrapeLog(ctx context.Context, entry models.ScrapeLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrape_logs (source, metal, success, price, error) VALUES (?, ?, ?, ?, ?)`,
		entry.Source, entry.Metal, entry.Success, entry.Price, entry.Error)
	if err != nil {
		return fmt.Errorf("inserting scrape log: %w", err)
	}
	return nil
}

// RecentScrapeLogs returns the latest n log entries, newest first.
func (s *Store) RecentScrapeLogs(ctx context.Context, n int) ([]models.ScrapeLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, metal, success, COALESCE(price, ''), COALESCE(error, ''), created_at
		FROM scrape_logs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying scrape logs: %w", err)
	}
	defer rows.Close()

	logs := []models.ScrapeLog{}
	for rows.Next() {
		var l models.ScrapeLog
		if err := rows.Scan(&l.ID, &l.Source, &l.Metal, &l.Success, &l.Price, &l.Error, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning scrape log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scrape logs: %w", err)
	}
	return logs, nil
}
