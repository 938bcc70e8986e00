package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ibakit/internal/history"
)

const historyColumns = `id, path, version, analog_count, digital_count, text_count, loaded_at`

// historyModel represents the database row for the history table.
// loaded_at is stored as a Unix timestamp.
type historyModel struct {
	ID           int64
	Path         string
	Version      string
	AnalogCount  int
	DigitalCount int
	TextCount    int
	LoadedAt     int64
}

func (m *historyModel) toDomain() history.Entry {
	return history.Entry{
		ID:           m.ID,
		Path:         m.Path,
		Version:      m.Version,
		AnalogCount:  m.AnalogCount,
		DigitalCount: m.DigitalCount,
		TextCount:    m.TextCount,
		LoadedAt:     time.Unix(m.LoadedAt, 0).UTC(),
	}
}

// historyRepository implements history.Store using SQLite.
type historyRepository struct {
	db *sql.DB
}

var _ history.Store = (*historyRepository)(nil)

func newHistoryRepository(db *sql.DB) *historyRepository {
	return &historyRepository{db: db}
}

func scanHistory(scanner interface{ Scan(...any) error }) (*historyModel, error) {
	var model historyModel
	err := scanner.Scan(
		&model.ID, &model.Path, &model.Version,
		&model.AnalogCount, &model.DigitalCount, &model.TextCount,
		&model.LoadedAt,
	)
	return &model, err
}

// Record inserts the entry, or refreshes the existing row for the same
// path. The entry ID is set either way.
func (r *historyRepository) Record(entry *history.Entry) error {
	loadedAt := entry.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO history (path, version, analog_count, digital_count, text_count, loaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			version = excluded.version,
			analog_count = excluded.analog_count,
			digital_count = excluded.digital_count,
			text_count = excluded.text_count,
			loaded_at = excluded.loaded_at`,
		entry.Path, entry.Version,
		entry.AnalogCount, entry.DigitalCount, entry.TextCount,
		loadedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}

	row := r.db.QueryRow(`SELECT id FROM history WHERE path = ?`, entry.Path)
	if err := row.Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to read history entry id: %w", err)
	}
	return nil
}

// Recent retrieves entries ordered by loaded_at descending (newest first).
func (r *historyRepository) Recent(limit int) ([]history.Entry, error) {
	query := `SELECT ` + historyColumns + ` FROM history ORDER BY loaded_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []history.Entry
	for rows.Next() {
		model, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, model.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return entries, nil
}

// Lookup returns the entry for path.
func (r *historyRepository) Lookup(path string) (history.Entry, error) {
	row := r.db.QueryRow(`SELECT `+historyColumns+` FROM history WHERE path = ?`, path)
	model, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Entry{}, &history.NotFoundError{Path: path}
	}
	if err != nil {
		return history.Entry{}, fmt.Errorf("failed to look up history entry: %w", err)
	}
	return model.toDomain(), nil
}

// Prune deletes all but the newest keep entries.
func (r *historyRepository) Prune(keep int) error {
	if keep < 0 {
		return fmt.Errorf("keep must be >= 0, got %d", keep)
	}

	_, err := r.db.Exec(
		`DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY loaded_at DESC, id DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return nil
}
