// Package db stores saves in a SQLite database, one row per slot.
package db

import (
	"database/sql"
	stderrors "errors"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
	"github.com/tatianab/ravi-adventure/internal/models"
)

// SQLiteStore is a models.SaveStore backed by SQLite.
type SQLiteStore struct {
	conn *sql.DB
	mu   sync.RWMutex
}

var _ models.SaveStore = (*SQLiteStore)(nil)

// NewSQLiteStore connects to the database at path and creates the schema if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, gerrors.ErrPersistence("open", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, gerrors.ErrPersistence("open", err)
	}

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, gerrors.ErrPersistence("migrate", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		slot TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		turns INTEGER NOT NULL DEFAULT 0,
		saved_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_saves_saved_at ON saves(saved_at);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Save upserts the slot. The JSON document is the same one the file store
// writes, so saves can move between backends.
func (s *SQLiteStore) Save(slot string, save *models.SaveFile) error {
	data, err := models.EncodeSave(save)
	if err != nil {
		return gerrors.ErrPersistence("save", err)
	}
	info := models.InfoFor(slot, save)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.conn.Exec(`
		INSERT INTO saves (slot, data, location, turns, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			data = excluded.data,
			location = excluded.location,
			turns = excluded.turns,
			saved_at = excluded.saved_at
	`, slot, string(data), info.Location, info.Turns, info.LastSaved.UTC())
	if err != nil {
		return gerrors.ErrPersistence("save", err)
	}
	return nil
}

// Load reads the slot.
func (s *SQLiteStore) Load(slot string) (*models.SaveFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.conn.QueryRow(`SELECT data FROM saves WHERE slot = ?`, slot).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, gerrors.ErrPersistence("load", models.ErrNoSave)
	}
	if err != nil {
		return nil, gerrors.ErrPersistence("load", err)
	}

	save, err := models.DecodeSave([]byte(data))
	if err != nil {
		return nil, gerrors.ErrPersistence("load", err)
	}
	return save, nil
}

// List returns every stored slot, most recent first. The listing is built
// from the summary columns, so a row with a corrupt document still shows up
// and fails only when loaded.
func (s *SQLiteStore) List() ([]models.SaveInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`SELECT slot, location, turns, saved_at FROM saves`)
	if err != nil {
		return nil, gerrors.ErrPersistence("list", err)
	}
	defer rows.Close()

	saves := make([]models.SaveInfo, 0)
	for rows.Next() {
		var (
			info    models.SaveInfo
			savedAt time.Time
		)
		if err := rows.Scan(&info.Slot, &info.Location, &info.Turns, &savedAt); err != nil {
			return nil, gerrors.ErrPersistence("list", err)
		}
		info.LastSaved = savedAt
		saves = append(saves, info)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.ErrPersistence("list", err)
	}
	sort.Slice(saves, func(i, j int) bool { return saves[i].LastSaved.After(saves[j].LastSaved) })
	return saves, nil
}

// Delete removes the slot. Deleting a missing slot is not an error.
func (s *SQLiteStore) Delete(slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.Exec(`DELETE FROM saves WHERE slot = ?`, slot); err != nil {
		return gerrors.ErrPersistence("delete", err)
	}
	return nil
}
