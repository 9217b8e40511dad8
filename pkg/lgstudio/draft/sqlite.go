package draft

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists drafts to a SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens or creates a draft database at path.
// Use ":memory:" for a throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection, so ":memory:" databases are shared by every query.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS drafts (
			draft_key TEXT NOT NULL,
			revision INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			data BLOB NOT NULL,
			PRIMARY KEY (draft_key, revision)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(key string, revision int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if data == nil {
		data = []byte{}
	}

	_, err := s.db.Exec(`
		INSERT INTO drafts (draft_key, revision, timestamp, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(draft_key, revision) DO UPDATE SET
			timestamp = excluded.timestamp,
			data = excluded.data
	`, key, revision, time.Now().UTC().Format(time.RFC3339Nano), data)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(key string, revision int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := s.db.QueryRow(`
		SELECT data FROM drafts
		WHERE draft_key = ? AND revision = ?
	`, key, revision).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return data, nil
}

// Latest implements Store.
func (s *SQLiteStore) Latest(key string) ([]byte, Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, Info{}, ErrStoreClosed
	}

	var data []byte
	var timestamp string
	info := Info{Key: key}
	err := s.db.QueryRow(`
		SELECT revision, timestamp, data FROM drafts
		WHERE draft_key = ?
		ORDER BY revision DESC
		LIMIT 1
	`, key).Scan(&info.Revision, &timestamp, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Info{}, ErrNotFound
	}
	if err != nil {
		return nil, Info{}, fmt.Errorf("load latest draft: %w", err)
	}
	info.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
	info.Size = int64(len(data))
	return data, info, nil
}

// List implements Store.
func (s *SQLiteStore) List(key string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT revision, timestamp, LENGTH(data)
		FROM drafts
		WHERE draft_key = ?
		ORDER BY revision
	`, key)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		info := Info{Key: key}
		var timestamp string
		if err := rows.Scan(&info.Revision, &timestamp, &info.Size); err != nil {
			return nil, fmt.Errorf("scan draft info: %w", err)
		}
		info.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drafts: %w", err)
	}
	return infos, nil
}

// Keys implements Store.
func (s *SQLiteStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`SELECT DISTINCT draft_key FROM drafts ORDER BY draft_key`)
	if err != nil {
		return nil, fmt.Errorf("list draft keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan draft key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draft keys: %w", err)
	}
	return keys, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(key string, revision int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.db.Exec(`DELETE FROM drafts WHERE draft_key = ? AND revision = ?`, key, revision); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// DeleteKey implements Store.
func (s *SQLiteStore) DeleteKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.db.Exec(`DELETE FROM drafts WHERE draft_key = ?`, key); err != nil {
		return fmt.Errorf("delete drafts: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
