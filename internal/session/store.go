// Package session owns the persisted session record and everything derived
// from it: the durable token/username store, the session context that fans
// out login and logout transitions, and the guard that tracks remaining
// token lifetime.
package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Thekirgo/calcwatch/internal/domain"
)

// Store persists the session record across process restarts. It is a plain
// accessor over a single-row SQLite table; all three fields are written and
// cleared as one statement, so a crash can never leave partial state.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the session database at path.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	dsn := path + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping session database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL,
		token_issued_at INTEGER NOT NULL,
		user_login TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Load returns the stored credentials, or ok=false when logged out.
func (s *Store) Load() (domain.Credentials, bool, error) {
	row := s.db.QueryRow(`SELECT token, token_issued_at, user_login FROM session WHERE id = 1`)

	var creds domain.Credentials
	var issuedMs int64
	err := row.Scan(&creds.Token, &issuedMs, &creds.Username)
	if err == sql.ErrNoRows {
		return domain.Credentials{}, false, nil
	}
	if err != nil {
		return domain.Credentials{}, false, fmt.Errorf("scan session row: %w", err)
	}

	creds.IssuedAt = time.UnixMilli(issuedMs)
	return creds, true, nil
}

// Save replaces the session record in a single write.
func (s *Store) Save(creds domain.Credentials) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO session (id, token, token_issued_at, user_login) VALUES (1, ?, ?, ?)`,
		creds.Token, creds.IssuedAt.UnixMilli(), creds.Username,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the session record in a single write.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
