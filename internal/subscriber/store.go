package subscriber

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DatabaseFile is the name of the subscriber database inside the data directory
const DatabaseFile = "subscribers.db"

//go:embed schema.sql
var Schema string

// ErrInvalidEmail is returned when an address cannot be parsed
var ErrInvalidEmail = errors.New("invalid email address")

// Store is the subscriber set
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the subscriber database at path.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close() // nolint:errcheck
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Normalize trims and lower-cases an address and checks that it parses.
// Display names ("Budi <budi@example.com>") are rejected.
func Normalize(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}

	return email, nil
}

// Add inserts email. added is false when the address was already subscribed.
func (s *Store) Add(ctx context.Context, email string) (added bool, err error) {
	email, err = Normalize(email)
	if err != nil {
		return false, err
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO subscribers (email) VALUES (?)", email)
	if err != nil {
		if isConstraintError(err) {
			return false, nil
		}
		return false, fmt.Errorf("inserting subscriber: %w", err)
	}

	return true, nil
}

// Remove deletes email. Removing an unknown address is not an error.
func (s *Store) Remove(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.db.ExecContext(ctx, "DELETE FROM subscribers WHERE email = ?", email); err != nil {
		return fmt.Errorf("deleting subscriber: %w", err)
	}
	return nil
}

// List returns all subscribed addresses in alphabetical order
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT email FROM subscribers ORDER BY email")
	if err != nil {
		return nil, fmt.Errorf("querying subscribers: %w", err)
	}
	defer rows.Close()

	emails := make([]string, 0)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		emails = append(emails, email)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscribers: %w", err)
	}
	return emails, nil
}

// Count returns the number of subscribers
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM subscribers").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting subscribers: %w", err)
	}
	return n, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
