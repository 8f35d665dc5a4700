package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SQL stores the document as one row of the documents table, keyed by name.
type SQL struct {
	db     *sql.DB
	driver string
	name   string
}

func NewSQL(db *sql.DB, driver, name string) *SQL {
	return &SQL{db: db, driver: driver, name: name}
}

func (s *SQL) Name() string { return s.driver + ":" + s.name }

func (s *SQL) Read(ctx context.Context) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT body FROM documents WHERE name = ?
	`), s.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("select document %s: %w", s.name, err)
	}
	return []byte(body), nil
}

func (s *SQL) Write(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO documents (name, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`), s.name, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", s.name, err)
	}
	return nil
}

func (s *SQL) Close() error { return s.db.Close() }

// rebind turns ? placeholders into $n for postgres.
func (s *SQL) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
