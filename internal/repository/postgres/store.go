// Package postgres implements repository.Store against PostgreSQL. All
// latch and counter updates for a delivery record run as single UPDATE
// statements inside a transaction with the event insert, so the row lock is
// the per-record serialization point.
package postgres

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/campaign-tracker/internal/repository"
)

// Store is a PostgreSQL-backed repository.Store.
type Store struct {
	db *sql.DB
}

// New creates a store on an existing database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

var _ repository.Store = (*Store)(nil)

// Open connects to PostgreSQL and verifies the connection.
func Open(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
