// Package postgres implements the repository interfaces against PostgreSQL.
package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection.
func Open(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// jsonMap marshals a map for a jsonb column. Nil maps become SQL NULL.
func jsonMap[V any](m map[string]V) (any, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return data, nil
}

// scanJSONMap unmarshals a jsonb column into a map. NULL yields nil.
func scanJSONMap[V any](data []byte, dst *map[string]V) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
