// Command migrate applies the SQL files under migrations/ in order.
// Applied versions are recorded in schema_migrations, so reruns only
// pick up new files.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Berkaniis/survey-tool/internal/config"
	"github.com/Berkaniis/survey-tool/internal/pkg/logger"
	"github.com/Berkaniis/survey-tool/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	dir := flag.String("dir", "migrations", "directory of .sql migration files")
	list := flag.Bool("list", false, "list applied migrations and exit")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := postgres.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	applied, err := appliedVersions(db)
	if err != nil {
		log.Fatalf("schema_migrations: %v", err)
	}

	if *list {
		versions := make([]string, 0, len(applied))
		for v := range applied {
			versions = append(versions, v)
		}
		sort.Strings(versions)
		for _, v := range versions {
			fmt.Println(v)
		}
		fmt.Printf("%d applied\n", len(versions))
		return
	}

	files, err := pendingFiles(*dir, applied)
	if err != nil {
		log.Fatalf("migrations: %v", err)
	}
	if len(files) == 0 {
		logger.Info("schema up to date", "applied", len(applied))
		return
	}

	for _, f := range files {
		if err := applyOne(db, *dir, f); err != nil {
			log.Fatalf("apply %s: %v", f, err)
		}
		logger.Info("migration applied", "file", f)
	}
	logger.Info("migrations complete", "applied", len(files))
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}

	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func pendingFiles(dir string, applied map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") || applied[name] {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

// applyOne runs one migration file and records its version in the same
// transaction, so a failed statement leaves the version unrecorded.
func applyOne(db *sql.DB, dir, name string) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return fmt.Errorf("empty migration file")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(data)); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit()
}
