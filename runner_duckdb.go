package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"

	_ "github.com/duckdb/duckdb-go/v2"
)

type RunnerDuckDB struct{}

type InstanceDuckDB struct {
	db       *sql.DB
	settings Settings
}

// DuckDBDsn renders engine settings as DuckDB connection options.
func DuckDBDsn(path string, settings Settings, readOnly bool) string {
	options := url.Values{}
	if readOnly {
		options.Set("access_mode", "READ_ONLY")
	}
	if settings.Threads > 0 {
		options.Set("threads", strconv.Itoa(settings.Threads))
	}
	if settings.Memory != "" {
		options.Set("memory_limit", settings.Memory)
	}
	if len(options) == 0 {
		return path
	}
	return path + "?" + options.Encode()
}

func (r *RunnerDuckDB) Name() string { return "duckdb" }

func (r *RunnerDuckDB) Open(path string, settings Settings) (Instance, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %v is not available: %w", path, err)
	}
	db, err := sql.Open("duckdb", DuckDBDsn(path, settings, true))
	if err != nil {
		return nil, fmt.Errorf("failed to open %v with %v: %w", path, settings, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %v with %v: %w", path, settings, err)
	}

	var threads, memory string
	err = db.QueryRow("SELECT current_setting('threads')::VARCHAR, current_setting('memory_limit')::VARCHAR").Scan(&threads, &memory)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read engine settings: %w", err)
	}
	Logger.Infof("opened %v read-only (%v), engine reports threads=%v memory_limit=%v", path, settings, threads, memory)

	return &InstanceDuckDB{db: db, settings: settings}, nil
}

func (i *InstanceDuckDB) Name() string { return "duckdb" }

// Run executes the query and reads every row so the whole result is materialized.
func (i *InstanceDuckDB) Run(ctx context.Context, query Query) error {
	rows, err := i.db.QueryContext(ctx, query.Query)
	if err != nil {
		return fmt.Errorf("query %v failed: %w", query.Name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("query %v failed: %w", query.Name, err)
	}
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for c := range values {
		pointers[c] = &values[c]
	}
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return fmt.Errorf("query %v failed to scan row: %w", query.Name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("query %v failed: %w", query.Name, err)
	}
	return nil
}

func (i *InstanceDuckDB) Close() error {
	return i.db.Close()
}
