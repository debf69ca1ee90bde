package main

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Storage mirrors benchmark results into a SQL database (libsql, sqlite or duckdb).
type Storage struct {
	db     *sql.DB
	driver string
}

type Measurement struct {
	Run         string
	Threads     string
	Memory      string
	Joins       int
	Measurement string
	Iteration   int
	Value       float64
}

// StorageDriver picks the database/sql driver for dsn.
//
//	libsql://host?authToken=...  -> libsql
//	sqlite://path                -> sqlite3
//	duckdb://path or bare path   -> duckdb
func StorageDriver(dsn string) (string, string) {
	switch {
	case strings.HasPrefix(dsn, "libsql://"):
		return "libsql", dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "duckdb://"):
		return "duckdb", strings.TrimPrefix(dsn, "duckdb://")
	}
	return "duckdb", dsn
}

func OpenStorage(dsn string) (*Storage, error) {
	driver, source := StorageDriver(dsn)
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %v storage: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %v storage: %w", driver, err)
	}
	return &Storage{db: db, driver: driver}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) InitResultsDb(ctx context.Context, run string, meta map[string]any) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS parameters (
		run TEXT,
		name TEXT,
		value TEXT,
		PRIMARY KEY (run, name)
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS measurements (
		run TEXT,
		threads TEXT,
		memory TEXT,
		joins INTEGER,
		measurement TEXT,
		iteration INTEGER,
		value DOUBLE
	)`)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(meta)+1)
	for key := range meta {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	parameters := []any{run, "time", time.Now().Format("2006-01-02 15:04:05")}
	for _, key := range keys {
		parameters = append(parameters, run, key, fmt.Sprintf("%v", meta[key]))
	}
	placeholders := strings.Join(slices.Repeat([]string{"(?, ?, ?)"}, len(parameters)/3), ", ")
	_, err = s.db.ExecContext(
		ctx,
		fmt.Sprintf("INSERT INTO parameters VALUES %v ON CONFLICT DO NOTHING", placeholders),
		parameters...,
	)
	if err != nil {
		return err
	}
	Logger.Infof("initialized %v storage for run %v with meta %v", s.driver, run, meta)
	return nil
}

func (s *Storage) Parameters(ctx context.Context, run string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, value FROM parameters WHERE run = ?", run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make(map[string]string, 0)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		results[name] = value
	}
	return results, rows.Err()
}

// UpdateBenchmarkDb writes every sample of result plus its summary in one transaction.
func (s *Storage) UpdateBenchmarkDb(ctx context.Context, run string, result Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert := func(measurement string, iteration int, value float64) error {
		_, err := tx.ExecContext(
			ctx,
			"INSERT INTO measurements VALUES (?, ?, ?, ?, ?, ?, ?)",
			run,
			result.Settings.ThreadsLabel(),
			result.Settings.MemoryLabel(),
			result.Joins,
			measurement,
			iteration,
			value,
		)
		return err
	}
	for i, sample := range result.Samples {
		if err := insert("total_time", i+1, sample); err != nil {
			return err
		}
	}
	for _, stat := range []struct {
		name  string
		value float64
	}{
		{"mean", result.Summary.Mean},
		{"std_dev", result.Summary.StdDev},
		{"mad", result.Summary.MAD},
	} {
		if err := insert(stat.name, 0, stat.value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Storage) Measurements(ctx context.Context, run string) ([]Measurement, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT run, threads, memory, joins, measurement, iteration, value FROM measurements WHERE run = ? ORDER BY joins, measurement, iteration",
		run,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	measurements := make([]Measurement, 0)
	for rows.Next() {
		var m Measurement
		if err := rows.Scan(&m.Run, &m.Threads, &m.Memory, &m.Joins, &m.Measurement, &m.Iteration, &m.Value); err != nil {
			return nil, err
		}
		measurements = append(measurements, m)
	}
	return measurements, rows.Err()
}
