package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
)

//go:embed queries/*.sql
var queriesFS embed.FS

// LoadQueries returns the embedded join queries ordered by join count.
func LoadQueries() ([]Query, error) {
	entries, err := queriesFS.ReadDir("queries")
	if err != nil {
		return nil, err
	}
	queries := make([]Query, 0, len(entries))
	for _, entry := range entries {
		var joins int
		if _, err := fmt.Sscanf(entry.Name(), "joins_%d.sql", &joins); err != nil {
			return nil, fmt.Errorf("unexpected query file name %v: %w", entry.Name(), err)
		}
		data, err := queriesFS.ReadFile(path.Join("queries", entry.Name()))
		if err != nil {
			return nil, err
		}
		queries = append(queries, Query{Name: entry.Name(), Joins: joins, Query: string(data)})
	}
	slices.SortFunc(queries, func(a, b Query) int { return a.Joins - b.Joins })
	return queries, nil
}

// FilterJoins keeps queries whose join count is listed; an empty list keeps everything.
func FilterJoins(queries []Query, joins []int) []Query {
	if len(joins) == 0 {
		return queries
	}
	filtered := make([]Query, 0, len(joins))
	for _, query := range queries {
		if slices.Contains(joins, query.Joins) {
			filtered = append(filtered, query)
		}
	}
	return filtered
}

type DatasetTpch struct {
	ScaleFactor float64
}

func (d *DatasetTpch) Name() string { return "tpc-h" }

func (d *DatasetTpch) Load(ctx context.Context, path string) ([]Query, error) {
	if _, err := os.Stat(path); err == nil {
		Logger.Infof("dataset %v already exists at %v, skip initialization", d.Name(), path)
		return LoadQueries()
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	if d.ScaleFactor <= 0 {
		return nil, fmt.Errorf("scale factor must be positive, got %v", d.ScaleFactor)
	}

	Logger.Infof("database file %v not found, creating and loading %v (SF=%v)", path, d.Name(), d.ScaleFactor)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %v: %w", dir, err)
		}
	}
	if err := d.generate(ctx, path); err != nil {
		if cleanupErr := removeDatabase(path); cleanupErr != nil {
			Logger.Warnf("failed to remove partial database %v: %v", path, cleanupErr)
		}
		return nil, fmt.Errorf("failed to generate %v dataset at %v: %w", d.Name(), path, err)
	}
	Logger.Infof("%v data generation complete", d.Name())
	return LoadQueries()
}

// removeDatabase deletes a database file and its write-ahead log; missing files are fine.
func removeDatabase(path string) error {
	var errs []error
	for _, file := range []string{path, path + ".wal"} {
		if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *DatasetTpch) generate(ctx context.Context, path string) error {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return err
	}
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	statements := []string{
		"INSTALL tpch",
		"LOAD tpch",
		fmt.Sprintf("CALL dbgen(sf = %v)", strconv.FormatFloat(d.ScaleFactor, 'f', -1, 64)),
	}
	for _, statement := range statements {
		Logger.Debugf("exec: %v", statement)
		if _, err := conn.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("%v: %w", statement, err)
		}
	}
	return nil
}
