package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// createFixtureDb writes a tiny TPC-H shaped database at path.
func createFixtureDb(t *testing.T, path string) {
	t.Helper()
	schema, err := os.ReadFile(filepath.Join("testdata", "tpch_schema.sql"))
	require.Nil(t, err)

	db, err := sql.Open("duckdb", path)
	require.Nil(t, err)
	defer db.Close()
	for _, statement := range strings.Split(string(schema), ";\n") {
		if strings.TrimSpace(statement) == "" {
			continue
		}
		_, err := db.Exec(statement)
		require.Nil(t, err, statement)
	}
}

func TestDuckDBDsn(t *testing.T) {
	require.Equal(t, "tpch.duckdb", DuckDBDsn("tpch.duckdb", Settings{}, false))
	require.Equal(t, "tpch.duckdb?access_mode=READ_ONLY", DuckDBDsn("tpch.duckdb", Settings{}, true))
	require.Equal(
		t,
		"tpch.duckdb?access_mode=READ_ONLY&memory_limit=4GB&threads=8",
		DuckDBDsn("tpch.duckdb", Settings{Threads: 8, Memory: "4GB"}, true),
	)
}

func TestDuckDBRunner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tpch.duckdb")
	createFixtureDb(t, path)

	queries, err := LoadQueries()
	require.Nil(t, err)

	runner := &RunnerDuckDB{}
	instance, err := runner.Open(path, Settings{Threads: 2, Memory: "512MB"})
	require.Nil(t, err)
	defer instance.Close()

	for _, query := range queries {
		require.Nil(t, instance.Run(context.Background(), query), query.Name)
	}

	benchmark := Benchmark{Warmup: 1, Attempts: 3}
	durations, err := benchmark.Measure(context.Background(), instance, queries[len(queries)-1])
	require.Nil(t, err)
	require.Len(t, durations, 3)
	for _, duration := range durations {
		require.Greater(t, duration, time.Duration(0))
	}
}

func TestDuckDBRunnerIsReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tpch.duckdb")
	createFixtureDb(t, path)

	instance, err := (&RunnerDuckDB{}).Open(path, Settings{})
	require.Nil(t, err)
	defer instance.Close()

	err = instance.Run(context.Background(), Query{Name: "insert", Query: "INSERT INTO region VALUES (2, 'ASIA', '')"})
	require.Error(t, err)
	require.ErrorContains(t, err, "insert")
}

func TestDuckDBRunnerMissingDatabase(t *testing.T) {
	_, err := (&RunnerDuckDB{}).Open(filepath.Join(t.TempDir(), "missing.duckdb"), Settings{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDuckDBRunnerCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tpch.duckdb")
	createFixtureDb(t, path)

	instance, err := (&RunnerDuckDB{}).Open(path, Settings{Threads: 1})
	require.Nil(t, err)
	defer instance.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, instance.Run(ctx, Query{Name: "count", Query: "SELECT count(*) FROM lineitem"}))
}
