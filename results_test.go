package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultRecord(t *testing.T) {
	result := Result{
		Settings: Settings{Threads: 4},
		Joins:    2,
		Summary:  Summary{Mean: 0.5, StdDev: 0.25, MAD: 0.125},
		Samples:  []float64{0.5, 0.25},
	}
	require.Equal(t, []string{"4", "N/A", "2", "0.5", "0.25", "0.125", "0.5", "0.25"}, result.Record())

	result.Settings = Settings{Memory: "2GB"}
	require.Equal(t, []string{"N/A", "2GB"}, result.Record()[:2])
}

func TestResultHeader(t *testing.T) {
	header := ResultHeader(10)
	require.Len(t, header, 16)
	require.Equal(t, "threads,memory,joins,mean,std_dev,mad,r1,r2,r3,r4,r5,r6,r7,r8,r9,r10", strings.Join(header, ","))
}

func TestAppendResultWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.csv")
	first := Result{Settings: Settings{Threads: 1}, Joins: 1, Summary: Summary{Mean: 1}, Samples: []float64{1, 1}}
	second := Result{Settings: Settings{Memory: "1GB"}, Joins: 10, Summary: Summary{Mean: 2, StdDev: 0.5, MAD: 0.25}, Samples: []float64{1.5, 2.5}}

	require.Nil(t, AppendResult(path, first))
	require.Nil(t, AppendResult(path, second))

	data, err := os.ReadFile(path)
	require.Nil(t, err)
	require.Equal(t, "threads,memory,joins,mean,std_dev,mad,r1,r2\n"+
		"1,N/A,1,1,0,0,1,1\n"+
		"N/A,1GB,10,2,0.5,0.25,1.5,2.5\n", string(data))

	results, err := ReadResults(path)
	require.Nil(t, err)
	require.Equal(t, []Result{first, second}, results)
}

func TestReadResultsRejectsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.Nil(t, os.WriteFile(path, []byte("threads,memory,joins,mean,std_dev,mad\n4,N/A,two,1,1,1\n"), 0o644))
	_, err := ReadResults(path)
	require.ErrorContains(t, err, "results.csv:2")

	require.Nil(t, os.WriteFile(path, []byte("4,N/A\n"), 0o644))
	_, err = ReadResults(path)
	require.Error(t, err)
}

func TestParseSettings(t *testing.T) {
	settings, err := ParseSettings("8", "N/A")
	require.Nil(t, err)
	require.Equal(t, Settings{Threads: 8}, settings)

	settings, err = ParseSettings("N/A", "16GB")
	require.Nil(t, err)
	require.Equal(t, Settings{Memory: "16GB"}, settings)
	require.Equal(t, "threads=N/A memory=16GB", settings.String())

	_, err = ParseSettings("many", "N/A")
	require.Error(t, err)
}
