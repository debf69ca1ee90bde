package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var DefaultMemoryLimits = []string{"1GB", "2GB", "3GB", "4GB", "5GB", "6GB", "7GB", "8GB", "16GB"}

type Config struct {
	Database        string
	ScaleFactor     float64
	Results         string
	ResultsDb       string
	Warmup          int
	Attempts        int
	Threads         []int
	Memory          []string
	Sweeps          []string
	Joins           []int
	ClearCaches     bool
	ContinueOnError bool
}

// LoadDotenv reads .env from the working directory; a missing file is not an error.
func LoadDotenv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func DefaultConfig() Config {
	return Config{
		Database:        StringEnv("BENCHMARK_DB", ""),
		ScaleFactor:     FloatEnv("BENCHMARK_SCALE_FACTOR", 1),
		Results:         StringEnv("BENCHMARK_RESULTS", ""),
		ResultsDb:       StringEnv("BENCHMARK_RESULTS_DB", ""),
		Warmup:          IntEnv("BENCHMARK_WARMUP", 3),
		Attempts:        IntEnv("BENCHMARK_ATTEMPTS", 10),
		Threads:         IntListEnv("BENCHMARK_THREADS", nil),
		Memory:          ListEnv("BENCHMARK_MEMORY", DefaultMemoryLimits),
		Sweeps:          ListEnv("BENCHMARK_SWEEPS", []string{SweepThreads, SweepMemory}),
		Joins:           IntListEnv("BENCHMARK_JOINS", nil),
		ClearCaches:     BoolEnv("BENCHMARK_CLEAR_CACHES", false),
		ContinueOnError: BoolEnv("BENCHMARK_CONTINUE_ON_ERROR", false),
	}
}

// Resolve fills paths that depend on the scale factor and validates the rest.
func (c *Config) Resolve() error {
	if c.ScaleFactor <= 0 {
		return fmt.Errorf("scale factor must be positive, got %v", c.ScaleFactor)
	}
	if c.Warmup < 0 {
		return fmt.Errorf("warmup must not be negative, got %v", c.Warmup)
	}
	if c.Attempts <= 0 {
		return fmt.Errorf("attempts must be positive, got %v", c.Attempts)
	}
	sf := strconv.FormatFloat(c.ScaleFactor, 'f', -1, 64)
	if c.Database == "" {
		c.Database = path.Join("db_files", fmt.Sprintf("tpch_sf%v.duckdb", sf))
	}
	if c.Results == "" {
		c.Results = path.Join("results", fmt.Sprintf("results_sf%v.csv", sf))
	}
	if len(c.Threads) == 0 {
		c.Threads = DefaultThreads(LogicalCPUs())
	}
	return nil
}

func StringEnv(key string, def string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return value
}

func IntEnv(key string, def int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func FloatEnv(key string, def float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func BoolEnv(key string, def bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func ListEnv(key string, def []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return def
	}
	return items
}

func IntListEnv(key string, def []int) []int {
	items := ListEnv(key, nil)
	if items == nil {
		return def
	}
	parsed := make([]int, 0, len(items))
	for _, item := range items {
		value, err := strconv.Atoi(item)
		if err != nil {
			return def
		}
		parsed = append(parsed, value)
	}
	return parsed
}
