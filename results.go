package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Result is one experiment cell: settings, join count, summary and retained samples.
type Result struct {
	Settings Settings
	Joins    int
	Summary  Summary
	Samples  []float64
}

func ResultHeader(samples int) []string {
	header := []string{"threads", "memory", "joins", "mean", "std_dev", "mad"}
	for i := 1; i <= samples; i++ {
		header = append(header, fmt.Sprintf("r%v", i))
	}
	return header
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func (r Result) Record() []string {
	record := []string{
		r.Settings.ThreadsLabel(),
		r.Settings.MemoryLabel(),
		strconv.Itoa(r.Joins),
		formatFloat(r.Summary.Mean),
		formatFloat(r.Summary.StdDev),
		formatFloat(r.Summary.MAD),
	}
	for _, sample := range r.Samples {
		record = append(record, formatFloat(sample))
	}
	return record
}

func ParseResult(record []string) (Result, error) {
	if len(record) < 6 {
		return Result{}, fmt.Errorf("expected at least 6 columns, got %v", len(record))
	}
	settings, err := ParseSettings(record[0], record[1])
	if err != nil {
		return Result{}, err
	}
	joins, err := strconv.Atoi(record[2])
	if err != nil {
		return Result{}, fmt.Errorf("invalid joins value %q: %w", record[2], err)
	}
	numbers := make([]float64, 0, len(record)-3)
	for _, cell := range record[3:] {
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return Result{}, fmt.Errorf("invalid number %q: %w", cell, err)
		}
		numbers = append(numbers, value)
	}
	return Result{
		Settings: settings,
		Joins:    joins,
		Summary:  Summary{Mean: numbers[0], StdDev: numbers[1], MAD: numbers[2]},
		Samples:  numbers[3:],
	}, nil
}

// AppendResult appends one row to the CSV at path, writing the header first when the file is empty.
func AppendResult(path string, result Result) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %v: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(ResultHeader(len(result.Samples))); err != nil {
			return err
		}
	}
	if err := writer.Write(result.Record()); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Sync()
}

func ReadResults(path string) ([]Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	results := make([]Result, 0)
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) > 0 && record[0] == "threads" {
			continue
		}
		result, err := ParseResult(record)
		if err != nil {
			return nil, fmt.Errorf("%v:%v: %w", path, line, err)
		}
		results = append(results, result)
	}
	return results, nil
}
