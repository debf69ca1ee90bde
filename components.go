package main

import (
	"context"
	"fmt"
	"strconv"
)

// NotApplicable marks a setting left at the engine default.
const NotApplicable = "N/A"

type Query struct {
	Name  string
	Joins int
	Query string
}

type Dataset interface {
	Name() string
	Load(ctx context.Context, path string) ([]Query, error)
}

type Runner interface {
	Name() string
	Open(path string, settings Settings) (Instance, error)
}

type Instance interface {
	Name() string
	Run(ctx context.Context, query Query) error
	Close() error
}

// Settings are the engine knobs of one experiment cell. Zero values keep the engine default.
type Settings struct {
	Threads int
	Memory  string
}

func (s Settings) ThreadsLabel() string {
	if s.Threads <= 0 {
		return NotApplicable
	}
	return strconv.Itoa(s.Threads)
}

func (s Settings) MemoryLabel() string {
	if s.Memory == "" {
		return NotApplicable
	}
	return s.Memory
}

func (s Settings) String() string {
	return fmt.Sprintf("threads=%v memory=%v", s.ThreadsLabel(), s.MemoryLabel())
}

func ParseSettings(threads, memory string) (Settings, error) {
	var settings Settings
	if threads != NotApplicable && threads != "" {
		parsed, err := strconv.Atoi(threads)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid threads value %q: %w", threads, err)
		}
		settings.Threads = parsed
	}
	if memory != NotApplicable {
		settings.Memory = memory
	}
	return settings, nil
}
