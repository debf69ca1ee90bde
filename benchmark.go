package main

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"
)

type Benchmark struct {
	Warmup      int
	Attempts    int
	ClearCaches bool
}

func clearCaches(ctx context.Context) error {
	switch runtime.GOOS {
	case "linux":
		if err := exec.CommandContext(ctx, "sync").Run(); err != nil {
			return err
		}
		if err := exec.CommandContext(ctx, "sh", "-c", "echo 3 | sudo tee /proc/sys/vm/drop_caches").Run(); err != nil {
			return err
		}
		return nil
	case "darwin":
		if err := exec.CommandContext(ctx, "sync").Run(); err != nil {
			return err
		}
		if err := exec.CommandContext(ctx, "purge").Run(); err != nil {
			return err
		}
		return nil
	}
	return fmt.Errorf("unable to clear caches for platform '%v'", runtime.GOOS)
}

func (b *Benchmark) clearCachesIfNeeded(ctx context.Context) {
	if !b.ClearCaches {
		return
	}
	Logger.Debugf("clear caches")
	if err := clearCaches(ctx); err != nil {
		Logger.Warnf("failed to clear fs caches: %v", err)
	}
}

// Total is the number of executions per query, warmup included.
func (b *Benchmark) Total() int {
	return b.Warmup + b.Attempts
}

// Measure runs the query Warmup+Attempts times on the same instance and returns
// the wall-clock time of the last Attempts executions.
func (b *Benchmark) Measure(ctx context.Context, instance Instance, query Query) ([]time.Duration, error) {
	if b.Attempts <= 0 {
		return nil, fmt.Errorf("attempts must be positive, got %v", b.Attempts)
	}
	for i := 0; i < b.Warmup; i++ {
		Logger.Debugf("running warmup #%v/%v query %v on %v", i+1, b.Warmup, query.Name, instance.Name())
		if err := instance.Run(ctx, query); err != nil {
			return nil, fmt.Errorf("warmup #%v failed: %w", i, err)
		}
	}

	durations := make([]time.Duration, 0, b.Attempts)
	for i := 0; i < b.Attempts; i++ {
		b.clearCachesIfNeeded(ctx)

		Logger.Debugf("running workload #%v/%v query %v on %v", i+1, b.Attempts, query.Name, instance.Name())

		start := time.Now()
		err := instance.Run(ctx, query)
		elapsed := time.Since(start)

		if err != nil {
			return nil, fmt.Errorf("run #%v failed: %w", i, err)
		}
		durations = append(durations, elapsed)
	}
	return durations, nil
}
