package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

const Version = "v1"

const (
	SweepThreads = "threads"
	SweepMemory  = "memory"
	SweepGrid    = "grid"
)

type System struct {
	id              string
	dataset         Dataset
	runner          Runner
	benchmark       Benchmark
	storage         *Storage
	path            string
	results         string
	sweeps          []Settings
	joins           []int
	scaleFactor     float64
	continueOnError bool
}

type SysInfo struct {
	Arch     string
	Hostname string
	Platform string
	CPUCount int
	CPUFreq  float64
	RAM      float64
}

func LogicalCPUs() int {
	count, err := cpu.Counts(true)
	if err != nil || count <= 0 {
		return runtime.NumCPU()
	}
	return count
}

func HostStat() SysInfo {
	info := SysInfo{Arch: runtime.GOARCH, CPUCount: LogicalCPUs()}
	if hostStat, err := host.Info(); err == nil {
		info.Hostname = hostStat.Hostname
		info.Platform = hostStat.Platform
	}
	if cpuStat, err := cpu.Info(); err == nil && len(cpuStat) > 0 {
		totalFreq := 0.0
		for _, cpu := range cpuStat {
			totalFreq += cpu.Mhz
		}
		info.CPUFreq = totalFreq / float64(len(cpuStat))
	}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		info.RAM = float64(vmStat.Total) / 1024 / 1024 / 1024
	}
	return info
}

// DefaultThreads returns powers of two below cpus followed by cpus itself.
func DefaultThreads(cpus int) []int {
	if cpus <= 1 {
		return []int{1}
	}
	threads := make([]int, 0)
	for t := 1; t < cpus; t *= 2 {
		threads = append(threads, t)
	}
	return append(threads, cpus)
}

// BuildSweeps expands sweep modes into the list of settings to measure, in order.
func BuildSweeps(modes []string, threads []int, memory []string) ([]Settings, error) {
	sweeps := make([]Settings, 0)
	for _, mode := range modes {
		switch mode {
		case SweepThreads:
			for _, t := range threads {
				if t <= 0 {
					return nil, fmt.Errorf("thread count must be positive, got %v", t)
				}
				sweeps = append(sweeps, Settings{Threads: t})
			}
		case SweepMemory:
			for _, m := range memory {
				sweeps = append(sweeps, Settings{Memory: m})
			}
		case SweepGrid:
			for _, t := range threads {
				if t <= 0 {
					return nil, fmt.Errorf("thread count must be positive, got %v", t)
				}
				for _, m := range memory {
					sweeps = append(sweeps, Settings{Threads: t, Memory: m})
				}
			}
		default:
			return nil, fmt.Errorf("unknown sweep %q, expected one of %v, %v, %v", mode, SweepThreads, SweepMemory, SweepGrid)
		}
	}
	if len(sweeps) == 0 {
		return nil, fmt.Errorf("no settings to run for sweeps %v", modes)
	}
	return sweeps, nil
}

func NewSystem(cfg Config, storage *Storage) (*System, error) {
	sweeps, err := BuildSweeps(cfg.Sweeps, cfg.Threads, cfg.Memory)
	if err != nil {
		return nil, err
	}
	return &System{
		id:      uuid.NewString(),
		dataset: &DatasetTpch{ScaleFactor: cfg.ScaleFactor},
		runner:  &RunnerDuckDB{},
		benchmark: Benchmark{
			Warmup:      cfg.Warmup,
			Attempts:    cfg.Attempts,
			ClearCaches: cfg.ClearCaches,
		},
		storage:         storage,
		path:            cfg.Database,
		results:         cfg.Results,
		sweeps:          sweeps,
		joins:           cfg.Joins,
		scaleFactor:     cfg.ScaleFactor,
		continueOnError: cfg.ContinueOnError,
	}, nil
}

func (s *System) Run(ctx context.Context) error {
	Logger.Infof("start benchmark %v", s.id)

	info := HostStat()
	Logger.Infof("host stat: %+v", info)

	queries, err := s.dataset.Load(ctx, s.path)
	if err != nil {
		return fmt.Errorf("failed to initialize dataset %v: %w", s.dataset.Name(), err)
	}
	queries = FilterJoins(queries, s.joins)
	if len(queries) == 0 {
		return fmt.Errorf("no queries match joins %v", s.joins)
	}

	if s.storage != nil {
		err = s.storage.InitResultsDb(ctx, s.id, map[string]any{
			"version":      Version,
			"runner":       s.runner.Name(),
			"dataset":      s.dataset.Name(),
			"scale_factor": s.scaleFactor,
			"warmup":       s.benchmark.Warmup,
			"attempts":     s.benchmark.Attempts,
			"arch":         info.Arch,
			"hostname":     info.Hostname,
			"platform":     info.Platform,
			"ram":          info.RAM,
			"cpu":          info.CPUCount,
			"freq":         info.CPUFreq,
		})
		if err != nil {
			return fmt.Errorf("unable to initialize results storage: %w", err)
		}
	}

	Logger.Infof("running %v queries under %v settings, %v executions each", len(queries), len(s.sweeps), s.benchmark.Total())
	failed := 0
	for _, settings := range s.sweeps {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.RunSettings(ctx, settings, queries)
		if err == nil {
			continue
		}
		if !s.continueOnError || ctx.Err() != nil {
			return err
		}
		failed++
		Logger.Errorf("skip settings %v: %v", settings, err)
	}
	if failed > 0 {
		Logger.Warnf("finished benchmark %v with %v failed settings", s.id, failed)
	} else {
		Logger.Infof("finished benchmark %v, results appended to %v", s.id, s.results)
	}
	return nil
}

// RunSettings measures every query on one engine instance opened with settings.
func (s *System) RunSettings(ctx context.Context, settings Settings, queries []Query) error {
	instance, err := s.runner.Open(s.path, settings)
	if err != nil {
		return fmt.Errorf("failed to initialize runner %v with %v: %w", s.runner.Name(), settings, err)
	}
	defer func() {
		if err := instance.Close(); err != nil {
			Logger.Warnf("failed to close runner %v: %v", instance.Name(), err)
		}
	}()

	for _, query := range queries {
		result, err := s.ExecuteBenchmark(ctx, instance, settings, query)
		if err != nil {
			if !s.continueOnError || ctx.Err() != nil {
				return err
			}
			Logger.Errorf("skip query %v with %v: %v", query.Name, settings, err)
			continue
		}
		if err := AppendResult(s.results, result); err != nil {
			return fmt.Errorf("failed to append results to %v: %w", s.results, err)
		}
		if s.storage != nil {
			if err := s.storage.UpdateBenchmarkDb(ctx, s.id, result); err != nil {
				return fmt.Errorf("failed to update benchmark results: %w", err)
			}
		}
		Logger.Infof(
			"%v joins=%v mean=%.4fs std_dev=%.4fs mad=%.4fs",
			settings, result.Joins, result.Summary.Mean, result.Summary.StdDev, result.Summary.MAD,
		)
	}
	return nil
}

func (s *System) ExecuteBenchmark(ctx context.Context, instance Instance, settings Settings, query Query) (Result, error) {
	Logger.Infof("running query %v/%v with runner %v (%v)", s.dataset.Name(), query.Name, instance.Name(), settings)
	durations, err := s.benchmark.Measure(ctx, instance, query)
	if err != nil {
		return Result{}, fmt.Errorf("failed to run benchmark in runner %v for query %v: %w", instance.Name(), query.Name, err)
	}
	samples := Seconds(durations)
	summary, err := Summarize(samples)
	if err != nil {
		return Result{}, fmt.Errorf("failed to summarize query %v: %w", query.Name, err)
	}
	return Result{
		Settings: settings,
		Joins:    query.Joins,
		Summary:  summary,
		Samples:  samples,
	}, nil
}
