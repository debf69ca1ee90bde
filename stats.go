package main

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
)

// Summary holds descriptive statistics of timing samples, in seconds.
type Summary struct {
	Mean   float64
	StdDev float64
	MAD    float64
}

// Summarize computes the mean, the sample standard deviation (n-1) and the
// median absolute deviation of samples.
func Summarize(samples []float64) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, fmt.Errorf("no samples to summarize")
	}
	data := stats.Float64Data(samples)

	mean, err := stats.Mean(data)
	if err != nil {
		return Summary{}, fmt.Errorf("mean: %w", err)
	}
	stdDev := 0.0
	if len(samples) > 1 {
		stdDev, err = stats.StandardDeviationSample(data)
		if err != nil {
			return Summary{}, fmt.Errorf("std_dev: %w", err)
		}
	}
	mad, err := stats.MedianAbsoluteDeviation(data)
	if err != nil {
		return Summary{}, fmt.Errorf("mad: %w", err)
	}
	return Summary{Mean: mean, StdDev: stdDev, MAD: mad}, nil
}

func Seconds(durations []time.Duration) []float64 {
	seconds := make([]float64, len(durations))
	for i, duration := range durations {
		seconds[i] = duration.Seconds()
	}
	return seconds
}
