package models

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/montanaflynn/stats"
)

type HeartSample struct {
	Time time.Time
	BPM  int
}

// HeartRateSeries is one day of intraday heart rate samples in provider order.
type HeartRateSeries struct {
	Date             time.Time
	Samples          []HeartSample
	RestingHeartRate int
	HasRestingRate   bool
	Min              int
	Max              int
	Mean             float64
}

// FlattenHeartSeries converts the intraday dataset of a heart response into a
// series for date, with daily minimum, maximum and mean taken from the samples.
func FlattenHeartSeries(resp HeartResponse, date time.Time) (HeartRateSeries, error) {
	dataset := resp.Intraday.Dataset
	if len(dataset) == 0 {
		return HeartRateSeries{}, ErrNoData
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	series := HeartRateSeries{
		Date:    day,
		Samples: make([]HeartSample, 0, len(dataset)),
	}
	values := make(stats.Float64Data, 0, len(dataset))
	for _, entry := range dataset {
		clock, err := time.Parse(clockLayout, entry.Time)
		if err != nil {
			return HeartRateSeries{}, fmt.Errorf("%w: bad sample time %q", ErrNoData, entry.Time)
		}
		offset := clock.Sub(time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC))
		series.Samples = append(series.Samples, HeartSample{
			Time: day.Add(offset),
			BPM:  entry.Value,
		})
		values = append(values, float64(entry.Value))
	}

	if resting, ok := restingHeartRate(resp.ActivitiesHeart); ok {
		series.RestingHeartRate = resting
		series.HasRestingRate = true
	}

	minimum, err := stats.Min(values)
	if err != nil {
		return HeartRateSeries{}, fmt.Errorf("failed to compute minimum heart rate: %w", err)
	}
	maximum, err := stats.Max(values)
	if err != nil {
		return HeartRateSeries{}, fmt.Errorf("failed to compute maximum heart rate: %w", err)
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return HeartRateSeries{}, fmt.Errorf("failed to compute mean heart rate: %w", err)
	}
	series.Min = int(minimum)
	series.Max = int(maximum)
	series.Mean = mean

	return series, nil
}

func restingHeartRate(activities []HeartActivity) (int, bool) {
	if len(activities) == 0 {
		return 0, false
	}
	raw := bytes.TrimSpace(activities[0].Value)
	if len(raw) == 0 || raw[0] != '{' {
		return 0, false
	}
	var value HeartActivityValue
	if err := json.Unmarshal(raw, &value); err != nil || value.RestingHeartRate == nil {
		return 0, false
	}
	return *value.RestingHeartRate, true
}

// Between returns the samples with start <= t <= end.
func (s HeartRateSeries) Between(start, end time.Time) []HeartSample {
	var window []HeartSample
	for _, sample := range s.Samples {
		if sample.Time.Before(start) || sample.Time.After(end) {
			continue
		}
		window = append(window, sample)
	}
	return window
}

// MeanBPM averages a slice of samples. It returns false for an empty slice.
func MeanBPM(samples []HeartSample) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	values := make(stats.Float64Data, len(samples))
	for i, sample := range samples {
		values[i] = float64(sample.BPM)
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return 0, false
	}
	return mean, true
}
