package models

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ResampleInterval is the cadence of a resampled stage timeseries.
const ResampleInterval = 30 * time.Second

type Stage string

const (
	StageWake  Stage = "wake"
	StageLight Stage = "light"
	StageDeep  Stage = "deep"
	StageREM   Stage = "rem"
)

// SummaryStages is the order stages are listed in the stage summary.
var SummaryStages = []Stage{StageWake, StageREM, StageLight, StageDeep}

// Code returns the ordinal a stage is plotted at, or -1 for an unknown stage.
func (s Stage) Code() int {
	switch s {
	case StageDeep:
		return 0
	case StageLight:
		return 1
	case StageREM:
		return 2
	case StageWake:
		return 3
	}
	return -1
}

// StageForCode is the inverse of Stage.Code.
func StageForCode(code int) (Stage, bool) {
	for _, s := range SummaryStages {
		if s.Code() == code {
			return s, true
		}
	}
	return "", false
}

// Label is the display name of the stage.
func (s Stage) Label() string {
	if s == StageREM {
		return cases.Upper(language.English).String(string(s))
	}
	return cases.Title(language.English).String(string(s))
}

func parseStage(level string) (Stage, bool) {
	s := Stage(level)
	return s, s.Code() >= 0
}

type StageSegment struct {
	Start    time.Time
	Stage    Stage
	Duration time.Duration
}

func (s StageSegment) End() time.Time {
	return s.Start.Add(s.Duration)
}

type SleepSummary struct {
	StageMinutes        map[Stage]int
	TotalTimeInBed      int
	ThirtyDayAvgMinutes map[Stage]int
}

// SleepRecord is one night of staged sleep.
type SleepRecord struct {
	DateOfSleep string
	Start       time.Time
	End         time.Time
	Segments    []StageSegment
	Summary     SleepSummary
}

// Window returns the span between going to bed and waking up.
func (r *SleepRecord) Window() (time.Time, time.Time) {
	return r.Start, r.End
}

// NewSleepRecord extracts the night's main sleep from a sleep response.
// An empty sleep list or a response missing stage data yields ErrNoData.
func NewSleepRecord(resp SleepResponse) (*SleepRecord, error) {
	if len(resp.Sleep) == 0 {
		return nil, ErrNoData
	}
	if resp.Summary == nil || resp.Summary.TotalTimeInBed == nil {
		return nil, fmt.Errorf("%w: summary.totalTimeInBed missing", ErrNoData)
	}

	night := resp.Sleep[0]
	for _, l := range resp.Sleep {
		if l.IsMainSleep {
			night = l
			break
		}
	}

	start, err := parseFitbitTime(night.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	end, err := parseFitbitTime(night.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}

	summary := SleepSummary{
		StageMinutes:        make(map[Stage]int, len(SummaryStages)),
		TotalTimeInBed:      *resp.Summary.TotalTimeInBed,
		ThirtyDayAvgMinutes: make(map[Stage]int, len(SummaryStages)),
	}
	for _, stage := range SummaryStages {
		minutes, ok := resp.Summary.Stages[string(stage)]
		if !ok {
			return nil, fmt.Errorf("%w: summary.stages.%s missing", ErrNoData, stage)
		}
		if minutes < 0 {
			return nil, fmt.Errorf("%w: negative %s minutes", ErrNoData, stage)
		}
		summary.StageMinutes[stage] = minutes

		// New users have no thirty day history yet.
		if level, ok := night.Levels.Summary[string(stage)]; ok && level.ThirtyDayAvgMinutes != nil {
			summary.ThirtyDayAvgMinutes[stage] = *level.ThirtyDayAvgMinutes
		}
	}

	segments := make([]StageSegment, 0, len(night.Levels.Data))
	for _, entry := range night.Levels.Data {
		stage, ok := parseStage(entry.Level)
		if !ok {
			return nil, fmt.Errorf("%w: unknown sleep level %q", ErrNoData, entry.Level)
		}
		if entry.Seconds < 0 {
			return nil, fmt.Errorf("%w: negative duration at %s", ErrNoData, entry.DateTime)
		}
		ts, err := parseFitbitTime(entry.DateTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoData, err)
		}
		segments = append(segments, StageSegment{
			Start:    ts,
			Stage:    stage,
			Duration: time.Duration(entry.Seconds) * time.Second,
		})
	}

	return &SleepRecord{
		DateOfSleep: night.DateOfSleep,
		Start:       start,
		End:         end,
		Segments:    segments,
		Summary:     summary,
	}, nil
}

// StageSummaryRow is one bar of the stage summary chart.
type StageSummaryRow struct {
	Stage                      Stage
	Percentage                 int
	Formatted                  string
	RawMinutes                 int
	ThirtyDayAveragePercentage int
	HasThirtyDayAverage        bool
}

// ComputeStageSummary returns one row per stage in SummaryStages order.
// Percentages are rounded independently and may not add up to 100.
func ComputeStageSummary(rec *SleepRecord) ([]StageSummaryRow, error) {
	if rec == nil {
		return nil, ErrNoData
	}
	inBed := rec.Summary.TotalTimeInBed
	if inBed <= 0 {
		return nil, fmt.Errorf("%w: zero time in bed", ErrNoData)
	}

	rows := make([]StageSummaryRow, 0, len(SummaryStages))
	for _, stage := range SummaryStages {
		minutes := rec.Summary.StageMinutes[stage]
		row := StageSummaryRow{
			Stage:      stage,
			Percentage: calcPercentage(minutes, inBed),
			Formatted:  FormatTimeInStage(StageDurationLayout, minutes),
			RawMinutes: minutes,
		}
		if avg, ok := rec.Summary.ThirtyDayAvgMinutes[stage]; ok {
			row.ThirtyDayAveragePercentage = calcPercentage(avg, inBed)
			row.HasThirtyDayAverage = true
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type BedWakeSummary struct {
	BedTime    time.Time
	WakeTime   time.Time
	TimeAsleep time.Duration
	Formatted  string
}

// ComputeBedWakeSummary subtracts the minutes awake during the night from the
// time between going to bed and waking up.
func ComputeBedWakeSummary(rec *SleepRecord) BedWakeSummary {
	awake := time.Duration(rec.Summary.StageMinutes[StageWake]) * time.Minute
	asleep := rec.End.Sub(rec.Start) - awake
	if asleep < 0 {
		asleep = 0
	}
	return BedWakeSummary{
		BedTime:    rec.Start,
		WakeTime:   rec.End,
		TimeAsleep: asleep,
		Formatted:  FormatAsleep(asleep),
	}
}

type StagePoint struct {
	Time  time.Time
	Stage Stage
	Code  int
}

// ResampledStageTimeseries holds stage samples on a fixed ResampleInterval grid.
type ResampledStageTimeseries struct {
	Points []StagePoint
}

func (ts ResampledStageTimeseries) Start() time.Time {
	if len(ts.Points) == 0 {
		return time.Time{}
	}
	return ts.Points[0].Time
}

func (ts ResampledStageTimeseries) End() time.Time {
	if len(ts.Points) == 0 {
		return time.Time{}
	}
	return ts.Points[len(ts.Points)-1].Time
}

// ResampleStageTimeseries turns the irregular stage changes of a record into a
// regular grid, carrying the last seen stage forward. A wake sample is appended
// where the last segment ends so the series always finishes awake.
func ResampleStageTimeseries(rec *SleepRecord) (ResampledStageTimeseries, error) {
	if rec == nil || len(rec.Segments) == 0 {
		return ResampledStageTimeseries{}, ErrNoData
	}

	events := slices.Clone(rec.Segments)
	slices.SortStableFunc(events, func(a, b StageSegment) int {
		return a.Start.Compare(b.Start)
	})
	last := events[len(events)-1]
	closing := StageSegment{Start: last.End(), Stage: StageWake}
	events = append(events, closing)

	first := events[0].Start.Truncate(ResampleInterval)
	end := closing.Start.Truncate(ResampleInterval)
	if end.Before(closing.Start) {
		end = end.Add(ResampleInterval)
	}

	points := make([]StagePoint, 0, int(end.Sub(first)/ResampleInterval)+1)
	current := events[0].Stage
	next := 0
	for t := first; !t.After(end); t = t.Add(ResampleInterval) {
		for next < len(events) && !events[next].Start.After(t) {
			current = events[next].Stage
			next++
		}
		points = append(points, StagePoint{Time: t, Stage: current, Code: current.Code()})
	}
	return ResampledStageTimeseries{Points: points}, nil
}
