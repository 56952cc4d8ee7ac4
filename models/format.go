package models

import (
	"fmt"
	"math"
	"time"
)

const (
	// StageDurationLayout renders minutes as hours and zero padded minutes.
	StageDurationLayout = "%01dhrs %02dmin"

	// fitbitTimeLayout is the zone-less local timestamp used by sleep logs.
	fitbitTimeLayout = "2006-01-02T15:04:05.000"
	fitbitDateLayout = "2006-01-02"
	clockLayout      = "15:04:05"
)

// FormatTimeInStage splits minutes into hours and minutes and applies layout,
// which must consume two integer verbs.
func FormatTimeInStage(layout string, minutes int) string {
	return fmt.Sprintf(layout, minutes/60, minutes%60)
}

// FormatAsleep renders a duration as "7h 05m".
func FormatAsleep(d time.Duration) string {
	total := int(d / time.Minute)
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}

// calcPercentage returns part as a whole-number percentage of whole, rounding
// half to even.
func calcPercentage(part, whole int) int {
	return int(math.RoundToEven(float64(part) / float64(whole) * 100))
}

// parseFitbitTime reads a zone-less sleep log timestamp as UTC wall clock time.
func parseFitbitTime(value string) (time.Time, error) {
	t, err := time.Parse(fitbitTimeLayout, value)
	if err != nil {
		// Some endpoints drop the milliseconds.
		t, err = time.Parse("2006-01-02T15:04:05", value)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}
	return t, nil
}
