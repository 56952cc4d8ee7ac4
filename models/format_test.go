package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimeInStage(t *testing.T) {
	assert.Equal(t, "2hrs 05min", FormatTimeInStage(StageDurationLayout, 125))
	assert.Equal(t, "0hrs 00min", FormatTimeInStage(StageDurationLayout, 0))
	assert.Equal(t, "10hrs 59min", FormatTimeInStage(StageDurationLayout, 659))
	assert.Equal(t, "2:5", FormatTimeInStage("%d:%d", 125))
}

func TestFormatAsleep(t *testing.T) {
	assert.Equal(t, "7h 05m", FormatAsleep(7*time.Hour+5*time.Minute+40*time.Second))
	assert.Equal(t, "0h 00m", FormatAsleep(0))
}

func TestCalcPercentageRoundsHalfToEven(t *testing.T) {
	assert.Equal(t, 12, calcPercentage(1, 8)) // 12.5
	assert.Equal(t, 38, calcPercentage(3, 8)) // 37.5
	assert.Equal(t, 33, calcPercentage(1, 3))
}

func TestParseFitbitTime(t *testing.T) {
	got, err := parseFitbitTime("2021-05-10T23:21:30.000")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2021, 5, 10, 23, 21, 30, 0, time.UTC), got)

	got, err = parseFitbitTime("2021-05-10T23:21:30")
	assert.NoError(t, err)
	assert.Equal(t, 21, got.Minute())

	_, err = parseFitbitTime("yesterday")
	assert.Error(t, err)
}
