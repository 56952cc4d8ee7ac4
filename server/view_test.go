package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitdash/fitbit"
	"github.com/fitdash/models"
)

func TestBuildView(t *testing.T) {
	fetcher := newFakeFetcher(t)
	st := newTestState(t, true)

	view := BuildView(context.Background(), st, fetcher)

	assert.Equal(t, testDay, view.Date)
	require.True(t, view.User.OK())
	assert.Equal(t, "Jane Doe", view.User.Summary.FullName)
	assert.Equal(t, "30/04/1990", view.User.Summary.DateOfBirth)

	require.True(t, view.Sleep.OK())
	require.Len(t, view.Sleep.Stages, 4)
	assert.Equal(t, models.StageWake, view.Sleep.Stages[0].Stage)
	assert.Equal(t, "6h 50m", view.Sleep.BedWake.Formatted)
	assert.NotEmpty(t, view.Sleep.Timeseries.Points)

	require.True(t, view.Heart.OK())
	assert.Equal(t, 55, view.Heart.Series.RestingHeartRate)
	assert.Equal(t, 50, view.Heart.Series.Min)
	assert.Equal(t, 90, view.Heart.Series.Max)

	require.True(t, view.Sleep.HasSleepingBPM)
	assert.InDelta(t, 55.0, view.Sleep.SleepingBPM, 1e-9)

	require.Len(t, fetcher.dates, 1)
	assert.Equal(t, testDay, fetcher.dates[0])
}

func TestBuildViewSectionsFailIndependently(t *testing.T) {
	fetcher := newFakeFetcher(t)
	fetcher.sleep = models.SleepResponse{Sleep: []models.SleepLog{}}
	fetcher.userErr = &fitbit.APIError{StatusCode: 500, Endpoint: "profile", Body: "oops"}

	view := BuildView(context.Background(), newTestState(t, true), fetcher)

	assert.False(t, view.User.OK())
	assert.Error(t, view.User.Err)
	assert.Equal(t, "Failed to download profile: 500 oops", view.User.Notice("user"))

	assert.True(t, view.Sleep.NoData)
	assert.NoError(t, view.Sleep.Err)
	assert.Equal(t, "No sleep data has been recorded for this day.", view.Sleep.Notice("sleep"))
	assert.False(t, view.Sleep.HasSleepingBPM)

	assert.True(t, view.Heart.OK())
}

func TestBuildViewRateLimited(t *testing.T) {
	fetcher := newFakeFetcher(t)
	fetcher.heartErr = &fitbit.RateLimitError{RetryAfter: 600, Message: "Too many requests"}

	view := BuildView(context.Background(), newTestState(t, true), fetcher)

	assert.True(t, view.Sleep.OK())
	assert.False(t, view.Heart.OK())
	assert.Equal(t, "The Fitbit API rate limit was reached. Try again in 10 minutes.", view.Heart.Notice("heart rate"))
}

func TestBuildViewWrappedNoData(t *testing.T) {
	fetcher := newFakeFetcher(t)
	fetcher.heartErr = errors.Join(errors.New("empty"), models.ErrNoData)

	view := BuildView(context.Background(), newTestState(t, true), fetcher)
	assert.True(t, view.Heart.NoData)
}

func TestBuildViewSignedOut(t *testing.T) {
	view := BuildView(context.Background(), newTestState(t, false), newFakeFetcher(t))

	assert.Error(t, view.User.Err)
	assert.Error(t, view.Sleep.Err)
	assert.Error(t, view.Heart.Err)
}

func TestSummaryMarkdown(t *testing.T) {
	view := BuildView(context.Background(), newTestState(t, true), newFakeFetcher(t))

	sleep := view.Sleep.SummaryMarkdown()
	assert.Contains(t, sleep, "**Bed time:** 23:00")
	assert.Contains(t, sleep, "**Wake time:** 06:30")
	assert.Contains(t, sleep, "**Average heart rate asleep:** 55 bpm")

	heart := view.Heart.SummaryMarkdown()
	assert.Contains(t, heart, "**Resting heart rate:** 55 bpm")
	assert.Contains(t, heart, "**Minimum:** 50 bpm")
	assert.Contains(t, heart, "**Maximum:** 90 bpm")

	assert.Contains(t, view.User.SummaryMarkdown(), "**Name:** Jane Doe")
}
