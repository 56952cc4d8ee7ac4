package server

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitdash/models"
)

func TestStageNamesJS(t *testing.T) {
	assert.Equal(t, `['Deep','Light','REM','Wake']`, stageNamesJS())
}

func TestStageTimeseriesFormattersAreValidJS(t *testing.T) {
	view := BuildView(context.Background(), newTestState(t, true), newFakeFetcher(t))
	require.True(t, view.Sleep.OK())

	chart := renderChart(stageTimeseriesChart(view.Sleep.Timeseries), &assetSet{})
	script := string(chart.Script)

	fns := 0
	for rest := script; ; {
		i := strings.Index(rest, "function (")
		if i < 0 {
			break
		}
		rest = rest[i:]
		end := strings.Index(rest, "}")
		require.Positive(t, end)
		body := rest[:end]
		assert.NotContains(t, body, `\"`, "escaped quote in %s", body)
		assert.Contains(t, body, "['Deep','Light','REM','Wake']")
		rest = rest[end:]
		fns++
	}
	assert.Equal(t, 2, fns)
}

func TestRenderCharts(t *testing.T) {
	view := BuildView(context.Background(), newTestState(t, true), newFakeFetcher(t))
	require.True(t, view.Sleep.OK())
	require.True(t, view.Heart.OK())

	assets := &assetSet{}
	summary := renderChart(stageSummaryChart(view.Sleep.Stages), assets)
	timeline := renderChart(stageTimeseriesChart(view.Sleep.Timeseries), assets)
	heart := renderChart(heartRateChart(view.Heart.Series, view.Sleep.Record), assets)

	assert.Contains(t, string(summary.Element), `id="stage_summary"`)
	assert.Contains(t, string(summary.Script), "30 day average")
	assert.Contains(t, string(summary.Script), "1hrs 24min")

	assert.Contains(t, string(timeline.Element), `id="stage_timeseries"`)
	assert.Contains(t, string(timeline.Script), "2021-05-10 23:00:00")
	assert.Contains(t, string(timeline.Script), `"step":"end"`)

	assert.Contains(t, string(heart.Element), `id="heart_rate"`)
	assert.Contains(t, string(heart.Script), "Resting")
	assert.Contains(t, string(heart.Script), "Bed time")
	assert.Contains(t, string(heart.Script), "2021-05-11 06:30:00")

	urls := assets.values()
	require.NotEmpty(t, urls)
	joined := strings.Join(urls, " ")
	assert.Contains(t, joined, "echarts.min.js")
	assert.Contains(t, joined, "macarons.js")
	seen := map[string]bool{}
	for _, u := range urls {
		assert.False(t, seen[u], "duplicate asset %s", u)
		seen[u] = true
	}
}

func TestHeartRateChartWithoutSleep(t *testing.T) {
	series := models.HeartRateSeries{
		Samples: []models.HeartSample{{Time: testDay, BPM: 61}},
		Min:     61,
		Max:     61,
		Mean:    61,
	}
	chart := renderChart(heartRateChart(series, nil), &assetSet{})

	assert.NotContains(t, string(chart.Script), "Bed time")
	assert.NotContains(t, string(chart.Script), "Resting")
}
