package server

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/fitdash/models"
	"github.com/fitdash/templates"
)

const (
	chartTheme = "macarons"
	// Timestamps go to the browser without a zone so echarts does not shift them.
	chartTimeLayout = "2006-01-02 15:04:05"
)

// stageNamesJS lists stage labels indexed by stage code.
func stageNamesJS() string {
	names := make([]string, 0, len(models.SummaryStages))
	for code := 0; ; code++ {
		stage, ok := models.StageForCode(code)
		if !ok {
			break
		}
		names = append(names, "'"+stage.Label()+"'")
	}
	return "[" + strings.Join(names, ",") + "]"
}

func initOpts(id, height string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		Theme:   chartTheme,
		ChartID: id,
		Width:   "100%",
		Height:  height,
	})
}

// stageSummaryChart draws one horizontal bar per stage with the share of the
// night, labelled with the time spent, and a red tick at the 30 day average.
func stageSummaryChart(rows []models.StageSummaryRow) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts("stage_summary", "280px"),
		charts.WithTitleOpts(opts.Title{
			Title:    "Sleep Stages",
			Subtitle: "Share of time in bed. Red marks the 30 day average",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "value",
			Min:  0,
			Max:  100,
			AxisLabel: &opts.AxisLabel{
				Formatter: "{value}%",
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:    "category",
			Inverse: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "item",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)

	labels := make([]string, len(rows))
	bars := make([]opts.BarData, len(rows))
	var averages []opts.ScatterData
	for i, row := range rows {
		labels[i] = row.Stage.Label()
		bars[i] = opts.BarData{
			Name:  row.Stage.Label(),
			Value: row.Percentage,
			Label: &opts.Label{
				Show:      opts.Bool(true),
				Position:  "right",
				Formatter: types.FuncStr(row.Formatted),
			},
		}
		if row.HasThirtyDayAverage {
			averages = append(averages, opts.ScatterData{
				Name:  row.Stage.Label(),
				Value: []interface{}{row.ThirtyDayAveragePercentage, row.Stage.Label()},
			})
		}
	}

	bar.SetXAxis(labels).
		AddSeries("Time in stage", bars).
		XYReversal()

	if len(averages) > 0 {
		avg := charts.NewScatter()
		avg.AddSeries("30 day average", averages,
			charts.WithScatterChartOpts(opts.ScatterChart{
				Symbol:     "rect",
				SymbolSize: []int{3, 36},
			}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "red"}),
		)
		bar.Overlap(avg)
	}
	return bar
}

// stageTimeseriesChart draws the resampled stages as a stepped line. The
// tooltip follows the cursor with a vertical line and shows time and stage.
func stageTimeseriesChart(ts models.ResampledStageTimeseries) *charts.Line {
	names := stageNamesJS()

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts("stage_timeseries", "300px"),
		charts.WithTitleOpts(opts.Title{Title: "Sleep Stages Over Time"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "time",
			Min:  ts.Start().Format(chartTimeLayout),
			Max:  ts.End().Format(chartTimeLayout),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:        "value",
			Min:         0,
			Max:         3,
			MinInterval: 1,
			AxisLabel: &opts.AxisLabel{
				Formatter: opts.FuncOpts(fmt.Sprintf(`function (value) { return %s[value] || ''; }`, names)),
			},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
			AxisPointer: &opts.AxisPointer{
				Type: "line",
			},
			Formatter: opts.FuncOpts(fmt.Sprintf(
				`function (params) { var p = params[0]; return p.value[0].slice(11, 16) + '<br/>' + %s[p.value[1]]; }`, names)),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)

	points := make([]opts.LineData, len(ts.Points))
	for i, p := range ts.Points {
		points[i] = opts.LineData{Value: []interface{}{p.Time.Format(chartTimeLayout), p.Code}}
	}
	line.AddSeries("Stage", points,
		charts.WithLineChartOpts(opts.LineChart{
			Step:       "end",
			ShowSymbol: opts.Bool(false),
		}),
	)
	return line
}

// heartRateChart draws the day's intraday heart rate with the resting rate
// and, when known, the sleep window marked.
func heartRateChart(series models.HeartRateSeries, sleep *models.SleepRecord) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts("heart_rate", "350px"),
		charts.WithTitleOpts(opts.Title{Title: "Heart Rate"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time"}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Name:  "bpm",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
			AxisPointer: &opts.AxisPointer{
				Type: "line",
			},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)

	points := make([]opts.LineData, len(series.Samples))
	for i, s := range series.Samples {
		points[i] = opts.LineData{Value: []interface{}{s.Time.Format(chartTimeLayout), s.BPM}}
	}

	seriesOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	}
	if series.HasRestingRate {
		seriesOpts = append(seriesOpts, charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{
			Name:  "Resting",
			YAxis: series.RestingHeartRate,
		}))
	}
	if sleep != nil {
		bed, wake := sleep.Window()
		seriesOpts = append(seriesOpts, charts.WithMarkLineNameXAxisItemOpts(
			opts.MarkLineNameXAxisItem{Name: "Bed time", XAxis: bed.Format(chartTimeLayout)},
			opts.MarkLineNameXAxisItem{Name: "Wake time", XAxis: wake.Format(chartTimeLayout)},
		))
	}
	line.AddSeries("Heart rate", points, seriesOpts...)
	return line
}

type snippetRenderer interface {
	RenderSnippet() render.ChartSnippet
	GetAssets() opts.Assets
}

// renderChart renders a chart into an element and script pair and collects
// the scripts the page has to load for it.
func renderChart(c snippetRenderer, collect *assetSet) templates.Chart {
	snippet := c.RenderSnippet()
	collect.add(c.GetAssets().JSAssets.Values...)
	return templates.Chart{
		Element: template.HTML(snippet.Element),
		Script:  template.HTML(snippet.Script),
	}
}

// assetSet keeps script URLs in first-seen order.
type assetSet struct {
	seen map[string]bool
	list []string
}

func (s *assetSet) add(urls ...string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	for _, u := range urls {
		if !s.seen[u] {
			s.seen[u] = true
			s.list = append(s.list, u)
		}
	}
}

func (s *assetSet) values() []string {
	return s.list
}
