package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fitdash/data"
	"github.com/fitdash/fitbit"
	"github.com/fitdash/metrics"
	"github.com/fitdash/models"
	"github.com/fitdash/session"
)

// Fetcher is the memoizing data source BuildView reads through.
type Fetcher interface {
	GetUserProfile(ctx context.Context, api data.API) (models.UserProfile, error)
	GetSleepRecord(ctx context.Context, api data.API, date time.Time) (models.SleepResponse, error)
	GetHeartRateSeries(ctx context.Context, api data.API, date time.Time) (models.HeartResponse, error)
}

// Status says whether a section has data to show.
type Status struct {
	NoData bool
	Err    error
}

func (s Status) OK() bool {
	return !s.NoData && s.Err == nil
}

// Notice is the message shown in place of a section without data.
func (s Status) Notice(kind string) string {
	switch {
	case s.Err != nil:
		return errorMessage(s.Err)
	case s.NoData:
		return fmt.Sprintf("No %s data has been recorded for this day.", kind)
	}
	return ""
}

type UserSection struct {
	Status
	Summary models.UserSummary
}

type SleepSection struct {
	Status
	Record     *models.SleepRecord
	Stages     []models.StageSummaryRow
	BedWake    models.BedWakeSummary
	Timeseries models.ResampledStageTimeseries
	// Mean heart rate between going to bed and waking up.
	SleepingBPM    float64
	HasSleepingBPM bool
}

type HeartSection struct {
	Status
	Series models.HeartRateSeries
}

// View is everything the dashboard page shows for one session and date.
type View struct {
	Date  time.Time
	User  UserSection
	Sleep SleepSection
	Heart HeartSection
}

// BuildView fetches and transforms the data for the session's date. Each
// section fails on its own; a failing section never hides the others.
func BuildView(ctx context.Context, state *session.State, fetcher Fetcher) View {
	date := state.Date()
	view := View{Date: date}

	api := state.Client()
	if api == nil {
		err := errors.New("not authenticated")
		view.User.Err, view.Sleep.Err, view.Heart.Err = err, err, err
		return view
	}

	view.User = buildUserSection(ctx, api, fetcher)
	view.Sleep = buildSleepSection(ctx, api, fetcher, date)
	view.Heart = buildHeartSection(ctx, api, fetcher, date)

	if view.Sleep.OK() && view.Heart.OK() {
		bed, wake := view.Sleep.Record.Window()
		view.Sleep.SleepingBPM, view.Sleep.HasSleepingBPM = models.MeanBPM(view.Heart.Series.Between(bed, wake))
	}
	return view
}

func buildUserSection(ctx context.Context, api data.API, fetcher Fetcher) UserSection {
	profile, err := fetcher.GetUserProfile(ctx, api)
	if err != nil {
		return UserSection{Status: failed("user", err)}
	}
	return UserSection{Summary: models.SummarizeProfile(profile)}
}

func buildSleepSection(ctx context.Context, api data.API, fetcher Fetcher, date time.Time) SleepSection {
	resp, err := fetcher.GetSleepRecord(ctx, api, date)
	if err != nil {
		return SleepSection{Status: failed("sleep", err)}
	}
	rec, err := models.NewSleepRecord(resp)
	if err != nil {
		return SleepSection{Status: failed("sleep", err)}
	}
	stages, err := models.ComputeStageSummary(rec)
	if err != nil {
		return SleepSection{Status: failed("sleep", err)}
	}
	ts, err := models.ResampleStageTimeseries(rec)
	if err != nil {
		return SleepSection{Status: failed("sleep", err)}
	}
	return SleepSection{
		Record:     rec,
		Stages:     stages,
		BedWake:    models.ComputeBedWakeSummary(rec),
		Timeseries: ts,
	}
}

func buildHeartSection(ctx context.Context, api data.API, fetcher Fetcher, date time.Time) HeartSection {
	resp, err := fetcher.GetHeartRateSeries(ctx, api, date)
	if err != nil {
		return HeartSection{Status: failed("heart", err)}
	}
	series, err := models.FlattenHeartSeries(resp, date)
	if err != nil {
		return HeartSection{Status: failed("heart", err)}
	}
	return HeartSection{Series: series}
}

func failed(section string, err error) Status {
	if errors.Is(err, models.ErrNoData) {
		log.Debug().Str("section", section).Err(err).Msg("no data recorded")
		return Status{NoData: true}
	}
	log.Error().Str("section", section).Err(err).Msg("failed to build section")
	metrics.RecordSectionError(section)
	return Status{Err: err}
}

func errorMessage(err error) string {
	var rateErr *fitbit.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Sprintf("The Fitbit API rate limit was reached. Try again in %d minutes.", (rateErr.RetryAfter+59)/60)
	}
	msg := err.Error()
	if msg == "" {
		return "Something went wrong."
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// SummaryMarkdown is the user information block.
func (u UserSection) SummaryMarkdown() string {
	return u.Summary.Markdown()
}

// SummaryMarkdown is the bed time, wake time and time asleep block.
func (s SleepSection) SummaryMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Bed time:** %s\n\n", s.BedWake.BedTime.Format("15:04"))
	fmt.Fprintf(&b, "**Wake time:** %s\n\n", s.BedWake.WakeTime.Format("15:04"))
	fmt.Fprintf(&b, "**Time asleep:** %s\n", s.BedWake.Formatted)
	if s.HasSleepingBPM {
		fmt.Fprintf(&b, "\n**Average heart rate asleep:** %.0f bpm\n", s.SleepingBPM)
	}
	return b.String()
}

// SummaryMarkdown is the resting, minimum and maximum heart rate block.
func (h HeartSection) SummaryMarkdown() string {
	var b strings.Builder
	if h.Series.HasRestingRate {
		fmt.Fprintf(&b, "**Resting heart rate:** %d bpm\n\n", h.Series.RestingHeartRate)
	}
	fmt.Fprintf(&b, "**Minimum:** %d bpm\n\n", h.Series.Min)
	fmt.Fprintf(&b, "**Maximum:** %d bpm\n\n", h.Series.Max)
	fmt.Fprintf(&b, "**Average:** %.0f bpm\n", h.Series.Mean)
	return b.String()
}
