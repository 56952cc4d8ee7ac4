package server

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/fitdash/data"
	"github.com/fitdash/fitbit"
	"github.com/fitdash/models"
	"github.com/fitdash/session"
)

var testDay = time.Date(2021, 5, 11, 0, 0, 0, 0, time.UTC)

const sleepJSON = `{
    "sleep": [{
        "dateOfSleep": "2021-05-11",
        "startTime": "2021-05-10T23:00:00.000",
        "endTime": "2021-05-11T06:30:00.000",
        "isMainSleep": true,
        "timeInBed": 450,
        "type": "stages",
        "levels": {
            "data": [
                {"dateTime": "2021-05-10T23:00:00.000", "level": "wake", "seconds": 60},
                {"dateTime": "2021-05-10T23:01:00.000", "level": "light", "seconds": 1800},
                {"dateTime": "2021-05-10T23:31:00.000", "level": "deep", "seconds": 3600},
                {"dateTime": "2021-05-11T00:31:00.000", "level": "rem", "seconds": 1200}
            ],
            "summary": {
                "deep":  {"count": 3, "minutes": 84,  "thirtyDayAvgMinutes": 70},
                "light": {"count": 20, "minutes": 240, "thirtyDayAvgMinutes": 230},
                "rem":   {"count": 5, "minutes": 86,  "thirtyDayAvgMinutes": 90},
                "wake":  {"count": 18, "minutes": 40,  "thirtyDayAvgMinutes": 55}
            }
        }
    }],
    "summary": {
        "stages": {"deep": 84, "light": 240, "rem": 86, "wake": 40},
        "totalMinutesAsleep": 410,
        "totalSleepRecords": 1,
        "totalTimeInBed": 450
    }
}`

const heartJSON = `{
    "activities-heart": [{
        "dateTime": "2021-05-11",
        "value": {"heartRateZones": [], "restingHeartRate": 55}
    }],
    "activities-heart-intraday": {
        "dataset": [
            {"time": "00:00:00", "value": 60},
            {"time": "03:00:00", "value": 50},
            {"time": "12:00:00", "value": 90}
        ],
        "datasetInterval": 1,
        "datasetType": "minute"
    }
}`

func decode[T any](t *testing.T, raw string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

// fakeFetcher serves canned responses and records which clients were forgotten.
type fakeFetcher struct {
	mu sync.Mutex

	profile  models.UserProfile
	sleep    models.SleepResponse
	heart    models.HeartResponse
	userErr  error
	sleepErr error
	heartErr error

	dates     []time.Time
	forgotten []string
}

func newFakeFetcher(t *testing.T) *fakeFetcher {
	return &fakeFetcher{
		profile: models.UserProfile{
			FullName:    "Jane Doe",
			DateOfBirth: "1990-04-30",
			Age:         31,
			Height:      70,
			Weight:      154,
		},
		sleep: decode[models.SleepResponse](t, sleepJSON),
		heart: decode[models.HeartResponse](t, heartJSON),
	}
}

func (f *fakeFetcher) GetUserProfile(context.Context, data.API) (models.UserProfile, error) {
	return f.profile, f.userErr
}

func (f *fakeFetcher) GetSleepRecord(_ context.Context, _ data.API, date time.Time) (models.SleepResponse, error) {
	f.mu.Lock()
	f.dates = append(f.dates, date)
	f.mu.Unlock()
	return f.sleep, f.sleepErr
}

func (f *fakeFetcher) GetHeartRateSeries(context.Context, data.API, time.Time) (models.HeartResponse, error) {
	return f.heart, f.heartErr
}

func (f *fakeFetcher) Forget(clientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgotten = append(f.forgotten, clientID)
}

func (f *fakeFetcher) forgottenIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.forgotten...)
}

// stubAPI only carries an identity; the fake fetcher never calls it.
type stubAPI struct{ id string }

func (s stubAPI) ID() string { return s.id }

func (s stubAPI) GetUserProfile(context.Context) (models.UserProfile, error) {
	return models.UserProfile{}, nil
}

func (s stubAPI) GetSleep(context.Context, time.Time) (models.SleepResponse, error) {
	return models.SleepResponse{}, nil
}

func (s stubAPI) GetHeartSeries(context.Context, time.Time) (models.HeartResponse, error) {
	return models.HeartResponse{}, nil
}

func newTestState(t *testing.T, signedIn bool) *session.State {
	t.Helper()
	store := session.NewStore(session.Config{TTL: time.Hour}, nil)
	st := store.Load(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	st.SetDate(testDay)
	if signedIn {
		st.SignIn(stubAPI{id: "client-1"}, fitbit.TokenPair{AccessToken: "a", UserID: "ABC123"})
	}
	return st
}
