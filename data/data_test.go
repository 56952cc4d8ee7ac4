package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitdash/models"
)

type fakeAPI struct {
	id       string
	profiles int
	sleeps   map[string]int
	hearts   int
	err      error
}

func newFakeAPI(id string) *fakeAPI {
	return &fakeAPI{id: id, sleeps: map[string]int{}}
}

func (f *fakeAPI) ID() string { return f.id }

func (f *fakeAPI) GetUserProfile(context.Context) (models.UserProfile, error) {
	f.profiles++
	if f.err != nil {
		return models.UserProfile{}, f.err
	}
	return models.UserProfile{FullName: "Jane Doe"}, nil
}

func (f *fakeAPI) GetSleep(_ context.Context, date time.Time) (models.SleepResponse, error) {
	f.sleeps[date.Format(dateLayout)]++
	if f.err != nil {
		return models.SleepResponse{}, f.err
	}
	return models.SleepResponse{Sleep: []models.SleepLog{}}, nil
}

func (f *fakeAPI) GetHeartSeries(context.Context, time.Time) (models.HeartResponse, error) {
	f.hearts++
	return models.HeartResponse{}, f.err
}

var (
	day1 = time.Date(2021, 5, 11, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2021, 5, 12, 0, 0, 0, 0, time.UTC)
)

func TestFetcherMemoizesPerClientAndDate(t *testing.T) {
	f := NewFetcher(NewCache(time.Hour))
	api := newFakeAPI("client-a")
	ctx := context.Background()

	for range 3 {
		_, err := f.GetSleepRecord(ctx, api, day1)
		require.NoError(t, err)
	}
	_, err := f.GetSleepRecord(ctx, api, day2)
	require.NoError(t, err)

	assert.Equal(t, 1, api.sleeps["2021-05-11"])
	assert.Equal(t, 1, api.sleeps["2021-05-12"])

	other := newFakeAPI("client-b")
	_, err = f.GetSleepRecord(ctx, other, day1)
	require.NoError(t, err)
	assert.Equal(t, 1, other.sleeps["2021-05-11"])
}

func TestFetcherEmptySleepIsValid(t *testing.T) {
	f := NewFetcher(NewCache(time.Hour))

	resp, err := f.GetSleepRecord(context.Background(), newFakeAPI("a"), day1)
	require.NoError(t, err)
	assert.Empty(t, resp.Sleep)
}

func TestFetcherProfileAndHeart(t *testing.T) {
	f := NewFetcher(NewCache(time.Hour))
	api := newFakeAPI("a")
	ctx := context.Background()

	for range 2 {
		profile, err := f.GetUserProfile(ctx, api)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", profile.FullName)

		_, err = f.GetHeartRateSeries(ctx, api, day1)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, api.profiles)
	assert.Equal(t, 1, api.hearts)
}

func TestFetcherDoesNotCacheErrors(t *testing.T) {
	f := NewFetcher(NewCache(time.Hour))
	api := newFakeAPI("a")
	api.err = errors.New("boom")
	ctx := context.Background()

	_, err := f.GetUserProfile(ctx, api)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.err)

	api.err = nil
	profile, err := f.GetUserProfile(ctx, api)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", profile.FullName)
	assert.Equal(t, 2, api.profiles)
}

func TestFetcherForget(t *testing.T) {
	f := NewFetcher(NewCache(time.Hour))
	a := newFakeAPI("a")
	b := newFakeAPI("b")
	ctx := context.Background()

	_, _ = f.GetSleepRecord(ctx, a, day1)
	_, _ = f.GetSleepRecord(ctx, b, day1)

	f.Forget("a")
	_, _ = f.GetSleepRecord(ctx, a, day1)
	_, _ = f.GetSleepRecord(ctx, b, day1)

	assert.Equal(t, 2, a.sleeps["2021-05-11"])
	assert.Equal(t, 1, b.sleeps["2021-05-11"])
}

func TestFetcherExpiry(t *testing.T) {
	cache := NewCache(time.Hour)
	now := day1
	cache.now = func() time.Time { return now }
	f := NewFetcher(cache)
	api := newFakeAPI("a")
	ctx := context.Background()

	_, _ = f.GetSleepRecord(ctx, api, day1)
	now = now.Add(59 * time.Minute)
	_, _ = f.GetSleepRecord(ctx, api, day1)
	assert.Equal(t, 1, api.sleeps["2021-05-11"])

	now = now.Add(time.Minute)
	_, _ = f.GetSleepRecord(ctx, api, day1)
	assert.Equal(t, 2, api.sleeps["2021-05-11"])
}
