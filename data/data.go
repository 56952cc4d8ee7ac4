package data

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fitdash/models"
)

const dateLayout = "2006-01-02"

// API is the part of the Fitbit client the dashboard reads from.
type API interface {
	// ID identifies the client instance; responses are memoized per ID.
	ID() string
	GetUserProfile(ctx context.Context) (models.UserProfile, error)
	GetSleep(ctx context.Context, date time.Time) (models.SleepResponse, error)
	GetHeartSeries(ctx context.Context, date time.Time) (models.HeartResponse, error)
}

// Fetcher memoizes API responses per (client, kind, date). Failed calls are
// not cached.
type Fetcher struct {
	cache *Cache
}

func NewFetcher(cache *Cache) *Fetcher {
	return &Fetcher{cache: cache}
}

func (f *Fetcher) GetUserProfile(ctx context.Context, api API) (models.UserProfile, error) {
	return memoize(f.cache, api, "profile", "", func() (models.UserProfile, error) {
		return api.GetUserProfile(ctx)
	})
}

// GetSleepRecord returns the raw sleep response for date. A response with an
// empty sleep list is a valid value.
func (f *Fetcher) GetSleepRecord(ctx context.Context, api API, date time.Time) (models.SleepResponse, error) {
	day := date.Format(dateLayout)
	return memoize(f.cache, api, "sleep", day, func() (models.SleepResponse, error) {
		return api.GetSleep(ctx, date)
	})
}

func (f *Fetcher) GetHeartRateSeries(ctx context.Context, api API, date time.Time) (models.HeartResponse, error) {
	day := date.Format(dateLayout)
	return memoize(f.cache, api, "heart rate", day, func() (models.HeartResponse, error) {
		return api.GetHeartSeries(ctx, date)
	})
}

// Forget drops everything memoized for a client.
func (f *Fetcher) Forget(clientID string) {
	if n := f.cache.Purge(clientID + "/"); n > 0 {
		log.Debug().Str("client", clientID).Int("entries", n).Msg("purged cached responses")
	}
}

func cacheKey(api API, kind, day string) string {
	return api.ID() + "/" + kind + "/" + day
}

func memoize[T any](cache *Cache, api API, kind, day string, fetch func() (T, error)) (T, error) {
	key := cacheKey(api, kind, day)
	if v, ok := cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err := fetch()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to download %s data: %w", kind, err)
	}
	cache.Set(key, v)
	return v, nil
}
