package fitbit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/fitdash/models"
)

var testDate = time.Date(2021, 5, 11, 0, 0, 0, 0, time.UTC)

func validTokens() TokenPair {
	return TokenPair{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(time.Hour),
		UserID:       "ABC123",
	}
}

func newAPIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestBuildClientDoesNoIO(t *testing.T) {
	var calls int32
	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	c := BuildClient(ClientConfig{BaseURL: srv.URL}, validTokens())

	assert.NotEmpty(t, c.ID())
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.NotEqual(t, c.ID(), BuildClient(ClientConfig{BaseURL: srv.URL}, validTokens()).ID())
}

func TestClientGetUserProfile(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1/user/-/profile.json", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		assert.Equal(t, "en_US", r.Header.Get("Accept-Language"))
		writeJSON(w, http.StatusOK, `{"user": {"fullName": "Jane Doe", "age": 34, "height": 65.0, "weight": 150.0}}`)
	})

	c := BuildClient(ClientConfig{BaseURL: srv.URL}, validTokens())
	profile, err := c.GetUserProfile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", profile.FullName)
	assert.Equal(t, 34, profile.Age)
	assert.InDelta(t, 65.0, profile.Height, 0.001)
}

func TestClientGetSleep(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1.2/user/-/sleep/date/2021-05-11.json", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"sleep": [], "summary": {"totalMinutesAsleep": 0, "totalSleepRecords": 0, "totalTimeInBed": 0}}`)
	})

	c := BuildClient(ClientConfig{BaseURL: srv.URL}, validTokens())
	resp, err := c.GetSleep(context.Background(), testDate)
	require.NoError(t, err)

	assert.Empty(t, resp.Sleep)
	require.NotNil(t, resp.Summary)
	require.NotNil(t, resp.Summary.TotalTimeInBed)
	assert.Equal(t, 0, *resp.Summary.TotalTimeInBed)

	_, err = models.NewSleepRecord(resp)
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestClientGetHeartSeries(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1/user/-/activities/heart/date/2021-05-11/1d/1min.json", r.URL.Path)
		writeJSON(w, http.StatusOK, `{
            "activities-heart": [{"dateTime": "2021-05-11", "value": {"restingHeartRate": 58}}],
            "activities-heart-intraday": {"dataset": [{"time": "00:00:00", "value": 61}, {"time": "00:01:00", "value": 60}]}
        }`)
	})

	c := BuildClient(ClientConfig{BaseURL: srv.URL}, validTokens())
	resp, err := c.GetHeartSeries(context.Background(), testDate)
	require.NoError(t, err)

	series, err := models.FlattenHeartSeries(resp, testDate)
	require.NoError(t, err)
	assert.Equal(t, 58, series.RestingHeartRate)
	assert.Len(t, series.Samples, 2)
}

func TestClientRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter string
		want       int
	}{
		{name: "header present", retryAfter: "120", want: 120},
		{name: "header missing", retryAfter: "", want: defaultRetryAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				writeJSON(w, http.StatusTooManyRequests, `{"errors":[{"errorType":"request","message":"Too Many Requests"}]}`)
			})

			c := BuildClient(ClientConfig{BaseURL: srv.URL}, validTokens())
			_, err := c.GetSleep(context.Background(), testDate)

			var rateErr *RateLimitError
			require.True(t, errors.As(err, &rateErr))
			assert.Equal(t, tt.want, rateErr.RetryAfter)
			assert.Contains(t, rateErr.Message, "Too Many Requests")
		})
	}
}

func TestClientAPIError(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"errors":[{"errorType":"invalid_token"}]}`)
	})

	c := BuildClient(ClientConfig{BaseURL: srv.URL}, validTokens())
	_, err := c.GetUserProfile(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "profile", apiErr.Endpoint)
	assert.Contains(t, apiErr.Body, "invalid_token")
}

func TestClientRefreshesExpiredToken(t *testing.T) {
	tokenSrv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		writeJSON(w, http.StatusOK, `{"access_token": "access-2", "refresh_token": "refresh-2", "token_type": "Bearer", "expires_in": 28800, "user_id": "ABC123"}`)
	})
	apiSrv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-2", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"user": {"fullName": "Jane Doe"}}`)
	})

	var refreshed []TokenPair
	tokens := validTokens()
	tokens.Expiry = time.Now().Add(-time.Minute)
	c := BuildClient(ClientConfig{
		ClientID:       "client",
		ClientSecret:   "secret",
		Endpoint:       oauth2.Endpoint{AuthURL: tokenSrv.URL + "/authorize", TokenURL: tokenSrv.URL + "/token"},
		BaseURL:        apiSrv.URL,
		OnTokenRefresh: func(p TokenPair) { refreshed = append(refreshed, p) },
	}, tokens)

	_, err := c.GetUserProfile(context.Background())
	require.NoError(t, err)
	_, err = c.GetUserProfile(context.Background())
	require.NoError(t, err)

	require.Len(t, refreshed, 1)
	assert.Equal(t, "access-2", refreshed[0].AccessToken)
	assert.Equal(t, "refresh-2", refreshed[0].RefreshToken)
	assert.Equal(t, "ABC123", refreshed[0].UserID)
}
