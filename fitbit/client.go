package fitbit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/fitbit"

	"github.com/fitdash/metrics"
	"github.com/fitdash/models"
)

const (
	DefaultBaseURL = "https://api.fitbit.com"
	// APIVersion is the Web API version of the profile and heart rate endpoints.
	APIVersion = 1
	dateLayout     = "2006-01-02"

	profileEndpoint = "/1/user/-/profile.json"
	sleepEndpoint   = "/1.2/user/-/sleep/date/{date}.json"
	heartEndpoint   = "/1/user/-/activities/heart/date/{date}/1d/1min.json"
)

type ClientConfig struct {
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	BaseURL      string
	Timeout      time.Duration
	// OnTokenRefresh receives the new pair whenever the access token rotates.
	OnTokenRefresh func(TokenPair)
	// HTTPClient is the base client for both token refresh and API calls.
	HTTPClient *http.Client
}

// Client is an authenticated Fitbit Web API client for one user.
type Client struct {
	id   string
	rest *resty.Client
}

// BuildClient wraps a token pair into a client. It does no network I/O; an
// expired access token is refreshed on the first request.
func BuildClient(cfg ClientConfig, tokens TokenPair) *Client {
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = fitbit.Endpoint
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	ctx := context.Background()
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     cfg.Endpoint,
	}
	src := &rotationSource{
		src:       conf.TokenSource(ctx, tokens.token()),
		current:   tokens.AccessToken,
		userID:    tokens.UserID,
		onRefresh: cfg.OnTokenRefresh,
	}
	hc := oauth2.NewClient(ctx, src)
	hc.Timeout = cfg.Timeout

	rest := resty.NewWithClient(hc).
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", "en_US").
		SetJSONUnmarshaler(json.Unmarshal).
		SetLogger(restyLogger{})

	return &Client{
		id:   uuid.NewString(),
		rest: rest,
	}
}

// ID identifies this client instance. Memoized responses are keyed by it.
func (c *Client) ID() string {
	return c.id
}

func (c *Client) GetUserProfile(ctx context.Context) (models.UserProfile, error) {
	var resp models.ProfileResponse
	if err := c.get(ctx, "profile", profileEndpoint, nil, &resp); err != nil {
		return models.UserProfile{}, err
	}
	log.Debug().Str("name", resp.User.FullName).Msg("profile data downloaded")
	return resp.User, nil
}

func (c *Client) GetSleep(ctx context.Context, date time.Time) (models.SleepResponse, error) {
	var resp models.SleepResponse
	params := map[string]string{"date": date.Format(dateLayout)}
	if err := c.get(ctx, "sleep", sleepEndpoint, params, &resp); err != nil {
		return models.SleepResponse{}, err
	}
	return resp, nil
}

func (c *Client) GetHeartSeries(ctx context.Context, date time.Time) (models.HeartResponse, error) {
	var resp models.HeartResponse
	params := map[string]string{"date": date.Format(dateLayout)}
	if err := c.get(ctx, "heart", heartEndpoint, params, &resp); err != nil {
		return models.HeartResponse{}, err
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, name, endpoint string, params map[string]string, result any) error {
	started := time.Now()
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParams(params).
		SetResult(result).
		Get(endpoint)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", name, err)
	}
	metrics.RecordFitbitRequest(name, resp.StatusCode(), time.Since(started))

	if resp.StatusCode() == http.StatusTooManyRequests {
		retryAfter, _ := strconv.Atoi(resp.Header().Get("Retry-After"))
		if retryAfter <= 0 {
			retryAfter = defaultRetryAfter
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
			Message:    strings.TrimSpace(string(resp.Body())),
		}
	}
	if resp.IsError() {
		return &APIError{
			StatusCode: resp.StatusCode(),
			Endpoint:   name,
			Body:       strings.TrimSpace(string(resp.Body())),
		}
	}
	return nil
}

// rotationSource reports access token changes made by the refreshing source
// underneath it.
type rotationSource struct {
	src       oauth2.TokenSource
	onRefresh func(TokenPair)

	mu      sync.Mutex
	current string
	userID  string
}

func (s *rotationSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.current {
		s.current = tok.AccessToken
		pair := pairFromToken(tok, s.userID)
		s.userID = pair.UserID
		log.Info().Str("user_id", pair.UserID).Msg("access token refreshed")
		if s.onRefresh != nil {
			s.onRefresh(pair)
		}
	}
	return tok, nil
}

// restyLogger routes resty's internal logging into zerolog.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	log.Error().Str("component", "resty").Msgf(strings.TrimSpace(format), v...)
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	log.Warn().Str("component", "resty").Msgf(strings.TrimSpace(format), v...)
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	log.Debug().Str("component", "resty").Msgf(strings.TrimSpace(format), v...)
}
