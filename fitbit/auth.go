package fitbit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cli/browser"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/fitbit"

	"github.com/fitdash/metrics"
)

// DefaultScopes are the permissions requested on the consent page.
var DefaultScopes = []string{"activity", "heartrate", "profile", "sleep"}

// TokenPair is what a completed authorization flow hands back to the session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	UserID       string
}

func (t TokenPair) token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       t.Expiry,
	}
}

func pairFromToken(tok *oauth2.Token, userID string) TokenPair {
	if id, ok := tok.Extra("user_id").(string); ok && id != "" {
		userID = id
	}
	return TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		UserID:       userID,
	}
}

// BrowserOpener shows the consent page to the user.
type BrowserOpener interface {
	Open(url string) error
}

// SystemBrowser opens URLs with the desktop's default browser.
type SystemBrowser struct{}

func (SystemBrowser) Open(u string) error {
	return browser.OpenURL(u)
}

type AuthConfig struct {
	RedirectURL string
	Scopes      []string
	Endpoint    oauth2.Endpoint
	// Timeout bounds the wait for the consent callback. Zero waits until the
	// request context ends.
	Timeout time.Duration
	// HTTPClient is used for the token exchange. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Authenticator runs the authorization code flow with PKCE against a local
// callback listener. Only one flow runs at a time.
type Authenticator struct {
	cfg    AuthConfig
	opener BrowserOpener

	mu      sync.Mutex
	running bool
}

func NewAuthenticator(cfg AuthConfig, opener BrowserOpener) *Authenticator {
	if cfg.Endpoint.AuthURL == "" || cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = fitbit.Endpoint
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if opener == nil {
		opener = SystemBrowser{}
	}
	return &Authenticator{cfg: cfg, opener: opener}
}

// OAuthConfig returns the oauth2 configuration for a pair of app credentials.
func (a *Authenticator) OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     a.cfg.Endpoint,
		RedirectURL:  a.cfg.RedirectURL,
		Scopes:       a.cfg.Scopes,
	}
}

// InProgress reports whether a flow is waiting for its callback.
func (a *Authenticator) InProgress() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *Authenticator) begin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return false
	}
	a.running = true
	return true
}

func (a *Authenticator) end() {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

// Authenticate opens the consent page and blocks until the provider redirects
// back to the callback listener, then exchanges the code for tokens.
func (a *Authenticator) Authenticate(ctx context.Context, clientID, clientSecret string) (TokenPair, error) {
	if clientID == "" || clientSecret == "" {
		return TokenPair{}, ErrMissingClientID
	}
	if !a.begin() {
		return TokenPair{}, ErrAuthInProgress
	}
	defer a.end()

	pair, err := a.authenticate(ctx, clientID, clientSecret)
	metrics.RecordAuthFlow(err)
	return pair, err
}

func (a *Authenticator) authenticate(ctx context.Context, clientID, clientSecret string) (TokenPair, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	conf := a.OAuthConfig(clientID, clientSecret)
	redirect, err := url.Parse(conf.RedirectURL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("invalid redirect url %q: %w", conf.RedirectURL, err)
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to start callback listener on %s: %w", redirect.Host, err)
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	results := make(chan callbackResult, 1)

	srv := &http.Server{
		Handler:           callbackHandler(redirect.Path, state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("callback listener stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	log.Info().Str("url", authURL).Msg("If no browser opens, please copy and paste the following URL into your browser")
	if err := a.opener.Open(authURL); err != nil {
		log.Warn().Err(err).Msg("failed to open browser")
	}

	log.Info().Str("addr", listener.Addr().String()).Msg("Waiting for authorization callback...")

	var res callbackResult
	select {
	case <-ctx.Done():
		return TokenPair{}, fmt.Errorf("authorization not completed: %w", ctx.Err())
	case res = <-results:
	}
	if res.err != nil {
		return TokenPair{}, res.err
	}

	if a.cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.cfg.HTTPClient)
	}
	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to obtain access token: %w", err)
	}

	pair := pairFromToken(tok, "")
	log.Info().Str("user_id", pair.UserID).Msg("Successfully obtained access token")
	return pair, nil
}

type callbackResult struct {
	code string
	err  error
}

func callbackHandler(path, state string, results chan<- callbackResult) http.Handler {
	if path == "" {
		path = "/"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}

		q := r.URL.Query()
		// Reloads and prefetches carry neither a code nor an error and must not
		// end the flow.
		if !q.Has("code") && !q.Has("error") {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Waiting for the Fitbit authorization redirect."))
			return
		}

		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = &AuthDeniedError{Reason: q.Get("error"), Description: q.Get("error_description")}
		case q.Get("state") != state:
			res.err = ErrStateMismatch
		case q.Get("code") == "":
			res.err = ErrMissingCode
		default:
			res.code = q.Get("code")
		}

		w.Header().Set("Content-Type", "text/html")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Authorization failed. Please try again."))
		} else {
			_, _ = w.Write([]byte("Authorization successful! You can close this window and return to the application."))
		}

		// Only the first callback counts.
		select {
		case results <- res:
		default:
		}
	})
}
