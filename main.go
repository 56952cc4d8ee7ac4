package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/fitdash/config"
	"github.com/fitdash/data"
	"github.com/fitdash/fitbit"
	"github.com/fitdash/logging"
	"github.com/fitdash/server"
	"github.com/fitdash/session"
)

// logOpener is used when open_browser is off; the consent URL is only logged.
type logOpener struct{}

func (logOpener) Open(u string) error {
	log.Info().Str("url", u).Msg("open this URL to authorize the dashboard")
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logFile, err := logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Dir:    cfg.Log.Dir,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	endpoint := oauth2.Endpoint{AuthURL: cfg.Fitbit.AuthURL, TokenURL: cfg.Fitbit.TokenURL}

	cache := data.NewCache(cfg.Cache.TTL)
	fetcher := data.NewFetcher(cache)
	sessions := session.NewStore(session.Config{
		TTL:          cfg.Session.TTL,
		CookieName:   cfg.Session.CookieName,
		SecureCookie: cfg.Session.SecureCookie,
	}, func(st *session.State) {
		if id := st.SignOut(); id != "" {
			fetcher.Forget(id)
		}
	})

	var opener fitbit.BrowserOpener = logOpener{}
	if cfg.Fitbit.OpenBrowser {
		opener = fitbit.SystemBrowser{}
	}
	auth := fitbit.NewAuthenticator(fitbit.AuthConfig{
		RedirectURL: cfg.Fitbit.RedirectURL,
		Scopes:      cfg.Fitbit.Scopes,
		Endpoint:    endpoint,
		Timeout:     cfg.Fitbit.AuthTimeout,
	}, opener)

	newClient := func(creds session.Credentials, tokens fitbit.TokenPair, onRefresh func(fitbit.TokenPair)) data.API {
		return fitbit.BuildClient(fitbit.ClientConfig{
			ClientID:       creds.ClientID,
			ClientSecret:   creds.ClientSecret,
			Endpoint:       endpoint,
			BaseURL:        cfg.Fitbit.APIBaseURL,
			Timeout:        cfg.Fitbit.RequestTimeout,
			OnTokenRefresh: onRefresh,
		}, tokens)
	}

	srv := server.New(server.Options{
		Auth:      auth,
		NewClient: newClient,
		Data:      fetcher,
		Sessions:  sessions,
		Defaults: session.Credentials{
			ClientID:     cfg.Fitbit.ClientID,
			ClientSecret: cfg.Fitbit.ClientSecret,
		},
		MetricsEnabled: cfg.Metrics.Enabled,
	})

	go sessions.Run(ctx, cfg.Session.SweepInterval)
	go sweepCache(ctx, cache, cfg.Session.SweepInterval)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", "http://"+cfg.Server.Addr()).Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func sweepCache(ctx context.Context, cache *data.Cache, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := cache.DeleteExpired()
			stats := cache.Stats()
			log.Debug().
				Int("evicted", n).
				Int("keys", stats.Keys).
				Int64("hits", stats.Hits).
				Int64("misses", stats.Misses).
				Msg("cache swept")
		}
	}
}
