package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Level  string
	Format string
	Dir    string
}

// Setup points the global logger at the console and <Dir>/app.log. When running
// under air only the file is written. The caller closes the returned file.
func Setup(cfg Config) (*os.File, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	dir := cfg.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile(filepath.Join(dir, "app.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	log.Logger = New(consoleWriter(cfg.Format), logFile)
	return logFile, nil
}

// New builds a logger writing to console (may be nil) and file.
func New(console io.Writer, file io.Writer) zerolog.Logger {
	var out io.Writer = file
	if console != nil && os.Getenv("AIR_RESTART_COUNT") == "" {
		out = zerolog.MultiLevelWriter(console, file)
	}
	return zerolog.New(out).With().Timestamp().Caller().Logger()
}

func consoleWriter(format string) io.Writer {
	if format == "json" {
		return os.Stdout
	}
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006/01/02 15:04:05"}
}
