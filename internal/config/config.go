package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration for the telewall server.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	DataDir  string
	HTTPPort int

	ARIURL      string // base URL of the Asterisk REST Interface
	ARIUsername string
	ARIPassword string

	HandsetEndpoint string // endpoint dialed for allowed callers, e.g. SIP/handset
	BlockPresses    int    // consecutive # presses that block the active caller
	BlockCode       string // handset short code for blocking, e.g. 14 for *14#
	UnblockCode     string // handset short code for unblocking

	HistoryKeepDays int // call history retention, 0 disables cleanup

	PhonebookURL string // reverse-lookup API base URL, empty for the public one
	PhonebookKey string // tel.search.ch API key, empty disables lookups

	LogLevel  string
	LogFormat string // log output format: "text" or "json"
}

// defaults
const (
	defaultDataDir         = "./data"
	defaultHTTPPort        = 8080
	defaultARIURL          = "http://localhost:8088"
	defaultARIUsername     = "telewall"
	defaultHandsetEndpoint = "SIP/handset"
	defaultBlockPresses    = 2
	defaultBlockCode       = "14"
	defaultUnblockCode     = "15"
	defaultHistoryKeepDays = 90
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
)

// envPrefix is the prefix for all telewall environment variables.
const envPrefix = "TELEWALL_"

// Load parses configuration from CLI flags and environment variables.
// Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	return parse(os.Args[1:])
}

func parse(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("telewall", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir, "data directory for the database")
	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP server listen port")
	fs.StringVar(&cfg.ARIURL, "ari-url", defaultARIURL, "base URL of the Asterisk REST Interface")
	fs.StringVar(&cfg.ARIUsername, "ari-username", defaultARIUsername, "ARI username")
	fs.StringVar(&cfg.ARIPassword, "ari-password", "", "ARI password")
	fs.StringVar(&cfg.HandsetEndpoint, "handset-endpoint", defaultHandsetEndpoint, "endpoint dialed for allowed callers")
	fs.IntVar(&cfg.BlockPresses, "block-presses", defaultBlockPresses, "consecutive # presses that block the active caller")
	fs.StringVar(&cfg.BlockCode, "block-code", defaultBlockCode, "handset short code for blocking (dialed as *CODE#)")
	fs.StringVar(&cfg.UnblockCode, "unblock-code", defaultUnblockCode, "handset short code for unblocking (dialed as *CODE*NUMBER#)")
	fs.IntVar(&cfg.HistoryKeepDays, "history-keep-days", defaultHistoryKeepDays, "days of call history to keep, 0 disables cleanup")
	fs.StringVar(&cfg.PhonebookURL, "phonebook-url", "", "reverse-lookup API base URL (default tel.search.ch)")
	fs.StringVar(&cfg.PhonebookKey, "phonebook-key", "", "tel.search.ch API key, empty disables name lookups")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// Apply env var overrides for any flags not explicitly set on the command line.
	// CLI flags take precedence over env vars.
	applyEnvOverrides(fs, cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line. This preserves the precedence:
// CLI flags > env vars > defaults.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	// Track which flags were explicitly set via CLI.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	// Map of flag name to env var name.
	envMap := map[string]string{
		"data-dir":          envPrefix + "DATA_DIR",
		"http-port":         envPrefix + "HTTP_PORT",
		"ari-url":           envPrefix + "ARI_URL",
		"ari-username":      envPrefix + "ARI_USERNAME",
		"ari-password":      envPrefix + "ARI_PASSWORD",
		"handset-endpoint":  envPrefix + "HANDSET_ENDPOINT",
		"block-presses":     envPrefix + "BLOCK_PRESSES",
		"block-code":        envPrefix + "BLOCK_CODE",
		"unblock-code":      envPrefix + "UNBLOCK_CODE",
		"history-keep-days": envPrefix + "HISTORY_KEEP_DAYS",
		"phonebook-url":     envPrefix + "PHONEBOOK_URL",
		"phonebook-key":     envPrefix + "PHONEBOOK_KEY",
		"log-level":         envPrefix + "LOG_LEVEL",
		"log-format":        envPrefix + "LOG_FORMAT",
	}

	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "data-dir":
			cfg.DataDir = val
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "ari-url":
			cfg.ARIURL = val
		case "ari-username":
			cfg.ARIUsername = val
		case "ari-password":
			cfg.ARIPassword = val
		case "handset-endpoint":
			cfg.HandsetEndpoint = val
		case "block-presses":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.BlockPresses = v
			}
		case "block-code":
			cfg.BlockCode = val
		case "unblock-code":
			cfg.UnblockCode = val
		case "history-keep-days":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HistoryKeepDays = v
			}
		case "phonebook-url":
			cfg.PhonebookURL = val
		case "phonebook-key":
			cfg.PhonebookKey = val
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		}
	}
}

// validate checks that the config values are sane.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if !strings.HasPrefix(c.ARIURL, "http://") && !strings.HasPrefix(c.ARIURL, "https://") {
		return fmt.Errorf("ari-url must start with http:// or https://, got %q", c.ARIURL)
	}
	if c.BlockPresses < 1 {
		return fmt.Errorf("block-presses must be at least 1, got %d", c.BlockPresses)
	}
	if !digitsOnly(c.BlockCode) {
		return fmt.Errorf("block-code must be digits, got %q", c.BlockCode)
	}
	if !digitsOnly(c.UnblockCode) {
		return fmt.Errorf("unblock-code must be digits, got %q", c.UnblockCode)
	}
	if c.BlockCode == c.UnblockCode {
		return fmt.Errorf("block-code and unblock-code must differ")
	}
	if c.HistoryKeepDays < 0 {
		return fmt.Errorf("history-keep-days must not be negative, got %d", c.HistoryKeepDays)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	return nil
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SlogHandler returns a slog.Handler configured with the appropriate format
// (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
