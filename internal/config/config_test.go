package config

import (
	"log/slog"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.HTTPPort != defaultHTTPPort {
		t.Errorf("HTTPPort = %d, want %d", cfg.HTTPPort, defaultHTTPPort)
	}
	if cfg.ARIURL != defaultARIURL {
		t.Errorf("ARIURL = %q, want %q", cfg.ARIURL, defaultARIURL)
	}
	if cfg.BlockPresses != defaultBlockPresses {
		t.Errorf("BlockPresses = %d, want %d", cfg.BlockPresses, defaultBlockPresses)
	}
	if cfg.BlockCode != defaultBlockCode || cfg.UnblockCode != defaultUnblockCode {
		t.Errorf("codes = %q/%q, want %q/%q", cfg.BlockCode, cfg.UnblockCode, defaultBlockCode, defaultUnblockCode)
	}
	if cfg.HistoryKeepDays != defaultHistoryKeepDays {
		t.Errorf("HistoryKeepDays = %d, want %d", cfg.HistoryKeepDays, defaultHistoryKeepDays)
	}
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg, err := parse([]string{
		"-http-port", "9090",
		"-ari-url", "http://asterisk:8088",
		"-block-presses", "3",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", cfg.HTTPPort)
	}
	if cfg.ARIURL != "http://asterisk:8088" {
		t.Errorf("ARIURL = %q", cfg.ARIURL)
	}
	if cfg.BlockPresses != 3 {
		t.Errorf("BlockPresses = %d, want 3", cfg.BlockPresses)
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("TELEWALL_ARI_PASSWORD", "secret")
	t.Setenv("TELEWALL_HANDSET_ENDPOINT", "SIP/kitchen")
	t.Setenv("TELEWALL_HISTORY_KEEP_DAYS", "30")

	cfg, err := parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.ARIPassword != "secret" {
		t.Errorf("ARIPassword = %q, want secret", cfg.ARIPassword)
	}
	if cfg.HandsetEndpoint != "SIP/kitchen" {
		t.Errorf("HandsetEndpoint = %q, want SIP/kitchen", cfg.HandsetEndpoint)
	}
	if cfg.HistoryKeepDays != 30 {
		t.Errorf("HistoryKeepDays = %d, want 30", cfg.HistoryKeepDays)
	}
}

func TestFlagsBeatEnv(t *testing.T) {
	t.Setenv("TELEWALL_HTTP_PORT", "7070")

	cfg, err := parse([]string{"-http-port", "9090"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want the flag value 9090", cfg.HTTPPort)
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"bad port", []string{"-http-port", "0"}},
		{"bad ari url", []string{"-ari-url", "asterisk:8088"}},
		{"zero presses", []string{"-block-presses", "0"}},
		{"non-digit block code", []string{"-block-code", "1a"}},
		{"equal codes", []string{"-block-code", "14", "-unblock-code", "14"}},
		{"negative retention", []string{"-history-keep-days", "-1"}},
		{"bad log level", []string{"-log-level", "verbose"}},
		{"bad log format", []string{"-log-format", "xml"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parse(tc.args); err == nil {
				t.Errorf("parse(%v) succeeded, want error", tc.args)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg, err := parse([]string{"-log-level", "DEBUG"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
}
