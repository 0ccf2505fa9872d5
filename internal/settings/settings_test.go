package settings

import (
	"testing"
	"time"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Setenv("BADUANJIN_SERVER_URL", "")
	t.Setenv("BADUANJIN_POLL_INTERVAL_SECONDS", "")
	t.Setenv("BADUANJIN_ANALYSIS_TIMEOUT_MINUTES", "")
	t.Setenv("BADUANJIN_CONVERSION_TIMEOUT_MINUTES", "")

	s, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if s.PollInterval() != 5*time.Second {
		t.Fatalf("poll interval = %v", s.PollInterval())
	}
	if s.AnalysisTimeout() != 20*time.Minute {
		t.Fatalf("analysis timeout = %v", s.AnalysisTimeout())
	}
	if s.ConversionTimeout() != 30*time.Minute {
		t.Fatalf("conversion timeout = %v", s.ConversionTimeout())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, Settings{ServerURL: "http://from-file", PollIntervalSeconds: 10}); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BADUANJIN_SERVER_URL", "http://from-env/")
	t.Setenv("BADUANJIN_POLL_INTERVAL_SECONDS", "2")
	t.Setenv("BADUANJIN_ANALYSIS_TIMEOUT_MINUTES", "")
	t.Setenv("BADUANJIN_CONVERSION_TIMEOUT_MINUTES", "")

	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if s.ServerURL != "http://from-env" {
		t.Fatalf("server URL = %q (trailing slash should be trimmed)", s.ServerURL)
	}
	if s.PollIntervalSeconds != 2 {
		t.Fatalf("poll interval seconds = %d", s.PollIntervalSeconds)
	}
}

func TestLoad_InvalidEnvValuesIgnored(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, Settings{PollIntervalSeconds: 10}); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BADUANJIN_SERVER_URL", "")
	t.Setenv("BADUANJIN_POLL_INTERVAL_SECONDS", "zero")
	t.Setenv("BADUANJIN_ANALYSIS_TIMEOUT_MINUTES", "-4")
	t.Setenv("BADUANJIN_CONVERSION_TIMEOUT_MINUTES", "")

	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if s.PollIntervalSeconds != 10 {
		t.Fatalf("poll interval seconds = %d, want file value 10", s.PollIntervalSeconds)
	}
	if s.AnalysisTimeoutMinutes != DefaultAnalysisTimeoutMinutes {
		t.Fatalf("analysis timeout minutes = %d", s.AnalysisTimeoutMinutes)
	}
}
