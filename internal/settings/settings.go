package settings

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"baduanjin-watch/internal/session"
)

const (
	DefaultPollIntervalSeconds      = 5
	DefaultAnalysisTimeoutMinutes   = 20
	DefaultConversionTimeoutMinutes = 30
)

// Settings is the workspace configuration file. Environment variables
// override file values; the file is created on first save.
type Settings struct {
	ServerURL                string `json:"server_url,omitempty"`
	PollIntervalSeconds      int    `json:"poll_interval_seconds,omitempty"`
	AnalysisTimeoutMinutes   int    `json:"analysis_timeout_minutes,omitempty"`
	ConversionTimeoutMinutes int    `json:"conversion_timeout_minutes,omitempty"`
}

func defaultSettings() Settings {
	return Settings{
		PollIntervalSeconds:      DefaultPollIntervalSeconds,
		AnalysisTimeoutMinutes:   DefaultAnalysisTimeoutMinutes,
		ConversionTimeoutMinutes: DefaultConversionTimeoutMinutes,
	}
}

func normalizeSettings(raw Settings) Settings {
	norm := raw
	norm.ServerURL = strings.TrimRight(strings.TrimSpace(norm.ServerURL), "/")
	if norm.PollIntervalSeconds <= 0 {
		norm.PollIntervalSeconds = DefaultPollIntervalSeconds
	}
	if norm.AnalysisTimeoutMinutes <= 0 {
		norm.AnalysisTimeoutMinutes = DefaultAnalysisTimeoutMinutes
	}
	if norm.ConversionTimeoutMinutes <= 0 {
		norm.ConversionTimeoutMinutes = DefaultConversionTimeoutMinutes
	}
	return norm
}

func Path(dir string) string {
	return filepath.Join(dir, "settings.json")
}

// Load reads settings from the session directory and applies environment
// overrides. A .env file in the working directory is honored when present so
// a checkout can pin its backend without touching the user-wide settings.
func Load(dir string) (Settings, error) {
	_ = godotenv.Load()

	s := defaultSettings()
	if err := session.ReadJSON(Path(dir), &s); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Settings{}, err
	}

	if v := strings.TrimSpace(os.Getenv("BADUANJIN_SERVER_URL")); v != "" {
		s.ServerURL = v
	}
	if n, ok := envInt("BADUANJIN_POLL_INTERVAL_SECONDS"); ok {
		s.PollIntervalSeconds = n
	}
	if n, ok := envInt("BADUANJIN_ANALYSIS_TIMEOUT_MINUTES"); ok {
		s.AnalysisTimeoutMinutes = n
	}
	if n, ok := envInt("BADUANJIN_CONVERSION_TIMEOUT_MINUTES"); ok {
		s.ConversionTimeoutMinutes = n
	}
	return normalizeSettings(s), nil
}

func Save(dir string, s Settings) error {
	if err := session.Mkdir(dir); err != nil {
		return err
	}
	return session.WriteJSON(Path(dir), normalizeSettings(s))
}

func (s Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

func (s Settings) AnalysisTimeout() time.Duration {
	return time.Duration(s.AnalysisTimeoutMinutes) * time.Minute
}

func (s Settings) ConversionTimeout() time.Duration {
	return time.Duration(s.ConversionTimeoutMinutes) * time.Minute
}

func envInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
