package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"baduanjin-watch/internal/model"
)

// Session is the on-disk state of one authenticated watcher: who is logged
// in, where, and which jobs were being tracked when the process last wrote a
// snapshot. A restart re-registers any job still listed here so mid-flight
// processing is picked up again.
type Session struct {
	ServerURL string      `json:"server_url"`
	Token     string      `json:"token"`
	UserID    int64       `json:"user_id"`
	Email     string      `json:"email,omitempty"`
	SavedAt   string      `json:"saved_at,omitempty"`
	Jobs      []model.Job `json:"jobs,omitempty"`
}

func (s Session) Authenticated() bool {
	return s.Token != "" && s.UserID > 0
}

func Mkdir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// WriteBytes writes atomically via a temp file and rename so a crashed
// process never leaves a truncated session behind.
func WriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".bdjw-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}

func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON for %s: %w", path, err)
	}
	data = append(data, '\n')
	return WriteBytes(path, data)
}

func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse JSON %s: %w", path, err)
	}
	return nil
}

// DefaultDir is the per-user state directory, overridable for tests and
// alternate deployments via BADUANJIN_WATCH_DIR.
func DefaultDir() (string, error) {
	if dir := os.Getenv("BADUANJIN_WATCH_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".baduanjin-watch"), nil
}

func Path(dir string) string {
	return filepath.Join(dir, "session.json")
}

// Load reads the session file; a missing file is an empty session, not an
// error.
func Load(dir string) (Session, error) {
	var s Session
	if err := ReadJSON(Path(dir), &s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, err
	}
	return s, nil
}

func Save(dir string, s Session) error {
	if err := Mkdir(dir); err != nil {
		return err
	}
	return WriteJSON(Path(dir), s)
}

// Clear removes the session file, e.g. on logout.
func Clear(dir string) error {
	if err := os.Remove(Path(dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
