package cli

import (
	"errors"
	"fmt"
	"strings"

	"baduanjin-watch/internal/api"
	"baduanjin-watch/internal/session"
	"baduanjin-watch/internal/settings"
)

// appEnv bundles the loaded settings and session for one command invocation.
type appEnv struct {
	dir  string
	cfg  settings.Settings
	sess session.Session
}

func loadEnv() (appEnv, error) {
	dir, err := session.DefaultDir()
	if err != nil {
		return appEnv{}, err
	}
	cfg, err := settings.Load(dir)
	if err != nil {
		return appEnv{}, err
	}
	sess, err := session.Load(dir)
	if err != nil {
		return appEnv{}, err
	}
	return appEnv{dir: dir, cfg: cfg, sess: sess}, nil
}

func (e appEnv) serverURL() string {
	if strings.TrimSpace(e.sess.ServerURL) != "" {
		return e.sess.ServerURL
	}
	return e.cfg.ServerURL
}

// authedClient builds a backend client from the stored session. Commands that
// talk to the backend on the user's behalf go through here.
func (e appEnv) authedClient() (*api.Client, error) {
	if !e.sess.Authenticated() {
		return nil, errors.New("not logged in (run 'baduanjin-watch login' first)")
	}
	client, err := api.New(e.serverURL(), e.sess.Token)
	if err != nil {
		return nil, fmt.Errorf("build backend client: %w", err)
	}
	return client, nil
}

func (e appEnv) saveSession() error {
	return session.Save(e.dir, e.sess)
}
