package session

import (
	"testing"
	"time"

	"baduanjin-watch/internal/model"
)

func TestLoad_MissingFileIsEmptySession(t *testing.T) {
	s, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if s.Authenticated() {
		t.Fatalf("empty session must not be authenticated")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := Session{
		ServerURL: "http://localhost:8000",
		Token:     "tok",
		UserID:    4,
		Email:     "learner@example.com",
		SavedAt:   time.Now().UTC().Format(time.RFC3339),
		Jobs: []model.Job{
			{
				JobID:        "j1",
				VideoID:      7,
				Kind:         model.KindAnalysis,
				Status:       model.StatusRunning,
				StartedAt:    time.Now().UTC().Truncate(time.Second),
				PollInterval: 5 * time.Second,
				Timeout:      20 * time.Minute,
			},
		},
	}
	if err := Save(dir, in); err != nil {
		t.Fatal(err)
	}

	out, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Authenticated() {
		t.Fatalf("saved session should be authenticated")
	}
	if len(out.Jobs) != 1 || out.Jobs[0].VideoID != 7 || out.Jobs[0].Kind != model.KindAnalysis {
		t.Fatalf("jobs did not round-trip: %+v", out.Jobs)
	}
	if out.Jobs[0].Timeout != 20*time.Minute {
		t.Fatalf("timeout did not round-trip: %v", out.Jobs[0].Timeout)
	}
}

func TestClear_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, Session{ServerURL: "http://x", Token: "t", UserID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := Clear(dir); err != nil {
		t.Fatal(err)
	}
	if err := Clear(dir); err != nil {
		t.Fatalf("clearing an absent session should be a no-op: %v", err)
	}
	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Authenticated() {
		t.Fatalf("session survived Clear")
	}
}
