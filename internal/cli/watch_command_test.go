package cli

import (
	"testing"

	"baduanjin-watch/internal/model"
	"baduanjin-watch/internal/session"
)

func TestResolveWatchTargetsExplicitIDDefaultsToAnalysis(t *testing.T) {
	env := appEnv{}
	targets, err := resolveWatchTargets(&env, nil, []int64{3}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 || targets[0] != (watchTarget{VideoID: 3, Kind: model.KindAnalysis}) {
		t.Fatalf("unexpected targets: %+v", targets)
	}
}

func TestResolveWatchTargetsUsesQueuedKinds(t *testing.T) {
	env := appEnv{sess: session.Session{Jobs: []model.Job{
		{VideoID: 3, Kind: model.KindAudioConversion},
		{VideoID: 3, Kind: model.KindWebConversion},
		{VideoID: 9, Kind: model.KindAnalysis, Status: model.StatusCompleted},
	}}}

	// An explicit id picks up every queued kind for that video.
	targets, err := resolveWatchTargets(&env, nil, []int64{3}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected both queued kinds, got %+v", targets)
	}

	// No ids resumes the whole queue, minus terminal entries.
	targets, err = resolveWatchTargets(&env, nil, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, tgt := range targets {
		if tgt.VideoID == 9 {
			t.Fatalf("terminal queued job must not be resumed: %+v", targets)
		}
	}
	if len(targets) != 2 {
		t.Fatalf("unexpected resumed targets: %+v", targets)
	}
}

func TestResolveWatchTargetsDeduplicates(t *testing.T) {
	env := appEnv{sess: session.Session{Jobs: []model.Job{
		{VideoID: 3, Kind: model.KindAnalysis},
	}}}
	targets, err := resolveWatchTargets(&env, nil, []int64{3}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected deduplicated target, got %+v", targets)
	}
}

func TestIsProcessingStatus(t *testing.T) {
	for _, s := range []string{"processing", " Processing ", "queued", "started"} {
		if !isProcessingStatus(s) {
			t.Fatalf("expected %q to count as processing", s)
		}
	}
	for _, s := range []string{"completed", "failed", "", "uploaded"} {
		if isProcessingStatus(s) {
			t.Fatalf("expected %q to not count as processing", s)
		}
	}
}

func TestOwnVideosFiltersForeignOwners(t *testing.T) {
	videos := []model.Video{
		{ID: 1, UserID: 7},
		{ID: 2, UserID: 8},
		{ID: 3, UserID: 0},
	}
	own := ownVideos(videos, 7)
	if len(own) != 2 || own[0].ID != 1 || own[1].ID != 3 {
		t.Fatalf("unexpected filtered videos: %+v", own)
	}
	if got := ownVideos(videos, 0); len(got) != 3 {
		t.Fatalf("unknown session user must not filter, got %+v", got)
	}
}
