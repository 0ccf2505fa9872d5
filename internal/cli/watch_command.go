package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"baduanjin-watch/internal/api"
	"baduanjin-watch/internal/model"
	"baduanjin-watch/internal/poller"
	"baduanjin-watch/internal/registry"
	"baduanjin-watch/internal/session"
)

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	all := fs.Bool("all", false, "watch every video the backend reports as processing")
	jsonOut := fs.Bool("json", false, "emit one JSON line per job event instead of the dashboard")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	ids, err := parseVideoIDs(fs.Args())
	if err != nil {
		return err
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	client, err := env.authedClient()
	if err != nil {
		return err
	}

	lock, err := session.AcquireWatchLock(env.dir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	targets, err := resolveWatchTargets(&env, client, ids, *all)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Println("nothing to watch (start a job with analyze/convert-audio/quick-convert)")
		return nil
	}

	logger, closeLog := watchLogger(env.dir, *jsonOut)
	defer closeLog()

	reg := registry.New()
	cfg := poller.Config{
		PollInterval:      env.cfg.PollInterval(),
		AnalysisTimeout:   env.cfg.AnalysisTimeout(),
		ConversionTimeout: env.cfg.ConversionTimeout(),
	}
	pol := poller.New(reg, client, env.sess.UserID, cfg, logger)

	for _, t := range targets {
		if _, created := pol.Track(t.VideoID, t.Kind, fetcherFor(client, t.VideoID, t.Kind)); created {
			logger.Info("tracking job", "video_id", t.VideoID, "kind", t.Kind)
		}
	}

	events, cancelEvents := pol.Subscribe()
	defer cancelEvents()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	done := make(chan struct{})
	go func() {
		pol.Wait()
		close(done)
	}()

	var finished []model.Job
	interrupted := false

	if *jsonOut || !stdoutIsTTY() {
		finished, interrupted = followEvents(events, sigs, done, *jsonOut)
	} else {
		finished, interrupted = followDashboard(reg, events, sigs, done)
	}

	if interrupted {
		pol.StopAll()
		pol.Wait()
	}

	// Snapshot what is still unfinished so the next watch run resumes it.
	// Queued jobs this run did not target stay in the session untouched; a
	// watch scoped to one video must not forget the others.
	remaining := reg.Snapshot()
	polled := make(map[watchTarget]bool, len(targets))
	for _, t := range targets {
		polled[t] = true
	}
	merged := remaining
	for _, j := range env.sess.Jobs {
		if polled[watchTarget{VideoID: j.VideoID, Kind: j.Kind}] {
			continue
		}
		merged = append(merged, j)
	}
	env.sess.Jobs = merged
	if err := env.saveSession(); err != nil {
		return err
	}

	if interrupted {
		fmt.Printf("interrupted; %d job(s) left running on the backend (rerun watch to resume)\n", len(remaining))
		return nil
	}

	failed := 0
	for _, j := range finished {
		if j.Status == model.StatusFailed {
			failed++
		}
	}
	fmt.Printf("done: %d job(s) finished, %d failed\n", len(finished), failed)
	if failed > 0 {
		return fmt.Errorf("%d job(s) failed", failed)
	}
	return nil
}

type watchTarget struct {
	VideoID int64
	Kind    model.Kind
}

// resolveWatchTargets merges explicit ids, jobs queued in the session by the
// start commands, and, with --all, whatever the backend still reports as
// processing.
func resolveWatchTargets(env *appEnv, client *api.Client, ids []int64, all bool) ([]watchTarget, error) {
	seen := make(map[watchTarget]bool)
	targets := make([]watchTarget, 0, len(ids)+len(env.sess.Jobs))
	add := func(t watchTarget) {
		if !seen[t] {
			seen[t] = true
			targets = append(targets, t)
		}
	}

	queuedKinds := make(map[int64][]model.Kind)
	for _, j := range env.sess.Jobs {
		if !model.IsKnownKind(j.Kind) || j.Terminal() {
			continue
		}
		queuedKinds[j.VideoID] = append(queuedKinds[j.VideoID], j.Kind)
	}

	for _, id := range ids {
		kinds := queuedKinds[id]
		if len(kinds) == 0 {
			// No queued record for this id; analysis is what users watch by
			// default.
			kinds = []model.Kind{model.KindAnalysis}
		}
		for _, k := range kinds {
			add(watchTarget{VideoID: id, Kind: k})
		}
	}

	if len(ids) == 0 {
		for videoID, kinds := range queuedKinds {
			for _, k := range kinds {
				add(watchTarget{VideoID: videoID, Kind: k})
			}
		}
	}

	if all {
		videos, err := client.ListVideos()
		if err != nil {
			return nil, err
		}
		for _, v := range ownVideos(videos, env.sess.UserID) {
			if isProcessingStatus(v.ProcessingStatus) {
				add(watchTarget{VideoID: v.ID, Kind: model.KindAnalysis})
			}
		}
	}

	return targets, nil
}

func isProcessingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "processing", "analyzing", "converting", "pending", "queued", "started":
		return true
	default:
		return false
	}
}

// fetcherFor maps a job kind to its poll endpoint. Analysis and web
// conversion read the video record (which carries artifact paths and owner);
// audio conversion has its own status endpoint.
func fetcherFor(client *api.Client, videoID int64, kind model.Kind) poller.FetchStatus {
	if kind == model.KindAudioConversion {
		return func() (poller.Status, error) {
			status, err := client.GetConversionStatus(videoID)
			if err != nil {
				return poller.Status{}, err
			}
			return poller.Status{ProcessingStatus: status}, nil
		}
	}
	return func() (poller.Status, error) {
		video, err := client.GetVideo(videoID)
		if err != nil {
			return poller.Status{}, err
		}
		return poller.Status{
			ProcessingStatus:  video.ProcessingStatus,
			AnalyzedVideoPath: video.AnalyzedVideoPath,
			KeypointsPath:     video.KeypointsPath,
			OwnerID:           video.UserID,
		}, nil
	}
}

// followEvents is the non-interactive follower: optionally a JSON line per
// event, always collecting terminal jobs until every poller stops.
func followEvents(events <-chan poller.Event, sigs <-chan os.Signal, done <-chan struct{}, jsonOut bool) (finished []model.Job, interrupted bool) {
	for {
		select {
		case <-sigs:
			return finished, true
		case ev := <-events:
			if jsonOut {
				_ = printJSON(ev.Job)
			} else if ev.Terminal {
				fmt.Printf("video %d %s: %s %s\n", ev.Job.VideoID, ev.Job.Kind, ev.Job.Status, ev.Job.Message)
			}
			if ev.Terminal {
				finished = append(finished, ev.Job)
			}
		case <-done:
			finished = append(finished, drainTerminal(events)...)
			return finished, false
		}
	}
}

func drainTerminal(events <-chan poller.Event) []model.Job {
	var out []model.Job
	for {
		select {
		case ev := <-events:
			if ev.Terminal {
				out = append(out, ev.Job)
			}
		default:
			return out
		}
	}
}

// watchLogger routes poll diagnostics away from the dashboard's terminal
// output. Interactive runs log to watch.log in the session directory; plain
// runs log to stderr.
func watchLogger(dir string, jsonOut bool) (*slog.Logger, func()) {
	if jsonOut || !stdoutIsTTY() {
		return slog.New(slog.NewTextHandler(os.Stderr, nil)), func() {}
	}
	path := filepath.Join(dir, "watch.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("watch session started", "time", time.Now().UTC().Format(time.RFC3339))
	return logger, func() { _ = f.Close() }
}
