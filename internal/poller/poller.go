package poller

import (
	"log/slog"
	"sync"
	"time"

	"baduanjin-watch/internal/model"
	"baduanjin-watch/internal/registry"
)

// FetchStatus performs one poll tick's network call.
type FetchStatus func() (Status, error)

// Event is published on every applied state change for a tracked job.
// Terminal events carry the job's final snapshot; the job is already
// unregistered by the time subscribers see them.
type Event struct {
	Job      model.Job
	Terminal bool
}

// Config carries the polling policy. Zero fields fall back to the defaults
// observed against the production backend: 5s ticks, 20 minutes for analysis,
// 30 minutes for conversions.
type Config struct {
	PollInterval      time.Duration
	AnalysisTimeout   time.Duration
	ConversionTimeout time.Duration
}

const (
	DefaultPollInterval      = 5 * time.Second
	DefaultAnalysisTimeout   = 20 * time.Minute
	DefaultConversionTimeout = 30 * time.Minute
)

func (c Config) normalized() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.AnalysisTimeout <= 0 {
		c.AnalysisTimeout = DefaultAnalysisTimeout
	}
	if c.ConversionTimeout <= 0 {
		c.ConversionTimeout = DefaultConversionTimeout
	}
	return c
}

func (c Config) timeoutFor(kind model.Kind) time.Duration {
	if kind == model.KindAnalysis {
		return c.AnalysisTimeout
	}
	return c.ConversionTimeout
}

// Poller drives repeated status checks for registered jobs until each reaches
// a terminal verdict. One goroutine and one fixed-delay timer exist per
// active (video, kind) pair; the registry's uniqueness guarantee is the only
// concurrency control needed beyond its lock.
type Poller struct {
	reg           *registry.Registry
	prober        CompletionProber
	sessionUserID int64
	cfg           Config
	logger        *slog.Logger

	mu   sync.Mutex
	subs []chan Event
	wg   sync.WaitGroup
}

func New(reg *registry.Registry, prober CompletionProber, sessionUserID int64, cfg Config, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		reg:           reg,
		prober:        prober,
		sessionUserID: sessionUserID,
		cfg:           cfg.normalized(),
		logger:        logger,
	}
}

// Track registers a job for (videoID, kind) and starts its poll loop. When a
// poller is already active for the key, the existing job is returned and no
// second loop is started. The first status check happens one interval after
// Track returns, giving the backend time to begin work.
func (p *Poller) Track(videoID int64, kind model.Kind, fetch FetchStatus) (model.Job, bool) {
	job, created := p.reg.Register(videoID, kind, p.cfg.PollInterval, p.cfg.timeoutFor(kind))
	if !created {
		return job, false
	}

	job, _, _ = p.reg.Update(videoID, kind, func(j *model.Job) error {
		return model.TransitionJobStatus(j, model.StatusRunning, "")
	})

	stop, ok := p.reg.StopSignal(videoID, kind)
	if !ok {
		return job, false
	}
	p.wg.Add(1)
	go p.loop(videoID, kind, job.StartedAt, stop, fetch)
	return job, true
}

// Stop cancels polling for one key. The stop signal is closed before Stop
// returns; any in-flight response for the job is dropped on arrival.
func (p *Poller) Stop(videoID int64, kind model.Kind) {
	p.reg.Unregister(videoID, kind)
}

// StopAll cancels every active poller, e.g. when the watch view exits.
func (p *Poller) StopAll() {
	for _, job := range p.reg.Snapshot() {
		p.reg.Unregister(job.VideoID, job.Kind)
	}
}

// Wait blocks until all poll goroutines have returned.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Subscribe returns a channel of job events and a cancel func. Slow
// subscribers lose events rather than blocking the poll loops.
func (p *Poller) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, sub := range p.subs {
			if sub == ch {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}

func (p *Poller) emit(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, sub := range p.subs {
		select {
		case sub <- ev:
		default:
		}
	}
}

func (p *Poller) loop(videoID int64, kind model.Kind, startedAt time.Time, stop <-chan struct{}, fetch FetchStatus) {
	defer p.wg.Done()

	timeout := p.cfg.timeoutFor(kind)
	timer := time.NewTimer(p.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		if time.Since(startedAt) >= timeout {
			p.finishByProbe(videoID, kind)
			return
		}

		st, err := fetch()
		now := time.Now().UTC()
		if err != nil {
			// A single failed tick is not fatal; keep polling on schedule
			// unless the budget is already spent.
			p.logger.Warn("status check failed; will retry", "video_id", videoID, "kind", kind, "err", err)
			if _, ok, _ := p.reg.Update(videoID, kind, func(j *model.Job) error {
				j.LastPolledAt = now
				return nil
			}); !ok {
				return
			}
			if time.Since(startedAt) >= timeout {
				p.finishByProbe(videoID, kind)
				return
			}
			timer.Reset(p.cfg.PollInterval)
			continue
		}

		verdict, softComplete := Reconcile(kind, st, p.sessionUserID)
		switch verdict {
		case VerdictForeign:
			// Client bug class: never surface another user's data. Stop
			// silently and leave diagnostics in the log only.
			p.logger.Warn("dropping status response for foreign resource", "video_id", videoID, "kind", kind, "owner_id", st.OwnerID, "session_user_id", p.sessionUserID)
			p.reg.Unregister(videoID, kind)
			return
		case VerdictRunning:
			job, ok, _ := p.reg.Update(videoID, kind, func(j *model.Job) error {
				j.LastPolledAt = now
				return nil
			})
			if !ok {
				return
			}
			p.emit(Event{Job: job})
			timer.Reset(p.cfg.PollInterval)
		case VerdictCompleted:
			if softComplete {
				if err := p.prober.ForceComplete(videoID); err != nil {
					p.logger.Warn("force-complete after soft completion failed", "video_id", videoID, "err", err)
				}
			}
			p.finish(videoID, kind, now, model.StatusCompleted, completionReason(softComplete), "", softComplete)
			return
		case VerdictFailed:
			p.finish(videoID, kind, now, model.StatusFailed, "backend_reported_failure", "processing failed; reset the video and retry", false)
			return
		}
	}
}

func completionReason(softComplete bool) string {
	if softComplete {
		return "artifacts_present_before_status"
	}
	return ""
}

// finishByProbe resolves a timed-out job with the completion probe. The probe
// always yields a terminal verdict and polling never resumes afterward.
func (p *Poller) finishByProbe(videoID int64, kind model.Kind) {
	job, ok := p.reg.Get(videoID, kind)
	if !ok {
		return
	}
	res := resolveByProbe(p.prober, job, p.logger)
	artifacts := res.status == model.StatusCompleted
	p.finish(videoID, kind, time.Now().UTC(), res.status, "poll_timeout", res.message, artifacts)
}

func (p *Poller) finish(videoID int64, kind model.Kind, polledAt time.Time, status, reason, message string, artifactsPresent bool) {
	job, ok, err := p.reg.Update(videoID, kind, func(j *model.Job) error {
		j.LastPolledAt = polledAt
		if artifactsPresent {
			j.ArtifactsPresent = true
		}
		if err := model.TransitionJobStatus(j, status, reason); err != nil {
			return err
		}
		j.Message = message
		return nil
	})
	if !ok {
		// Cancelled while the final response was in flight; drop it.
		return
	}
	if err != nil {
		p.logger.Warn("terminal transition rejected", "video_id", videoID, "kind", kind, "err", err)
		p.reg.Unregister(videoID, kind)
		return
	}
	p.reg.Unregister(videoID, kind)
	p.emit(Event{Job: job, Terminal: true})
}
