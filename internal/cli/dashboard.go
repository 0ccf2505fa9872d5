package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"baduanjin-watch/internal/model"
	"baduanjin-watch/internal/poller"
	"baduanjin-watch/internal/registry"
)

const dashboardRefresh = 700 * time.Millisecond

// watchDashboard is the live terminal view while jobs are polled: a header
// with counts, one line per active job, and a short ring of recent terminal
// events.
type watchDashboard struct {
	reg *registry.Registry

	completed int
	failed    int
	events    []string
}

func newWatchDashboard(reg *registry.Registry) *watchDashboard {
	return &watchDashboard{
		reg:    reg,
		events: make([]string, 0, 8),
	}
}

func (d *watchDashboard) recordTerminal(job model.Job) {
	if job.Status == model.StatusFailed {
		d.failed++
	} else {
		d.completed++
	}
	line := fmt.Sprintf("%s video %d %s: %s", time.Now().Format("15:04:05"), job.VideoID, job.Kind, job.Status)
	if strings.TrimSpace(job.Message) != "" {
		line += " (" + job.Message + ")"
	}
	d.events = append([]string{line}, d.events...)
	if len(d.events) > 8 {
		d.events = d.events[:8]
	}
}

func (d *watchDashboard) render() {
	jobs := d.reg.Snapshot()

	var b strings.Builder
	b.WriteString("\033[H\033[2J")
	b.WriteString(fmt.Sprintf("baduanjin-watch | active %d | completed %d | failed %d\n",
		len(jobs), d.completed, d.failed))
	b.WriteString(strings.Repeat("-", 100) + "\n")

	if len(jobs) == 0 {
		b.WriteString("(no active jobs)\n")
	} else {
		for _, j := range jobs {
			last := "waiting for first check"
			if !j.LastPolledAt.IsZero() {
				last = "last check " + formatElapsed(j.LastPolledAt) + " ago"
			}
			b.WriteString(fmt.Sprintf("video %-6d %-16s %-9s elapsed %-8s %s\n",
				j.VideoID, j.Kind, j.Status, formatElapsed(j.StartedAt), last))
		}
	}

	if len(d.events) > 0 {
		b.WriteString(strings.Repeat("-", 100) + "\n")
		for _, e := range d.events {
			b.WriteString(e + "\n")
		}
	}
	b.WriteString("\npress ctrl+c to stop watching (jobs keep running on the backend)\n")

	fmt.Print(b.String())
}

// followDashboard drives the live view until every job resolves or the user
// interrupts. It returns the terminal jobs seen and whether a signal cut the
// run short.
func followDashboard(reg *registry.Registry, events <-chan poller.Event, sigs <-chan os.Signal, done <-chan struct{}) (finished []model.Job, interrupted bool) {
	dash := newWatchDashboard(reg)
	ticker := time.NewTicker(dashboardRefresh)
	defer ticker.Stop()

	dash.render()
	for {
		select {
		case <-sigs:
			return finished, true
		case ev := <-events:
			if ev.Terminal {
				dash.recordTerminal(ev.Job)
				finished = append(finished, ev.Job)
			}
		case <-ticker.C:
			dash.render()
		case <-done:
			for _, job := range drainTerminal(events) {
				dash.recordTerminal(job)
				finished = append(finished, job)
			}
			dash.render()
			return finished, false
		}
	}
}
