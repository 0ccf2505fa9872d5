package poller

import (
	"strings"

	"baduanjin-watch/internal/model"
)

// Verdict is the reconciler's reading of one status response.
type Verdict int

const (
	// VerdictRunning means the job is still in flight; reschedule.
	VerdictRunning Verdict = iota
	// VerdictCompleted is terminal success.
	VerdictCompleted
	// VerdictFailed is terminal failure.
	VerdictFailed
	// VerdictForeign means the resource belongs to a different user than the
	// session. Polling stops silently; nothing user-visible changes.
	VerdictForeign
)

func (v Verdict) String() string {
	switch v {
	case VerdictRunning:
		return "running"
	case VerdictCompleted:
		return "completed"
	case VerdictFailed:
		return "failed"
	case VerdictForeign:
		return "foreign"
	default:
		return "unknown"
	}
}

// Status is the kind-agnostic shape of a poll response. Analysis polls fill
// the artifact paths and owner from the video record; conversion polls carry
// only ProcessingStatus.
type Status struct {
	ProcessingStatus  string
	AnalyzedVideoPath string
	KeypointsPath     string
	OwnerID           int64
}

const (
	backendStatusCompleted = "completed"
	backendStatusFailed    = "failed"
)

// Reconcile decides the job's next state from a raw status response.
// softComplete is set when an analysis job is judged complete from artifact
// presence while the status flag still lags; the caller must then issue one
// force-complete write to correct the backend.
func Reconcile(kind model.Kind, st Status, sessionUserID int64) (verdict Verdict, softComplete bool) {
	if sessionUserID != 0 && st.OwnerID != 0 && st.OwnerID != sessionUserID {
		return VerdictForeign, false
	}

	status := strings.ToLower(strings.TrimSpace(st.ProcessingStatus))
	switch status {
	case backendStatusCompleted:
		return VerdictCompleted, false
	case backendStatusFailed:
		return VerdictFailed, false
	}

	// Analysis result files can land before the status flag flips. Treat the
	// artifact pair as completion and let the caller correct the backend.
	if kind == model.KindAnalysis &&
		strings.TrimSpace(st.AnalyzedVideoPath) != "" &&
		strings.TrimSpace(st.KeypointsPath) != "" {
		return VerdictCompleted, true
	}

	return VerdictRunning, false
}
