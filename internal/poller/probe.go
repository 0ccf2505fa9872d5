package poller

import (
	"log/slog"

	"baduanjin-watch/internal/model"
)

const (
	msgTimedOutMaybeRunning = "timed out waiting for analysis; it may still be running in the background"
	msgConversionTimedOut   = "timed out waiting for conversion; it may still be running in the background"
	msgUnableToVerify       = "unable to verify completion; it may still be processing"
)

// CompletionProber is the slice of the backend the timeout fallback needs.
type CompletionProber interface {
	CheckCompletion(videoID int64) (bool, error)
	ForceComplete(videoID int64) error
}

// probeResult always carries a terminal status; the prober never leaves a job
// running once the timeout path is entered.
type probeResult struct {
	status  string
	message string
}

// resolveByProbe is the last-resort check after the poll budget is spent. For
// analysis jobs it asks the backend whether result artifacts exist and, when
// they do, forces the stored status to completed. Conversion kinds have no
// artifact probe endpoint, so a timeout is reported as an ambiguous failure.
func resolveByProbe(prober CompletionProber, job model.Job, logger *slog.Logger) probeResult {
	if job.Kind != model.KindAnalysis {
		return probeResult{status: model.StatusFailed, message: msgConversionTimedOut}
	}

	completed, err := prober.CheckCompletion(job.VideoID)
	if err != nil {
		logger.Warn("completion probe failed", "video_id", job.VideoID, "err", err)
		return probeResult{status: model.StatusFailed, message: msgUnableToVerify}
	}
	if !completed {
		return probeResult{status: model.StatusFailed, message: msgTimedOutMaybeRunning}
	}

	if err := prober.ForceComplete(job.VideoID); err != nil {
		// Artifacts exist, so the job did finish; the status correction can
		// be retried manually via the status command.
		logger.Warn("force-complete after probe failed", "video_id", job.VideoID, "err", err)
	}
	return probeResult{status: model.StatusCompleted, message: "completed (verified from result files after timeout)"}
}
