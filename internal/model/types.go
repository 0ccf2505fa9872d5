package model

import "time"

// Kind identifies which asynchronous backend operation a job tracks.
type Kind string

const (
	KindAnalysis        Kind = "analysis"
	KindAudioConversion Kind = "audio_conversion"
	KindWebConversion   Kind = "web_conversion"
)

func IsKnownKind(kind Kind) bool {
	switch kind {
	case KindAnalysis, KindAudioConversion, KindWebConversion:
		return true
	default:
		return false
	}
}

// Job is one tracked asynchronous backend operation for a video.
type Job struct {
	JobID            string        `json:"job_id"`
	VideoID          int64         `json:"video_id"`
	Kind             Kind          `json:"kind"`
	Status           string        `json:"status"`
	Reason           string        `json:"reason,omitempty"`
	Message          string        `json:"message,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	LastPolledAt     time.Time     `json:"last_polled_at"`
	PollInterval     time.Duration `json:"poll_interval_ns"`
	Timeout          time.Duration `json:"timeout_ns"`
	ArtifactsPresent bool          `json:"artifacts_present,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Video mirrors the backend's video resource record. Only the fields the
// watcher reads are mapped; the backend carries more.
type Video struct {
	ID                int64  `json:"id"`
	UserID            int64  `json:"user_id"`
	Title             string `json:"title"`
	BrocadeType       string `json:"brocade_type,omitempty"`
	ProcessingStatus  string `json:"processing_status"`
	AnalyzedVideoPath string `json:"analyzed_video_path,omitempty"`
	KeypointsPath     string `json:"keypoints_path,omitempty"`
	VideoPath         string `json:"video_path,omitempty"`
	UploadTimestamp   string `json:"upload_timestamp,omitempty"`
}
