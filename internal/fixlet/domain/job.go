package domain

import "encoding/json"

// JobStatus is the status string pushed by the control plane over the
// progress channel.
type JobStatus string

const (
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusError      JobStatus = "ERROR"
)

// UploadTicket is the one-time upload destination handed out by the control
// plane. Consumed exactly once by the uploader; never persisted.
type UploadTicket struct {
	ObjKey string
	URL    string
}

// RepairJob identifies a submitted repair job. JobID is the sole handle used
// by the progress subscription.
type RepairJob struct {
	JobID   string
	ObjKey  string
	Method  string
	IsAsync bool
}

// Artifact is a retrievable URL for a produced file.
type Artifact struct {
	URL string `json:"url"`
}

// ProgressEvent is one frame from the push channel. Only a terminal frame
// (COMPLETED or ERROR) carries an authoritative Result.
type ProgressEvent struct {
	Status   JobStatus  `json:"status"`
	Progress *float64   `json:"progress"`
	Result   []Artifact `json:"result,omitempty"`

	// Raw preserves the frame as received, for the success payload and for
	// error diagnostics.
	Raw json.RawMessage `json:"-"`
}

// IsTerminal reports whether the event ends the subscription.
func (e *ProgressEvent) IsTerminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusError
}

// ArtifactURLs collects the result URLs in order.
func (e *ProgressEvent) ArtifactURLs() []string {
	urls := make([]string, 0, len(e.Result))
	for _, a := range e.Result {
		urls = append(urls, a.URL)
	}
	return urls
}
