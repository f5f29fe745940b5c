package queue

import "time"

// Kind identifies what a queue record carries.
type Kind string

const (
	KindSessionStop Kind = "session_stop"
	KindPRCreated   Kind = "pr_created"
)

// Status is the lifecycle state of a queue record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// Record is one line of the durable queue file. Payload fields are
// flattened, not nested; which fields are populated depends on Kind.
type Record struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Timestamp  time.Time `json:"timestamp"`
	Status     Status    `json:"status"`
	RetryCount int       `json:"retry_count"`
	Error      string    `json:"error,omitempty"`

	// session_stop payload
	SessionID      string `json:"session_id,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	Cwd            string `json:"cwd,omitempty"`

	// pr_created payload (Cwd and SessionID shared with session_stop above)
	PRURL string `json:"pr_url,omitempty"`
}

// NewSessionStopRecord builds an unsaved session_stop record. Append() assigns
// id/timestamp/status.
func NewSessionStopRecord(sessionID, transcriptPath, cwd string) Record {
	return Record{
		Kind:           KindSessionStop,
		SessionID:      sessionID,
		TranscriptPath: transcriptPath,
		Cwd:            cwd,
	}
}

// NewPRCreatedRecord builds an unsaved pr_created record. Append() assigns
// id/timestamp/status.
func NewPRCreatedRecord(sessionID, prURL, cwd string) Record {
	return Record{
		Kind:      KindPRCreated,
		SessionID: sessionID,
		PRURL:     prURL,
		Cwd:       cwd,
	}
}
