package models

import "time"

// Stream selects one of the append-only audit tables.
type Stream string

const (
	StreamSecurity Stream = "security"
	StreamSession  Stream = "session"
	StreamActivity Stream = "activity"
)

// ParseStream maps a stream name to a Stream.
func ParseStream(s string) (Stream, bool) {
	switch st := Stream(s); st {
	case StreamSecurity, StreamSession, StreamActivity:
		return st, true
	default:
		return "", false
	}
}

// AuditEvent is one immutable audit record.
type AuditEvent struct {
	ID        int64     `json:"id"`
	Stream    Stream    `json:"stream"`
	Timestamp time.Time `json:"timestamp"`
	// Actor is empty for anonymous events.
	Actor   string `json:"actor,omitempty"`
	Action  string `json:"action"`
	Outcome string `json:"outcome"`
}
