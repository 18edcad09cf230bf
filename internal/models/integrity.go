package models

import "time"

// IntegrityEventKind names an observed exam-integrity signal.
type IntegrityEventKind string

const (
	IntegrityTabHidden      IntegrityEventKind = "tab_hidden"
	IntegrityReloadDetected IntegrityEventKind = "reload_detected"
	IntegrityFullscreenExit IntegrityEventKind = "fullscreen_exit"
)

// IntegrityEvent is append-only and never deleted during a session.
type IntegrityEvent struct {
	ID         string             `json:"id"`
	Kind       IntegrityEventKind `json:"kind"`
	Stage      Stage              `json:"stage,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// ReviewFlag marks a session for recruiter review.
type ReviewFlag struct {
	SessionID string           `json:"sessionId"`
	JobID     int64            `json:"jobId"`
	Reason    string           `json:"reason"`
	Events    []IntegrityEvent `json:"events"`
	RaisedAt  time.Time        `json:"raisedAt"`
}
