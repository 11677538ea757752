// Package events carries submission lifecycle events over RabbitMQ.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeSubmissionCreated EventType = "submission.created"
	EventTypeSubmissionScored  EventType = "submission.scored"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

type SubmissionEvent struct {
	BaseEvent
	SubmissionID string   `json:"submissionId"`
	SessionID    string   `json:"sessionId,omitempty"`
	TestID       uint     `json:"testId"`
	UserID       string   `json:"userId"`
	Score        *float64 `json:"score,omitempty"`
	Band         *float64 `json:"band,omitempty"`
	Partial      bool     `json:"partial,omitempty"`
	FailedUnits  int      `json:"failedUnits,omitempty"`
}

func NewSubmissionCreatedEvent(submissionID, sessionID string, testID uint, userID string) *SubmissionEvent {
	return &SubmissionEvent{
		BaseEvent:    newBase(EventTypeSubmissionCreated),
		SubmissionID: submissionID,
		SessionID:    sessionID,
		TestID:       testID,
		UserID:       userID,
	}
}

func NewSubmissionScoredEvent(submissionID string, testID uint, userID string, score, band *float64, partial bool, failed int) *SubmissionEvent {
	return &SubmissionEvent{
		BaseEvent:    newBase(EventTypeSubmissionScored),
		SubmissionID: submissionID,
		TestID:       testID,
		UserID:       userID,
		Score:        score,
		Band:         band,
		Partial:      partial,
		FailedUnits:  failed,
	}
}

func newBase(t EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().Unix(),
		Version:   "1.0",
	}
}
