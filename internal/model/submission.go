package model

import (
	"time"
)

type SubmissionStatus string

const (
	SubmissionPending             SubmissionStatus = "pending"
	SubmissionScoring             SubmissionStatus = "scoring"
	SubmissionCompleted           SubmissionStatus = "completed"
	SubmissionCompletedWithErrors SubmissionStatus = "completed_with_errors"
)

// Submission is the immutable record of one session's answers. Only the status and
// aggregate columns change after creation.
type Submission struct {
	ID                   string             `gorm:"type:uuid;primaryKey" json:"id"`
	IdempotencyKey       string             `gorm:"not null;uniqueIndex" json:"-"` // session id
	SessionID            string             `gorm:"not null;index" json:"session_id"`
	TestID               uint               `gorm:"not null;index" json:"test_id"`
	Test                 Test               `gorm:"foreignKey:TestID" json:"test,omitempty"`
	UserID               string             `gorm:"not null;index" json:"user_id"`
	SubmittedAt          time.Time          `json:"submitted_at"`
	Reason               string             `json:"reason"` // manual, global_expiry, part_expiry, last_part
	Status               SubmissionStatus   `gorm:"not null;default:'pending'" json:"status"`
	RecordingURL         *string            `json:"recording_url,omitempty"`
	RecordingKey         string             `json:"-"`
	RecordingChecksum    string             `json:"recording_checksum,omitempty"`
	Answers              []SubmissionAnswer `gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"answers,omitempty"`
	Units                []EvaluationUnit   `gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"units,omitempty"`
	AggregateScore       *float64           `json:"aggregate_score,omitempty"`
	AggregateBand        *float64           `json:"aggregate_band,omitempty"`
	AggregatePartial     bool               `json:"aggregate_partial"`
	AggregateFingerprint string             `json:"-"`
	AggregatedAt         *time.Time         `json:"aggregated_at,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

type SubmissionAnswer struct {
	ID           uint          `gorm:"primarykey" json:"id"`
	SubmissionID string        `gorm:"type:uuid;not null;index" json:"submission_id"`
	PartID       uint          `gorm:"not null" json:"part_id"`
	Position     int           `json:"position"`
	PartType     PartType      `json:"part_type"`
	Payload      AnswerPayload `gorm:"serializer:json;type:jsonb" json:"payload"`
	Empty        bool          `json:"empty"`
	Prompt       string        `gorm:"type:text" json:"prompt"`
	Instructions string        `gorm:"type:text" json:"instructions,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
