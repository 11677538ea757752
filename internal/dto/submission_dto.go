package dto

import (
	"time"

	"github.com/lshigami/examflow/internal/model"
)

// SubmissionAnswerDTO is one part's answer inside a submission.
type SubmissionAnswerDTO struct {
	PartID   uint                `json:"part_id"`
	Position int                 `json:"position"`
	PartType string              `json:"part_type"`
	Prompt   string              `json:"prompt"`
	Payload  model.AnswerPayload `json:"payload"`
	Empty    bool                `json:"empty"`
}

// EvaluationUnitDTO is the scoring state of one part.
type EvaluationUnitDTO struct {
	PartID      uint                      `json:"part_id"`
	Status      string                    `json:"status"`
	Attempts    int                       `json:"attempts"`
	Evaluator   string                    `json:"evaluator,omitempty"`
	SubScore    *float64                  `json:"sub_score,omitempty"`
	Feedback    string                    `json:"feedback,omitempty"`
	Criteria    []model.CriterionFeedback `json:"criteria,omitempty"`
	LastError   *string                   `json:"last_error,omitempty"`
	CompletedAt *time.Time                `json:"completed_at,omitempty"`
}

// SubmissionDetailDTO is for displaying the full details of a submission.
type SubmissionDetailDTO struct {
	ID               string                `json:"id"`
	SessionID        string                `json:"session_id"`
	TestID           uint                  `json:"test_id"`
	TestTitle        string                `json:"test_title,omitempty"`
	UserID           string                `json:"user_id"`
	SubmittedAt      time.Time             `json:"submitted_at"`
	Reason           string                `json:"reason"`
	Status           string                `json:"status"`
	RecordingURL     *string               `json:"recording_url,omitempty"`
	PlaybackURL      string                `json:"playback_url,omitempty"`
	AggregateScore   *float64              `json:"aggregate_score,omitempty"`
	AggregateBand    *float64              `json:"aggregate_band,omitempty"`
	AggregatePartial bool                  `json:"aggregate_partial"`
	AggregatedAt     *time.Time            `json:"aggregated_at,omitempty"`
	Answers          []SubmissionAnswerDTO `json:"answers,omitempty"`
	Units            []EvaluationUnitDTO   `json:"units,omitempty"`
}

// SubmissionSummaryDTO is for listing a candidate's submissions for a test.
type SubmissionSummaryDTO struct {
	ID             string    `json:"id"`
	TestID         uint      `json:"test_id"`
	UserID         string    `json:"user_id"`
	SubmittedAt    time.Time `json:"submitted_at"`
	Status         string    `json:"status"`
	AggregateScore *float64  `json:"aggregate_score,omitempty"`
	AggregateBand  *float64  `json:"aggregate_band,omitempty"`
}

// EvaluationReportDTO is returned by the re-evaluate endpoint.
type EvaluationReportDTO struct {
	SubmissionID string              `json:"submission_id"`
	Units        []EvaluationUnitDTO `json:"units"`
	Aggregated   bool                `json:"aggregated"`
	Score        *float64            `json:"score,omitempty"`
	Band         *float64            `json:"band,omitempty"`
	Partial      bool                `json:"partial"`
}
