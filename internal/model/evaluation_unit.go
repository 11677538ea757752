package model

import "time"

type UnitStatus string

const (
	UnitPending  UnitStatus = "pending"
	UnitInFlight UnitStatus = "in_flight"
	UnitComplete UnitStatus = "complete"
	UnitFailed   UnitStatus = "failed"
)

func (s UnitStatus) Resolved() bool { return s == UnitComplete || s == UnitFailed }

type CriterionFeedback struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
	Comment   string  `json:"comment,omitempty"`
}

// EvaluationUnit is the scoring record for one (submission, part) pair.
type EvaluationUnit struct {
	ID           uint                `gorm:"primarykey" json:"id"`
	SubmissionID string              `gorm:"type:uuid;not null;uniqueIndex:idx_unit_submission_part" json:"submission_id"`
	PartID       uint                `gorm:"not null;uniqueIndex:idx_unit_submission_part" json:"part_id"`
	Status       UnitStatus          `gorm:"not null;default:'pending';index" json:"status"`
	Attempts     int                 `json:"attempts"`
	Evaluator    string              `json:"evaluator,omitempty"`
	SubScore     *float64            `json:"sub_score,omitempty"`
	Feedback     string              `gorm:"type:text" json:"feedback,omitempty"`
	Criteria     []CriterionFeedback `gorm:"serializer:json" json:"criteria,omitempty"`
	LastError    *string             `gorm:"type:text" json:"last_error,omitempty"`
	ClaimedAt    *time.Time          `json:"claimed_at,omitempty"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// EvaluationResult is what an evaluator returns for one unit.
type EvaluationResult struct {
	SubScore  float64
	Feedback  string
	Criteria  []CriterionFeedback
	Evaluator string
}
