package dto

import "time"

// PartResponseDTO is used for displaying part details to candidates. Answer keys are never exposed.
type PartResponseDTO struct {
	ID                 uint     `json:"id"`
	TestID             uint     `json:"test_id"`
	Title              string   `json:"title"`
	Prompt             string   `json:"prompt"`
	Instructions       string   `json:"instructions,omitempty"`
	Type               string   `json:"type"`
	OrderInTest        int      `json:"order_in_test"`
	DurationSeconds    int      `json:"duration_seconds"`
	PreparationSeconds int      `json:"preparation_seconds,omitempty"`
	MaxScore           float64  `json:"max_score"`
	ImageURL           *string  `json:"image_url,omitempty"`
	Options            []string `json:"options,omitempty"`
}

// TestResponseDTO is used for displaying full test details.
type TestResponseDTO struct {
	ID               uint              `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	Modality         string            `json:"modality"`
	TimingMode       string            `json:"timing_mode"`
	DurationSeconds  int               `json:"duration_seconds"`
	Combination      string            `json:"combination"`
	FailedUnitPolicy string            `json:"failed_unit_policy"`
	Parts            []PartResponseDTO `json:"parts,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// TestSummaryDTO is used for listing tests available to candidates.
type TestSummaryDTO struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Modality    string    `json:"modality"`
	PartCount   int       `json:"part_count"`
	CreatedAt   time.Time `json:"created_at"`
}
