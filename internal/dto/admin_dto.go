package dto

// AnswerKeyDTO is the expected answer of an objective part.
type AnswerKeyDTO struct {
	Choice  string            `json:"choice,omitempty"`
	Choices []string          `json:"choices,omitempty"`
	Fields  []string          `json:"fields,omitempty"`
	Mapping map[string]string `json:"mapping,omitempty"`
}

// PartCreateDTO is used within TestCreateDTO for admin test creation.
type PartCreateDTO struct {
	Title              string        `json:"title" binding:"required"`
	Prompt             string        `json:"prompt" binding:"required"`
	Instructions       string        `json:"instructions,omitempty"`
	Type               string        `json:"type" binding:"required,oneof=free_text single_choice multi_choice field_list label_mapping cue_card_speech"`
	OrderInTest        int           `json:"order_in_test" binding:"required,min=1"`
	DurationSeconds    int           `json:"duration_seconds" binding:"min=0"`
	PreparationSeconds int           `json:"preparation_seconds" binding:"min=0"`
	MaxScore           float64       `json:"max_score" binding:"required,gt=0"`
	ImageURL           *string       `json:"image_url"`
	Options            []string      `json:"options,omitempty"`
	AnswerKey          *AnswerKeyDTO `json:"answer_key,omitempty"`
}

// TestCreateDTO is for admin to create a new test with all its parts.
type TestCreateDTO struct {
	Title            string          `json:"title" binding:"required"`
	Description      string          `json:"description,omitempty"`
	Modality         string          `json:"modality" binding:"required,oneof=writing speaking reading listening"`
	TimingMode       string          `json:"timing_mode" binding:"omitempty,oneof=global per_part"`
	DurationSeconds  int             `json:"duration_seconds" binding:"min=0"`
	Combination      string          `json:"combination" binding:"omitempty,oneof=sum average"`
	FailedUnitPolicy string          `json:"failed_unit_policy" binding:"omitempty,oneof=exclude zero partial"`
	Parts            []PartCreateDTO `json:"parts" binding:"required,min=1,dive"`
}
