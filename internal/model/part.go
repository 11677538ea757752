package model

import (
	"time"

	"gorm.io/gorm"
)

type PartType string

const (
	PartFreeText      PartType = "free_text"
	PartSingleChoice  PartType = "single_choice"
	PartMultiChoice   PartType = "multi_choice"
	PartFieldList     PartType = "field_list"
	PartLabelMapping  PartType = "label_mapping"
	PartCueCardSpeech PartType = "cue_card_speech"
)

func (t PartType) Valid() bool {
	switch t {
	case PartFreeText, PartSingleChoice, PartMultiChoice, PartFieldList, PartLabelMapping, PartCueCardSpeech:
		return true
	}
	return false
}

type Part struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	TestID             uint           `json:"test_id" gorm:"not null;index"`
	Title              string         `json:"title" gorm:"not null"`
	Prompt             string         `json:"prompt" gorm:"type:text;not null"`
	Instructions       string         `json:"instructions,omitempty" gorm:"type:text"`
	Type               PartType       `json:"type" gorm:"not null"`
	OrderInTest        int            `json:"order_in_test" gorm:"not null"`
	DurationSeconds    int            `json:"duration_seconds"`
	PreparationSeconds int            `json:"preparation_seconds,omitempty"`
	MaxScore           float64        `json:"max_score,omitempty"`
	ImageURL           *string        `json:"image_url,omitempty"`
	Options            []string       `json:"options,omitempty" gorm:"serializer:json"`
	AnswerKey          *AnswerPayload `json:"answer_key,omitempty" gorm:"serializer:json"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Part) Duration() time.Duration {
	return time.Duration(p.DurationSeconds) * time.Second
}

func (p *Part) Preparation() time.Duration {
	return time.Duration(p.PreparationSeconds) * time.Second
}

// Objective reports whether the part is graded against its answer key instead of by an evaluator.
func (p *Part) Objective() bool {
	return p.AnswerKey != nil && p.Type != PartFreeText && p.Type != PartCueCardSpeech
}
