package dto

import "github.com/lshigami/examflow/internal/model"

type SessionCreateDTO struct {
	TestID uint `json:"test_id" binding:"required"`
}

// AnswerDTO carries one part's answer. Only the fields for the part's type may be set.
type AnswerDTO struct {
	Text       string            `json:"text,omitempty"`
	Choice     string            `json:"choice,omitempty"`
	Choices    []string          `json:"choices,omitempty"`
	Fields     []string          `json:"fields,omitempty"`
	Mapping    map[string]string `json:"mapping,omitempty"`
	Transcript string            `json:"transcript,omitempty"`
}

func (a AnswerDTO) Payload() model.AnswerPayload {
	return model.AnswerPayload{
		Text:       a.Text,
		Choice:     a.Choice,
		Choices:    a.Choices,
		Fields:     a.Fields,
		Mapping:    a.Mapping,
		Transcript: a.Transcript,
	}
}

type NavigateDTO struct {
	Index *int `json:"index" binding:"required,min=0"`
}
