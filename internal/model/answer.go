package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrPayloadKind = errors.New("answer payload does not match part type")

// AudioRef points into the session recording.
type AudioRef struct {
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Offset      int    `json:"offset"`
	Length      int    `json:"length"`
	StartMillis int64  `json:"start_ms"`
}

// AnswerPayload is the answer to one part. Only the fields for Kind are meaningful.
type AnswerPayload struct {
	Kind       PartType          `json:"kind"`
	Text       string            `json:"text,omitempty"`    // free_text
	Choice     string            `json:"choice,omitempty"`  // single_choice
	Choices    []string          `json:"choices,omitempty"` // multi_choice
	Fields     []string          `json:"fields,omitempty"`  // field_list, ordered
	Mapping    map[string]string `json:"mapping,omitempty"` // label_mapping
	Audio      *AudioRef         `json:"audio,omitempty"`   // cue_card_speech
	Transcript string            `json:"transcript,omitempty"`
}

// EmptyPayload is the explicit "no answer" for a part type.
func EmptyPayload(kind PartType) AnswerPayload {
	return AnswerPayload{Kind: kind}
}

func (p AnswerPayload) IsEmpty() bool {
	switch p.Kind {
	case PartFreeText:
		return strings.TrimSpace(p.Text) == ""
	case PartSingleChoice:
		return p.Choice == ""
	case PartMultiChoice:
		return len(p.Choices) == 0
	case PartFieldList:
		for _, f := range p.Fields {
			if strings.TrimSpace(f) != "" {
				return false
			}
		}
		return true
	case PartLabelMapping:
		return len(p.Mapping) == 0
	case PartCueCardSpeech:
		return (p.Audio == nil || p.Audio.Length == 0) && strings.TrimSpace(p.Transcript) == ""
	}
	return true
}

// Validate checks that the payload only carries fields belonging to kind. An unset Kind is
// treated as kind.
func (p AnswerPayload) Validate(kind PartType) error {
	if p.Kind != "" && p.Kind != kind {
		return fmt.Errorf("%w: got %s, want %s", ErrPayloadKind, p.Kind, kind)
	}
	foreign := false
	switch kind {
	case PartFreeText:
		foreign = p.Choice != "" || len(p.Choices) > 0 || len(p.Fields) > 0 || len(p.Mapping) > 0 || p.Audio != nil
	case PartSingleChoice:
		foreign = p.Text != "" || len(p.Choices) > 0 || len(p.Fields) > 0 || len(p.Mapping) > 0 || p.Audio != nil
	case PartMultiChoice:
		foreign = p.Text != "" || p.Choice != "" || len(p.Fields) > 0 || len(p.Mapping) > 0 || p.Audio != nil
	case PartFieldList:
		foreign = p.Text != "" || p.Choice != "" || len(p.Choices) > 0 || len(p.Mapping) > 0 || p.Audio != nil
	case PartLabelMapping:
		foreign = p.Text != "" || p.Choice != "" || len(p.Choices) > 0 || len(p.Fields) > 0 || p.Audio != nil
	case PartCueCardSpeech:
		foreign = p.Text != "" || p.Choice != "" || len(p.Choices) > 0 || len(p.Fields) > 0 || len(p.Mapping) > 0
	default:
		return fmt.Errorf("%w: unknown part type %q", ErrPayloadKind, kind)
	}
	if foreign {
		return fmt.Errorf("%w: fields outside %s", ErrPayloadKind, kind)
	}
	return nil
}

// Clone returns a deep copy.
func (p AnswerPayload) Clone() AnswerPayload {
	out := p
	if p.Choices != nil {
		out.Choices = append([]string(nil), p.Choices...)
	}
	if p.Fields != nil {
		out.Fields = append([]string(nil), p.Fields...)
	}
	if p.Mapping != nil {
		out.Mapping = make(map[string]string, len(p.Mapping))
		for k, v := range p.Mapping {
			out.Mapping[k] = v
		}
	}
	if p.Audio != nil {
		a := *p.Audio
		out.Audio = &a
	}
	return out
}

// ResponseText renders the payload as plain text for an evaluator prompt.
func (p AnswerPayload) ResponseText() string {
	switch p.Kind {
	case PartFreeText:
		return p.Text
	case PartSingleChoice:
		return p.Choice
	case PartMultiChoice:
		return strings.Join(p.Choices, ", ")
	case PartFieldList:
		var b strings.Builder
		for i, f := range p.Fields {
			fmt.Fprintf(&b, "%d. %s\n", i+1, f)
		}
		return strings.TrimRight(b.String(), "\n")
	case PartLabelMapping:
		keys := make([]string, 0, len(p.Mapping))
		for k := range p.Mapping {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, len(keys))
		for i, k := range keys {
			lines[i] = k + " -> " + p.Mapping[k]
		}
		return strings.Join(lines, "\n")
	case PartCueCardSpeech:
		return p.Transcript
	}
	return ""
}
