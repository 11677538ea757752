package model

import (
	"errors"
	"testing"
)

func TestAnswerPayloadIsEmpty(t *testing.T) {
	testCases := []struct {
		name    string
		payload AnswerPayload
		want    bool
	}{
		{"blank essay", AnswerPayload{Kind: PartFreeText, Text: " \n\t"}, true},
		{"essay", AnswerPayload{Kind: PartFreeText, Text: "Hello"}, false},
		{"no choice", AnswerPayload{Kind: PartSingleChoice}, true},
		{"choices", AnswerPayload{Kind: PartMultiChoice, Choices: []string{"A"}}, false},
		{"blank fields", AnswerPayload{Kind: PartFieldList, Fields: []string{"", "  "}}, true},
		{"one field", AnswerPayload{Kind: PartFieldList, Fields: []string{"", "x"}}, false},
		{"empty mapping", AnswerPayload{Kind: PartLabelMapping, Mapping: map[string]string{}}, true},
		{"zero-length audio", AnswerPayload{Kind: PartCueCardSpeech, Audio: &AudioRef{Offset: 10}}, true},
		{"audio", AnswerPayload{Kind: PartCueCardSpeech, Audio: &AudioRef{Length: 3}}, false},
		{"transcript only", AnswerPayload{Kind: PartCueCardSpeech, Transcript: "hi"}, false},
		{"unknown kind", AnswerPayload{Kind: "essay", Text: "x"}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.payload.IsEmpty(); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestAnswerPayloadValidate(t *testing.T) {
	testCases := []struct {
		name    string
		payload AnswerPayload
		kind    PartType
		wantErr bool
	}{
		{"matching text", AnswerPayload{Text: "essay"}, PartFreeText, false},
		{"kind mismatch", AnswerPayload{Kind: PartFreeText, Text: "essay"}, PartSingleChoice, true},
		{"choice on essay", AnswerPayload{Text: "essay", Choice: "A"}, PartFreeText, true},
		{"fields on mapping", AnswerPayload{Fields: []string{"x"}}, PartLabelMapping, true},
		{"audio on speech", AnswerPayload{Audio: &AudioRef{Length: 1}}, PartCueCardSpeech, false},
		{"unknown type", AnswerPayload{}, "essay", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.payload.Validate(tc.kind)
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error=%v, got %v", tc.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrPayloadKind) {
				t.Errorf("expected ErrPayloadKind, got %v", err)
			}
		})
	}
}

func TestAnswerPayloadCloneIsDeep(t *testing.T) {
	orig := AnswerPayload{
		Kind:    PartLabelMapping,
		Choices: []string{"A"},
		Fields:  []string{"f"},
		Mapping: map[string]string{"k": "v"},
		Audio:   &AudioRef{Offset: 1, Length: 2},
	}
	c := orig.Clone()
	c.Choices[0] = "B"
	c.Fields[0] = "g"
	c.Mapping["k"] = "w"
	c.Audio.Length = 9

	if orig.Choices[0] != "A" || orig.Fields[0] != "f" || orig.Mapping["k"] != "v" || orig.Audio.Length != 2 {
		t.Errorf("clone shares state with the original: %+v", orig)
	}
}

func TestResponseText(t *testing.T) {
	fields := AnswerPayload{Kind: PartFieldList, Fields: []string{"north", "1850"}}
	if got := fields.ResponseText(); got != "1. north\n2. 1850" {
		t.Errorf("unexpected field list text %q", got)
	}
	mapping := AnswerPayload{Kind: PartLabelMapping, Mapping: map[string]string{"b": "2", "a": "1"}}
	if got := mapping.ResponseText(); got != "a -> 1\nb -> 2" {
		t.Errorf("unexpected mapping text %q", got)
	}
}

func TestTestDefaults(t *testing.T) {
	speaking := Test{Modality: ModalitySpeaking, Parts: []Part{{OrderInTest: 2, Title: "b"}, {OrderInTest: 1, Title: "a"}}}
	if speaking.EffectiveTimingMode() != TimingPerPart || !speaking.NeedsRecording() {
		t.Errorf("speaking tests default to per-part timing with recording")
	}
	if parts := speaking.OrderedParts(); parts[0].Title != "a" || speaking.Parts[0].Title != "b" {
		t.Errorf("OrderedParts should sort a copy, got %+v", parts)
	}

	mixed := Test{Modality: ModalityWriting, Parts: []Part{{Type: PartCueCardSpeech}}}
	if mixed.EffectiveTimingMode() != TimingGlobal || !mixed.NeedsRecording() {
		t.Errorf("a spoken part needs recording under global timing")
	}
}
