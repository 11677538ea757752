package service

import (
	"testing"

	"github.com/lshigami/examflow/internal/model"
)

func TestConvertToBand(t *testing.T) {
	reading := &model.Test{Modality: model.ModalityReading, Combination: model.CombineSum}
	for i := 0; i < 40; i++ {
		reading.Parts = append(reading.Parts, model.Part{MaxScore: 1})
	}
	halfWeight := &model.Test{Modality: model.ModalityListening, Combination: model.CombineSum,
		Parts: []model.Part{{MaxScore: 10}, {MaxScore: 10}}}
	writing := &model.Test{Modality: model.ModalityWriting, Combination: model.CombineAverage}
	writingSum := &model.Test{Modality: model.ModalityWriting, Combination: model.CombineSum}

	testCases := []struct {
		name     string
		test     *model.Test
		score    float64
		wantBand *float64
		wantErr  bool
	}{
		{name: "full reading marks", test: reading, score: 40, wantBand: ptr(9.0)},
		{name: "reading 30 of 40", test: reading, score: 30, wantBand: ptr(7.0)},
		{name: "reading 23 of 40", test: reading, score: 23, wantBand: ptr(6.0)},
		{name: "reading zero", test: reading, score: 0, wantBand: ptr(0.0)},
		{name: "scaled to 40", test: halfWeight, score: 15, wantBand: ptr(7.0)},
		{name: "reading above maximum", test: reading, score: 41, wantErr: true},
		{name: "negative", test: reading, score: -1, wantErr: true},
		{name: "average rounds to half band", test: writing, score: 6.3, wantBand: ptr(6.5)},
		{name: "average rounds down", test: writing, score: 6.2, wantBand: ptr(6.0)},
		{name: "average capped at nine", test: writing, score: 9.4, wantBand: ptr(9.0)},
		{name: "sum without band scale", test: writingSum, score: 12, wantBand: nil},
	}

	converter := NewScoreConverterService()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			band, err := converter.ConvertToBand(tc.test, tc.score)
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error=%v, got %v", tc.wantErr, err)
			}
			if tc.wantErr {
				return
			}
			switch {
			case tc.wantBand == nil && band != nil:
				t.Errorf("expected no band, got %v", *band)
			case tc.wantBand != nil && (band == nil || *band != *tc.wantBand):
				t.Errorf("expected band %v, got %v", *tc.wantBand, band)
			}
		})
	}
}

func ptr(v float64) *float64 { return &v }
