package service

import (
	"fmt"
	"math"

	"github.com/lshigami/examflow/internal/model"
)

// MaxBand is the top of the band scale.
const MaxBand float64 = 9.0

// RawScale is the raw score range the reading/listening table is defined on.
const RawScale float64 = 40.0

type ScoreConverterService interface {
	// ConvertToBand maps an aggregate score onto the band scale. Tests without a band
	// conversion return nil.
	ConvertToBand(test *model.Test, score float64) (*float64, error)
}

type scoreConverterServiceImpl struct{}

func NewScoreConverterService() ScoreConverterService {
	return &scoreConverterServiceImpl{}
}

func (s *scoreConverterServiceImpl) ConvertToBand(test *model.Test, score float64) (*float64, error) {
	if score < 0 {
		return nil, fmt.Errorf("score %.2f is negative", score)
	}

	switch test.Combination {
	case model.CombineAverage:
		band := roundHalfBand(score)
		return &band, nil
	case model.CombineSum:
		if test.Modality != model.ModalityReading && test.Modality != model.ModalityListening {
			return nil, nil
		}
		total := maxTotal(test)
		if total <= 0 {
			return nil, fmt.Errorf("test %d has no scorable parts", test.ID)
		}
		if score > total {
			return nil, fmt.Errorf("raw score %.2f is out of valid range (0-%.2f)", score, total)
		}
		band := rawToBand(math.Round(score / total * RawScale))
		return &band, nil
	}
	return nil, nil
}

// roundHalfBand rounds to the nearest half band; quarter scores round up.
func roundHalfBand(score float64) float64 {
	band := math.Round(score*2) / 2
	if band > MaxBand {
		band = MaxBand
	}
	return band
}

// rawToBand converts a correct-answer count out of 40.
func rawToBand(raw float64) float64 {
	switch {
	case raw >= 39:
		return 9.0
	case raw >= 37:
		return 8.5
	case raw >= 35:
		return 8.0
	case raw >= 33:
		return 7.5
	case raw >= 30:
		return 7.0
	case raw >= 27:
		return 6.5
	case raw >= 23:
		return 6.0
	case raw >= 19:
		return 5.5
	case raw >= 15:
		return 5.0
	case raw >= 13:
		return 4.5
	case raw >= 10:
		return 4.0
	case raw >= 8:
		return 3.5
	case raw >= 6:
		return 3.0
	case raw >= 4:
		return 2.5
	case raw >= 2:
		return 2.0
	case raw >= 1:
		return 1.0
	}
	return 0
}

func maxTotal(test *model.Test) float64 {
	total := 0.0
	for i := range test.Parts {
		total += partMaxScore(&test.Parts[i])
	}
	return total
}

// partMaxScore falls back to one point for parts without a configured maximum.
func partMaxScore(p *model.Part) float64 {
	if p.MaxScore > 0 {
		return p.MaxScore
	}
	return 1.0
}
