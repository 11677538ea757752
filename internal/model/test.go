package model

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

type Modality string

const (
	ModalityWriting   Modality = "writing"
	ModalitySpeaking  Modality = "speaking"
	ModalityReading   Modality = "reading"
	ModalityListening Modality = "listening"
)

// TimingMode selects between one countdown for the whole test and one per part.
type TimingMode string

const (
	TimingGlobal  TimingMode = "global"
	TimingPerPart TimingMode = "per_part"
)

// Combination is how completed unit sub-scores are combined into the aggregate.
type Combination string

const (
	CombineSum     Combination = "sum"
	CombineAverage Combination = "average"
)

// FailedUnitPolicy decides what a failed evaluation unit contributes to the aggregate.
type FailedUnitPolicy string

const (
	FailedExclude FailedUnitPolicy = "exclude" // leave failed units out
	FailedZero    FailedUnitPolicy = "zero"    // count failed units as 0
	FailedPartial FailedUnitPolicy = "partial" // leave them out and flag the aggregate as partial
)

type Test struct {
	ID               uint             `gorm:"primarykey" json:"id"`
	Title            string           `json:"title" gorm:"not null;uniqueIndex"` // "Speaking Mock 1"
	Description      string           `json:"description,omitempty"`
	Modality         Modality         `json:"modality" gorm:"not null;default:'writing'"`
	TimingMode       TimingMode       `json:"timing_mode" gorm:"not null;default:'global'"`
	DurationSeconds  int              `json:"duration_seconds"` // global timing only
	Combination      Combination      `json:"combination" gorm:"not null;default:'sum'"`
	FailedUnitPolicy FailedUnitPolicy `json:"failed_unit_policy" gorm:"not null;default:'exclude'"`
	Parts            []Part           `json:"parts,omitempty" gorm:"foreignKey:TestID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`
}

// OrderedParts returns the parts sorted by OrderInTest.
func (t *Test) OrderedParts() []Part {
	parts := make([]Part, len(t.Parts))
	copy(parts, t.Parts)
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].OrderInTest < parts[j].OrderInTest })
	return parts
}

// EffectiveTimingMode falls back to per-part timing for speaking and global timing otherwise.
func (t *Test) EffectiveTimingMode() TimingMode {
	if t.TimingMode != "" {
		return t.TimingMode
	}
	if t.Modality == ModalitySpeaking {
		return TimingPerPart
	}
	return TimingGlobal
}

func (t *Test) NeedsRecording() bool {
	if t.Modality == ModalitySpeaking {
		return true
	}
	for _, p := range t.Parts {
		if p.Type == PartCueCardSpeech {
			return true
		}
	}
	return false
}
