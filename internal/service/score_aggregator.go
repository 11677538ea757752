package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/repository"
	"github.com/lshigami/examflow/internal/timer"
)

// AggregateResult is the combined score of a submission's resolved units.
type AggregateResult struct {
	SubmissionID string
	Score        float64
	Band         *float64
	Partial      bool
	Completed    int
	Failed       int
	Status       model.SubmissionStatus
	Fingerprint  string
	// Written is false when the stored aggregate already matched the unit set.
	Written bool
}

type ScoreAggregator interface {
	// Aggregate returns nil while any unit is still pending or in flight.
	Aggregate(ctx context.Context, submissionID string) (*AggregateResult, error)
}

type scoreAggregator struct {
	submissionRepo repository.SubmissionRepository
	unitRepo       repository.EvaluationUnitRepository
	converter      ScoreConverterService
	clock          timer.Clock
}

func NewScoreAggregator(
	submissionRepo repository.SubmissionRepository,
	unitRepo repository.EvaluationUnitRepository,
	converter ScoreConverterService,
	clock timer.Clock,
) ScoreAggregator {
	if clock == nil {
		clock = timer.RealClock()
	}
	return &scoreAggregator{submissionRepo: submissionRepo, unitRepo: unitRepo, converter: converter, clock: clock}
}

func (s *scoreAggregator) Aggregate(ctx context.Context, submissionID string) (*AggregateResult, error) {
	sub, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission %s: %w", submissionID, err)
	}
	units, err := s.unitRepo.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	if len(units) == 0 || len(units) < len(sub.Answers) {
		return nil, nil
	}
	for _, u := range units {
		if !u.Status.Resolved() {
			return nil, nil
		}
	}

	test := &sub.Test
	fingerprint := unitFingerprint(units, test.Combination, test.FailedUnitPolicy)
	if fingerprint == sub.AggregateFingerprint && sub.AggregateScore != nil {
		return storedAggregate(sub, units), nil
	}

	res := combine(units, test.Combination, test.FailedUnitPolicy)
	res.SubmissionID = submissionID
	res.Fingerprint = fingerprint
	band, err := s.converter.ConvertToBand(test, res.Score)
	if err != nil {
		log.Warn().Err(err).Str("submissionID", submissionID).Float64("score", res.Score).Msg("Aggregate: band conversion failed")
	}
	res.Band = band

	written, err := s.submissionRepo.SaveAggregate(ctx, submissionID, sub.AggregateFingerprint, repository.AggregateUpdate{
		Score:       res.Score,
		Band:        res.Band,
		Partial:     res.Partial,
		Fingerprint: fingerprint,
		Status:      res.Status,
		At:          s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save aggregate: %w", err)
	}
	if !written {
		// Another aggregator moved the fingerprint first; report what it stored.
		latest, err := s.submissionRepo.FindByID(ctx, submissionID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload submission %s: %w", submissionID, err)
		}
		log.Debug().Str("submissionID", submissionID).Msg("Aggregate: lost compare-and-set, using stored aggregate")
		return storedAggregate(latest, latest.Units), nil
	}

	res.Written = true
	log.Info().
		Str("submissionID", submissionID).
		Float64("score", res.Score).
		Bool("partial", res.Partial).
		Int("failedUnits", res.Failed).
		Str("status", string(res.Status)).
		Msg("Aggregate: saved")
	return &res, nil
}

func combine(units []model.EvaluationUnit, combination model.Combination, policy model.FailedUnitPolicy) AggregateResult {
	var res AggregateResult
	total := 0.0
	counted := 0
	for _, u := range units {
		switch u.Status {
		case model.UnitComplete:
			res.Completed++
			counted++
			if u.SubScore != nil {
				total += *u.SubScore
			}
		case model.UnitFailed:
			res.Failed++
			if policy == model.FailedZero {
				counted++
			}
		}
	}

	res.Score = total
	if combination == model.CombineAverage {
		if counted > 0 {
			res.Score = total / float64(counted)
		} else {
			res.Score = 0
		}
	}
	res.Partial = policy == model.FailedPartial && res.Failed > 0
	res.Status = model.SubmissionCompleted
	if res.Failed > 0 {
		res.Status = model.SubmissionCompletedWithErrors
	}
	return res
}

func unitFingerprint(units []model.EvaluationUnit, combination model.Combination, policy model.FailedUnitPolicy) string {
	sorted := make([]model.EvaluationUnit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartID < sorted[j].PartID })

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s", combination, policy)
	for _, u := range sorted {
		score := "-"
		if u.Status == model.UnitComplete && u.SubScore != nil {
			score = fmt.Sprintf("%.4f", *u.SubScore)
		}
		fmt.Fprintf(&b, "|%d:%s:%s", u.PartID, u.Status, score)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func storedAggregate(sub *model.Submission, units []model.EvaluationUnit) *AggregateResult {
	res := &AggregateResult{
		SubmissionID: sub.ID,
		Band:         sub.AggregateBand,
		Partial:      sub.AggregatePartial,
		Status:       sub.Status,
		Fingerprint:  sub.AggregateFingerprint,
	}
	if sub.AggregateScore != nil {
		res.Score = *sub.AggregateScore
	}
	for _, u := range units {
		switch u.Status {
		case model.UnitComplete:
			res.Completed++
		case model.UnitFailed:
			res.Failed++
		}
	}
	return res
}
