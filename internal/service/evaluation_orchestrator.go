package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/repository"
	"github.com/lshigami/examflow/internal/storage"
	"github.com/lshigami/examflow/internal/timer"
)

// EvaluationReport lists every unit of a submission after one orchestration pass.
type EvaluationReport struct {
	SubmissionID string
	TestID       uint
	UserID       string
	Claimed      int
	Units        []model.EvaluationUnit
	Aggregate    *AggregateResult
}

type EvaluationOrchestrator interface {
	// Evaluate scores every unit that is not complete yet and aggregates when all are
	// resolved. Calling it again only retries pending and failed units.
	Evaluate(ctx context.Context, submissionID string) (*EvaluationReport, error)
}

type OrchestratorOptions struct {
	Concurrency int
	UnitTimeout time.Duration
	// StaleAfter is how long an in_flight claim is honoured before another run may take it.
	StaleAfter time.Duration
	Clock      timer.Clock
}

type evaluationOrchestrator struct {
	submissionRepo repository.SubmissionRepository
	unitRepo       repository.EvaluationUnitRepository
	evaluator      Evaluator
	aggregator     ScoreAggregator
	store          storage.ObjectStore
	opts           OrchestratorOptions
}

func NewEvaluationOrchestrator(
	submissionRepo repository.SubmissionRepository,
	unitRepo repository.EvaluationUnitRepository,
	evaluator Evaluator,
	aggregator ScoreAggregator,
	store storage.ObjectStore,
	opts OrchestratorOptions,
) EvaluationOrchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.UnitTimeout <= 0 {
		opts.UnitTimeout = time.Minute
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 10 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = timer.RealClock()
	}
	return &evaluationOrchestrator{
		submissionRepo: submissionRepo,
		unitRepo:       unitRepo,
		evaluator:      evaluator,
		aggregator:     aggregator,
		store:          store,
		opts:           opts,
	}
}

func (o *evaluationOrchestrator) Evaluate(ctx context.Context, submissionID string) (*EvaluationReport, error) {
	sub, err := o.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission %s: %w", submissionID, err)
	}

	partIDs := make([]uint, len(sub.Answers))
	for i, a := range sub.Answers {
		partIDs[i] = a.PartID
	}
	if err := o.unitRepo.EnsureUnits(ctx, submissionID, partIDs); err != nil {
		return nil, fmt.Errorf("failed to create evaluation units: %w", err)
	}
	if sub.Status == model.SubmissionPending {
		if err := o.submissionRepo.SetStatus(ctx, submissionID, model.SubmissionScoring); err != nil {
			log.Warn().Err(err).Str("submissionID", submissionID).Msg("Evaluate: failed to mark submission as scoring")
		}
	}

	units, err := o.unitRepo.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	now := o.opts.Clock.Now()
	staleBefore := now.Add(-o.opts.StaleAfter)
	var claimed []model.EvaluationUnit
	for _, u := range units {
		if u.Status == model.UnitComplete {
			continue
		}
		unit, ok, err := o.unitRepo.Claim(ctx, submissionID, u.PartID, staleBefore, now)
		if err != nil {
			return nil, fmt.Errorf("failed to claim unit for part %d: %w", u.PartID, err)
		}
		if ok {
			claimed = append(claimed, *unit)
		}
	}
	log.Info().Str("submissionID", submissionID).Int("units", len(units)).Int("claimed", len(claimed)).Msg("Evaluate: units claimed")

	if len(claimed) > 0 {
		o.fanOut(ctx, sub, claimed)
	}

	agg, err := o.aggregator.Aggregate(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	final, err := o.unitRepo.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return &EvaluationReport{
		SubmissionID: submissionID,
		TestID:       sub.TestID,
		UserID:       sub.UserID,
		Claimed:      len(claimed),
		Units:        final,
		Aggregate:    agg,
	}, nil
}

func (o *evaluationOrchestrator) fanOut(ctx context.Context, sub *model.Submission, claimed []model.EvaluationUnit) {
	parts := make(map[uint]model.Part, len(sub.Test.Parts))
	for _, p := range sub.Test.Parts {
		parts[p.ID] = p
	}
	answers := make(map[uint]model.SubmissionAnswer, len(sub.Answers))
	for _, a := range sub.Answers {
		answers[a.PartID] = a
	}

	var recordingData []byte
	var recordingErr error
	if sub.RecordingKey != "" && needsAudio(claimed, answers) {
		recordingData, recordingErr = o.loadRecording(ctx, sub.RecordingKey)
		if recordingErr != nil {
			log.Error().Err(recordingErr).Str("submissionID", sub.ID).Msg("Evaluate: recording could not be loaded")
		}
	}

	// Unit outcomes are written even if the caller's context ends mid-run.
	writeCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for _, unit := range claimed {
		g.Go(func() error {
			part, ok := parts[unit.PartID]
			if !ok {
				o.fail(writeCtx, sub.ID, unit.PartID, "part no longer exists in test")
				return nil
			}
			req := EvaluationRequest{
				SubmissionID: sub.ID,
				Test:         &sub.Test,
				Part:         part,
				Answer:       answers[unit.PartID],
			}
			if audio := req.Answer.Payload.Audio; audio != nil && audio.Length > 0 {
				if recordingErr != nil {
					o.fail(writeCtx, sub.ID, unit.PartID, "recording unavailable: "+recordingErr.Error())
					return nil
				}
				if end := audio.Offset + audio.Length; recordingData != nil && end <= len(recordingData) {
					req.Audio = recordingData[audio.Offset:end]
					req.AudioType = audio.ContentType
				}
			}
			o.evaluateUnit(ctx, writeCtx, req)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *evaluationOrchestrator) evaluateUnit(ctx, writeCtx context.Context, req EvaluationRequest) {
	unitCtx, cancel := context.WithTimeout(ctx, o.opts.UnitTimeout)
	defer cancel()

	started := time.Now()
	result, err := o.evaluator.Evaluate(unitCtx, req)
	if err == nil && unitCtx.Err() != nil {
		err = unitCtx.Err()
	}
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("evaluation timed out after %s", o.opts.UnitTimeout)
		}
		log.Warn().Err(err).Str("submissionID", req.SubmissionID).Uint("partID", req.Part.ID).Msg("Evaluate: unit failed")
		o.fail(writeCtx, req.SubmissionID, req.Part.ID, reason)
		return
	}

	ok, err := o.unitRepo.Complete(writeCtx, req.SubmissionID, req.Part.ID, result, o.opts.Clock.Now())
	if err != nil {
		log.Error().Err(err).Str("submissionID", req.SubmissionID).Uint("partID", req.Part.ID).Msg("Evaluate: failed to store result")
		return
	}
	log.Info().
		Str("submissionID", req.SubmissionID).
		Uint("partID", req.Part.ID).
		Float64("subScore", result.SubScore).
		Str("evaluator", result.Evaluator).
		Bool("stored", ok).
		Dur("took", time.Since(started)).
		Msg("Evaluate: unit complete")
}

func (o *evaluationOrchestrator) fail(ctx context.Context, submissionID string, partID uint, reason string) {
	if _, err := o.unitRepo.Fail(ctx, submissionID, partID, reason, o.opts.Clock.Now()); err != nil {
		log.Error().Err(err).Str("submissionID", submissionID).Uint("partID", partID).Msg("Evaluate: failed to record unit failure")
	}
}

func (o *evaluationOrchestrator) loadRecording(ctx context.Context, key string) ([]byte, error) {
	if o.store == nil {
		return nil, errors.New("no object store configured")
	}
	rc, err := o.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func needsAudio(units []model.EvaluationUnit, answers map[uint]model.SubmissionAnswer) bool {
	for _, u := range units {
		if a, ok := answers[u.PartID]; ok && a.Payload.Audio != nil {
			return true
		}
	}
	return false
}
