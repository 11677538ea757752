package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/dto"
	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/repository"
	"github.com/lshigami/examflow/internal/storage"
)

var ErrSubmissionNotFound = errors.New("submission not found")

// EvaluationRunner runs the evaluation pipeline for one submission synchronously.
type EvaluationRunner interface {
	Run(ctx context.Context, submissionID string) (*EvaluationReport, error)
}

type SubmissionService interface {
	GetSubmissionDetails(ctx context.Context, userID, submissionID string) (*dto.SubmissionDetailDTO, error)
	GetUserSubmissionsForTest(ctx context.Context, testID uint, userID string) ([]dto.SubmissionSummaryDTO, error)
	// Reevaluate retries every unit that is not complete and re-aggregates.
	Reevaluate(ctx context.Context, userID, submissionID string) (*dto.EvaluationReportDTO, error)
}

type submissionService struct {
	submissionRepo repository.SubmissionRepository
	runner         EvaluationRunner
	store          storage.ObjectStore
}

func NewSubmissionService(submissionRepo repository.SubmissionRepository, runner EvaluationRunner, store storage.ObjectStore) SubmissionService {
	return &submissionService{submissionRepo: submissionRepo, runner: runner, store: store}
}

func (s *submissionService) load(ctx context.Context, userID, submissionID string) (*model.Submission, error) {
	sub, err := s.submissionRepo.FindByID(ctx, submissionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission %s: %w", submissionID, err)
	}
	if userID != "" && sub.UserID != userID {
		return nil, ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *submissionService) GetSubmissionDetails(ctx context.Context, userID, submissionID string) (*dto.SubmissionDetailDTO, error) {
	sub, err := s.load(ctx, userID, submissionID)
	if err != nil {
		return nil, err
	}

	var resp dto.SubmissionDetailDTO
	if err := copier.Copy(&resp, sub); err != nil {
		log.Error().Err(err).Str("submissionID", submissionID).Msg("GetSubmissionDetails: failed to copy submission to DTO")
		return nil, fmt.Errorf("error preparing response data: %w", err)
	}
	resp.Status = string(sub.Status)
	resp.TestTitle = sub.Test.Title
	resp.Answers = make([]dto.SubmissionAnswerDTO, len(sub.Answers))
	for i, a := range sub.Answers {
		resp.Answers[i] = dto.SubmissionAnswerDTO{
			PartID:   a.PartID,
			Position: a.Position,
			PartType: string(a.PartType),
			Prompt:   a.Prompt,
			Payload:  a.Payload,
			Empty:    a.Empty,
		}
	}
	resp.Units = unitDTOs(sub.Units)
	resp.PlaybackURL = s.playbackURL(ctx, sub)
	return &resp, nil
}

// playbackURL is a short-lived link clients can stream the recording from. It is left
// empty when the store cannot sign one, since the stored reference is still kept.
func (s *submissionService) playbackURL(ctx context.Context, sub *model.Submission) string {
	if s.store == nil || sub.RecordingKey == "" {
		return ""
	}
	u, err := s.store.URL(ctx, sub.RecordingKey)
	if err != nil {
		log.Warn().Err(err).Str("submissionID", sub.ID).Msg("Failed to sign recording playback URL")
		return ""
	}
	return u
}

func (s *submissionService) GetUserSubmissionsForTest(ctx context.Context, testID uint, userID string) ([]dto.SubmissionSummaryDTO, error) {
	subs, err := s.submissionRepo.FindAllByTestAndUser(ctx, testID, userID)
	if err != nil {
		log.Error().Err(err).Uint("testID", testID).Str("userID", userID).Msg("GetUserSubmissionsForTest: failed to find submissions")
		return nil, fmt.Errorf("error fetching submissions for test %d: %w", testID, err)
	}

	dtos := make([]dto.SubmissionSummaryDTO, 0, len(subs))
	for _, sub := range subs {
		var summary dto.SubmissionSummaryDTO
		if errCp := copier.Copy(&summary, &sub); errCp != nil {
			log.Error().Err(errCp).Str("submissionID", sub.ID).Msg("GetUserSubmissionsForTest: error copying submission to summary DTO")
			continue
		}
		summary.Status = string(sub.Status)
		dtos = append(dtos, summary)
	}
	return dtos, nil
}

func (s *submissionService) Reevaluate(ctx context.Context, userID, submissionID string) (*dto.EvaluationReportDTO, error) {
	if _, err := s.load(ctx, userID, submissionID); err != nil {
		return nil, err
	}
	report, err := s.runner.Run(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("re-evaluation failed: %w", err)
	}

	resp := &dto.EvaluationReportDTO{
		SubmissionID: report.SubmissionID,
		Units:        unitDTOs(report.Units),
	}
	if agg := report.Aggregate; agg != nil {
		score := agg.Score
		resp.Aggregated = true
		resp.Score = &score
		resp.Band = agg.Band
		resp.Partial = agg.Partial
	}
	return resp, nil
}

func unitDTOs(units []model.EvaluationUnit) []dto.EvaluationUnitDTO {
	out := make([]dto.EvaluationUnitDTO, len(units))
	for i, u := range units {
		out[i] = dto.EvaluationUnitDTO{
			PartID:      u.PartID,
			Status:      string(u.Status),
			Attempts:    u.Attempts,
			Evaluator:   u.Evaluator,
			SubScore:    u.SubScore,
			Feedback:    u.Feedback,
			Criteria:    u.Criteria,
			LastError:   u.LastError,
			CompletedAt: u.CompletedAt,
		}
	}
	return out
}
