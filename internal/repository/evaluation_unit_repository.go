package repository

import (
	"context"
	"time"

	"github.com/lshigami/examflow/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EvaluationUnitRepository applies compare-and-set transitions to units. Each write
// names the statuses it is allowed to move from and reports whether it took effect.
type EvaluationUnitRepository interface {
	// EnsureUnits creates a pending unit for every part that has none.
	EnsureUnits(ctx context.Context, submissionID string, partIDs []uint) error
	ListBySubmission(ctx context.Context, submissionID string) ([]model.EvaluationUnit, error)
	// Claim moves a pending or failed unit, or an in_flight one claimed before staleBefore,
	// to in_flight and increments its attempts.
	Claim(ctx context.Context, submissionID string, partID uint, staleBefore, now time.Time) (*model.EvaluationUnit, bool, error)
	// Complete stores the result unless the unit is already complete.
	Complete(ctx context.Context, submissionID string, partID uint, result model.EvaluationResult, now time.Time) (bool, error)
	// Fail marks an in_flight unit failed.
	Fail(ctx context.Context, submissionID string, partID uint, reason string, now time.Time) (bool, error)
}

type evaluationUnitRepository struct {
	db *gorm.DB
}

func NewEvaluationUnitRepository(db *gorm.DB) EvaluationUnitRepository {
	return &evaluationUnitRepository{db: db}
}

func (r *evaluationUnitRepository) EnsureUnits(ctx context.Context, submissionID string, partIDs []uint) error {
	if len(partIDs) == 0 {
		return nil
	}
	units := make([]model.EvaluationUnit, len(partIDs))
	for i, id := range partIDs {
		units[i] = model.EvaluationUnit{SubmissionID: submissionID, PartID: id, Status: model.UnitPending}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}, {Name: "part_id"}},
		DoNothing: true,
	}).Create(&units).Error
}

func (r *evaluationUnitRepository) ListBySubmission(ctx context.Context, submissionID string) ([]model.EvaluationUnit, error) {
	var units []model.EvaluationUnit
	err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).Order("part_id ASC").Find(&units).Error
	return units, err
}

func (r *evaluationUnitRepository) Claim(ctx context.Context, submissionID string, partID uint, staleBefore, now time.Time) (*model.EvaluationUnit, bool, error) {
	res := r.db.WithContext(ctx).Model(&model.EvaluationUnit{}).
		Where("submission_id = ? AND part_id = ?", submissionID, partID).
		Where("status IN ? OR (status = ? AND claimed_at < ?)",
			[]model.UnitStatus{model.UnitPending, model.UnitFailed}, model.UnitInFlight, staleBefore).
		Updates(map[string]interface{}{
			"status":     model.UnitInFlight,
			"attempts":   gorm.Expr("attempts + 1"),
			"claimed_at": now,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	var unit model.EvaluationUnit
	if err := r.db.WithContext(ctx).Where("submission_id = ? AND part_id = ?", submissionID, partID).First(&unit).Error; err != nil {
		return nil, false, translate(err)
	}
	return &unit, true, nil
}

func (r *evaluationUnitRepository) Complete(ctx context.Context, submissionID string, partID uint, result model.EvaluationResult, now time.Time) (bool, error) {
	score := result.SubScore
	res := r.db.WithContext(ctx).Model(&model.EvaluationUnit{}).
		Where("submission_id = ? AND part_id = ? AND status <> ?", submissionID, partID, model.UnitComplete).
		Select("status", "sub_score", "feedback", "criteria", "evaluator", "last_error", "completed_at").
		Updates(model.EvaluationUnit{
			Status:      model.UnitComplete,
			SubScore:    &score,
			Feedback:    result.Feedback,
			Criteria:    result.Criteria,
			Evaluator:   result.Evaluator,
			LastError:   nil,
			CompletedAt: &now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *evaluationUnitRepository) Fail(ctx context.Context, submissionID string, partID uint, reason string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.EvaluationUnit{}).
		Where("submission_id = ? AND part_id = ? AND status = ?", submissionID, partID, model.UnitInFlight).
		Updates(map[string]interface{}{
			"status":     model.UnitFailed,
			"last_error": reason,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
