package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lshigami/examflow/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AggregateUpdate is written onto a submission by the score aggregator.
type AggregateUpdate struct {
	Score       float64
	Band        *float64
	Partial     bool
	Fingerprint string
	Status      model.SubmissionStatus
	At          time.Time
}

type SubmissionRepository interface {
	// CreateIfAbsent inserts sub with its answers unless a submission with the same
	// IdempotencyKey exists, in which case the existing one is returned and created is false.
	CreateIfAbsent(ctx context.Context, sub *model.Submission) (stored *model.Submission, created bool, err error)
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Submission, error)
	FindAllByTestAndUser(ctx context.Context, testID uint, userID string) ([]model.Submission, error)
	SetStatus(ctx context.Context, id string, status model.SubmissionStatus) error
	// SaveAggregate writes the aggregate only if the stored fingerprint still equals
	// expectFingerprint. It reports whether a row was written.
	SaveAggregate(ctx context.Context, id, expectFingerprint string, agg AggregateUpdate) (bool, error)
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) CreateIfAbsent(ctx context.Context, sub *model.Submission) (*model.Submission, bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).Omit(clause.Associations).Create(sub)
		if res.Error != nil {
			return fmt.Errorf("failed to insert submission: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		if len(sub.Answers) == 0 {
			return nil
		}
		for i := range sub.Answers {
			sub.Answers[i].SubmissionID = sub.ID
		}
		if err := tx.Create(&sub.Answers).Error; err != nil {
			return fmt.Errorf("failed to insert submission answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		return sub, true, nil
	}
	existing, err := r.FindByIdempotencyKey(ctx, sub.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *submissionRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Test.Parts", func(db *gorm.DB) *gorm.DB {
			return db.Order("parts.order_in_test ASC")
		}).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("submission_answers.position ASC")
		}).
		Preload("Units")
}

func (r *submissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	var sub model.Submission
	err := r.preloaded(ctx).Where("id = ?", id).First(&sub).Error
	return &sub, translate(err)
}

func (r *submissionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*model.Submission, error) {
	var sub model.Submission
	err := r.preloaded(ctx).Where("idempotency_key = ?", key).First(&sub).Error
	return &sub, translate(err)
}

func (r *submissionRepository) FindAllByTestAndUser(ctx context.Context, testID uint, userID string) ([]model.Submission, error) {
	var subs []model.Submission
	query := r.db.WithContext(ctx).Where("test_id = ?", testID)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	err := query.Order("submitted_at DESC").Find(&subs).Error
	return subs, err
}

func (r *submissionRepository) SetStatus(ctx context.Context, id string, status model.SubmissionStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Submission{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *submissionRepository) SaveAggregate(ctx context.Context, id, expectFingerprint string, agg AggregateUpdate) (bool, error) {
	at := agg.At
	score := agg.Score
	res := r.db.WithContext(ctx).Model(&model.Submission{}).
		Where("id = ? AND aggregate_fingerprint = ?", id, expectFingerprint).
		Select("aggregate_score", "aggregate_band", "aggregate_partial", "aggregate_fingerprint", "aggregated_at", "status").
		Updates(model.Submission{
			AggregateScore:       &score,
			AggregateBand:        agg.Band,
			AggregatePartial:     agg.Partial,
			AggregateFingerprint: agg.Fingerprint,
			AggregatedAt:         &at,
			Status:               agg.Status,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
