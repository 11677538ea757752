package repository

import (
	"github.com/lshigami/examflow/internal/model"
	"gorm.io/gorm"
)

type TestWithPartCount struct {
	model.Test
	PartCount int
}

type TestRepository interface {
	Create(test *model.Test) error
	FindByID(id uint) (*model.Test, error)
	FindByIDWithParts(id uint) (*model.Test, error)
	FindByTitle(title string) (*model.Test, error)
	FindAllWithPartCount() ([]TestWithPartCount, error)
}

type testRepository struct {
	db *gorm.DB
}

func NewTestRepository(db *gorm.DB) TestRepository {
	return &testRepository{db: db}
}

func (r *testRepository) Create(test *model.Test) error {
	// parts are created through the Parts association
	return translate(r.db.Create(test).Error)
}

func (r *testRepository) FindByID(id uint) (*model.Test, error) {
	var test model.Test
	err := r.db.First(&test, id).Error
	return &test, translate(err)
}

func (r *testRepository) FindByIDWithParts(id uint) (*model.Test, error) {
	var test model.Test
	err := r.db.Preload("Parts", func(db *gorm.DB) *gorm.DB {
		return db.Order("parts.order_in_test ASC")
	}).First(&test, id).Error
	return &test, translate(err)
}

func (r *testRepository) FindByTitle(title string) (*model.Test, error) {
	var test model.Test
	err := r.db.Where("title = ?", title).First(&test).Error
	return &test, translate(err)
}

func (r *testRepository) FindAllWithPartCount() ([]TestWithPartCount, error) {
	var results []TestWithPartCount
	err := r.db.Model(&model.Test{}).
		Select("tests.*, (SELECT COUNT(*) FROM parts WHERE parts.test_id = tests.id AND parts.deleted_at IS NULL) as part_count").
		Order("tests.created_at DESC").
		Where("tests.deleted_at IS NULL").
		Scan(&results).Error
	return results, err
}
