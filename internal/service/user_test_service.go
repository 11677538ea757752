package service

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/dto"
	"github.com/lshigami/examflow/internal/repository"
)

type UserTestService interface {
	GetAllTests() ([]dto.TestSummaryDTO, error)
	GetTestDetails(testID uint) (*dto.TestResponseDTO, error)
}

type userTestService struct {
	testRepo repository.TestRepository
}

func NewUserTestService(testRepo repository.TestRepository) UserTestService {
	return &userTestService{testRepo: testRepo}
}

func (s *userTestService) GetAllTests() ([]dto.TestSummaryDTO, error) {
	testsWithCount, err := s.testRepo.FindAllWithPartCount()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get all tests with part count from repository")
		return nil, fmt.Errorf("error fetching tests: %w", err)
	}

	dtos := make([]dto.TestSummaryDTO, 0, len(testsWithCount))
	for _, twc := range testsWithCount {
		dtos = append(dtos, dto.TestSummaryDTO{
			ID:          twc.Test.ID,
			Title:       twc.Test.Title,
			Description: twc.Test.Description,
			Modality:    string(twc.Test.Modality),
			PartCount:   twc.PartCount,
			CreatedAt:   twc.Test.CreatedAt,
		})
	}
	return dtos, nil
}

func (s *userTestService) GetTestDetails(testID uint) (*dto.TestResponseDTO, error) {
	test, err := s.testRepo.FindByIDWithParts(testID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTestNotFound
	}
	if err != nil {
		log.Error().Err(err).Uint("testID", testID).Msg("Failed to get test details from repository")
		return nil, fmt.Errorf("test not found with ID %d: %w", testID, err)
	}
	return toTestResponse(test)
}
