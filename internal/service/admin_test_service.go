package service

import (
	"errors"
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/dto"
	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/repository"
)

var ErrInvalidTest = errors.New("invalid test definition")

type AdminTestService interface {
	CreateTest(req dto.TestCreateDTO) (*dto.TestResponseDTO, error)
}

type adminTestService struct {
	testRepo repository.TestRepository
}

func NewAdminTestService(testRepo repository.TestRepository) AdminTestService {
	return &adminTestService{testRepo: testRepo}
}

func (s *adminTestService) CreateTest(req dto.TestCreateDTO) (*dto.TestResponseDTO, error) {
	testModel := model.Test{
		Title:            req.Title,
		Description:      req.Description,
		Modality:         model.Modality(req.Modality),
		TimingMode:       model.TimingMode(req.TimingMode),
		DurationSeconds:  req.DurationSeconds,
		Combination:      model.Combination(req.Combination),
		FailedUnitPolicy: model.FailedUnitPolicy(req.FailedUnitPolicy),
	}
	testModel.TimingMode = testModel.EffectiveTimingMode()
	if testModel.Combination == "" {
		testModel.Combination = model.CombineSum
	}
	if testModel.FailedUnitPolicy == "" {
		testModel.FailedUnitPolicy = model.FailedExclude
	}

	orderMap := make(map[int]bool)
	for _, pDto := range req.Parts {
		if orderMap[pDto.OrderInTest] {
			return nil, fmt.Errorf("%w: duplicate OrderInTest %d found in parts", ErrInvalidTest, pDto.OrderInTest)
		}
		orderMap[pDto.OrderInTest] = true

		kind := model.PartType(pDto.Type)
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: part %q has unknown type %q", ErrInvalidTest, pDto.Title, pDto.Type)
		}
		if testModel.TimingMode == model.TimingPerPart && pDto.DurationSeconds <= 0 {
			return nil, fmt.Errorf("%w: part %q needs a duration when parts are individually timed", ErrInvalidTest, pDto.Title)
		}

		var partModel model.Part
		if err := copier.Copy(&partModel, &pDto); err != nil {
			return nil, fmt.Errorf("error preparing part %q: %w", pDto.Title, err)
		}
		partModel.Type = kind
		partModel.AnswerKey = nil
		if pDto.AnswerKey != nil {
			key := model.AnswerPayload{
				Kind:    kind,
				Choice:  pDto.AnswerKey.Choice,
				Choices: pDto.AnswerKey.Choices,
				Fields:  pDto.AnswerKey.Fields,
				Mapping: pDto.AnswerKey.Mapping,
			}
			if err := key.Validate(kind); err != nil {
				return nil, fmt.Errorf("%w: part %q answer key: %v", ErrInvalidTest, pDto.Title, err)
			}
			partModel.AnswerKey = &key
		}
		testModel.Parts = append(testModel.Parts, partModel)
	}

	if testModel.TimingMode == model.TimingGlobal && testModel.DurationSeconds <= 0 {
		for _, p := range testModel.Parts {
			testModel.DurationSeconds += p.DurationSeconds
		}
		if testModel.DurationSeconds <= 0 {
			return nil, fmt.Errorf("%w: a globally timed test needs a duration", ErrInvalidTest)
		}
	}

	if err := s.testRepo.Create(&testModel); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: a test titled %q already exists", ErrInvalidTest, req.Title)
		}
		log.Error().Err(err).Msg("Failed to create test in database")
		return nil, fmt.Errorf("database error creating test: %w", err)
	}
	log.Info().Uint("testID", testModel.ID).Str("title", testModel.Title).Int("parts", len(testModel.Parts)).Msg("Test created")

	created, err := s.testRepo.FindByIDWithParts(testModel.ID)
	if err != nil {
		log.Error().Err(err).Uint("testID", testModel.ID).Msg("Failed to retrieve newly created test with parts for response")
		created = &testModel
	}
	return toTestResponse(created)
}

func toTestResponse(test *model.Test) (*dto.TestResponseDTO, error) {
	var resp dto.TestResponseDTO
	if err := copier.Copy(&resp, test); err != nil {
		log.Error().Err(err).Msg("Failed to copy Test model to TestResponseDTO")
		return nil, fmt.Errorf("error preparing response data: %w", err)
	}
	resp.Modality = string(test.Modality)
	resp.TimingMode = string(test.TimingMode)
	resp.Combination = string(test.Combination)
	resp.FailedUnitPolicy = string(test.FailedUnitPolicy)
	parts := test.OrderedParts()
	resp.Parts = make([]dto.PartResponseDTO, len(parts))
	for i := range parts {
		if err := copier.Copy(&resp.Parts[i], &parts[i]); err != nil {
			return nil, fmt.Errorf("error preparing part data: %w", err)
		}
		resp.Parts[i].Type = string(parts[i].Type)
	}
	return &resp, nil
}
