package service

import (
	"errors"
	"testing"

	"github.com/lshigami/examflow/internal/dto"
	"github.com/lshigami/examflow/internal/model"
)

func validWritingDTO(title string) dto.TestCreateDTO {
	return dto.TestCreateDTO{
		Title:    title,
		Modality: "writing",
		Parts: []dto.PartCreateDTO{
			{Title: "Task 1", Prompt: "Describe the chart.", Type: "free_text", OrderInTest: 1, DurationSeconds: 1200, MaxScore: 9},
			{Title: "Task 2", Prompt: "Discuss both views.", Type: "free_text", OrderInTest: 2, DurationSeconds: 2400, MaxScore: 9},
		},
	}
}

func TestCreateTest(t *testing.T) {
	f := newFixture()
	svc := NewAdminTestService(f.tests)

	resp, err := svc.CreateTest(validWritingDTO("Writing admin"))
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}
	if resp.ID == 0 || len(resp.Parts) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.TimingMode != string(model.TimingGlobal) || resp.DurationSeconds != 3600 {
		t.Errorf("expected a global 3600s test, got %s %d", resp.TimingMode, resp.DurationSeconds)
	}
	if resp.Combination != string(model.CombineSum) || resp.FailedUnitPolicy != string(model.FailedExclude) {
		t.Errorf("unexpected defaults %s/%s", resp.Combination, resp.FailedUnitPolicy)
	}
	if resp.Parts[0].OrderInTest != 1 || resp.Parts[1].Type != "free_text" {
		t.Errorf("unexpected parts %+v", resp.Parts)
	}

	keyed := dto.TestCreateDTO{
		Title:    "Reading admin",
		Modality: "reading",
		Parts: []dto.PartCreateDTO{
			{Title: "Q1", Prompt: "Choose", Type: "single_choice", OrderInTest: 1, DurationSeconds: 60, MaxScore: 1,
				Options: []string{"A", "B"}, AnswerKey: &dto.AnswerKeyDTO{Choice: "B"}},
		},
	}
	if _, err := svc.CreateTest(keyed); err != nil {
		t.Fatalf("CreateTest with answer key: %v", err)
	}
	stored, err := f.tests.FindByTitle("Reading admin")
	if err != nil {
		t.Fatalf("FindByTitle: %v", err)
	}
	stored, _ = f.tests.FindByIDWithParts(stored.ID)
	if key := stored.Parts[0].AnswerKey; key == nil || key.Choice != "B" || key.Kind != model.PartSingleChoice {
		t.Errorf("answer key not stored: %+v", key)
	}
}

func TestCreateTestRejectsInvalidDefinitions(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(req *dto.TestCreateDTO)
	}{
		{
			name:   "duplicate order",
			mutate: func(req *dto.TestCreateDTO) { req.Parts[1].OrderInTest = 1 },
		},
		{
			name:   "unknown part type",
			mutate: func(req *dto.TestCreateDTO) { req.Parts[0].Type = "essay" },
		},
		{
			name: "per-part timing without durations",
			mutate: func(req *dto.TestCreateDTO) {
				req.TimingMode = "per_part"
				req.Parts[0].DurationSeconds = 0
			},
		},
		{
			name: "global timing without any duration",
			mutate: func(req *dto.TestCreateDTO) {
				req.Parts[0].DurationSeconds = 0
				req.Parts[1].DurationSeconds = 0
			},
		},
		{
			name: "answer key for the wrong kind",
			mutate: func(req *dto.TestCreateDTO) {
				req.Parts[0].Type = "multi_choice"
				req.Parts[0].AnswerKey = &dto.AnswerKeyDTO{Choice: "A"}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := validWritingDTO("Writing " + tc.name)
			tc.mutate(&req)
			_, err := NewAdminTestService(newFixture().tests).CreateTest(req)
			if !errors.Is(err, ErrInvalidTest) {
				t.Errorf("expected ErrInvalidTest, got %v", err)
			}
		})
	}
}

func TestCreateTestRejectsDuplicateTitle(t *testing.T) {
	svc := NewAdminTestService(newFixture().tests)
	if _, err := svc.CreateTest(validWritingDTO("Same title")); err != nil {
		t.Fatalf("CreateTest: %v", err)
	}
	if _, err := svc.CreateTest(validWritingDTO("Same title")); !errors.Is(err, ErrInvalidTest) {
		t.Errorf("expected ErrInvalidTest for a duplicate title, got %v", err)
	}
}
