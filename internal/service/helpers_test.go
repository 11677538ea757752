package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/repository"
	"github.com/lshigami/examflow/internal/session"
)

type fixture struct {
	store       *repository.MemoryStore
	tests       repository.TestRepository
	submissions repository.SubmissionRepository
	units       repository.EvaluationUnitRepository
}

func newFixture() *fixture {
	store := repository.NewMemoryStore()
	return &fixture{
		store:       store,
		tests:       repository.NewMemoryTestRepository(store),
		submissions: repository.NewMemorySubmissionRepository(store),
		units:       repository.NewMemoryEvaluationUnitRepository(store),
	}
}

func (f *fixture) seed(t *testing.T, test model.Test) *model.Test {
	t.Helper()
	if err := f.tests.Create(&test); err != nil {
		t.Fatalf("seed test: %v", err)
	}
	stored, err := f.tests.FindByIDWithParts(test.ID)
	if err != nil {
		t.Fatalf("reload test: %v", err)
	}
	return stored
}

func writingTest(title string, parts int, combination model.Combination, policy model.FailedUnitPolicy) model.Test {
	test := model.Test{
		Title:            title,
		Modality:         model.ModalityWriting,
		TimingMode:       model.TimingGlobal,
		DurationSeconds:  3600,
		Combination:      combination,
		FailedUnitPolicy: policy,
	}
	for i := 0; i < parts; i++ {
		test.Parts = append(test.Parts, model.Part{
			Title:           "Task",
			Prompt:          "Write about your town.",
			Type:            model.PartFreeText,
			OrderInTest:     i + 1,
			DurationSeconds: 600,
			MaxScore:        9,
		})
	}
	return test
}

// draftFor answers every part of test with the same essay.
func draftFor(sessionID string, test *model.Test) session.Draft {
	answers := make(map[uint]model.AnswerPayload)
	for _, p := range test.Parts {
		answers[p.ID] = model.AnswerPayload{Kind: model.PartFreeText, Text: "My town is small and quiet."}
	}
	return session.Draft{
		SessionID:   sessionID,
		UserID:      "user-1",
		Test:        test,
		Parts:       test.OrderedParts(),
		Answers:     answers,
		SubmittedAt: time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
		Reason:      session.ReasonManual,
	}
}

type fakeEvaluator struct {
	mu    sync.Mutex
	calls map[uint]int
	fn    func(ctx context.Context, req EvaluationRequest) (model.EvaluationResult, error)
}

func newFakeEvaluator(fn func(ctx context.Context, req EvaluationRequest) (model.EvaluationResult, error)) *fakeEvaluator {
	return &fakeEvaluator{calls: make(map[uint]int), fn: fn}
}

func (f *fakeEvaluator) Name() string { return "fake" }

func (f *fakeEvaluator) Evaluate(ctx context.Context, req EvaluationRequest) (model.EvaluationResult, error) {
	f.mu.Lock()
	f.calls[req.Part.ID]++
	fn := f.fn
	f.mu.Unlock()
	return fn(ctx, req)
}

func (f *fakeEvaluator) setFn(fn func(ctx context.Context, req EvaluationRequest) (model.EvaluationResult, error)) {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
}

func (f *fakeEvaluator) callsFor(partID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[partID]
}

func fixedScore(score float64) func(context.Context, EvaluationRequest) (model.EvaluationResult, error) {
	return func(context.Context, EvaluationRequest) (model.EvaluationResult, error) {
		return model.EvaluationResult{SubScore: score, Feedback: "ok", Evaluator: "fake"}, nil
	}
}

// countingSubmissionRepo counts aggregate write attempts and the ones that landed.
type countingSubmissionRepo struct {
	repository.SubmissionRepository
	saves   atomic.Int32
	written atomic.Int32
}

func (r *countingSubmissionRepo) SaveAggregate(ctx context.Context, id, expect string, agg repository.AggregateUpdate) (bool, error) {
	r.saves.Add(1)
	ok, err := r.SubmissionRepository.SaveAggregate(ctx, id, expect, agg)
	if ok {
		r.written.Add(1)
	}
	return ok, err
}

type recordingDispatcher struct {
	mu   sync.Mutex
	subs []*model.Submission
}

func (d *recordingDispatcher) Dispatch(sub *model.Submission) {
	d.mu.Lock()
	d.subs = append(d.subs, sub)
	d.mu.Unlock()
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}
