package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/storage"
)

func submitDraft(t *testing.T, f *fixture, test *model.Test, sessionID string) *model.Submission {
	t.Helper()
	sub, err := NewSubmissionBuilder(f.submissions, storage.NewMemoryStore()).Build(context.Background(), draftFor(sessionID, test))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return sub
}

func newTestOrchestrator(f *fixture, evaluator Evaluator, unitTimeout time.Duration) EvaluationOrchestrator {
	aggregator := NewScoreAggregator(f.submissions, f.units, NewScoreConverterService(), nil)
	return NewEvaluationOrchestrator(f.submissions, f.units, evaluator, aggregator, storage.NewMemoryStore(), OrchestratorOptions{
		Concurrency: 2,
		UnitTimeout: unitTimeout,
	})
}

// blockThird scores every part 6 except the third, which never answers.
func blockThird(test *model.Test) func(context.Context, EvaluationRequest) (model.EvaluationResult, error) {
	slow := test.Parts[2].ID
	return func(ctx context.Context, req EvaluationRequest) (model.EvaluationResult, error) {
		if req.Part.ID == slow {
			<-ctx.Done()
			return model.EvaluationResult{}, ctx.Err()
		}
		return model.EvaluationResult{SubScore: 6, Feedback: "solid", Evaluator: "fake"}, nil
	}
}

func TestEvaluateAppliesFailedUnitPolicy(t *testing.T) {
	testCases := []struct {
		policy      model.FailedUnitPolicy
		wantScore   float64
		wantBand    float64
		wantPartial bool
	}{
		{policy: model.FailedExclude, wantScore: 6, wantBand: 6, wantPartial: false},
		{policy: model.FailedZero, wantScore: 4.5, wantBand: 4.5, wantPartial: false},
		{policy: model.FailedPartial, wantScore: 6, wantBand: 6, wantPartial: true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.policy), func(t *testing.T) {
			f := newFixture()
			test := f.seed(t, writingTest("Writing "+string(tc.policy), 4, model.CombineAverage, tc.policy))
			sub := submitDraft(t, f, test, "session-"+string(tc.policy))
			orchestrator := newTestOrchestrator(f, newFakeEvaluator(blockThird(test)), 50*time.Millisecond)

			report, err := orchestrator.Evaluate(context.Background(), sub.ID)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if report.Claimed != 4 || len(report.Units) != 4 {
				t.Fatalf("expected 4 claimed units, got claimed=%d units=%d", report.Claimed, len(report.Units))
			}
			for _, u := range report.Units {
				if u.PartID == test.Parts[2].ID {
					if u.Status != model.UnitFailed {
						t.Errorf("expected the blocked unit to fail, got %s", u.Status)
					}
					if u.LastError == nil || !strings.Contains(*u.LastError, "timed out") {
						t.Errorf("expected a timeout error on the failed unit, got %v", u.LastError)
					}
					continue
				}
				if u.Status != model.UnitComplete || u.SubScore == nil || *u.SubScore != 6 {
					t.Errorf("unit for part %d: expected complete with 6, got %s %v", u.PartID, u.Status, u.SubScore)
				}
			}

			agg := report.Aggregate
			if agg == nil {
				t.Fatal("expected an aggregate once every unit is resolved")
			}
			if agg.Score != tc.wantScore {
				t.Errorf("expected score %v, got %v", tc.wantScore, agg.Score)
			}
			if agg.Band == nil || *agg.Band != tc.wantBand {
				t.Errorf("expected band %v, got %v", tc.wantBand, agg.Band)
			}
			if agg.Partial != tc.wantPartial {
				t.Errorf("expected partial=%v, got %v", tc.wantPartial, agg.Partial)
			}
			if agg.Completed != 3 || agg.Failed != 1 {
				t.Errorf("expected 3 complete and 1 failed, got %d and %d", agg.Completed, agg.Failed)
			}

			stored, err := f.submissions.FindByID(context.Background(), sub.ID)
			if err != nil {
				t.Fatalf("FindByID: %v", err)
			}
			if stored.Status != model.SubmissionCompletedWithErrors {
				t.Errorf("expected status %s, got %s", model.SubmissionCompletedWithErrors, stored.Status)
			}
		})
	}
}

func TestEvaluateRetriesOnlyUnfinishedUnits(t *testing.T) {
	f := newFixture()
	test := f.seed(t, writingTest("Writing retry", 4, model.CombineAverage, model.FailedPartial))
	sub := submitDraft(t, f, test, "session-retry")
	evaluator := newFakeEvaluator(blockThird(test))
	orchestrator := newTestOrchestrator(f, evaluator, 50*time.Millisecond)

	first, err := orchestrator.Evaluate(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}
	if first.Aggregate == nil || !first.Aggregate.Partial {
		t.Fatalf("expected a partial aggregate after the first run, got %+v", first.Aggregate)
	}

	evaluator.setFn(fixedScore(8))
	second, err := orchestrator.Evaluate(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	if second.Claimed != 1 {
		t.Errorf("expected only the failed unit to be claimed again, got %d", second.Claimed)
	}
	for i, p := range test.Parts {
		want := 1
		if i == 2 {
			want = 2
		}
		if got := evaluator.callsFor(p.ID); got != want {
			t.Errorf("part %d: expected %d evaluator calls, got %d", i, want, got)
		}
	}
	for _, u := range second.Units {
		want := 6.0
		if u.PartID == test.Parts[2].ID {
			want = 8
		}
		if u.Status != model.UnitComplete || u.SubScore == nil || *u.SubScore != want {
			t.Errorf("part %d: expected complete with %v, got %s %v", u.PartID, want, u.Status, u.SubScore)
		}
		if u.LastError != nil {
			t.Errorf("part %d: expected the error to be cleared, got %q", u.PartID, *u.LastError)
		}
	}
	agg := second.Aggregate
	if agg == nil || agg.Partial || agg.Score != 6.5 || !agg.Written {
		t.Fatalf("expected a fresh full aggregate of 6.5, got %+v", agg)
	}
	if agg.Status != model.SubmissionCompleted {
		t.Errorf("expected status completed, got %s", agg.Status)
	}

	third, err := orchestrator.Evaluate(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("third Evaluate: %v", err)
	}
	if third.Claimed != 0 || third.Aggregate == nil || third.Aggregate.Written {
		t.Errorf("a finished submission should be a no-op, got claimed=%d aggregate=%+v", third.Claimed, third.Aggregate)
	}
}

func TestEvaluateScoresObjectivePartsWithAnswerKey(t *testing.T) {
	f := newFixture()
	test := f.seed(t, model.Test{
		Title:            "Reading key",
		Modality:         model.ModalityReading,
		TimingMode:       model.TimingGlobal,
		DurationSeconds:  1200,
		Combination:      model.CombineSum,
		FailedUnitPolicy: model.FailedZero,
		Parts: []model.Part{
			{Title: "Q1", Prompt: "Pick one", Type: model.PartSingleChoice, OrderInTest: 1, MaxScore: 1,
				AnswerKey: &model.AnswerPayload{Kind: model.PartSingleChoice, Choice: "B"}},
			{Title: "Q2", Prompt: "Fill in", Type: model.PartFieldList, OrderInTest: 2, MaxScore: 2,
				AnswerKey: &model.AnswerPayload{Kind: model.PartFieldList, Fields: []string{"canal", "1761"}}},
		},
	})
	draft := draftFor("session-key", test)
	draft.Answers = map[uint]model.AnswerPayload{
		test.Parts[0].ID: {Kind: model.PartSingleChoice, Choice: " b "},
		test.Parts[1].ID: {Kind: model.PartFieldList, Fields: []string{"Canal", "1762"}},
	}
	sub, err := NewSubmissionBuilder(f.submissions, storage.NewMemoryStore()).Build(context.Background(), draft)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	router := NewEvaluatorRouter(NewKeyEvaluator(), nil, RetryPolicy{})
	report, err := newTestOrchestrator(f, router, time.Second).Evaluate(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.Aggregate == nil {
		t.Fatal("expected an aggregate")
	}
	if report.Aggregate.Score != 2 {
		t.Errorf("expected 1 + 1 of 3, got %v", report.Aggregate.Score)
	}
	for _, u := range report.Units {
		if u.Evaluator != "answer_key" {
			t.Errorf("part %d scored by %q, want answer_key", u.PartID, u.Evaluator)
		}
	}
}

func TestConcurrentEvaluateScoresEachUnitOnce(t *testing.T) {
	f := newFixture()
	counting := &countingSubmissionRepo{SubmissionRepository: f.submissions}
	f.submissions = counting

	test := f.seed(t, writingTest("Writing concurrent", 4, model.CombineSum, model.FailedExclude))
	sub := submitDraft(t, f, test, "session-concurrent")
	evaluator := newFakeEvaluator(fixedScore(5))
	orchestrator := newTestOrchestrator(f, evaluator, time.Second)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := orchestrator.Evaluate(context.Background(), sub.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Evaluate: %v", err)
	}

	for _, p := range test.Parts {
		if got := evaluator.callsFor(p.ID); got != 1 {
			t.Errorf("part %d: expected 1 evaluator call, got %d", p.ID, got)
		}
	}
	if got := counting.written.Load(); got != 1 {
		t.Errorf("expected exactly one aggregate write, got %d", got)
	}

	stored, err := f.submissions.FindByID(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.AggregateScore == nil || *stored.AggregateScore != 20 {
		t.Errorf("expected aggregate 20, got %v", stored.AggregateScore)
	}
	if stored.Status != model.SubmissionCompleted {
		t.Errorf("expected completed, got %s", stored.Status)
	}
}
