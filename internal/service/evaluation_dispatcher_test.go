package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lshigami/examflow/internal/events"
	"github.com/lshigami/examflow/internal/model"
)

type fakePublisher struct {
	mu      sync.Mutex
	enabled bool
	failing bool
	created []*events.SubmissionEvent
	scored  []*events.SubmissionEvent
}

func (p *fakePublisher) PublishSubmissionCreated(_ context.Context, event *events.SubmissionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing {
		return errors.New("broker down")
	}
	p.created = append(p.created, event)
	return nil
}

func (p *fakePublisher) PublishSubmissionScored(_ context.Context, event *events.SubmissionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scored = append(p.scored, event)
	return nil
}

func (p *fakePublisher) Enabled() bool { return p.enabled }
func (p *fakePublisher) Close() error  { return nil }

func (p *fakePublisher) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.created), len(p.scored)
}

func TestDispatch(t *testing.T) {
	testCases := []struct {
		name          string
		publisher     *fakePublisher
		wantCreated   int
		wantScored    int
		wantEvaluated bool
	}{
		{name: "no broker evaluates in process", publisher: &fakePublisher{}, wantEvaluated: true},
		{name: "broker announces the submission", publisher: &fakePublisher{enabled: true}, wantCreated: 1},
		{name: "publish failure falls back to in process", publisher: &fakePublisher{enabled: true, failing: true}, wantScored: 1, wantEvaluated: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			test := f.seed(t, writingTest("Writing "+tc.name, 1, model.CombineAverage, model.FailedExclude))
			sub := submitDraft(t, f, test, "session-"+tc.name)
			evaluator := newFakeEvaluator(fixedScore(6))
			dispatcher := NewEvaluationDispatcher(newTestOrchestrator(f, evaluator, time.Second), tc.publisher, time.Minute)

			dispatcher.Dispatch(sub)
			dispatcher.Wait()

			created, scored := tc.publisher.counts()
			if created != tc.wantCreated || scored != tc.wantScored {
				t.Errorf("expected %d created and %d scored events, got %d and %d", tc.wantCreated, tc.wantScored, created, scored)
			}
			evaluated := evaluator.callsFor(test.Parts[0].ID) > 0
			if evaluated != tc.wantEvaluated {
				t.Errorf("expected evaluated=%v, got %v", tc.wantEvaluated, evaluated)
			}
		})
	}
}

func TestHandleSubmissionCreatedPublishesScoreOnce(t *testing.T) {
	f := newFixture()
	test := f.seed(t, writingTest("Writing consumer", 2, model.CombineAverage, model.FailedExclude))
	sub := submitDraft(t, f, test, "session-consumer")
	publisher := &fakePublisher{enabled: true}
	dispatcher := NewEvaluationDispatcher(newTestOrchestrator(f, newFakeEvaluator(fixedScore(7)), time.Second), publisher, time.Minute)

	event := *events.NewSubmissionCreatedEvent(sub.ID, sub.SessionID, sub.TestID, sub.UserID)
	for i := 0; i < 2; i++ {
		if err := dispatcher.HandleSubmissionCreated(context.Background(), event); err != nil {
			t.Fatalf("HandleSubmissionCreated %d: %v", i, err)
		}
	}

	_, scored := publisher.counts()
	if scored != 1 {
		t.Fatalf("redelivery must not announce the score twice, got %d events", scored)
	}
	got := publisher.scored[0]
	if got.SubmissionID != sub.ID || got.Score == nil || *got.Score != 7 || got.Band == nil || *got.Band != 7 {
		t.Errorf("unexpected scored event %+v", got)
	}
}

func TestHandleSubmissionCreatedUnknownSubmission(t *testing.T) {
	f := newFixture()
	dispatcher := NewEvaluationDispatcher(newTestOrchestrator(f, newFakeEvaluator(fixedScore(1)), time.Second), nil, time.Minute)
	event := events.SubmissionEvent{SubmissionID: "missing"}
	if err := dispatcher.HandleSubmissionCreated(context.Background(), event); err == nil {
		t.Error("expected an error for an unknown submission")
	}
}
