package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/events"
	"github.com/lshigami/examflow/internal/model"
)

// EvaluationDispatcher starts evaluation for new submissions. With a broker configured the
// submission is announced and a consumer runs the orchestrator; otherwise it runs in a
// background goroutine of this process.
type EvaluationDispatcher struct {
	orchestrator EvaluationOrchestrator
	publisher    events.Publisher
	timeout      time.Duration
	wg           sync.WaitGroup
}

func NewEvaluationDispatcher(orchestrator EvaluationOrchestrator, publisher events.Publisher, timeout time.Duration) *EvaluationDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &EvaluationDispatcher{orchestrator: orchestrator, publisher: publisher, timeout: timeout}
}

func (d *EvaluationDispatcher) brokerEnabled() bool {
	return d.publisher != nil && d.publisher.Enabled()
}

func (d *EvaluationDispatcher) Dispatch(sub *model.Submission) {
	if d.brokerEnabled() {
		event := events.NewSubmissionCreatedEvent(sub.ID, sub.SessionID, sub.TestID, sub.UserID)
		err := d.publisher.PublishSubmissionCreated(context.Background(), event)
		if err == nil {
			log.Info().Str("submissionID", sub.ID).Msg("Dispatch: submission.created published")
			return
		}
		log.Error().Err(err).Str("submissionID", sub.ID).Msg("Dispatch: publish failed, evaluating in-process")
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if _, err := d.Run(ctx, sub.ID); err != nil {
			log.Error().Err(err).Str("submissionID", sub.ID).Msg("Dispatch: in-process evaluation failed")
		}
	}()
}

// HandleSubmissionCreated is the broker consumer's handler.
func (d *EvaluationDispatcher) HandleSubmissionCreated(ctx context.Context, event events.SubmissionEvent) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	_, err := d.Run(ctx, event.SubmissionID)
	return err
}

// Run evaluates a submission and announces a newly written aggregate.
func (d *EvaluationDispatcher) Run(ctx context.Context, submissionID string) (*EvaluationReport, error) {
	report, err := d.orchestrator.Evaluate(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	agg := report.Aggregate
	if agg == nil || !agg.Written || !d.brokerEnabled() {
		return report, nil
	}

	score := agg.Score
	event := events.NewSubmissionScoredEvent(submissionID, report.TestID, report.UserID, &score, agg.Band, agg.Partial, agg.Failed)
	if err := d.publisher.PublishSubmissionScored(ctx, event); err != nil {
		log.Warn().Err(err).Str("submissionID", submissionID).Msg("Run: failed to publish submission.scored")
	}
	return report, nil
}

// Wait blocks until in-process evaluations have finished.
func (d *EvaluationDispatcher) Wait() {
	d.wg.Wait()
}
