package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"

	"github.com/lshigami/examflow/internal/model"
)

var ErrNoEvaluator = errors.New("no evaluator configured for this part")

// ErrMissingAPIKey is returned by language model evaluators constructed without credentials.
var ErrMissingAPIKey = errors.New("missing API key")

// EvaluationRequest is one unit of scoring work.
type EvaluationRequest struct {
	SubmissionID string
	Test         *model.Test
	Part         model.Part
	Answer       model.SubmissionAnswer
	Audio        []byte // the part's slice of the session recording, speaking only
	AudioType    string
}

type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, req EvaluationRequest) (model.EvaluationResult, error)
}

// KeyEvaluator grades objective parts against their answer key.
type KeyEvaluator struct{}

func NewKeyEvaluator() *KeyEvaluator { return &KeyEvaluator{} }

func (KeyEvaluator) Name() string { return "answer_key" }

func (KeyEvaluator) Evaluate(_ context.Context, req EvaluationRequest) (model.EvaluationResult, error) {
	key := req.Part.AnswerKey
	if key == nil {
		return model.EvaluationResult{}, fmt.Errorf("part %d has no answer key", req.Part.ID)
	}
	got := req.Answer.Payload
	maxScore := partMaxScore(&req.Part)

	correct, total := 0, 1
	switch req.Part.Type {
	case model.PartSingleChoice:
		if normalize(got.Choice) == normalize(key.Choice) {
			correct = 1
		}
	case model.PartMultiChoice:
		if sameSet(got.Choices, key.Choices) {
			correct = 1
		}
	case model.PartFieldList:
		total = len(key.Fields)
		for i, want := range key.Fields {
			if i < len(got.Fields) && normalize(got.Fields[i]) == normalize(want) {
				correct++
			}
		}
	case model.PartLabelMapping:
		total = len(key.Mapping)
		for label, want := range key.Mapping {
			if normalize(got.Mapping[label]) == normalize(want) {
				correct++
			}
		}
	default:
		return model.EvaluationResult{}, fmt.Errorf("part type %s cannot be graded by key", req.Part.Type)
	}
	if total == 0 {
		return model.EvaluationResult{}, fmt.Errorf("part %d has an empty answer key", req.Part.ID)
	}

	return model.EvaluationResult{
		SubScore:  maxScore * float64(correct) / float64(total),
		Feedback:  fmt.Sprintf("%d of %d correct.", correct, total),
		Evaluator: "answer_key",
	}, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[normalize(v)]++
	}
	for _, v := range b {
		n := normalize(v)
		if seen[n] == 0 {
			return false
		}
		seen[n]--
	}
	return true
}

// RetryPolicy is exponential backoff with jitter between attempts of a retryable call.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, BaseDelay: time.Second, MaxDelay: 20 * time.Second}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	jitter := time.Duration(float64(delay) * 0.25 * rand.Float64())
	return delay - jitter
}

// statusError is an HTTP failure from an evaluator backend.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("evaluator returned status %d: %s", e.Code, e.Body)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	code := 0
	var apiErr *googleapi.Error
	var httpErr *statusError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &httpErr):
		code = httpErr.Code
	}
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	case 400, 401, 403, 404:
		return false
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "temporary failure") ||
		strings.Contains(errMsg, "EOF")
}

// evaluatorRouter sends objective parts to the key evaluator and everything else to the
// language model, retrying transient model failures inside the caller's deadline.
type evaluatorRouter struct {
	key   Evaluator
	llm   Evaluator
	retry RetryPolicy
}

func NewEvaluatorRouter(key, llm Evaluator, retry RetryPolicy) Evaluator {
	return &evaluatorRouter{key: key, llm: llm, retry: retry}
}

func (r *evaluatorRouter) Name() string { return "router" }

func (r *evaluatorRouter) Evaluate(ctx context.Context, req EvaluationRequest) (model.EvaluationResult, error) {
	if req.Part.Objective() {
		return r.key.Evaluate(ctx, req)
	}
	if req.Answer.Empty {
		return model.EvaluationResult{SubScore: 0, Feedback: "No answer was given.", Evaluator: "none"}, nil
	}
	if r.llm == nil {
		return model.EvaluationResult{}, ErrNoEvaluator
	}

	var lastErr error
	for attempt := 0; attempt <= r.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.retry.backoff(attempt)
			log.Debug().Uint("partID", req.Part.ID).Int("attempt", attempt).Dur("delay", delay).Msg("Retrying evaluation")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return model.EvaluationResult{}, fmt.Errorf("evaluation cancelled during retry: %w", ctx.Err())
			}
		}

		result, err := r.llm.Evaluate(ctx, req)
		if err == nil {
			result.SubScore = clamp(result.SubScore, 0, partMaxScore(&req.Part))
			if result.Evaluator == "" {
				result.Evaluator = r.llm.Name()
			}
			return result, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return model.EvaluationResult{}, err
		}
		log.Warn().Err(err).Uint("partID", req.Part.ID).Int("attempt", attempt+1).Msg("Retryable evaluator error")
	}
	return model.EvaluationResult{}, fmt.Errorf("max retries (%d) exceeded: %w", r.retry.MaxRetries, lastErr)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
