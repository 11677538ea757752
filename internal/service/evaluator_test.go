package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lshigami/examflow/config"
	"github.com/lshigami/examflow/internal/model"
)

func TestKeyEvaluator(t *testing.T) {
	testCases := []struct {
		name   string
		part   model.Part
		answer model.AnswerPayload
		want   float64
	}{
		{
			name:   "single choice ignores case and spacing",
			part:   model.Part{Type: model.PartSingleChoice, MaxScore: 1, AnswerKey: &model.AnswerPayload{Choice: "C"}},
			answer: model.AnswerPayload{Choice: " c"},
			want:   1,
		},
		{
			name:   "single choice wrong",
			part:   model.Part{Type: model.PartSingleChoice, MaxScore: 1, AnswerKey: &model.AnswerPayload{Choice: "C"}},
			answer: model.AnswerPayload{Choice: "A"},
			want:   0,
		},
		{
			name:   "multi choice any order",
			part:   model.Part{Type: model.PartMultiChoice, MaxScore: 2, AnswerKey: &model.AnswerPayload{Choices: []string{"A", "D"}}},
			answer: model.AnswerPayload{Choices: []string{"d", "a"}},
			want:   2,
		},
		{
			name:   "multi choice is all or nothing",
			part:   model.Part{Type: model.PartMultiChoice, MaxScore: 2, AnswerKey: &model.AnswerPayload{Choices: []string{"A", "D"}}},
			answer: model.AnswerPayload{Choices: []string{"A"}},
			want:   0,
		},
		{
			name:   "field list scores each field",
			part:   model.Part{Type: model.PartFieldList, MaxScore: 4, AnswerKey: &model.AnswerPayload{Fields: []string{"north", "1850", "iron", "bridge"}}},
			answer: model.AnswerPayload{Fields: []string{"North", "1850", "steel"}},
			want:   2,
		},
		{
			name: "label mapping scores each label",
			part: model.Part{Type: model.PartLabelMapping, AnswerKey: &model.AnswerPayload{Mapping: map[string]string{
				"Brindley": "aqueduct", "Telford": "tunnel",
			}}},
			answer: model.AnswerPayload{Mapping: map[string]string{"Brindley": "Aqueduct", "Telford": "lock"}},
			want:   0.5,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := NewKeyEvaluator().Evaluate(context.Background(), EvaluationRequest{
				Part:   tc.part,
				Answer: model.SubmissionAnswer{Payload: tc.answer},
			})
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if res.SubScore != tc.want {
				t.Errorf("expected %v, got %v", tc.want, res.SubScore)
			}
		})
	}
}

func TestKeyEvaluatorRequiresKey(t *testing.T) {
	_, err := NewKeyEvaluator().Evaluate(context.Background(), EvaluationRequest{
		Part: model.Part{ID: 3, Type: model.PartSingleChoice},
	})
	if err == nil {
		t.Fatal("expected an error for a part without an answer key")
	}
}

func TestEvaluatorRouter(t *testing.T) {
	freeText := model.Part{ID: 1, Type: model.PartFreeText, MaxScore: 9}
	answered := model.SubmissionAnswer{PartID: 1, Payload: model.AnswerPayload{Kind: model.PartFreeText, Text: "essay"}}
	fast := RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	testCases := []struct {
		name      string
		llm       func(calls int) (model.EvaluationResult, error)
		answer    model.SubmissionAnswer
		noLLM     bool
		wantCalls int
		wantScore float64
		wantErr   bool
	}{
		{
			name: "retries transient failures",
			llm: func(calls int) (model.EvaluationResult, error) {
				if calls < 3 {
					return model.EvaluationResult{}, &statusError{Code: 503, Body: "busy"}
				}
				return model.EvaluationResult{SubScore: 7}, nil
			},
			answer:    answered,
			wantCalls: 3,
			wantScore: 7,
		},
		{
			name: "stops on a client error",
			llm: func(int) (model.EvaluationResult, error) {
				return model.EvaluationResult{}, &statusError{Code: 400, Body: "bad request"}
			},
			answer:    answered,
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name: "gives up after max retries",
			llm: func(int) (model.EvaluationResult, error) {
				return model.EvaluationResult{}, &statusError{Code: 429, Body: "slow down"}
			},
			answer:    answered,
			wantCalls: 4,
			wantErr:   true,
		},
		{
			name: "clamps scores to the part maximum",
			llm: func(int) (model.EvaluationResult, error) {
				return model.EvaluationResult{SubScore: 12}, nil
			},
			answer:    answered,
			wantCalls: 1,
			wantScore: 9,
		},
		{
			name: "empty answers score zero without a model call",
			llm: func(int) (model.EvaluationResult, error) {
				return model.EvaluationResult{SubScore: 5}, nil
			},
			answer:    model.SubmissionAnswer{PartID: 1, Empty: true},
			wantCalls: 0,
			wantScore: 0,
		},
		{
			name:    "no model configured",
			answer:  answered,
			noLLM:   true,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			var llm Evaluator
			if !tc.noLLM {
				llm = newFakeEvaluator(func(context.Context, EvaluationRequest) (model.EvaluationResult, error) {
					calls++
					return tc.llm(calls)
				})
			}
			router := NewEvaluatorRouter(NewKeyEvaluator(), llm, fast)
			res, err := router.Evaluate(context.Background(), EvaluationRequest{Part: freeText, Answer: tc.answer})
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error=%v, got %v", tc.wantErr, err)
			}
			if tc.noLLM && !errors.Is(err, ErrNoEvaluator) {
				t.Errorf("expected ErrNoEvaluator, got %v", err)
			}
			if calls != tc.wantCalls {
				t.Errorf("expected %d model calls, got %d", tc.wantCalls, calls)
			}
			if err == nil && res.SubScore != tc.wantScore {
				t.Errorf("expected score %v, got %v", tc.wantScore, res.SubScore)
			}
		})
	}
}

func TestEvaluatorRouterStopsWhenContextEnds(t *testing.T) {
	llm := newFakeEvaluator(func(context.Context, EvaluationRequest) (model.EvaluationResult, error) {
		return model.EvaluationResult{}, &statusError{Code: 503}
	})
	router := NewEvaluatorRouter(NewKeyEvaluator(), llm, RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := router.Evaluate(ctx, EvaluationRequest{
		Part:   model.Part{ID: 1, Type: model.PartFreeText},
		Answer: model.SubmissionAnswer{Payload: model.AnswerPayload{Kind: model.PartFreeText, Text: "x"}},
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the deadline to end the retry loop, got %v", err)
	}
}

func TestParseScoreAndFeedback(t *testing.T) {
	testCases := []struct {
		name         string
		raw          string
		wantScore    string
		wantFeedback string
		wantErr      bool
	}{
		{
			name:         "score then feedback",
			raw:          "Score: 6.5\nFeedback: Good range of vocabulary.",
			wantScore:    "6.5",
			wantFeedback: "Good range of vocabulary.",
		},
		{
			name:         "score with trailing words",
			raw:          "Score: 7, overall\nFeedback: Clear.",
			wantScore:    "7",
			wantFeedback: "Clear.",
		},
		{
			name:         "feedback without prefix",
			raw:          "Score: 5\nNeeds more detail.",
			wantScore:    "5",
			wantFeedback: "Needs more detail.",
		},
		{
			name:    "no score",
			raw:     "This essay is fine.",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			score, feedback, err := parseScoreAndFeedback(tc.raw)
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error=%v, got %v", tc.wantErr, err)
			}
			if tc.wantErr {
				return
			}
			if score != tc.wantScore || feedback != tc.wantFeedback {
				t.Errorf("got score=%q feedback=%q", score, feedback)
			}
		})
	}
}

func TestParseOpenRouterResponse(t *testing.T) {
	body := "{\"choices\":[{\"message\":{\"content\":\"```json\\n{\\\"score\\\": 6.5, \\\"feedback\\\": \\\"Good.\\\", \\\"criteria\\\": [{\\\"criterion\\\": \\\"Coherence\\\", \\\"score\\\": 6, \\\"comment\\\": \\\"Linked.\\\"}]}\\n```\"}}]}"

	res, err := parseOpenRouterResponse(body, "openrouter:test")
	if err != nil {
		t.Fatalf("parseOpenRouterResponse: %v", err)
	}
	if res.SubScore != 6.5 || res.Feedback != "Good." || res.Evaluator != "openrouter:test" {
		t.Errorf("unexpected result %+v", res)
	}
	if len(res.Criteria) != 1 || res.Criteria[0].Criterion != "Coherence" || res.Criteria[0].Score != 6 {
		t.Errorf("unexpected criteria %+v", res.Criteria)
	}

	for _, bad := range []string{
		`{"choices":[]}`,
		`{"choices":[{"message":{"content":"not json"}}]}`,
		`{"choices":[{"message":{"content":"{\"feedback\":\"no score\"}"}}]}`,
	} {
		if _, err := parseOpenRouterResponse(bad, "openrouter:test"); err == nil {
			t.Errorf("expected an error for %s", bad)
		}
	}
}

func TestLanguageModelEvaluatorsRequireAPIKey(t *testing.T) {
	cfg := &config.Config{GeminiModel: "gemini-1.5-flash", OpenRouterModel: "google/gemini-2.0-flash-001", OpenRouterURL: "https://openrouter.ai/api/v1"}

	testCases := []struct {
		name string
		new  func(*config.Config) (Evaluator, error)
	}{
		{"gemini", NewGeminiEvaluator},
		{"openrouter", NewOpenRouterEvaluator},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := tc.new(cfg)
			if !errors.Is(err, ErrMissingAPIKey) {
				t.Errorf("expected ErrMissingAPIKey, got %v", err)
			}
			if e != nil {
				t.Errorf("expected no evaluator without a key")
			}
		})
	}
}
