package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/lshigami/examflow/config"
	"github.com/lshigami/examflow/internal/model"
)

// openRouterEvaluator scores text answers through an OpenAI-compatible chat completions API.
type openRouterEvaluator struct {
	client *resty.Client
	model  string
}

func NewOpenRouterEvaluator(cfg *config.Config) (Evaluator, error) {
	if cfg.OpenRouterApiKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is not set: %w", ErrMissingAPIKey)
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.OpenRouterURL, "/")).
		SetAuthToken(cfg.OpenRouterApiKey).
		SetHeader("Content-Type", "application/json")
	return &openRouterEvaluator{client: client, model: cfg.OpenRouterModel}, nil
}

func (s *openRouterEvaluator) Name() string { return "openrouter:" + s.model }

func (s *openRouterEvaluator) Evaluate(ctx context.Context, req EvaluationRequest) (model.EvaluationResult, error) {
	prompt := buildTaskPrompt(req, false) + fmt.Sprintf(`
Return your answer STRICTLY in JSON format with this schema:
{
  "score": <%s>,
  "feedback": "<detailed, constructive feedback>",
  "criteria": [{"criterion": "<criterion name>", "score": <number>, "comment": "<short comment>"}]
}
`, scoreRangeLine(&req.Part))

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"model": s.model,
			"messages": []map[string]string{
				{"role": "system", "content": "You are an examiner scoring language test answers."},
				{"role": "user", "content": prompt},
			},
		}).
		Post("/chat/completions")
	if err != nil {
		return model.EvaluationResult{}, fmt.Errorf("openrouter request: %w", err)
	}
	if resp.IsError() {
		return model.EvaluationResult{}, &statusError{Code: resp.StatusCode(), Body: resp.String()}
	}
	return parseOpenRouterResponse(resp.String(), s.Name())
}

func parseOpenRouterResponse(body, evaluator string) (model.EvaluationResult, error) {
	text := gjson.Get(body, "choices.0.message.content").String()
	if text == "" {
		return model.EvaluationResult{}, fmt.Errorf("no response from LLM")
	}
	text = stripCodeFence(text)
	if !gjson.Valid(text) {
		log.Warn().Str("content", text).Msg("OpenRouter returned non-JSON content")
		return model.EvaluationResult{}, fmt.Errorf("LLM response is not valid JSON")
	}
	score := gjson.Get(text, "score")
	if !score.Exists() {
		return model.EvaluationResult{}, fmt.Errorf("LLM response has no score")
	}

	result := model.EvaluationResult{
		SubScore:  score.Float(),
		Feedback:  gjson.Get(text, "feedback").String(),
		Evaluator: evaluator,
	}
	gjson.Get(text, "criteria").ForEach(func(_, c gjson.Result) bool {
		result.Criteria = append(result.Criteria, model.CriterionFeedback{
			Criterion: c.Get("criterion").String(),
			Score:     c.Get("score").Float(),
			Comment:   c.Get("comment").String(),
		})
		return true
	})
	return result, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
