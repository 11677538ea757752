package service

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/lshigami/examflow/config"
	"github.com/lshigami/examflow/internal/model"
)

type geminiEvaluator struct {
	client *genai.GenerativeModel
	http   *resty.Client
	model  string
}

func NewGeminiEvaluator(cfg *config.Config) (Evaluator, error) {
	if cfg.GeminiApiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set: %w", ErrMissingAPIKey)
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	m := client.GenerativeModel(cfg.GeminiModel)
	m.SetTemperature(0.1)
	return &geminiEvaluator{client: m, http: resty.New(), model: cfg.GeminiModel}, nil
}

func (s *geminiEvaluator) Name() string { return "gemini:" + s.model }

func (s *geminiEvaluator) fetchImageData(ctx context.Context, imageURL string) ([]byte, string, error) {
	resp, err := s.http.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image from URL %s: %w", imageURL, err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("failed to fetch image (status %d) from URL %s", resp.StatusCode(), imageURL)
	}

	var mimeType string
	if contentType := resp.Header().Get("Content-Type"); contentType != "" {
		parsed, _, parseErr := mime.ParseMediaType(contentType)
		if parseErr == nil && strings.HasPrefix(parsed, "image/") {
			mimeType = parsed
		}
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(imageURL))
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, "", fmt.Errorf("unsupported or undeterminable image MIME type for %s", imageURL)
		}
	}
	return resp.Body(), mimeType, nil
}

// parseScoreAndFeedback extracts the "Score:" and "Feedback:" sections of a response.
func parseScoreAndFeedback(rawResponse string) (scoreStr string, feedbackStr string, err error) {
	scorePrefix := "Score:"
	feedbackPrefix := "Feedback:"

	scoreIndex := strings.Index(rawResponse, scorePrefix)
	feedbackIndex := strings.Index(rawResponse, feedbackPrefix)

	if scoreIndex == -1 {
		return "", rawResponse, fmt.Errorf("response does not contain 'Score:' prefix. Raw: %s", rawResponse)
	}

	endOfScoreLine := strings.Index(rawResponse[scoreIndex:], "\n")
	if endOfScoreLine == -1 {
		scoreStr = strings.TrimSpace(rawResponse[scoreIndex+len(scorePrefix):])
	} else {
		scoreStr = strings.TrimSpace(rawResponse[scoreIndex+len(scorePrefix) : scoreIndex+endOfScoreLine])
	}

	if feedbackIndex != -1 && feedbackIndex > scoreIndex {
		feedbackStr = strings.TrimSpace(rawResponse[feedbackIndex+len(feedbackPrefix):])
	} else if endOfScoreLine != -1 && len(rawResponse) > scoreIndex+endOfScoreLine+1 {
		feedbackStr = strings.TrimSpace(rawResponse[scoreIndex+endOfScoreLine+1:])
	} else {
		feedbackStr = "Feedback not found in the expected format after the score."
	}

	if fields := strings.Fields(scoreStr); len(fields) > 0 {
		scoreStr = strings.TrimSuffix(fields[0], ",")
	}
	return scoreStr, feedbackStr, nil
}

func (s *geminiEvaluator) Evaluate(ctx context.Context, req EvaluationRequest) (model.EvaluationResult, error) {
	var parts []genai.Part
	hasImage := false
	if req.Part.ImageURL != nil && *req.Part.ImageURL != "" {
		imageData, mimeType, err := s.fetchImageData(ctx, *req.Part.ImageURL)
		if err != nil {
			log.Warn().Err(err).Str("imageURL", *req.Part.ImageURL).Msg("Scoring without the task image")
		} else {
			parts = append(parts, genai.Blob{MIMEType: mimeType, Data: imageData})
			hasImage = true
		}
	}
	if len(req.Audio) > 0 {
		audioType := req.AudioType
		if audioType == "" {
			audioType = "audio/webm"
		}
		parts = append(parts, genai.Blob{MIMEType: audioType, Data: req.Audio})
	}

	prompt := buildTaskPrompt(req, hasImage) + fmt.Sprintf(`
Please provide your evaluation in two distinct parts:
1. Score: %s reflecting the overall quality across all criteria.
2. Feedback: Detailed, constructive feedback. Identify strong points, point out specific errors
   with a brief explanation and a corrected example, and offer advice for improvement.

Format your response strictly as:
Score: [Your Numerical Score Here]
Feedback:
[Your Detailed Feedback Here]
`, scoreRangeLine(&req.Part))
	parts = append(parts, genai.Text(prompt))

	resp, err := s.client.GenerateContent(ctx, parts...)
	if err != nil {
		log.Error().Err(err).Str("submissionID", req.SubmissionID).Uint("partID", req.Part.ID).Msg("Gemini API error during scoring")
		return model.EvaluationResult{}, fmt.Errorf("gemini generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return model.EvaluationResult{}, fmt.Errorf("gemini returned no content")
	}
	var fullResponseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			fullResponseText.WriteString(string(txt))
		}
	}
	if fullResponseText.Len() == 0 {
		return model.EvaluationResult{}, fmt.Errorf("gemini returned no text content")
	}

	scoreStr, feedbackStr, err := parseScoreAndFeedback(fullResponseText.String())
	if err != nil {
		log.Warn().Err(err).Uint("partID", req.Part.ID).Msg("Failed to parse score and feedback from Gemini response")
		return model.EvaluationResult{}, err
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(scoreStr), 64)
	if err != nil {
		return model.EvaluationResult{}, fmt.Errorf("could not parse score value (%q) from AI response: %w", scoreStr, err)
	}

	return model.EvaluationResult{
		SubScore:  score,
		Feedback:  feedbackStr,
		Evaluator: s.Name(),
	}, nil
}
