package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"taalcoach/internal/models"
)

// LanguageModel is the boundary to the external generative language
// service. All operations are synchronous and return either a full result
// or an error; there is no retry policy at this layer.
type LanguageModel interface {
	// GenerateQuestion produces one new question text for the learner's
	// tier, given the chronological history of previously answered questions.
	GenerateQuestion(ctx context.Context, level models.ProficiencyLevel, history []models.Question) (string, error)

	// ValidateAnswer grades a free-text answer against the question.
	ValidateAnswer(ctx context.Context, question, answer string) (*models.ValidationResult, error)

	// GenerateContext produces an example conversation using the question's
	// vocabulary and grammar.
	GenerateContext(ctx context.Context, question string) (string, error)

	// ExplainQuestion produces an explanation of what the question asks for.
	ExplainQuestion(ctx context.Context, question string) (string, error)
}

// LanguageService talks to an OpenAI-compatible chat completions endpoint.
type LanguageService struct {
	baseURL    string
	apiKey     string
	model      string
	prompts    *models.PromptSet
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewLanguageService creates a language service client. requestsPerSecond
// paces outgoing requests client-side; zero or negative disables pacing.
func NewLanguageService(baseURL, apiKey, model string, prompts *models.PromptSet, requestsPerSecond float64) *LanguageService {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return &LanguageService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		prompts:    prompts,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    limiter,
	}
}

// GenerateQuestion asks for one new question calibrated to the learner's
// tier. The answered history rides along as conversation turns so the model
// avoids repetition and tracks difficulty.
func (s *LanguageService) GenerateQuestion(ctx context.Context, level models.ProficiencyLevel, history []models.Question) (string, error) {
	messages := []map[string]interface{}{
		{"role": "system", "content": fmt.Sprintf(s.prompts.GenerateSystem, level)},
	}

	for _, q := range history {
		messages = append(messages, map[string]interface{}{
			"role": "assistant", "content": q.Question,
		})
		if len(q.Answers) > 0 {
			latest := q.Answers[len(q.Answers)-1]
			messages = append(messages, map[string]interface{}{
				"role": "user", "content": latest.Answer,
			})
		}
	}

	messages = append(messages, map[string]interface{}{
		"role": "user", "content": "Give me my next question.",
	})

	text, err := s.completion(ctx, "generate", messages)
	if err != nil {
		return "", err
	}

	return text, nil
}

// ValidateAnswer grades an answer. The model is instructed to reply with a
// single JSON object {correct, mistakes, explanation}; the reply is parsed
// tolerantly of code fences and surrounding prose.
func (s *LanguageService) ValidateAnswer(ctx context.Context, question, answer string) (*models.ValidationResult, error) {
	messages := []map[string]interface{}{
		{"role": "system", "content": s.prompts.ValidateSystem},
		{"role": "user", "content": fmt.Sprintf("Question: %s\nLearner's answer: %s", question, answer)},
	}

	text, err := s.completion(ctx, "validate", messages)
	if err != nil {
		return nil, err
	}

	result, err := parseValidationResult(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse validation response: %w", err)
	}

	return result, nil
}

// GenerateContext produces an example conversation for a question.
func (s *LanguageService) GenerateContext(ctx context.Context, question string) (string, error) {
	messages := []map[string]interface{}{
		{"role": "system", "content": s.prompts.ContextSystem},
		{"role": "user", "content": question},
	}

	return s.completion(ctx, "context", messages)
}

// ExplainQuestion produces an explanation for a question.
func (s *LanguageService) ExplainQuestion(ctx context.Context, question string) (string, error) {
	messages := []map[string]interface{}{
		{"role": "system", "content": s.prompts.ExplanationSystem},
		{"role": "user", "content": question},
	}

	return s.completion(ctx, "explanation", messages)
}

// completion performs a synchronous (non-streaming) chat completion and
// returns the first choice's text. Empty completions are a hard failure.
func (s *LanguageService) completion(ctx context.Context, operation string, messages []map[string]interface{}) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("request pacing interrupted: %w", err)
		}
	}

	reqBody := map[string]interface{}{
		"model":    s.model,
		"messages": messages,
		"stream":   false,
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewBuffer(reqJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.recordError(operation)
		return "", fmt.Errorf("%w: request failed: %v", ErrLanguageService, err)
	}
	defer resp.Body.Close()

	if m := GetMetrics(); m != nil {
		m.LLMRequestLatency.Observe(time.Since(start).Seconds())
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		s.recordError(operation)
		return "", fmt.Errorf("%w: status %d: %s", ErrLanguageService, resp.StatusCode, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		s.recordError(operation)
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrLanguageService, err)
	}

	if len(result.Choices) == 0 {
		s.recordError(operation)
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		s.recordError(operation)
		return "", ErrEmptyCompletion
	}

	log.Printf("📡 [LLM] %s completion: %d chars", operation, len(content))
	return content, nil
}

func (s *LanguageService) recordError(operation string) {
	if m := GetMetrics(); m != nil {
		m.LLMErrors.WithLabelValues(operation).Inc()
	}
}

// parseValidationResult extracts the JSON grading object from the model's
// reply. Models wrap JSON in code fences or prose often enough that the
// first-{ to last-} span is taken before unmarshalling.
func parseValidationResult(text string) (*models.ValidationResult, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var result models.ValidationResult
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return nil, err
	}

	if result.Mistakes == "" {
		result.Mistakes = "none"
	}

	return &result, nil
}
