package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shieldtech/linkshield/internal/core"
	"go.uber.org/zap"
)

// OpenAIClassifier is an implementation of the Classifier interface using
// OpenAI
type OpenAIClassifier struct {
	client       *openai.Client
	modelName    string
	maxTokens    int
	temperature  float32
	topP         float32
	logger       *zap.Logger
	promptFormat string
}

// classifierResponse represents the structured response from the model
type classifierResponse struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason"`
}

// NewOpenAIClassifier creates a new OpenAI classifier
func NewOpenAIClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *OpenAIClassifier {
	return &OpenAIClassifier{
		client:       openai.NewClient(apiKey),
		modelName:    modelName,
		maxTokens:    maxTokens,
		temperature:  temperature,
		topP:         topP,
		logger:       logger,
		promptFormat: promptFormat,
	}
}

// ClassifyURL analyzes a URL and returns its risk verdict
func (c *OpenAIClassifier) ClassifyURL(ctx context.Context, url string, knownPhish []string) (*core.Verdict, error) {
	prompt := fmt.Sprintf(c.promptFormat, url, trendsBlock(knownPhish))

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a URL security classifier. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return nil, &core.RateLimitError{}
		}
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	parsed, err := parseClassifierResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(parsed.Reason)
	if reason == "" {
		reason = core.DefaultReason
	}

	return &core.Verdict{
		URL:            url,
		Classification: core.ParseClassification(strings.ToUpper(parsed.Verdict)),
		Reason:         reason,
		ObservedAt:     time.Now(),
	}, nil
}

// parseClassifierResponse parses the model's JSON response, tolerating
// surrounding prose by extracting the outermost JSON object
func parseClassifierResponse(responseText string) (*classifierResponse, error) {
	var parsed classifierResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStart := strings.Index(responseText, "{")
		jsonEnd := strings.LastIndex(responseText, "}")
		if jsonStart < 0 || jsonEnd <= jsonStart {
			return nil, fmt.Errorf("failed to extract JSON from model response: %w", err)
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
		}
	}
	return &parsed, nil
}

const promptFormat = `You are a URL security classifier. Analyze the URL below for phishing, malware, scam, credential harvesting, deceptive impersonation, typosquatting, and short-lived campaign links. Use the provided active phishing sample list as current trend context. If the URL matches or closely imitates those campaign patterns, raise risk. Return ONLY strict JSON with keys "verdict" and "reason". "verdict" must be one of SAFE, SUSPICIOUS, DANGER.

URL: %s

Recent active phishing samples:
%s`

// trendsBlock formats the indicator sample for the prompt
func trendsBlock(knownPhish []string) string {
	if len(knownPhish) == 0 {
		return "- (none available)"
	}
	lines := make([]string, len(knownPhish))
	for i, u := range knownPhish {
		lines[i] = "- " + u
	}
	return strings.Join(lines, "\n")
}
