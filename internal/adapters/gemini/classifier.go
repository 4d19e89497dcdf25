package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/shieldtech/linkshield/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClassifier is an implementation of the Classifier interface using
// Google Gemini
type GeminiClassifier struct {
	client       *genai.Client
	model        *genai.GenerativeModel
	modelName    string
	logger       *zap.Logger
	promptFormat string
}

// classifierResponse represents the structured response from the model
type classifierResponse struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason"`
}

// NewGeminiClassifier creates a new Gemini classifier
func NewGeminiClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*GeminiClassifier, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"

	return &GeminiClassifier{
		client:       client,
		model:        model,
		modelName:    modelName,
		logger:       logger,
		promptFormat: promptFormat,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClassifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ClassifyURL analyzes a URL and returns its risk verdict
func (c *GeminiClassifier) ClassifyURL(ctx context.Context, url string, knownPhish []string) (*core.Verdict, error) {
	prompt := fmt.Sprintf(c.promptFormat, url, trendsBlock(knownPhish))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 429 {
			return nil, &core.RateLimitError{RetryAfter: retryAfter(apiErr)}
		}
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

	parsed, err := parseClassifierResponse(responseText)
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

// retryAfter extracts the provider's Retry-After hint in seconds, zero when
// absent or unparseable
func retryAfter(apiErr *googleapi.Error) time.Duration {
	if apiErr.Header == nil {
		return 0
	}
	raw := strings.TrimSpace(apiErr.Header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
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
