package gemini

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
)

func TestParseClassifierResponse(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVerdict string
		wantErr     bool
	}{
		{
			name:        "strict JSON",
			input:       `{"verdict": "SAFE", "reason": "well-known site"}`,
			wantVerdict: "SAFE",
		},
		{
			name:        "JSON wrapped in prose",
			input:       "Here is my analysis:\n{\"verdict\": \"DANGER\", \"reason\": \"credential harvesting\"}\nLet me know if you need more.",
			wantVerdict: "DANGER",
		},
		{
			name:        "fenced code block",
			input:       "```json\n{\"verdict\": \"SUSPICIOUS\", \"reason\": \"typosquatting\"}\n```",
			wantVerdict: "SUSPICIOUS",
		},
		{
			name:    "no JSON at all",
			input:   "I cannot classify this URL.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parseClassifierResponse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if parsed.Verdict != tt.wantVerdict {
				t.Errorf("expected verdict %q, got %q", tt.wantVerdict, parsed.Verdict)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	withHeader := &googleapi.Error{Code: 429, Header: http.Header{"Retry-After": []string{"45"}}}
	if got := retryAfter(withHeader); got != 45*time.Second {
		t.Errorf("expected 45s from the header, got %v", got)
	}

	noHeader := &googleapi.Error{Code: 429}
	if got := retryAfter(noHeader); got != 0 {
		t.Errorf("expected zero without a header, got %v", got)
	}

	garbage := &googleapi.Error{Code: 429, Header: http.Header{"Retry-After": []string{"soon"}}}
	if got := retryAfter(garbage); got != 0 {
		t.Errorf("expected zero for an unparseable header, got %v", got)
	}
}

func TestTrendsBlock(t *testing.T) {
	if got := trendsBlock(nil); got != "- (none available)" {
		t.Errorf("expected the empty-sample placeholder, got %q", got)
	}

	got := trendsBlock([]string{"https://a.test", "https://b.test"})
	if !strings.Contains(got, "- https://a.test") || !strings.Contains(got, "- https://b.test") {
		t.Errorf("expected each sample on its own bullet, got %q", got)
	}
}
