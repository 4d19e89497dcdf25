package verdict

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shieldtech/linkshield/internal/core"
	"go.uber.org/zap"
)

func verdictHandler(verdict, reason string, hits *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}

		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		resp := map[string]string{"verdict": verdict}
		if reason != "" {
			resp["reason"] = reason
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func failingHandler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}
}

func TestVerify_StopsAtFirstWorkingEndpoint(t *testing.T) {
	broken := httptest.NewServer(failingHandler(http.StatusInternalServerError))
	defer broken.Close()

	var workingHits, spareHits atomic.Int32
	working := httptest.NewServer(verdictHandler("SAFE", "looks fine", &workingHits))
	defer working.Close()
	spare := httptest.NewServer(verdictHandler("DANGER", "should never be asked", &spareHits))
	defer spare.Close()

	c := NewClient(zap.NewNop())
	verdict := c.Verify(context.Background(), core.Target{URL: "https://example.com"},
		[]string{broken.URL, working.URL, spare.URL}, time.Second)

	if verdict.Classification != core.ClassificationSafe {
		t.Errorf("expected the second endpoint's verdict, got %s", verdict.Classification)
	}
	if verdict.Reason != "looks fine" {
		t.Errorf("expected the endpoint's reason, got %q", verdict.Reason)
	}
	if workingHits.Load() != 1 {
		t.Errorf("expected one request to the working endpoint, got %d", workingHits.Load())
	}
	if spareHits.Load() != 0 {
		t.Errorf("expected no request past the first success, got %d", spareHits.Load())
	}
}

func TestVerify_MalformedBodyAdvancesToNextEndpoint(t *testing.T) {
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not json"))
	}))
	defer garbage.Close()

	working := httptest.NewServer(verdictHandler("SUSPICIOUS", "odd redirect chain", nil))
	defer working.Close()

	c := NewClient(zap.NewNop())
	verdict := c.Verify(context.Background(), core.Target{URL: "https://example.com"},
		[]string{garbage.URL, working.URL}, time.Second)

	if verdict.Classification != core.ClassificationSuspicious {
		t.Errorf("expected the fallback endpoint's verdict, got %s", verdict.Classification)
	}
}

func TestVerify_AllEndpointsDownYieldsUnknown(t *testing.T) {
	// Closed servers give instant connection refusals.
	a := httptest.NewServer(failingHandler(http.StatusOK))
	a.Close()
	b := httptest.NewServer(failingHandler(http.StatusOK))
	b.Close()

	c := NewClient(zap.NewNop())
	verdict := c.Verify(context.Background(), core.Target{URL: "https://example.com"},
		[]string{a.URL, b.URL}, time.Second)

	if verdict.Classification != core.ClassificationUnknown {
		t.Errorf("expected UNKNOWN when every endpoint is down, got %s", verdict.Classification)
	}
	if verdict.Reason != core.UnreachableReason {
		t.Errorf("expected the unreachable reason, got %q", verdict.Reason)
	}
	if verdict.URL != "https://example.com" {
		t.Errorf("expected the target URL on the fallback verdict, got %q", verdict.URL)
	}
}

func TestVerify_SlowEndpointIsCutOffPerAttempt(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer slow.Close()

	working := httptest.NewServer(verdictHandler("SAFE", "fast answer", nil))
	defer working.Close()

	c := NewClient(zap.NewNop())
	start := time.Now()
	verdict := c.Verify(context.Background(), core.Target{URL: "https://example.com"},
		[]string{slow.URL, working.URL}, 100*time.Millisecond)
	elapsed := time.Since(start)

	if verdict.Classification != core.ClassificationSafe {
		t.Errorf("expected the fast endpoint's verdict, got %s", verdict.Classification)
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("expected the slow attempt to run out its timeout, finished in %v", elapsed)
	}
	if elapsed > 3*time.Second {
		t.Errorf("expected the per-attempt timeout to cut the slow endpoint off, took %v", elapsed)
	}
}

func TestVerify_UnrecognizedClassificationCollapsesToUnknown(t *testing.T) {
	odd := httptest.NewServer(verdictHandler("MALFORMED_VALUE", "backend speaks a newer dialect", nil))
	defer odd.Close()

	c := NewClient(zap.NewNop())
	verdict := c.Verify(context.Background(), core.Target{URL: "https://example.com"},
		[]string{odd.URL}, time.Second)

	if verdict.Classification != core.ClassificationUnknown {
		t.Errorf("expected unrecognized values normalized to UNKNOWN, got %s", verdict.Classification)
	}
	if verdict.Reason != "backend speaks a newer dialect" {
		t.Errorf("expected the backend reason preserved, got %q", verdict.Reason)
	}
}

func TestVerify_MissingReasonGetsDefault(t *testing.T) {
	terse := httptest.NewServer(verdictHandler("SAFE", "", nil))
	defer terse.Close()

	c := NewClient(zap.NewNop())
	verdict := c.Verify(context.Background(), core.Target{URL: "https://example.com"},
		[]string{terse.URL}, time.Second)

	if verdict.Reason != core.DefaultReason {
		t.Errorf("expected the default reason, got %q", verdict.Reason)
	}
}
