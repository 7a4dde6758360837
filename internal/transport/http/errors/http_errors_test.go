package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteRateLimitedSetsRetryAfter(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteRateLimited(rr, 0)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("unexpected Retry-After: %q", got)
	}
	var payload RateLimitError
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.RetryAfterSec != 1 || payload.Code != "TOO_FAST" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
