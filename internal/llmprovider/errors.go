package llmprovider

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// FailureClass buckets a provider failure so callers can decide whether to
// retry, surface to the user, or fail the whole run, per spec.md §4.5.
type FailureClass string

const (
	FailureAuth      FailureClass = "auth"      // bad/missing credentials, never retried
	FailureRateLimit FailureClass = "rate_limit" // retried with backoff
	FailureTransient FailureClass = "transient" // server/network hiccup, retried
	FailureMalformed FailureClass = "malformed" // response body unparseable, not retried
	FailureEmpty     FailureClass = "empty"     // response carried no usable content
)

// ProviderError wraps a failed provider call with its failure class.
type ProviderError struct {
	StatusCode int
	Class      FailureClass
	Message    string
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llmprovider: %s (HTTP %d): %s", e.Class, e.StatusCode, e.Message)
}

// ErrMaxRetriesExceeded is returned once all retry attempts are spent.
type ErrMaxRetriesExceeded struct {
	Attempts   int
	LastStatus int
}

func (e *ErrMaxRetriesExceeded) Error() string {
	return fmt.Sprintf("llmprovider: max retries exceeded (%d attempts, last HTTP %d)", e.Attempts, e.LastStatus)
}

// classifyError turns a non-2xx HTTP response into a ProviderError.
func classifyError(resp *http.Response) *ProviderError {
	bodyBytes, _ := io.ReadAll(resp.Body)
	msg := string(bodyBytes)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	class, _ := classifyStatus(resp.StatusCode)
	return &ProviderError{
		StatusCode: resp.StatusCode,
		Class:      class,
		Message:    msg,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// classifyStatus maps an HTTP status to a FailureClass and whether the
// call is worth retrying at all.
func classifyStatus(statusCode int) (class FailureClass, retryable bool) {
	switch statusCode {
	case 401, 403:
		return FailureAuth, false
	case 400, 422:
		return FailureMalformed, false
	case 429, 529:
		return FailureRateLimit, true
	case 500, 502, 503:
		return FailureTransient, true
	default:
		return FailureMalformed, false
	}
}

func isRetryable(statusCode int, retryableStatuses []int) bool {
	for _, s := range retryableStatuses {
		if statusCode == s {
			return true
		}
	}
	return false
}

// parseRetryAfter parses the Retry-After header, seconds or HTTP-date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	var seconds int
	if _, err := fmt.Sscanf(value, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
