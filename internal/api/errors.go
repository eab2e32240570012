package api

import "fmt"

// Fallback messages used when an error body carries no usable field.
const (
	fallbackRequestFailed  = "Request failed"
	fallbackAnalysisFailed = "Analysis failed"
)

// RequestError is the single error shape every failed call normalizes to. It
// carries the HTTP status and the fully-qualified URL for diagnostics. A
// Status of 0 means the request never produced a response (network failure).
type RequestError struct {
	Message string
	Status  int
	URL     string
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s (%s)", e.Message, e.URL)
	}
	return fmt.Sprintf("%s [%d] %s", e.Message, e.Status, e.URL)
}

// extractMessage picks the human-readable message out of a parsed error body,
// checking error, detail and message in that order.
func extractMessage(body map[string]any, fallback string) string {
	for _, key := range []string{"error", "detail", "message"} {
		if v, ok := body[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return fallback
}
