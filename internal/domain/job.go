package domain

import "strings"

// Job statuses as reported by the evaluation service. The wire format is
// case-insensitive; CanonicalStatus folds everything to these values.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusError      = "ERROR"
)

// JobRecord is one submitted expression and its evaluation lifecycle.
// Result is only meaningful when Status is COMPLETED; the server reports it
// as either a number or a string, so it stays untyped here.
type JobRecord struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Status    string `json:"status"`
	Result    any    `json:"result,omitempty"`
	CreatedAt string `json:"created_at"`
}

// CanonicalStatus uppercases a wire status value.
func CanonicalStatus(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
