package track

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/Thekirgo/calcwatch/internal/errors"
)

// ExpressionSubmitter is the slice of the API client the submitter needs.
type ExpressionSubmitter interface {
	SubmitExpression(ctx context.Context, expression string) (string, error)
}

// Submitter sends expressions to the evaluation service. It issues exactly
// one request per call and returns either a job id or a classified error,
// never both. It touches neither history nor session state.
type Submitter struct {
	api ExpressionSubmitter
}

func NewSubmitter(api ExpressionSubmitter) *Submitter {
	return &Submitter{api: api}
}

// Submit validates and sends one expression. An input that is empty after
// trimming fails locally before any network call.
func (s *Submitter) Submit(ctx context.Context, text string) (string, error) {
	expression := strings.TrimSpace(text)
	if expression == "" {
		return "", apperrors.EmptyInput()
	}

	id, err := s.api.SubmitExpression(ctx, expression)
	if err != nil {
		slog.WarnContext(ctx, "Submission failed", "error", err)
		return "", err
	}

	slog.InfoContext(ctx, "Expression submitted", "job_id", id)
	return id, nil
}
