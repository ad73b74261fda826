package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAttachmentNotFound = errors.New("attachment not found")

	// ErrTemporary marks transient infrastructure failures that callers
	// may retry (queue publishes, store writes). Model-call failures are
	// never marked temporary.
	ErrTemporary = errors.New("temporary failure")

	// Classifier outcome for bytes that are not a parsable document
	// container. ClassifiedAsScanned is deliberately not an error: a
	// scanned document is a first-class verdict, not a failure.
	ErrStructuralParse = errors.New("structural parse failure")

	// Batch-fatal misconfiguration: these abort before any document is
	// processed.
	ErrMissingCredential   = errors.New("missing credential")
	ErrEndpointUnreachable = errors.New("endpoint unreachable")

	// Per-document model failures: the orchestrator recovers from these
	// by falling back to the heuristic engine.
	ErrUpstreamStatus  = errors.New("upstream status error")
	ErrEmptyModelOutput = errors.New("empty model output")
	ErrSchemaViolation  = errors.New("schema violation")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// BatchFatal reports whether an extraction error indicates a
// misconfiguration that must abort the whole batch rather than a
// data problem with one document.
func BatchFatal(err error) bool {
	return errors.Is(err, ErrMissingCredential) || errors.Is(err, ErrEndpointUnreachable)
}
