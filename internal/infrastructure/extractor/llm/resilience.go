package llm

import (
	"github.com/mmsoft/invoiceflow/internal/core/domain"
	"github.com/mmsoft/invoiceflow/internal/infrastructure/resilience"
)

// classifyModelError keeps every model call single-attempt: a failed
// completion is never retried, only counted. Transport and server-side
// failures feed the breaker; schema problems in an otherwise healthy
// response do not.
func classifyModelError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if domain.IsKind(err, domain.ErrEndpointUnreachable) || domain.IsKind(err, domain.ErrUpstreamStatus) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}
	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: false,
	}
}
