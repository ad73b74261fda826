package llm

import (
	"fmt"
	"strings"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
)

// RepairJSONObject recovers the JSON object from raw model output.
// Models add markdown fences or prepend reasoning text despite the
// prompt saying not to; strip both and keep the outermost braces.
func RepairJSONObject(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	if start < 0 {
		return "", domain.WrapError(domain.ErrSchemaViolation, "repair model output",
			fmt.Errorf("no '{' found in model response: %s", snippet(raw)))
	}
	end := strings.LastIndex(s, "}")
	if end < 0 {
		return "", domain.WrapError(domain.ErrSchemaViolation, "repair model output",
			fmt.Errorf("no '}' found in model response: %s", snippet(raw)))
	}
	if end <= start {
		return "", domain.WrapError(domain.ErrSchemaViolation, "repair model output",
			fmt.Errorf("malformed json in model response: %s", snippet(raw)))
	}
	return s[start : end+1], nil
}

// snippet keeps enough raw output in the error for triage without
// flooding logs with a whole completion.
func snippet(raw string) string {
	const max = 256
	s := strings.TrimSpace(raw)
	r := []rune(s)
	if len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}
