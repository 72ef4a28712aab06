package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks invalid or missing configuration detected at
	// construction or first use.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks invalid build inputs, such as a segment without a
	// resolvable duration.
	ErrValidation = errors.New("validation error")
	// ErrDependency marks a missing or too-old external runtime.
	ErrDependency = errors.New("dependency error")
	// ErrRender marks an external render failure: non-zero exit, malformed or
	// missing output.
	ErrRender = errors.New("render error")
	// ErrTimeout marks an external process exceeding its configured deadline.
	ErrTimeout = errors.New("timeout")
	// ErrExternalTool marks other external tool failures (probe, concat).
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "build failure"
	}
	return strings.Join(parts, ": ")
}
