package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. ErrRemote is fatal to a
// run; the others are recorded per dataset and never abort sibling work.
var (
	// ErrRemote marks a catalog listing failure (network error or
	// non-success status on the listing endpoint).
	ErrRemote = errors.New("catalog request failed")

	// ErrStatus marks a dataset download that returned a non-success
	// HTTP status.
	ErrStatus = errors.New("download rejected")

	// ErrParse marks a malformed CSV body.
	ErrParse = errors.New("malformed dataset")

	// ErrStorage marks unreadable or corrupt local metadata.
	ErrStorage = errors.New("metadata storage error")
)

// Wrap builds an error message that includes component context while
// tagging it with the provided marker for later classification.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to a short classification label used in run
// summaries and history records.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRemote):
		return "remote"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "other"
	}
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
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
