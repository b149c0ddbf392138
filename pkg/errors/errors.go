// Package errors defines the two error kinds the engine distinguishes:
// configuration/value errors, which abort the calling operation
// immediately, and policy errors, which are accumulated on a step and
// never raised directly (see spec §7).
package errors

import (
	"fmt"
	"strings"
)

// ValueError is returned for a bad identifier format and for descriptor
// problems found by the config package (invalid values, input or output
// files that cannot be opened) — kind 1 in §7. Other fail-fast errors,
// such as an unknown field name or an unreadable CSV header, are plain
// wrapped errors rather than ValueErrors. A ValueError is never placed
// into a step's error accumulator.
type ValueError struct {
	Operation string
	Message   string
}

func (e *ValueError) Error() string {
	if e.Operation == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

// NewValueError builds a ValueError with a formatted message.
func NewValueError(operation, format string, args ...any) *ValueError {
	return &ValueError{Operation: operation, Message: fmt.Sprintf(format, args...)}
}

// OutsideReference formats the kind-2 message used when a record
// carries a reference this extraction configuration does not allow
// (§4.D, §8 scenario 2).
func OutsideReference(sobject, id, field, value string) string {
	return fmt.Sprintf(
		"%s %s has an outside reference in field %s (%s), which is not allowed by the extraction configuration.",
		sobject, id, field, value,
	)
}

// UnresolvedDependencies formats the kind-3 message used when a
// dependency-resolution pass still leaves ids pending (§4.D, §8
// scenario 6). ids must already be in display order; callers are
// responsible for sorting for deterministic messages.
func UnresolvedDependencies(sobject string, ids []string) string {
	return fmt.Sprintf(
		"Unable to resolve dependencies for sObject %s. The following Ids could not be found: %s",
		sobject, joinIDs(ids),
	)
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ", ")
}

// LoadFailure formats the kind-4 message used when a bulk insert result
// reports failure for an input row (§4.E).
func LoadFailure(sobject, oldID, statusCode, message string, fields []string) string {
	return fmt.Sprintf(
		"Failed to load %s %s: %s: %s (%s)",
		sobject, oldID, statusCode, message, strings.Join(fields, ", "),
	)
}

// DependentUpdateFailure formats the kind-4 message used when a
// dependent-lookup bulk update fails (§4.E).
func DependentUpdateFailure(sobject, oldID, statusCode, message string, fields []string) string {
	return fmt.Sprintf(
		"Failed to execute dependent updates for %s %s: %s: %s (%s)",
		sobject, oldID, statusCode, message, strings.Join(fields, ", "),
	)
}
