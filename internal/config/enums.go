package config

import (
	"strings"

	"github.com/briannabrownOE/amaxa/pkg/mapper"
	"github.com/briannabrownOE/amaxa/pkg/step"
)

// parsedQuery is step.Query under the name parseScope's callers expect
// when checking for the one scope that requires a where clause.
const parsedQuery = step.Query

func parseScope(value string) (step.ExtractionScope, error) {
	switch strings.ToUpper(value) {
	case "", "ALL_RECORDS":
		return step.AllRecords, nil
	case "QUERY":
		return step.Query, nil
	case "DESCENDENTS":
		return step.Descendents, nil
	case "SELECTED_RECORDS":
		return step.SelectedRecords, nil
	default:
		return 0, fmtUnknown("scope", value, []string{"ALL_RECORDS", "QUERY", "DESCENDENTS", "SELECTED_RECORDS"})
	}
}

func parseSelfLookupBehavior(value string) (step.SelfLookupBehavior, error) {
	switch strings.ToUpper(value) {
	case "", "TRACE_ALL":
		return step.TraceAll, nil
	case "TRACE_NONE":
		return step.TraceNone, nil
	default:
		return 0, fmtUnknown("self-lookup-behavior", value, []string{"TRACE_ALL", "TRACE_NONE"})
	}
}

func parseOutsideLookupBehavior(value string) (step.OutsideLookupBehavior, error) {
	switch strings.ToUpper(value) {
	case "", "INCLUDE":
		return step.Include, nil
	case "DROP_FIELD":
		return step.DropField, nil
	case "ERROR":
		return step.Error, nil
	default:
		return 0, fmtUnknown("outside-lookup-behavior", value, []string{"INCLUDE", "DROP_FIELD", "ERROR"})
	}
}

func parseTransform(name string) (mapper.Transform, error) {
	switch strings.ToLower(name) {
	case "strip":
		return mapper.Strip, nil
	case "lowercase":
		return mapper.Lowercase, nil
	case "uppercase":
		return mapper.Uppercase, nil
	default:
		return nil, fmtUnknown("transform", name, []string{"strip", "lowercase", "uppercase"})
	}
}
