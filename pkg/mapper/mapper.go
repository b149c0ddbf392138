// Package mapper implements the data mapper (component F): column
// renaming plus a per-column value transform pipeline, applied to rows
// as they pass through a Step.
package mapper

import (
	"strings"

	"github.com/briannabrownOE/amaxa/pkg/transport"
)

// Transform is a pure string-to-string value transform.
type Transform func(string) string

// Standard transforms, matching the reference implementation's
// transforms module.
var (
	Strip     Transform = strings.TrimSpace
	Lowercase Transform = strings.ToLower
	Uppercase Transform = strings.ToUpper
)

// Mapper renames columns and applies a value transform pipeline, keyed
// by the record's *original* column name (matching the reference
// implementation: a transform pipeline for "Test__c" still applies even
// after that column is renamed to something else).
type Mapper struct {
	FieldMapping map[string]string     // original column -> new column; unmapped columns pass through
	Transforms   map[string][]Transform // original column -> transform pipeline, applied left to right
}

// New constructs a Mapper. Either argument may be nil.
func New(fieldMapping map[string]string, transforms map[string][]Transform) *Mapper {
	return &Mapper{FieldMapping: fieldMapping, Transforms: transforms}
}

// TransformKey returns the output column name for an original column.
func (m *Mapper) TransformKey(column string) string {
	if m == nil || m.FieldMapping == nil {
		return column
	}
	if renamed, ok := m.FieldMapping[column]; ok {
		return renamed
	}
	return column
}

// TransformValue runs column's transform pipeline over value.
func (m *Mapper) TransformValue(column, value string) string {
	if m == nil || m.Transforms == nil {
		return value
	}
	for _, fn := range m.Transforms[column] {
		value = fn(value)
	}
	return value
}

// TransformRecord applies TransformValue then TransformKey to every
// column of row, returning a new row. A nil Mapper is the identity
// transform, so Step code never needs to special-case an unmapped type.
func (m *Mapper) TransformRecord(row transport.Row) transport.Row {
	out := make(transport.Row, len(row))
	for column, value := range row {
		out[m.TransformKey(column)] = m.TransformValue(column, value)
	}
	return out
}
