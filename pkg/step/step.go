// Package step implements the common Step state (component C): the
// object type and field list a step operates over, and the field
// classification scan_fields performs against an operation's describe
// cache and sobject order. extract.Step and load.Step each embed Base
// and add their own execute/error-accumulation semantics.
package step

import "github.com/briannabrownOE/amaxa/pkg/describe"

// ExtractionScope selects how an extract.Step's initial pass obtains
// records.
type ExtractionScope int

const (
	AllRecords ExtractionScope = iota
	Query
	Descendents
	SelectedRecords
)

func (s ExtractionScope) String() string {
	switch s {
	case AllRecords:
		return "ALL_RECORDS"
	case Query:
		return "QUERY"
	case Descendents:
		return "DESCENDENTS"
	case SelectedRecords:
		return "SELECTED_RECORDS"
	default:
		return "UNKNOWN"
	}
}

// SelfLookupBehavior controls whether a self-referencing lookup field is
// traced to discover further records of the same type.
type SelfLookupBehavior int

const (
	TraceAll SelfLookupBehavior = iota
	TraceNone
)

func (b SelfLookupBehavior) String() string {
	if b == TraceNone {
		return "TRACE_NONE"
	}
	return "TRACE_ALL"
}

// OutsideLookupBehavior controls what happens when a reference field
// points to a record this operation has not extracted (or will never
// extract, for descendent lookups) and, on load, to an old id with no
// entry in the id remap.
type OutsideLookupBehavior int

const (
	Include OutsideLookupBehavior = iota
	DropField
	Error
)

func (b OutsideLookupBehavior) String() string {
	switch b {
	case DropField:
		return "DROP_FIELD"
	case Error:
		return "ERROR"
	default:
		return "INCLUDE"
	}
}

// FieldSet is an unordered set of field API names.
type FieldSet map[string]bool

// Has reports whether field is in the set.
func (s FieldSet) Has(field string) bool {
	return s[field]
}

// Base holds the state common to every step: the object type it owns,
// the ordered field list to extract or load, and the four field
// classifications scan_fields derives from the operation's describe
// cache and sobject order (§3, §4.C).
type Base struct {
	SObjectName string
	Fields      []string

	AllLookups        FieldSet
	SelfLookups       FieldSet
	DescendentLookups FieldSet
	DependentLookups  FieldSet
}

// NewBase constructs a Base for sobjectName with the given field list.
// ScanFields must be called before the owning step executes.
func NewBase(sobjectName string, fields []string) *Base {
	return &Base{
		SObjectName:       sobjectName,
		Fields:            fields,
		AllLookups:        FieldSet{},
		SelfLookups:       FieldSet{},
		DescendentLookups: FieldSet{},
		DependentLookups:  FieldSet{},
	}
}

// ScanFields classifies this step's reference fields against fieldMap
// (the object type's describe) and sobjectList (the operation's
// registered step order). A polymorphic reference field may land in
// more than one of the three derived sets simultaneously — one entry
// per referenceTo target, classified independently (§3, §8 scenario 4).
func (b *Base) ScanFields(fieldMap describe.ObjectDescribe, sobjectList []string) {
	position := make(map[string]int, len(sobjectList))
	for i, name := range sobjectList {
		position[name] = i
	}
	self := position[b.SObjectName]

	for _, name := range b.Fields {
		field, ok := fieldMap[name]
		if !ok || !field.IsReference() {
			continue
		}
		for _, target := range field.ReferenceTo {
			pos, known := position[target]
			if !known {
				continue
			}
			b.AllLookups[name] = true
			switch {
			case target == b.SObjectName:
				b.SelfLookups[name] = true
			case pos < self:
				b.DescendentLookups[name] = true
			case pos > self:
				b.DependentLookups[name] = true
			}
		}
	}
}
