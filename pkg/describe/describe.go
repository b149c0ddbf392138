// Package describe holds the metadata types the engine reads from the
// CRM's synchronous describe calls: per-type field descriptors and the
// tenant-wide key-prefix table used to classify reference targets.
package describe

// FieldType is the describe-reported primitive category of a field.
type FieldType string

const (
	FieldTypeReference FieldType = "reference"
	FieldTypeDateTime  FieldType = "datetime"
	FieldTypeString    FieldType = "string"
	FieldTypeBoolean   FieldType = "boolean"
	FieldTypeInt       FieldType = "int"
	FieldTypeDouble    FieldType = "double"
	FieldTypeID        FieldType = "id"
	FieldTypeDate      FieldType = "date"
)

// Field describes a single field on an object type.
type Field struct {
	Name        string
	Type        FieldType
	ReferenceTo []string // target object-type names; populated only when Type == FieldTypeReference
	SoapType    string
}

// IsReference reports whether the field is a reference (lookup) field.
func (f Field) IsReference() bool {
	return f.Type == FieldTypeReference
}

// ObjectDescribe is the field map for one object type: field name to
// descriptor. Lookups are case-sensitive on the exact API name, matching
// the reference implementation.
type ObjectDescribe map[string]Field

// FilterPredicate selects a subset of fields from an ObjectDescribe.
type FilterPredicate func(Field) bool

// Filter returns the subset of fields for which pred returns true.
func (d ObjectDescribe) Filter(pred FilterPredicate) ObjectDescribe {
	out := make(ObjectDescribe, len(d))
	for name, f := range d {
		if pred(f) {
			out[name] = f
		}
	}
	return out
}

// IsReferenceField is a FilterPredicate selecting reference fields.
func IsReferenceField(f Field) bool {
	return f.IsReference()
}

// SObjectInfo is one entry of the tenant's global describe: an object
// type's name and three-character key prefix.
type SObjectInfo struct {
	Name      string
	KeyPrefix string
}

// PrefixTable maps a three-character key prefix to its object-type name.
// It is built once per Operation from the tenant's global describe.
type PrefixTable map[string]string

// NewPrefixTable builds a PrefixTable from the tenant's global describe
// response.
func NewPrefixTable(sobjects []SObjectInfo) PrefixTable {
	table := make(PrefixTable, len(sobjects))
	for _, s := range sobjects {
		if s.KeyPrefix != "" {
			table[s.KeyPrefix] = s.Name
		}
	}
	return table
}

// Lookup returns the object-type name for a given key prefix, and
// whether it was found.
func (t PrefixTable) Lookup(prefix string) (string, bool) {
	name, ok := t[prefix]
	return name, ok
}
