package step

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/briannabrownOE/amaxa/pkg/describe"
)

func TestScanFields_PolymorphicLookupClassification(t *testing.T) {
	// Contact.Lookup__c references Opportunity, Account, Task. The
	// operation holds [Account, Contact, Opportunity]: Account is
	// earlier (descendent), Opportunity is later (dependent), Task is
	// not part of the operation at all, and Contact itself isn't a
	// target so there's no self-lookup (§8 scenario 4).
	fieldMap := describe.ObjectDescribe{
		"Id": describe.Field{Name: "Id", Type: describe.FieldTypeID},
		"Lookup__c": describe.Field{
			Name:        "Lookup__c",
			Type:        describe.FieldTypeReference,
			ReferenceTo: []string{"Opportunity", "Account", "Task"},
		},
	}

	b := NewBase("Contact", []string{"Id", "Lookup__c"})
	b.ScanFields(fieldMap, []string{"Account", "Contact", "Opportunity"})

	assert.True(t, b.AllLookups.Has("Lookup__c"))
	assert.True(t, b.DependentLookups.Has("Lookup__c"))
	assert.True(t, b.DescendentLookups.Has("Lookup__c"))
	assert.False(t, b.SelfLookups.Has("Lookup__c"))
}

func TestScanFields_SelfLookup(t *testing.T) {
	fieldMap := describe.ObjectDescribe{
		"ParentId": describe.Field{
			Name:        "ParentId",
			Type:        describe.FieldTypeReference,
			ReferenceTo: []string{"Account"},
		},
	}

	b := NewBase("Account", []string{"Name", "ParentId"})
	b.ScanFields(fieldMap, []string{"Account"})

	assert.True(t, b.SelfLookups.Has("ParentId"))
	assert.True(t, b.AllLookups.Has("ParentId"))
	assert.False(t, b.DescendentLookups.Has("ParentId"))
	assert.False(t, b.DependentLookups.Has("ParentId"))
}

func TestScanFields_IgnoresNonReferenceAndOutOfOperationTargets(t *testing.T) {
	fieldMap := describe.ObjectDescribe{
		"Name":  describe.Field{Name: "Name", Type: describe.FieldTypeString},
		"Other": describe.Field{Name: "Other", Type: describe.FieldTypeReference, ReferenceTo: []string{"Task"}},
	}

	b := NewBase("Account", []string{"Name", "Other"})
	b.ScanFields(fieldMap, []string{"Account"})

	assert.Empty(t, b.AllLookups)
}

func TestScanFields_CompletenessIsUnionOfSubsets(t *testing.T) {
	fieldMap := describe.ObjectDescribe{
		"Lookup__c": describe.Field{
			Name:        "Lookup__c",
			Type:        describe.FieldTypeReference,
			ReferenceTo: []string{"Opportunity", "Account"},
		},
	}

	b := NewBase("Contact", []string{"Lookup__c"})
	b.ScanFields(fieldMap, []string{"Account", "Contact", "Opportunity"})

	for field := range b.AllLookups {
		inUnion := b.SelfLookups.Has(field) || b.DescendentLookups.Has(field) || b.DependentLookups.Has(field)
		assert.True(t, inUnion, "field classification completeness for %s", field)
	}
}
