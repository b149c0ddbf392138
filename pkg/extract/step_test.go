package extract

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briannabrownOE/amaxa/pkg/step"
	"github.com/briannabrownOE/amaxa/pkg/transport"
	"github.com/briannabrownOE/amaxa/pkg/transport/transporttest"
)

type memWriter struct {
	rows   []transport.Row
	closed bool
}

func (w *memWriter) Write(row transport.Row) error {
	cp := make(transport.Row, len(row))
	for k, v := range row {
		cp[k] = v
	}
	w.rows = append(w.rows, cp)
	return nil
}

func (w *memWriter) Close() error {
	w.closed = true
	return nil
}

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newTestOperation(fake *transporttest.Fake) *Operation {
	return NewOperation(fake, nil, discardLogger())
}

// Scenario 1 (§8): Self-reference trace. Account[Name, ParentId],
// scope QUERY, TRACE_ALL. A chain A<-B<-C all named ACME, where the
// initial query only surfaces A directly and the self-lookup fixed
// point must chase ParentId to discover B then C.
func TestExecute_SelfReferenceTrace(t *testing.T) {
	fake := transporttest.New()
	fake.Describes["Account"] = []transport.FieldDescriptor{
		{Name: "Name", Type: "string"},
		{Name: "ParentId", Type: "reference", ReferenceTo: []string{"Account"}},
	}
	fake.Global = []transport.SObjectInfo{{Name: "Account", KeyPrefix: "001"}}

	a := "001000000000001AAA"
	b := "001000000000002AAA"
	c := "001000000000003AAA"

	fake.BulkQueryResults["Account"] = [][]transport.Row{
		{{"Id": a, "Name": "ACME", "ParentId": b}},
	}
	fake.QueryAllResults["Account"] = [][]transport.Row{
		{{"Id": b, "Name": "ACME", "ParentId": c}},
		{{"Id": c, "Name": "ACME", "ParentId": ""}},
	}

	op := newTestOperation(fake)
	writer := &memWriter{}
	op.SetOutputFile("Account", writer)

	s := NewStep("Account", []string{"Name", "ParentId"}, Query)
	s.Where = "Name='ACME'"
	op.AddStep(s)

	code := op.Execute(context.Background())

	require.Equal(t, 0, code)
	assert.Empty(t, s.Errors)
	assert.Len(t, writer.rows, 3)

	ids, err := op.GetExtractedIDs("Account")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b, c}, ids)
}

func newScannedContactStep(t *testing.T, op *Operation, behavior step.OutsideLookupBehavior) *Step {
	t.Helper()

	account := NewStep("Account", []string{"Id"}, AllRecords)
	op.AddStep(account)

	contact := NewStep("Contact", []string{"Id", "AccountId"}, Descendents)
	contact.OutsideLookupBehavior = behavior
	op.AddStep(contact)

	fieldMap, err := op.GetFieldMap(context.Background(), "Contact")
	require.NoError(t, err)
	contact.ScanFields(fieldMap, op.GetSObjectList())
	require.True(t, contact.AllLookups.Has("AccountId"))
	require.True(t, contact.DescendentLookups.Has("AccountId"))

	return contact
}

// Scenario 2 (§8): Outside reference ERROR. A Contact references an
// Account id that has not been extracted; ERROR behavior must reject
// the row entirely (zero writes) and record the exact message.
func TestStoreResult_OutsideReferenceError(t *testing.T) {
	fake := transporttest.New()
	fake.Describes["Contact"] = []transport.FieldDescriptor{
		{Name: "AccountId", Type: "reference", ReferenceTo: []string{"Account"}},
	}
	fake.Global = []transport.SObjectInfo{
		{Name: "Account", KeyPrefix: "001"},
		{Name: "Contact", KeyPrefix: "003"},
	}

	op := newTestOperation(fake)
	writer := &memWriter{}
	op.SetOutputFile("Contact", writer)

	contact := newScannedContactStep(t, op, step.Error)

	err := contact.storeResult(context.Background(), transport.Row{
		"Id": "003000000000001", "AccountId": "001000000000001",
	})
	require.NoError(t, err)

	assert.Empty(t, writer.rows)
	require.Len(t, contact.Errors, 1)
	assert.Equal(
		t,
		"Contact 003000000000001 has an outside reference in field AccountId (001000000000001), which is not allowed by the extraction configuration.",
		contact.Errors[0],
	)
}

// Scenario 3 (§8): same setup with DROP_FIELD behavior instead: the
// row is still written, minus the offending field, and no error is
// recorded.
func TestStoreResult_OutsideReferenceDropField(t *testing.T) {
	fake := transporttest.New()
	fake.Describes["Contact"] = []transport.FieldDescriptor{
		{Name: "AccountId", Type: "reference", ReferenceTo: []string{"Account"}},
	}
	fake.Global = []transport.SObjectInfo{
		{Name: "Account", KeyPrefix: "001"},
		{Name: "Contact", KeyPrefix: "003"},
	}

	op := newTestOperation(fake)
	writer := &memWriter{}
	op.SetOutputFile("Contact", writer)

	contact := newScannedContactStep(t, op, step.DropField)

	err := contact.storeResult(context.Background(), transport.Row{
		"Id": "003000000000001", "AccountId": "001000000000001",
	})
	require.NoError(t, err)

	assert.Empty(t, contact.Errors)
	require.Len(t, writer.rows, 1)
	assert.Equal(t, transport.Row{"Id": "003000000000001"}, writer.rows[0])
}

// Scenario 4 (§8): polymorphic lookup classification. Lookup__c can
// point at Opportunity (dependent), Account (descendent), or Task (not
// part of the operation). Storing three rows, one per target, must
// register exactly one dependency (on Opportunity) and write all
// three rows.
func TestStoreResult_PolymorphicLookupClassification(t *testing.T) {
	fake := transporttest.New()
	fake.Describes["Contact"] = []transport.FieldDescriptor{
		{Name: "Lookup__c", Type: "reference", ReferenceTo: []string{"Opportunity", "Account", "Task"}},
	}
	fake.Global = []transport.SObjectInfo{
		{Name: "Account", KeyPrefix: "001"},
		{Name: "Contact", KeyPrefix: "003"},
		{Name: "Opportunity", KeyPrefix: "006"},
		{Name: "Task", KeyPrefix: "00T"},
	}

	op := newTestOperation(fake)
	accountWriter, contactWriter, oppWriter := &memWriter{}, &memWriter{}, &memWriter{}
	op.SetOutputFile("Account", accountWriter)
	op.SetOutputFile("Contact", contactWriter)
	op.SetOutputFile("Opportunity", oppWriter)

	account := NewStep("Account", []string{"Id"}, AllRecords)
	op.AddStep(account)
	contact := NewStep("Contact", []string{"Id", "Lookup__c"}, AllRecords)
	op.AddStep(contact)
	opportunity := NewStep("Opportunity", []string{"Id"}, AllRecords)
	op.AddStep(opportunity)

	fieldMap, err := op.GetFieldMap(context.Background(), "Contact")
	require.NoError(t, err)
	contact.ScanFields(fieldMap, op.GetSObjectList())

	assert.True(t, contact.DependentLookups.Has("Lookup__c"))
	assert.True(t, contact.DescendentLookups.Has("Lookup__c"))
	assert.False(t, contact.SelfLookups.Has("Lookup__c"))

	accountID := "001000000000001AAA"
	require.NoError(t, op.StoreResult(context.Background(), account.SObjectName, transport.Row{"Id": accountID}))

	require.NoError(t, contact.storeResult(context.Background(), transport.Row{
		"Id": "003000000000001AAA", "Lookup__c": "006000000000001AAA",
	}))
	require.NoError(t, contact.storeResult(context.Background(), transport.Row{
		"Id": "003000000000002AAA", "Lookup__c": accountID,
	}))
	require.NoError(t, contact.storeResult(context.Background(), transport.Row{
		"Id": "003000000000003AAA", "Lookup__c": "00T000000000001AAA",
	}))

	assert.Empty(t, contact.Errors)
	assert.Len(t, contactWriter.rows, 3)

	deps, err := op.GetDependencies("Opportunity")
	require.NoError(t, err)
	assert.Equal(t, []string{"006000000000001AAA"}, deps)

	accountDeps, err := op.GetDependencies("Account")
	require.NoError(t, err)
	assert.Empty(t, accountDeps)
}

// Scenario 6 (§8): dependency resolution failure. Account has two
// pending dependencies; the id-field pass only resolves one of them, so
// resolveRegisteredDependencies must record the remaining id in the
// exact literal message format.
func TestResolveRegisteredDependencies_RecordsUnresolvedIds(t *testing.T) {
	fake := transporttest.New()
	fake.Describes["Account"] = []transport.FieldDescriptor{
		{Name: "Name", Type: "string"},
	}
	fake.Global = []transport.SObjectInfo{{Name: "Account", KeyPrefix: "001"}}

	resolved := "001000000000002AAA"
	fake.QueryAllResults["Account"] = [][]transport.Row{
		{{"Id": resolved, "Name": "ACME"}},
	}

	op := newTestOperation(fake)
	writer := &memWriter{}
	op.SetOutputFile("Account", writer)

	s := NewStep("Account", []string{"Name"}, SelectedRecords)
	op.AddStep(s)

	require.NoError(t, op.AddDependency("Account", "001000000000001AAA"))
	require.NoError(t, op.AddDependency("Account", resolved))

	fieldMap, err := op.GetFieldMap(context.Background(), "Account")
	require.NoError(t, err)
	s.ScanFields(fieldMap, op.GetSObjectList())

	code := op.Execute(context.Background())

	require.Equal(t, -1, code)
	require.Len(t, s.Errors, 1)
	assert.Equal(
		t,
		"Unable to resolve dependencies for sObject Account. The following Ids could not be found: 001000000000001AAA",
		s.Errors[0],
	)
	assert.Len(t, writer.rows, 1, "the one successfully resolved dependency is still stored")
}
