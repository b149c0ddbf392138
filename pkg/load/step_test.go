package load

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

type memReader struct {
	rows []transport.Row
	pos  int
}

func (r *memReader) Read() (transport.Row, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *memReader) Close() error { return nil }

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newTestOperation(fake *transporttest.Fake) *Operation {
	return NewOperation(fake, nil, discardLogger())
}

// Scenario 5 (§8): load with self-lookup cycle. Two Accounts A and B
// each point ParentId at the other; phase 1 strips both self-lookups
// and inserts clean records, phase 2 remaps and writes them back once
// both new ids exist.
func TestExecute_SelfLookupCycle(t *testing.T) {
	fake := transporttest.New()
	fake.Describes["Account"] = []transport.FieldDescriptor{
		{Name: "Name", Type: "string"},
		{Name: "ParentId", Type: "reference", ReferenceTo: []string{"Account"}},
	}

	oldA := "001000000000000"
	oldB := "001000000000001"
	newA := "001000000000002AAA"
	newB := "001000000000003AAA"

	fake.BulkInsertResults["Account"] = [][]transport.BulkResult{
		{
			{Success: true, ID: newA},
			{Success: true, ID: newB},
		},
	}
	fake.BulkUpdateResults["Account"] = [][]transport.BulkResult{
		{
			{Success: true},
			{Success: true},
		},
	}

	op := newTestOperation(fake)
	op.SetInputFile("Account", &memReader{rows: []transport.Row{
		{"Id": oldA, "Name": "A", "ParentId": oldB},
		{"Id": oldB, "Name": "B", "ParentId": oldA},
	}})

	s := NewStep("Account", []string{"Name", "ParentId"})
	op.AddStep(s)

	code := op.Execute(context.Background())

	require.Equal(t, 0, code)
	assert.Empty(t, s.Errors)

	require.Len(t, fake.BulkInsertRows, 1)
	assert.Equal(t, []transport.Row{
		{"Name": "A"},
		{"Name": "B"},
	}, fake.BulkInsertRows[0].Rows)

	require.Len(t, fake.BulkUpdateRows, 1)
	assert.Equal(t, []transport.Row{
		{"Id": newA, "ParentId": newB},
		{"Id": newB, "ParentId": newA},
	}, fake.BulkUpdateRows[0].Rows)
}

func TestExecute_DescendentLookupResolvesThroughRemap(t *testing.T) {
	fake := transporttest.New()
	fake.Describes["Contact"] = []transport.FieldDescriptor{
		{Name: "AccountId", Type: "reference", ReferenceTo: []string{"Account"}},
	}

	oldAccount := "001000000000000"
	newAccount := "001000000000002AAA"
	oldContact := "003000000000000"

	fake.BulkInsertResults["Contact"] = [][]transport.BulkResult{
		{{Success: true, ID: "003000000000001AAA"}},
	}

	op := newTestOperation(fake)
	op.IDRemap["001000000000000AAA"] = newAccount
	op.RegisterSObject("Account")
	op.SetInputFile("Contact", &memReader{rows: []transport.Row{
		{"Id": oldContact, "AccountId": oldAccount},
	}})

	contact := NewStep("Contact", []string{"AccountId"})
	op.AddStep(contact)

	code := op.Execute(context.Background())

	require.Equal(t, 0, code)
	assert.Empty(t, contact.Errors)
	require.Len(t, fake.BulkInsertRows, 1)
	assert.Equal(t, []transport.Row{{"AccountId": newAccount}}, fake.BulkInsertRows[0].Rows)
}

func TestExecute_DescendentLookupOutsideBehaviorError(t *testing.T) {
	fake := transporttest.New()
	fake.Describes["Contact"] = []transport.FieldDescriptor{
		{Name: "AccountId", Type: "reference", ReferenceTo: []string{"Account"}},
	}

	op := newTestOperation(fake)
	op.RegisterSObject("Account")
	op.SetInputFile("Contact", &memReader{rows: []transport.Row{
		{"Id": "003000000000000", "AccountId": "001000000000099"},
	}})

	contact := NewStep("Contact", []string{"AccountId"})
	contact.OutsideLookupBehavior = step.Error
	op.AddStep(contact)

	code := op.Execute(context.Background())

	require.Equal(t, -1, code)
	require.Len(t, contact.Errors, 1)
	msg, ok := contact.Errors["003000000000000"]
	require.True(t, ok)
	assert.Contains(t, msg, "outside reference")
	assert.Empty(t, fake.BulkInsertRows, "a row rejected before insert is never submitted")
}

func TestExecute_RecordsBulkInsertFailure(t *testing.T) {
	fake := transporttest.New()
	fake.Describes["Account"] = []transport.FieldDescriptor{
		{Name: "Name", Type: "string"},
	}
	fake.BulkInsertResults["Account"] = [][]transport.BulkResult{
		{{Success: false, Errors: []transport.BulkError{
			{StatusCode: "REQUIRED_FIELD_MISSING", Message: "Required fields are missing", Fields: []string{"Name"}},
		}}},
	}

	op := newTestOperation(fake)
	op.SetInputFile("Account", &memReader{rows: []transport.Row{
		{"Id": "001000000000000"},
	}})

	s := NewStep("Account", []string{"Name"})
	op.AddStep(s)

	code := op.Execute(context.Background())

	require.Equal(t, -1, code)
	require.Len(t, s.Errors, 1)
	assert.Equal(
		t,
		`Failed to load Account 001000000000000: REQUIRED_FIELD_MISSING: Required fields are missing (Name)`,
		s.Errors["001000000000000"],
	)
}

// An empty field value has no representation in the string-keyed wire
// model, so it must be omitted from the submitted row rather than sent
// as an empty string, which the bulk API would reject on a numeric or
// date field.
func TestExecute_EmptyFieldValueOmittedFromInsert(t *testing.T) {
	fake := transporttest.New()
	fake.Describes["Account"] = []transport.FieldDescriptor{
		{Name: "Name", Type: "string"},
		{Name: "Random__c", Type: "double"},
	}
	fake.BulkInsertResults["Account"] = [][]transport.BulkResult{
		{{Success: true, ID: "001000000000002AAA"}},
	}

	op := newTestOperation(fake)
	op.SetInputFile("Account", &memReader{rows: []transport.Row{
		{"Id": "001000000000000", "Name": "Acme", "Random__c": ""},
	}})

	s := NewStep("Account", []string{"Name", "Random__c"})
	op.AddStep(s)

	code := op.Execute(context.Background())

	require.Equal(t, 0, code)
	require.Len(t, fake.BulkInsertRows, 1)
	assert.Equal(t, []transport.Row{{"Name": "Acme"}}, fake.BulkInsertRows[0].Rows)
}
