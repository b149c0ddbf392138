// Package transporttest provides an in-memory transport.Client for unit
// tests, recording every call so a test can assert on exact SOQL strings
// and id-chunk boundaries, the way the original Python suite asserts on
// mock simple_salesforce call arguments.
package transporttest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/briannabrownOE/amaxa/pkg/transport"
)

// Fake is an in-memory transport.Client. Populate Describes, Global, and
// the QueryResults/QueryAllResults/BulkQueryResults/BulkInsertResults/
// BulkUpdateResults queues before use; each call pops the next queued response for its
// sobject/kind (FIFO), so a test can script a sequence of passes.
type Fake struct {
	mu sync.Mutex

	Describes map[string][]transport.FieldDescriptor
	Global    []transport.SObjectInfo

	QueryResults      map[string][][]transport.Row // keyed by sobject, one slice per call in order
	QueryAllResults   map[string][][]transport.Row
	BulkQueryResults  map[string][][]transport.Row
	BulkInsertResults map[string][][]transport.BulkResult
	BulkUpdateResults map[string][][]transport.BulkResult

	Queries     []string // every SOQL string passed to Query, in call order
	QueryAlls   []string
	BulkQueries []struct {
		SObject string
		SOQL    string
	}
	BulkInsertRows []struct {
		SObject string
		Rows    []transport.Row
	}
	BulkUpdateRows []struct {
		SObject string
		Rows    []transport.Row
	}
}

// New returns an empty Fake ready to be configured.
func New() *Fake {
	return &Fake{
		Describes:         make(map[string][]transport.FieldDescriptor),
		QueryResults:      make(map[string][][]transport.Row),
		QueryAllResults:   make(map[string][][]transport.Row),
		BulkQueryResults:  make(map[string][][]transport.Row),
		BulkInsertResults: make(map[string][][]transport.BulkResult),
		BulkUpdateResults: make(map[string][][]transport.BulkResult),
	}
}

func popFor(queue map[string][][]transport.Row, sobjectGuess string) []transport.Row {
	rows := queue[sobjectGuess]
	if len(rows) == 0 {
		return nil
	}
	next := rows[0]
	queue[sobjectGuess] = rows[1:]
	return next
}

// Query records soql and returns the next queued result for the guessed
// object type (the FROM clause's first identifier after it, a simple
// heuristic sufficient for tests that configure QueryResults directly by
// sobject).
func (f *Fake) Query(ctx context.Context, soql string) ([]transport.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, soql)
	sobject := extractFrom(soql)
	return popFor(f.QueryResults, sobject), nil
}

func (f *Fake) QueryAll(ctx context.Context, soql string) ([]transport.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QueryAlls = append(f.QueryAlls, soql)
	sobject := extractFrom(soql)
	return popFor(f.QueryAllResults, sobject), nil
}

func (f *Fake) Describe(ctx context.Context, sobject string) ([]transport.FieldDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fields, ok := f.Describes[sobject]
	if !ok {
		return nil, fmt.Errorf("transporttest: no describe configured for %q", sobject)
	}
	return fields, nil
}

func (f *Fake) GlobalDescribe(ctx context.Context) ([]transport.SObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Global, nil
}

func (f *Fake) BulkQuery(ctx context.Context, sobject, soql string) ([]transport.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BulkQueries = append(f.BulkQueries, struct {
		SObject string
		SOQL    string
	}{sobject, soql})
	return popFor(f.BulkQueryResults, sobject), nil
}

func (f *Fake) BulkInsert(ctx context.Context, sobject string, rows []transport.Row) ([]transport.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BulkInsertRows = append(f.BulkInsertRows, struct {
		SObject string
		Rows    []transport.Row
	}{sobject, rows})
	queued := f.BulkInsertResults[sobject]
	if len(queued) == 0 {
		return nil, fmt.Errorf("transporttest: no bulk insert result configured for %q", sobject)
	}
	next := queued[0]
	f.BulkInsertResults[sobject] = queued[1:]
	return next, nil
}

func (f *Fake) BulkUpdate(ctx context.Context, sobject string, rows []transport.Row) ([]transport.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BulkUpdateRows = append(f.BulkUpdateRows, struct {
		SObject string
		Rows    []transport.Row
	}{sobject, rows})
	queued := f.BulkUpdateResults[sobject]
	if len(queued) == 0 {
		return nil, fmt.Errorf("transporttest: no bulk update result configured for %q", sobject)
	}
	next := queued[0]
	f.BulkUpdateResults[sobject] = queued[1:]
	return next, nil
}

var _ transport.Client = (*Fake)(nil)

// extractFrom is a minimal SOQL FROM-clause scanner, sufficient for the
// fake's routing needs; it is not a SOQL parser.
func extractFrom(soql string) string {
	const marker = "FROM "
	idx := strings.Index(soql, marker)
	if idx < 0 {
		return ""
	}
	rest := soql[idx+len(marker):]
	if sp := strings.IndexByte(rest, ' '); sp >= 0 {
		return rest[:sp]
	}
	return rest
}
