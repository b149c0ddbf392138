// Package transport defines the contract the extraction and load engines
// use to talk to the CRM, covering both its synchronous single-record API
// and its asynchronous bulk API. Constructing an actual client —
// authentication, HTTP/SOAP wire format, bulk job polling — is outside
// this module's scope (spec §1); amaxa is built and tested entirely
// against this interface.
package transport

import "context"

// Row is a single record: column name to wire-format string value,
// matching the row-oriented shape used by both the transport and the
// row file reader/writer.
type Row map[string]string

// BulkResult is one positional result of a bulk insert or update,
// matched back to its input row strictly by index.
type BulkResult struct {
	Success bool
	ID      string // new record id, set only on success for insert
	Errors  []BulkError
}

// BulkError is one reported failure for a bulk result row.
type BulkError struct {
	StatusCode string
	Message    string
	Fields     []string
}

// SObjectInfo is one entry of the tenant's global describe.
type SObjectInfo struct {
	Name      string
	KeyPrefix string
}

// FieldDescriptor mirrors describe.Field at the wire boundary, to avoid a
// dependency from transport back into describe.
type FieldDescriptor struct {
	Name        string
	Type        string
	ReferenceTo []string
	SoapType    string
}

// Client is the full surface the engine consumes. A concrete
// implementation adapts this to the CRM's actual REST/SOAP/Bulk wire
// protocol and to whatever credential flow (OAuth, JWT bearer) acquired
// its session.
type Client interface {
	// Query issues a single synchronous SOQL query and returns all rows.
	// Implementations are responsible for following any pagination the
	// wire protocol requires; the engine always receives the full result.
	Query(ctx context.Context, soql string) ([]Row, error)

	// QueryAll is Query but includes soft-deleted/archived records.
	QueryAll(ctx context.Context, soql string) ([]Row, error)

	// Describe returns the field map for a single object type.
	Describe(ctx context.Context, sobject string) ([]FieldDescriptor, error)

	// GlobalDescribe returns the tenant's object-type list and key
	// prefixes, used to build the key-prefix table.
	GlobalDescribe(ctx context.Context) ([]SObjectInfo, error)

	// BulkQuery submits a query via the asynchronous bulk API and
	// returns every matching row once the job completes.
	BulkQuery(ctx context.Context, sobject, soql string) ([]Row, error)

	// BulkInsert submits rows for insert via the bulk API. Results are
	// returned in the same order as rows.
	BulkInsert(ctx context.Context, sobject string, rows []Row) ([]BulkResult, error)

	// BulkUpdate submits rows for update via the bulk API. Results are
	// returned in the same order as rows.
	BulkUpdate(ctx context.Context, sobject string, rows []Row) ([]BulkResult, error)
}
