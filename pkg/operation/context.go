// Package operation implements the shared context every step reads and
// mutates through its owning operation (§2 component B, §4.B): the
// transport handle, the per-type describe and field-map cache, the
// key-prefix table, cached per-type proxy handles, registered field
// mappers, and the file-handle registry behind CloseFiles. extract.Operation
// and load.Operation (in pkg/extract and pkg/load) each embed Context and add
// the extraction- or load-specific state the spec calls out as
// "additions": extracted-id/pending-dependency sets for extraction, the
// id remap for load.
package operation

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/briannabrownOE/amaxa/pkg/describe"
	"github.com/briannabrownOE/amaxa/pkg/events"
	"github.com/briannabrownOE/amaxa/pkg/ident"
	"github.com/briannabrownOE/amaxa/pkg/mapper"
	"github.com/briannabrownOE/amaxa/pkg/transport"
)

// ObjectHandle is a transport handle scoped to one object type, cached
// per type by GetProxyObject — the Go stand-in for what the reference
// implementation calls a proxy object (a bound `sf.Account`-style
// handle); here it's just the sobject name closed over the shared
// client, since transport.Client already takes sobject as a parameter.
type ObjectHandle struct {
	client  transport.Client
	SObject string
}

func (h *ObjectHandle) Query(ctx context.Context, soql string) ([]transport.Row, error) {
	return h.client.Query(ctx, soql)
}

func (h *ObjectHandle) QueryAll(ctx context.Context, soql string) ([]transport.Row, error) {
	return h.client.QueryAll(ctx, soql)
}

func (h *ObjectHandle) Describe(ctx context.Context) ([]transport.FieldDescriptor, error) {
	return h.client.Describe(ctx, h.SObject)
}

// BulkObjectHandle is the bulk-API counterpart, cached per type by
// GetBulkProxyObject.
type BulkObjectHandle struct {
	client  transport.Client
	SObject string
}

func (h *BulkObjectHandle) Query(ctx context.Context, soql string) ([]transport.Row, error) {
	return h.client.BulkQuery(ctx, h.SObject, soql)
}

func (h *BulkObjectHandle) Insert(ctx context.Context, rows []transport.Row) ([]transport.BulkResult, error) {
	return h.client.BulkInsert(ctx, h.SObject, rows)
}

func (h *BulkObjectHandle) Update(ctx context.Context, rows []transport.Row) ([]transport.BulkResult, error) {
	return h.client.BulkUpdate(ctx, h.SObject, rows)
}

// Context holds the state common to both extraction and load
// operations.
type Context struct {
	Client transport.Client
	Events *events.Broker
	Logger zerolog.Logger

	mu             sync.Mutex
	sobjects       []string
	describeCache  map[string][]describe.Field
	fieldMapCache  map[string]describe.ObjectDescribe
	prefixTable    describe.PrefixTable
	proxyCache     map[string]*ObjectHandle
	bulkProxyCache map[string]*BulkObjectHandle
	mappers        map[string]*mapper.Mapper
	files          []io.Closer
	filesClosed    bool
}

// New constructs an empty Context bound to client, reporting lifecycle
// events on broker (which may be nil) and logging via logger.
func New(client transport.Client, broker *events.Broker, logger zerolog.Logger) *Context {
	return &Context{
		Client:         client,
		Events:         broker,
		Logger:         logger,
		describeCache:  make(map[string][]describe.Field),
		fieldMapCache:  make(map[string]describe.ObjectDescribe),
		proxyCache:     make(map[string]*ObjectHandle),
		bulkProxyCache: make(map[string]*BulkObjectHandle),
		mappers:        make(map[string]*mapper.Mapper),
	}
}

// RegisterSObject appends sobject to the ordered sobject list if it
// isn't already registered. Concrete operations call this from their
// AddStep so GetSObjectList reflects declared step order (§3, §4.B).
func (c *Context) RegisterSObject(sobject string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.sobjects {
		if s == sobject {
			return
		}
	}
	c.sobjects = append(c.sobjects, sobject)
}

// GetSObjectList returns the ordered list of type names currently
// registered.
func (c *Context) GetSObjectList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sobjects))
	copy(out, c.sobjects)
	return out
}

// GetDescribe returns sobject's field descriptors, fetching via the
// transport on first call and caching thereafter.
func (c *Context) GetDescribe(ctx context.Context, sobject string) ([]describe.Field, error) {
	c.mu.Lock()
	if cached, ok := c.describeCache[sobject]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	fields, err := c.Client.Describe(ctx, sobject)
	if err != nil {
		return nil, fmt.Errorf("operation: describing %s: %w", sobject, err)
	}
	out := make([]describe.Field, len(fields))
	for i, f := range fields {
		out[i] = describe.Field{
			Name:        f.Name,
			Type:        describe.FieldType(f.Type),
			ReferenceTo: f.ReferenceTo,
			SoapType:    f.SoapType,
		}
	}

	c.mu.Lock()
	c.describeCache[sobject] = out
	c.mu.Unlock()
	return out, nil
}

// GetFieldMap returns sobject's describe as a name-keyed map, memoized
// independently of GetDescribe's slice cache.
func (c *Context) GetFieldMap(ctx context.Context, sobject string) (describe.ObjectDescribe, error) {
	c.mu.Lock()
	if cached, ok := c.fieldMapCache[sobject]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	fields, err := c.GetDescribe(ctx, sobject)
	if err != nil {
		return nil, err
	}
	fieldMap := make(describe.ObjectDescribe, len(fields))
	for _, f := range fields {
		fieldMap[f.Name] = f
	}

	c.mu.Lock()
	c.fieldMapCache[sobject] = fieldMap
	c.mu.Unlock()
	return fieldMap, nil
}

// GetFilteredFieldMap returns the subset of sobject's field map
// satisfying pred.
func (c *Context) GetFilteredFieldMap(ctx context.Context, sobject string, pred describe.FilterPredicate) (describe.ObjectDescribe, error) {
	fieldMap, err := c.GetFieldMap(ctx, sobject)
	if err != nil {
		return nil, err
	}
	return fieldMap.Filter(pred), nil
}

// ensurePrefixTable builds the key-prefix table from the tenant's
// global describe on first use (§3, §9: "built lazily from the global
// describe").
func (c *Context) ensurePrefixTable(ctx context.Context) error {
	c.mu.Lock()
	if c.prefixTable != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	sobjects, err := c.Client.GlobalDescribe(ctx)
	if err != nil {
		return fmt.Errorf("operation: global describe: %w", err)
	}
	infos := make([]describe.SObjectInfo, len(sobjects))
	for i, s := range sobjects {
		infos[i] = describe.SObjectInfo{Name: s.Name, KeyPrefix: s.KeyPrefix}
	}

	c.mu.Lock()
	c.prefixTable = describe.NewPrefixTable(infos)
	c.mu.Unlock()
	return nil
}

// GetSObjectNameForID classifies id by its three-character key prefix,
// populating the prefix table on first call. The second return value
// is false if id's prefix is unknown to this tenant.
func (c *Context) GetSObjectNameForID(ctx context.Context, id string) (string, bool, error) {
	parsed, err := ident.FromString(id)
	if err != nil {
		return "", false, err
	}
	if err := c.ensurePrefixTable(ctx); err != nil {
		return "", false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.prefixTable.Lookup(parsed.Prefix())
	return name, ok, nil
}

// GetProxyObject returns the cached synchronous-API handle for
// sobject, creating it on first call.
func (c *Context) GetProxyObject(sobject string) *ObjectHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.proxyCache[sobject]; ok {
		return h
	}
	h := &ObjectHandle{client: c.Client, SObject: sobject}
	c.proxyCache[sobject] = h
	return h
}

// GetBulkProxyObject returns the cached bulk-API handle for sobject,
// creating it on first call.
func (c *Context) GetBulkProxyObject(sobject string) *BulkObjectHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.bulkProxyCache[sobject]; ok {
		return h
	}
	h := &BulkObjectHandle{client: c.Client, SObject: sobject}
	c.bulkProxyCache[sobject] = h
	return h
}

// SetMapper registers the data mapper applied to rows of sobject; m
// may be nil.
func (c *Context) SetMapper(sobject string, m *mapper.Mapper) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mappers[sobject] = m
}

// Mapper returns the mapper registered for sobject, or nil if none.
func (c *Context) Mapper(sobject string) *mapper.Mapper {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mappers[sobject]
}

// RegisterFile adds f to the set closed by CloseFiles. The caller
// opens file handles before Execute runs (§9: "the engine does not
// open files itself").
func (c *Context) RegisterFile(f io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append(c.files, f)
}

// CloseFiles closes every registered file handle. Idempotent: a
// second call is a no-op, so a deferred CloseFiles and an explicit one
// on an error path never double-close.
func (c *Context) CloseFiles() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filesClosed {
		return nil
	}
	c.filesClosed = true

	var firstErr error
	for _, f := range c.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
