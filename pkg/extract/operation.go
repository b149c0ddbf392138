package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/briannabrownOE/amaxa/pkg/events"
	"github.com/briannabrownOE/amaxa/pkg/ident"
	"github.com/briannabrownOE/amaxa/pkg/idset"
	"github.com/briannabrownOE/amaxa/pkg/metrics"
	"github.com/briannabrownOE/amaxa/pkg/operation"
	"github.com/briannabrownOE/amaxa/pkg/rowfile"
	"github.com/briannabrownOE/amaxa/pkg/transport"
)

// Operation drives a declared list of extraction steps in order,
// owning the extracted-id and pending-dependency sets every step reads
// and mutates through it (§2 component B's extraction-only additions,
// §4.B).
type Operation struct {
	*operation.Context

	Extracted idset.Store
	Pending   idset.Store

	outputFiles map[string]rowfile.Writer
	steps       []*Step
}

// NewOperation wraps client in a fresh operation context and
// in-memory id sets. Use UseIDStores to switch to a disk-backed store
// for tenants whose extracted/pending sets won't comfortably fit in
// memory for the operation's lifetime.
func NewOperation(client transport.Client, broker *events.Broker, logger zerolog.Logger) *Operation {
	return &Operation{
		Context:     operation.New(client, broker, logger),
		Extracted:   idset.NewMem(),
		Pending:     idset.NewMem(),
		outputFiles: make(map[string]rowfile.Writer),
	}
}

// UseIDStores replaces the default in-memory extracted/pending sets.
// Must be called before any step executes.
func (o *Operation) UseIDStores(extracted, pending idset.Store) {
	o.Extracted = extracted
	o.Pending = pending
}

// AddStep appends step to the ordered step list and registers its
// sobject with the shared context so GetSObjectList reflects
// declared order (§4.B).
func (o *Operation) AddStep(s *Step) {
	s.operation = o
	o.RegisterSObject(s.SObjectName)
	o.steps = append(o.steps, s)
}

// SetOutputFile registers the writer that stored results for sobject
// are written to; it is closed by CloseFiles.
func (o *Operation) SetOutputFile(sobject string, w rowfile.Writer) {
	o.outputFiles[sobject] = w
	o.RegisterFile(w)
}

// GetExtractedIDs returns every canonical id already materialized for
// sobject.
func (o *Operation) GetExtractedIDs(sobject string) ([]string, error) {
	return o.Extracted.IDs(sobject)
}

// GetDependencies returns every canonical id referenced but not yet
// extracted for sobject.
func (o *Operation) GetDependencies(sobject string) ([]string, error) {
	return o.Pending.IDs(sobject)
}

// AddDependency registers id as a pending dependency of sobject,
// unless it is already extracted (§3: an id is never in both sets for
// the same type simultaneously).
func (o *Operation) AddDependency(sobject, rawID string) error {
	id, err := ident.FromString(rawID)
	if err != nil {
		return err
	}
	already, err := o.Extracted.Contains(sobject, id.String())
	if err != nil {
		return err
	}
	if already {
		return nil
	}
	added, err := o.Pending.Add(sobject, id.String())
	if err != nil {
		return err
	}
	if added {
		if pending, err := o.Pending.IDs(sobject); err == nil {
			metrics.PendingDependencies.WithLabelValues(sobject).Set(float64(len(pending)))
		}
		o.publish(events.DependencyRegistered, sobject, id.String())
	}
	return nil
}

// GetSObjectIDsForReference returns the union of the already-extracted
// ids of every object type field (on sobject) can reference, used to
// drive a reverse lookup pass against sobject's own records.
func (o *Operation) GetSObjectIDsForReference(ctx context.Context, sobject, field string) ([]string, error) {
	fieldMap, err := o.GetFieldMap(ctx, sobject)
	if err != nil {
		return nil, err
	}
	descriptor, ok := fieldMap[field]
	if !ok {
		return nil, fmt.Errorf("extract: %s has no field %s", sobject, field)
	}

	seen := make(map[string]bool)
	var out []string
	for _, target := range descriptor.ReferenceTo {
		ids, err := o.Extracted.IDs(target)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}

// StoreResult is the extraction choke point (§4.B): deduplicate
// against the extracted set, clear any matching pending dependency,
// apply the registered mapper, and write to the type's output file.
func (o *Operation) StoreResult(ctx context.Context, sobject string, row transport.Row) error {
	rawID, ok := row["Id"]
	if !ok || rawID == "" {
		return fmt.Errorf("extract: row for %s has no Id", sobject)
	}
	id, err := ident.FromString(rawID)
	if err != nil {
		return err
	}
	canonical := id.String()

	already, err := o.Extracted.Contains(sobject, canonical)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	if _, err := o.Extracted.Add(sobject, canonical); err != nil {
		return err
	}
	if err := o.Pending.Remove(sobject, canonical); err != nil {
		return err
	}

	out := row
	if m := o.Mapper(sobject); m != nil {
		out = m.TransformRecord(row)
	}

	w, ok := o.outputFiles[sobject]
	if !ok {
		return fmt.Errorf("extract: no output file registered for %s", sobject)
	}
	if err := w.Write(out); err != nil {
		return err
	}

	metrics.RecordsExtractedTotal.WithLabelValues(sobject).Inc()
	o.publish(events.RecordStored, sobject, canonical)
	return nil
}

// Execute runs every step in declared order, scanning fields first so
// each step's classification reflects the full registered sobject
// list, then running steps; the first step left with a non-empty
// Errors aborts the remainder. CloseFiles always runs before return
// (§4.B execute contract).
func (o *Operation) Execute(ctx context.Context) int {
	defer o.CloseFiles()

	correlationID := uuid.New().String()
	o.Logger = o.Logger.With().Str("operation_id", correlationID).Logger()
	o.Logger.Info().Int("steps", len(o.steps)).Msg("starting extraction")

	sobjectList := o.GetSObjectList()
	for _, s := range o.steps {
		fieldMap, err := o.GetFieldMap(ctx, s.SObjectName)
		if err != nil {
			s.Errors = append(s.Errors, err.Error())
			return -1
		}
		s.ScanFields(fieldMap, sobjectList)
	}

	for _, s := range o.steps {
		if err := s.Execute(ctx); err != nil {
			s.Errors = append(s.Errors, err.Error())
		}
		if len(s.Errors) > 0 {
			return -1
		}
	}
	return 0
}

func (o *Operation) publish(typ events.Type, sobject, message string) {
	if o.Events == nil {
		return
	}
	o.Events.Publish(&events.Event{Type: typ, Timestamp: time.Now(), SObject: sobject, Message: message})
}
