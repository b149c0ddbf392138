package load

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/briannabrownOE/amaxa/pkg/events"
	"github.com/briannabrownOE/amaxa/pkg/ident"
	"github.com/briannabrownOE/amaxa/pkg/operation"
	"github.com/briannabrownOE/amaxa/pkg/rowfile"
	"github.com/briannabrownOE/amaxa/pkg/transport"
)

// Operation drives a declared list of load steps in order, owning the
// append-only old-id→new-id remap every step reads and mutates through
// it (§2 component B's load-only additions, §4.B).
type Operation struct {
	*operation.Context

	// IDRemap is the global old canonical id → new canonical id map
	// accumulated across every step of the operation (§3).
	IDRemap map[string]string

	inputFiles  map[string]rowfile.Reader
	resultFiles map[string]*rowfile.ResultWriter
	steps       []*Step
}

// NewOperation wraps client in a fresh operation context and an empty
// id remap.
func NewOperation(client transport.Client, broker *events.Broker, logger zerolog.Logger) *Operation {
	return &Operation{
		Context:     operation.New(client, broker, logger),
		IDRemap:     make(map[string]string),
		inputFiles:  make(map[string]rowfile.Reader),
		resultFiles: make(map[string]*rowfile.ResultWriter),
	}
}

// AddStep appends step to the ordered step list and registers its
// sobject with the shared context so GetSObjectList reflects declared
// order.
func (o *Operation) AddStep(s *Step) {
	s.operation = o
	o.RegisterSObject(s.SObjectName)
	o.steps = append(o.steps, s)
}

// SetInputFile registers the reader a step's records are read from;
// it is closed by CloseFiles.
func (o *Operation) SetInputFile(sobject string, r rowfile.Reader) {
	o.inputFiles[sobject] = r
	o.RegisterFile(r)
}

// SetResultFile registers the writer a step's per-record outcomes
// (new id or error) are written to; it is closed by CloseFiles.
func (o *Operation) SetResultFile(sobject string, w *rowfile.ResultWriter) {
	o.resultFiles[sobject] = w
	o.RegisterFile(w)
}

// RegisterNewID records that oldID now has canonical identity newID
// and appends the mapping to sobject's result file, if one is
// registered.
func (o *Operation) RegisterNewID(sobject, oldID, newID string) error {
	oldCanon, err := ident.FromString(oldID)
	if err != nil {
		return err
	}
	newCanon, err := ident.FromString(newID)
	if err != nil {
		return err
	}

	o.IDRemap[oldCanon.String()] = newCanon.String()
	o.publish(events.RecordStored, sobject, newCanon.String())

	if w, ok := o.resultFiles[sobject]; ok {
		return w.WriteSuccess(oldCanon.String(), newCanon.String())
	}
	return nil
}

// GetNewID returns the new canonical id registered for oldID, if any.
// oldID may be given in either 15 or 18-character form; an unparseable
// id reports not found rather than erroring, since callers use this as
// a lookup, not a validation gate.
func (o *Operation) GetNewID(oldID string) (string, bool) {
	id, err := ident.FromString(oldID)
	if err != nil {
		return "", false
	}
	newID, ok := o.IDRemap[id.String()]
	return newID, ok
}

// WriteErrors writes one row per entry of errs, keyed by original id,
// to sobject's result file, in sorted id order for deterministic
// output.
func (o *Operation) WriteErrors(sobject string, errs map[string]string) error {
	w, ok := o.resultFiles[sobject]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(errs))
	for id := range errs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := w.WriteError(id, errs[id]); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs every step in declared order: scan_fields first so each
// step's classification reflects the full registered sobject list,
// then for each step in turn, Execute followed by
// ExecuteDependentUpdates, aborting the remainder the moment either
// phase leaves a step with non-empty Errors (§4.B execute contract,
// §4.E). CloseFiles always runs before return.
func (o *Operation) Execute(ctx context.Context) int {
	defer o.CloseFiles()

	correlationID := uuid.New().String()
	o.Logger = o.Logger.With().Str("operation_id", correlationID).Logger()
	o.Logger.Info().Int("steps", len(o.steps)).Msg("starting load")

	sobjectList := o.GetSObjectList()
	for _, s := range o.steps {
		fieldMap, err := o.GetFieldMap(ctx, s.SObjectName)
		if err != nil {
			o.Logger.Error().Err(err).Str("sobject", s.SObjectName).Msg("describing sobject")
			return -1
		}
		s.ScanFields(fieldMap, sobjectList)
	}

	for _, s := range o.steps {
		if err := s.Execute(ctx); err != nil {
			o.Logger.Error().Err(err).Str("sobject", s.SObjectName).Msg("load step failed")
			return -1
		}
		if len(s.Errors) > 0 {
			o.WriteErrors(s.SObjectName, s.Errors)
			return -1
		}

		if err := s.ExecuteDependentUpdates(ctx); err != nil {
			o.Logger.Error().Err(err).Str("sobject", s.SObjectName).Msg("dependent updates failed")
			return -1
		}
		if len(s.Errors) > 0 {
			o.WriteErrors(s.SObjectName, s.Errors)
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
