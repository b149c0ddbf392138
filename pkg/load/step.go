// Package load implements the load engine: the two-phase mirror of
// extraction (component E) that inserts records with self/dependent
// lookups stripped, then back-fills those lookups once every id in the
// batch has a new counterpart (§4.E), orchestrated by Operation, the
// load specialization of the shared operation context (component B's
// load-only additions).
package load

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/briannabrownOE/amaxa/pkg/describe"
	"github.com/briannabrownOE/amaxa/pkg/errors"
	"github.com/briannabrownOE/amaxa/pkg/events"
	"github.com/briannabrownOE/amaxa/pkg/metrics"
	"github.com/briannabrownOE/amaxa/pkg/rowfile"
	"github.com/briannabrownOE/amaxa/pkg/step"
	"github.com/briannabrownOE/amaxa/pkg/transport"
)

// Step is a load step: one object type, its field list, and the
// outside-lookup behavior governing references whose old id has no
// entry in the operation's id remap once an insert leaves them
// unresolved (§4.E).
type Step struct {
	*step.Base

	OutsideLookupBehavior         step.OutsideLookupBehavior
	OutsideLookupBehaviorOverride map[string]step.OutsideLookupBehavior

	// Errors maps an input record's original id to the failure message
	// recorded against it (§7 kind 2 and kind 4); a non-empty Errors
	// after Execute or ExecuteDependentUpdates aborts the owning
	// Operation.
	Errors map[string]string

	// dependentLookupRecords holds, per original input id, the raw
	// self/dependent lookup values stripped out of the insert batch,
	// to be resolved and applied in ExecuteDependentUpdates.
	dependentLookupRecords map[string]map[string]string

	operation *Operation
}

// NewStep constructs a load step with the documented default: INCLUDE
// outside-lookup behavior.
func NewStep(sobjectName string, fields []string) *Step {
	return &Step{
		Base:                          step.NewBase(sobjectName, fields),
		OutsideLookupBehavior:         step.Include,
		OutsideLookupBehaviorOverride: map[string]step.OutsideLookupBehavior{},
		Errors:                        map[string]string{},
		dependentLookupRecords:        map[string]map[string]string{},
	}
}

func (s *Step) effectiveOutsideLookupBehavior(field string) step.OutsideLookupBehavior {
	if b, ok := s.OutsideLookupBehaviorOverride[field]; ok {
		return b
	}
	return s.OutsideLookupBehavior
}

type preparedRow struct {
	originalID string
	row        transport.Row
}

// Execute reads this step's input file, prepares each record for
// insert — mapping, field-list filtering, setting aside self/dependent
// lookups, resolving descendent lookups through the id remap, and
// coercing primitive wire types — then submits the cleaned batch via
// the bulk API and records the new id or failure for each input row
// (§4.E phase 1).
func (s *Step) Execute(ctx context.Context) error {
	o := s.operation
	o.publish(events.StepStarted, s.SObjectName, "")
	o.Logger.Info().Str("sobject", s.SObjectName).Msg("load step starting")

	reader, ok := o.inputFiles[s.SObjectName]
	if !ok {
		return fmt.Errorf("load: no input file registered for %s", s.SObjectName)
	}
	rows, err := rowfile.ReadAll(reader)
	if err != nil {
		return err
	}

	fieldMap, err := o.GetFieldMap(ctx, s.SObjectName)
	if err != nil {
		return err
	}
	m := o.Mapper(s.SObjectName)

	var batch []preparedRow
	for _, raw := range rows {
		originalID, ok := raw["Id"]
		if !ok || originalID == "" {
			return fmt.Errorf("load: input row for %s has no Id", s.SObjectName)
		}

		record := raw
		if m != nil {
			record = m.TransformRecord(record)
		}
		record = filterFields(record, s.Fields)

		deferred := map[string]string{}
		for field := range s.SelfLookups {
			if v, ok := record[field]; ok {
				if v != "" {
					deferred[field] = v
				}
				delete(record, field)
			}
		}
		for field := range s.DependentLookups {
			if v, ok := record[field]; ok {
				if v != "" {
					deferred[field] = v
				}
				delete(record, field)
			}
		}
		if len(deferred) > 0 {
			s.dependentLookupRecords[originalID] = deferred
		}

		rejected := false
		for _, field := range sortedFieldNames(s.DescendentLookups) {
			value, ok := record[field]
			if !ok || value == "" {
				continue
			}
			resolved, err := s.getValueForLookup(field, value, originalID)
			if err != nil {
				s.Errors[originalID] = err.Error()
				metrics.RecordErrorsTotal.WithLabelValues(s.SObjectName, "outside_reference").Inc()
				rejected = true
				break
			}
			if resolved == "" {
				delete(record, field)
			} else {
				record[field] = resolved
			}
		}
		if rejected {
			continue
		}

		primitivize(record, fieldMap)
		batch = append(batch, preparedRow{originalID: originalID, row: record})
	}

	if len(batch) > 0 {
		rowsToInsert := make([]transport.Row, len(batch))
		for i, p := range batch {
			rowsToInsert[i] = p.row
		}

		handle := o.GetBulkProxyObject(s.SObjectName)
		results, err := handle.Insert(ctx, rowsToInsert)
		if err != nil {
			return fmt.Errorf("load: bulk insert for %s: %w", s.SObjectName, err)
		}
		if len(results) != len(batch) {
			return fmt.Errorf("load: bulk insert for %s returned %d results for %d input rows", s.SObjectName, len(results), len(batch))
		}

		for i, result := range results {
			originalID := batch[i].originalID
			if result.Success {
				if err := o.RegisterNewID(s.SObjectName, originalID, result.ID); err != nil {
					return err
				}
				metrics.RecordsLoadedTotal.WithLabelValues(s.SObjectName).Inc()
			} else {
				e := firstBulkError(result.Errors)
				s.Errors[originalID] = errors.LoadFailure(s.SObjectName, originalID, e.StatusCode, e.Message, e.Fields)
				metrics.RecordErrorsTotal.WithLabelValues(s.SObjectName, "load_failure").Inc()
				metrics.BulkTransportFailures.WithLabelValues(s.SObjectName).Inc()
			}
		}
	}

	if len(s.Errors) > 0 {
		for id, msg := range s.Errors {
			o.Logger.Warn().Str("sobject", s.SObjectName).Str("original_id", id).Msg(msg)
		}
		o.publish(events.StepFailed, s.SObjectName, "")
	} else {
		o.Logger.Info().Str("sobject", s.SObjectName).Int("inserted", len(batch)).Msg("load step completed")
		o.publish(events.StepCompleted, s.SObjectName, "")
	}
	return nil
}

// ExecuteDependentUpdates resolves every self/dependent lookup value set
// aside during Execute, now that every successfully inserted record in
// this operation has a new id, and issues a bulk update for the
// records that need one (§4.E phase 2).
func (s *Step) ExecuteDependentUpdates(ctx context.Context) error {
	if len(s.dependentLookupRecords) == 0 {
		return nil
	}
	o := s.operation

	originalIDs := make([]string, 0, len(s.dependentLookupRecords))
	for id := range s.dependentLookupRecords {
		originalIDs = append(originalIDs, id)
	}
	sort.Strings(originalIDs)

	var batch []preparedRow
	for _, originalID := range originalIDs {
		newID, ok := o.GetNewID(originalID)
		if !ok {
			// the owning record itself failed to insert; nothing to
			// update.
			continue
		}

		fields := s.dependentLookupRecords[originalID]
		row := transport.Row{"Id": newID}
		rejected := false
		for _, field := range sortedFieldNamesOf(fields) {
			resolved, err := s.getValueForLookup(field, fields[field], originalID)
			if err != nil {
				s.Errors[originalID] = err.Error()
				metrics.RecordErrorsTotal.WithLabelValues(s.SObjectName, "outside_reference").Inc()
				rejected = true
				break
			}
			if resolved != "" {
				row[field] = resolved
			}
		}
		if rejected {
			continue
		}
		batch = append(batch, preparedRow{originalID: originalID, row: row})
	}

	if len(batch) == 0 {
		return nil
	}

	rowsToUpdate := make([]transport.Row, len(batch))
	for i, p := range batch {
		rowsToUpdate[i] = p.row
	}

	handle := o.GetBulkProxyObject(s.SObjectName)
	results, err := handle.Update(ctx, rowsToUpdate)
	if err != nil {
		return fmt.Errorf("load: bulk update for %s: %w", s.SObjectName, err)
	}
	if len(results) != len(batch) {
		return fmt.Errorf("load: bulk update for %s returned %d results for %d input rows", s.SObjectName, len(results), len(batch))
	}

	for i, result := range results {
		if !result.Success {
			originalID := batch[i].originalID
			e := firstBulkError(result.Errors)
			msg := errors.DependentUpdateFailure(s.SObjectName, originalID, e.StatusCode, e.Message, e.Fields)
			s.Errors[originalID] = msg
			metrics.RecordErrorsTotal.WithLabelValues(s.SObjectName, "dependent_update_failure").Inc()
			metrics.BulkTransportFailures.WithLabelValues(s.SObjectName).Inc()
			o.Logger.Warn().Str("sobject", s.SObjectName).Str("original_id", originalID).Msg(msg)
		}
	}
	o.Logger.Info().Str("sobject", s.SObjectName).Int("updated", len(batch)).Msg("dependent updates completed")
	return nil
}

// getValueForLookup resolves a single reference value against the
// operation's id remap, falling back to this field's outside-lookup
// behavior when the old value has no new counterpart yet (§4.E).
func (s *Step) getValueForLookup(field, oldValue, originalID string) (string, error) {
	if oldValue == "" {
		return "", nil
	}
	if newID, ok := s.operation.GetNewID(oldValue); ok {
		return newID, nil
	}
	switch s.effectiveOutsideLookupBehavior(field) {
	case step.DropField:
		return "", nil
	case step.Error:
		return "", fmt.Errorf("%s", errors.OutsideReference(s.SObjectName, originalID, field, oldValue))
	default:
		return oldValue, nil
	}
}

func filterFields(row transport.Row, fields []string) transport.Row {
	out := make(transport.Row, len(fields))
	for _, f := range fields {
		if v, ok := row[f]; ok {
			out[f] = v
		}
	}
	return out
}

// primitivize coerces boolean-typed field values to their canonical
// lowercase wire form and drops any field left with an empty value,
// since the string-keyed wire model used throughout this engine has no
// distinct null representation: an omitted key is how a null is sent
// on the bulk API (§4.E).
func primitivize(row transport.Row, fieldMap describe.ObjectDescribe) {
	for name, value := range row {
		if value == "" {
			delete(row, name)
			continue
		}
		field, ok := fieldMap[name]
		if !ok || field.Type != describe.FieldTypeBoolean {
			continue
		}
		if lower := strings.ToLower(value); lower == "true" || lower == "false" {
			row[name] = lower
		}
	}
}

func firstBulkError(errs []transport.BulkError) transport.BulkError {
	if len(errs) == 0 {
		return transport.BulkError{}
	}
	return errs[0]
}

func sortedFieldNames(set step.FieldSet) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedFieldNamesOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
