// Package extract implements the extraction engine: the dependency-
// directed multi-pass traversal that discovers and fetches records
// across object types (component D), orchestrated by Operation, the
// extraction specialization of the shared operation context
// (component B's extraction-only additions).
package extract

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/briannabrownOE/amaxa/pkg/describe"
	"github.com/briannabrownOE/amaxa/pkg/errors"
	"github.com/briannabrownOE/amaxa/pkg/events"
	"github.com/briannabrownOE/amaxa/pkg/ident"
	"github.com/briannabrownOE/amaxa/pkg/metrics"
	"github.com/briannabrownOE/amaxa/pkg/step"
	"github.com/briannabrownOE/amaxa/pkg/transport"
)

// defaultURLLengthCeiling is the implementation target for id-field
// pass query length (§4.D, §9 open question: made configurable here
// via Step.URLLengthCeiling).
const defaultURLLengthCeiling = 4000

// Step is an extraction step: one object type, its field list and
// scope, and the self/outside lookup behaviors governing how it
// reacts to references encountered while storing results (§4.D).
type Step struct {
	*step.Base

	Scope step.ExtractionScope
	Where string

	SelfLookupBehavior         step.SelfLookupBehavior
	SelfLookupBehaviorOverride map[string]step.SelfLookupBehavior

	OutsideLookupBehavior         step.OutsideLookupBehavior
	OutsideLookupBehaviorOverride map[string]step.OutsideLookupBehavior

	// URLLengthCeiling bounds the total length of a generated id-field
	// pass query; 0 selects defaultURLLengthCeiling.
	URLLengthCeiling int

	// Errors accumulates every policy violation and unresolved-
	// dependency failure for this step (§7 kinds 2 and 3); a non-empty
	// Errors after Execute aborts the owning Operation.
	Errors []string

	operation *Operation
}

// Re-exported scope constants for convenience at call sites that only
// import pkg/extract.
const (
	AllRecords      = step.AllRecords
	Query           = step.Query
	Descendents     = step.Descendents
	SelectedRecords = step.SelectedRecords
)

// NewStep constructs an extraction step with the documented defaults:
// TRACE_ALL self-lookup behavior, INCLUDE outside-lookup behavior.
func NewStep(sobjectName string, fields []string, scope step.ExtractionScope) *Step {
	return &Step{
		Base:                          step.NewBase(sobjectName, fields),
		Scope:                         scope,
		SelfLookupBehavior:            step.TraceAll,
		SelfLookupBehaviorOverride:    map[string]step.SelfLookupBehavior{},
		OutsideLookupBehavior:         step.Include,
		OutsideLookupBehaviorOverride: map[string]step.OutsideLookupBehavior{},
	}
}

func (s *Step) effectiveSelfLookupBehavior(field string) step.SelfLookupBehavior {
	if b, ok := s.SelfLookupBehaviorOverride[field]; ok {
		return b
	}
	return s.SelfLookupBehavior
}

func (s *Step) effectiveOutsideLookupBehavior(field string) step.OutsideLookupBehavior {
	if b, ok := s.OutsideLookupBehaviorOverride[field]; ok {
		return b
	}
	return s.OutsideLookupBehavior
}

func (s *Step) urlLengthCeiling() int {
	if s.URLLengthCeiling > 0 {
		return s.URLLengthCeiling
	}
	return defaultURLLengthCeiling
}

func (s *Step) hasTracedSelfLookup() bool {
	for field := range s.SelfLookups {
		if s.effectiveSelfLookupBehavior(field) == step.TraceAll {
			return true
		}
	}
	return false
}

// Execute runs this step's state machine: the scope-dependent initial
// pass (S0), the self-lookup fixed point (S1) if applicable, and
// dependency resolution (S2) (§4.D).
func (s *Step) Execute(ctx context.Context) error {
	o := s.operation
	o.publish(events.StepStarted, s.SObjectName, "")
	o.Logger.Info().Str("sobject", s.SObjectName).Str("scope", s.Scope.String()).Msg("extraction step starting")

	if err := s.initialPass(ctx); err != nil {
		return err
	}

	if s.hasTracedSelfLookup() {
		before, err := o.GetExtractedIDs(s.SObjectName)
		if err != nil {
			return err
		}
		beforeSet := toSet(before)
		rounds := 0

		for {
			rounds++
			fields := sortedKeys(s.SelfLookups)
			for _, field := range fields {
				if s.effectiveSelfLookupBehavior(field) != step.TraceAll {
					continue
				}
				if err := s.performLookupPass(ctx, field); err != nil {
					return err
				}
			}
			if err := s.resolveRegisteredDependencies(ctx); err != nil {
				return err
			}

			after, err := o.GetExtractedIDs(s.SObjectName)
			if err != nil {
				return err
			}
			afterSet := toSet(after)
			if setsEqual(beforeSet, afterSet) {
				break
			}
			beforeSet = afterSet
		}
		metrics.SelfLookupRounds.WithLabelValues(s.SObjectName).Observe(float64(rounds))
	} else {
		if err := s.resolveRegisteredDependencies(ctx); err != nil {
			return err
		}
	}

	extractedIDs, idsErr := o.GetExtractedIDs(s.SObjectName)
	rowCount := -1
	if idsErr == nil {
		rowCount = len(extractedIDs)
	}
	if len(s.Errors) > 0 {
		for _, msg := range s.Errors {
			o.Logger.Warn().Str("sobject", s.SObjectName).Msg(msg)
		}
		o.publish(events.StepFailed, s.SObjectName, "")
	} else {
		o.Logger.Info().Str("sobject", s.SObjectName).Int("extracted", rowCount).Msg("extraction step completed")
		o.publish(events.StepCompleted, s.SObjectName, "")
	}
	return nil
}

func (s *Step) initialPass(ctx context.Context) error {
	switch s.Scope {
	case step.AllRecords:
		query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(s.Fields, ", "), s.SObjectName)
		return s.performBulkAPIPass(ctx, query)
	case step.Query:
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(s.Fields, ", "), s.SObjectName, s.Where)
		return s.performBulkAPIPass(ctx, query)
	case step.Descendents:
		for _, field := range sortedKeys(s.DescendentLookups) {
			if err := s.performLookupPass(ctx, field); err != nil {
				return err
			}
		}
		return nil
	case step.SelectedRecords:
		// No initial pass: ids arrive only through dependency
		// resolution or a pre-seeded pending set (§4.D, §9 open
		// question — the configuration layer is responsible for that
		// seeding).
		return nil
	default:
		return fmt.Errorf("extract: unknown scope %v for %s", s.Scope, s.SObjectName)
	}
}

// performBulkAPIPass submits query via the bulk API and feeds every
// returned row to storeResult, converting epoch-millisecond datetime
// values to ISO-8601 first (§4.D).
func (s *Step) performBulkAPIPass(ctx context.Context, query string) error {
	o := s.operation
	o.publish(events.PassStarted, s.SObjectName, query)
	timer := metrics.NewTimer()

	handle := o.GetBulkProxyObject(s.SObjectName)
	rows, err := handle.Query(ctx, query)
	metrics.BulkPassDuration.WithLabelValues(s.SObjectName).Observe(timer.Duration().Seconds())
	if err != nil {
		return fmt.Errorf("extract: bulk query for %s: %w", s.SObjectName, err)
	}

	fieldMap, err := o.GetFieldMap(ctx, s.SObjectName)
	if err != nil {
		return err
	}

	for _, row := range rows {
		convertRowDateTimes(row, fieldMap)
		if err := s.storeResult(ctx, row); err != nil {
			return err
		}
	}
	o.Logger.Info().Str("sobject", s.SObjectName).Int("rows", len(rows)).Msg("bulk pass completed")
	o.publish(events.PassCompleted, s.SObjectName, query)
	return nil
}

// performLookupPass resolves the ids field currently points at among
// already-extracted records of its referenceTo targets, then queries
// this step's own type for records whose field matches one of those
// ids (§4.D).
func (s *Step) performLookupPass(ctx context.Context, field string) error {
	ids, err := s.operation.GetSObjectIDsForReference(ctx, s.SObjectName, field)
	if err != nil {
		return err
	}
	return s.performIDFieldPass(ctx, field, ids)
}

// performIDFieldPass issues one or more chunked synchronous queries of
// the form "SELECT <fields> FROM <type> WHERE <field> IN (...)",
// keeping every query under the configured URL length ceiling (§4.D,
// §8 chunking invariant).
func (s *Step) performIDFieldPass(ctx context.Context, field string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	queries := chunkIDFieldQueries(s.Fields, s.SObjectName, field, ids, s.urlLengthCeiling())
	metrics.IDFieldPassQueries.WithLabelValues(s.SObjectName).Add(float64(len(queries)))

	for _, query := range queries {
		rows, err := s.operation.Client.QueryAll(ctx, query)
		if err != nil {
			return fmt.Errorf("extract: id field pass for %s.%s: %w", s.SObjectName, field, err)
		}
		for _, row := range rows {
			if err := s.storeResult(ctx, row); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveRegisteredDependencies issues one id-field pass over every
// pending dependency for this step's type, then records any id still
// pending afterward as an unresolved-dependency error (§4.D S2).
func (s *Step) resolveRegisteredDependencies(ctx context.Context) error {
	ids, err := s.operation.GetDependencies(s.SObjectName)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		if err := s.performIDFieldPass(ctx, "Id", ids); err != nil {
			return err
		}
	}

	remaining, err := s.operation.GetDependencies(s.SObjectName)
	if err != nil {
		return err
	}
	metrics.PendingDependencies.WithLabelValues(s.SObjectName).Set(float64(len(remaining)))
	if len(remaining) > 0 {
		sort.Strings(remaining)
		s.Errors = append(s.Errors, errors.UnresolvedDependencies(s.SObjectName, remaining))
		metrics.RecordErrorsTotal.WithLabelValues(s.SObjectName, "unresolved_dependencies").Inc()
	}
	return nil
}

// storeResult classifies every reference field in row against the
// operation's sobject order, which must be recomputed per row (not
// reused from scan_fields) because a polymorphic field's actual target
// is only known once the id value is seen (§4.D, §9). A row rejected
// by ERROR outside-lookup behavior is never forwarded to the context.
func (s *Step) storeResult(ctx context.Context, row transport.Row) error {
	o := s.operation
	sobjectList := o.GetSObjectList()
	selfPos := indexOf(sobjectList, s.SObjectName)

	rejected := false
	for field := range s.AllLookups {
		value := row[field]
		if value == "" {
			continue
		}

		targetType, known, err := o.GetSObjectNameForID(ctx, value)
		if err != nil {
			return err
		}

		if known && targetType == s.SObjectName {
			if s.effectiveSelfLookupBehavior(field) == step.TraceAll {
				if err := o.AddDependency(targetType, value); err != nil {
					return err
				}
			}
			continue
		}

		if known {
			targetPos := indexOf(sobjectList, targetType)
			if targetPos >= 0 && targetPos > selfPos {
				if err := o.AddDependency(targetType, value); err != nil {
					return err
				}
				continue
			}
			if targetPos >= 0 && targetPos < selfPos {
				canonical, err := ident.FromString(value)
				if err != nil {
					return err
				}
				extracted, err := o.Extracted.Contains(targetType, canonical.String())
				if err != nil {
					return err
				}
				if extracted {
					continue
				}
			}
		}

		// Outside lookup: target unknown to the tenant, known but not
		// part of this operation's type list, or a known descendent
		// not yet extracted.
		switch s.effectiveOutsideLookupBehavior(field) {
		case step.Include:
			// leave the field as-is
		case step.DropField:
			delete(row, field)
		case step.Error:
			s.Errors = append(s.Errors, errors.OutsideReference(s.SObjectName, row["Id"], field, value))
			metrics.RecordErrorsTotal.WithLabelValues(s.SObjectName, "outside_reference").Inc()
			rejected = true
		}
	}

	if rejected {
		return nil
	}
	return o.StoreResult(ctx, s.SObjectName, row)
}

// convertRowDateTimes rewrites every datetime field in row whose value
// is a numeric epoch-millisecond integer to ISO-8601 with millisecond
// precision and a +0000 zone suffix; any other value (in particular
// already-ISO-formatted strings) is left unchanged, which is what
// makes the conversion idempotent (§4.D, §8).
func convertRowDateTimes(row transport.Row, fieldMap describe.ObjectDescribe) {
	for name, field := range fieldMap {
		if field.Type != describe.FieldTypeDateTime {
			continue
		}
		value, ok := row[name]
		if !ok || value == "" {
			continue
		}
		if converted, ok := epochMillisToISO8601(value); ok {
			row[name] = converted
		}
	}
}

func epochMillisToISO8601(value string) (string, bool) {
	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return value, false
	}
	return time.UnixMilli(millis).UTC().Format("2006-01-02T15:04:05.000") + "+0000", true
}

func sortedKeys(set step.FieldSet) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func indexOf(list []string, name string) int {
	for i, v := range list {
		if v == name {
			return i
		}
	}
	return -1
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// chunkIDFieldQueries partitions ids into one or more
// "SELECT ... WHERE field IN (...)" queries, each kept at or under
// maxLen characters; every id appears in exactly one query (§8).
func chunkIDFieldQueries(selectFields []string, sobject, field string, ids []string, maxLen int) []string {
	prefix := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (", strings.Join(selectFields, ", "), sobject, field)
	const suffix = ")"

	var queries []string
	var current []string
	currentLen := len(prefix) + len(suffix)

	flush := func() {
		if len(current) > 0 {
			queries = append(queries, prefix+strings.Join(current, ",")+suffix)
		}
	}

	for _, id := range ids {
		quoted := "'" + id + "'"
		addLen := len(quoted)
		if len(current) > 0 {
			addLen++ // the joining comma
		}
		if len(current) > 0 && currentLen+addLen > maxLen {
			flush()
			current = nil
			currentLen = len(prefix) + len(suffix)
			addLen = len(quoted)
		}
		current = append(current, quoted)
		currentLen += addLen
	}
	flush()
	return queries
}
