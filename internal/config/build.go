package config

import (
	"os"

	"github.com/rs/zerolog"

	amaxaerrors "github.com/briannabrownOE/amaxa/pkg/errors"
	"github.com/briannabrownOE/amaxa/pkg/events"
	"github.com/briannabrownOE/amaxa/pkg/extract"
	"github.com/briannabrownOE/amaxa/pkg/idset"
	"github.com/briannabrownOE/amaxa/pkg/load"
	"github.com/briannabrownOE/amaxa/pkg/mapper"
	"github.com/briannabrownOE/amaxa/pkg/rowfile"
	"github.com/briannabrownOE/amaxa/pkg/transport"
)

// BuildExtractOperation validates cfg as an extraction descriptor and
// wires it into a ready-to-run *extract.Operation: one step per
// declaration, its output file opened and registered, its id-store
// backend selected, and every pending dependency seeded for
// SELECTED_RECORDS steps (§9 open question). client is the caller's
// transport client; its construction is out of scope here (spec §1).
func BuildExtractOperation(cfg *Config, client transport.Client, broker *events.Broker, logger zerolog.Logger) (*extract.Operation, error) {
	if err := ValidateExtractConfig(cfg); err != nil {
		return nil, err
	}

	op := extract.NewOperation(client, broker, logger)
	if err := applyIDStore(op, cfg.IDStore); err != nil {
		return nil, err
	}

	for _, sc := range cfg.Steps {
		scope, _ := parseScope(sc.Scope)
		s := extract.NewStep(sc.SObject, sc.Fields, scope)
		s.Where = sc.Where
		if b, err := parseSelfLookupBehavior(sc.SelfLookupBehavior); err == nil {
			s.SelfLookupBehavior = b
		}
		if b, err := parseOutsideLookupBehavior(sc.OutsideLookupBehavior); err == nil {
			s.OutsideLookupBehavior = b
		}
		if err := applyExtractOverrides(s, sc); err != nil {
			return nil, err
		}

		m := buildMapper(sc.Mapper)

		out, err := os.Create(sc.OutputFile)
		if err != nil {
			return nil, amaxaerrors.NewValueError("config", "creating output file for %s: %v", sc.SObject, err)
		}
		op.SetOutputFile(sc.SObject, rowfile.NewCSVWriter(out, outputColumns(sc.Fields, m)))

		op.AddStep(s)

		if m != nil {
			op.SetMapper(sc.SObject, m)
		}

		for _, rawID := range sc.SelectedIDs {
			if err := op.AddDependency(sc.SObject, rawID); err != nil {
				return nil, err
			}
		}
	}
	return op, nil
}

func applyExtractOverrides(s *extract.Step, sc StepConfig) error {
	for field, override := range sc.FieldOverrides {
		if override.SelfLookupBehavior != "" {
			b, err := parseSelfLookupBehavior(override.SelfLookupBehavior)
			if err != nil {
				return err
			}
			s.SelfLookupBehaviorOverride[field] = b
		}
		if override.OutsideLookupBehavior != "" {
			b, err := parseOutsideLookupBehavior(override.OutsideLookupBehavior)
			if err != nil {
				return err
			}
			s.OutsideLookupBehaviorOverride[field] = b
		}
	}
	return nil
}

// BuildLoadOperation validates cfg as a load descriptor and wires it
// into a ready-to-run *load.Operation: one step per declaration, its
// input file opened and registered, and (when declared) a result file
// for the new-id/error outcome of each record.
func BuildLoadOperation(cfg *Config, client transport.Client, broker *events.Broker, logger zerolog.Logger) (*load.Operation, error) {
	if err := ValidateLoadConfig(cfg); err != nil {
		return nil, err
	}

	op := load.NewOperation(client, broker, logger)

	for _, sc := range cfg.Steps {
		s := load.NewStep(sc.SObject, sc.Fields)
		if b, err := parseOutsideLookupBehavior(sc.OutsideLookupBehavior); err == nil {
			s.OutsideLookupBehavior = b
		}
		for field, override := range sc.FieldOverrides {
			if override.OutsideLookupBehavior == "" {
				continue
			}
			b, err := parseOutsideLookupBehavior(override.OutsideLookupBehavior)
			if err != nil {
				return nil, err
			}
			s.OutsideLookupBehaviorOverride[field] = b
		}

		in, err := os.Open(sc.InputFile)
		if err != nil {
			return nil, amaxaerrors.NewValueError("config", "opening input file for %s: %v", sc.SObject, err)
		}
		reader, err := rowfile.NewCSVReader(in)
		if err != nil {
			return nil, err
		}
		op.SetInputFile(sc.SObject, reader)

		op.AddStep(s)

		if m := buildMapper(sc.Mapper); m != nil {
			op.SetMapper(sc.SObject, m)
		}

		if sc.ResultFile != "" {
			out, err := os.Create(sc.ResultFile)
			if err != nil {
				return nil, amaxaerrors.NewValueError("config", "creating result file for %s: %v", sc.SObject, err)
			}
			op.SetResultFile(sc.SObject, rowfile.NewResultWriter(out))
		}
	}
	return op, nil
}

// outputColumns renders fields through m's column renaming, so a
// rename mapper's new column names are what the output file is
// actually written with rather than the pre-rename field list (§4.D,
// §6). A nil mapper passes fields through unchanged.
func outputColumns(fields []string, m *mapper.Mapper) []string {
	if m == nil {
		return fields
	}
	out := make([]string, len(fields))
	for i, field := range fields {
		out[i] = m.TransformKey(field)
	}
	return out
}

func buildMapper(mc *MapperConfig) *mapper.Mapper {
	if mc == nil {
		return nil
	}
	var transforms map[string][]mapper.Transform
	if len(mc.Transforms) > 0 {
		transforms = make(map[string][]mapper.Transform, len(mc.Transforms))
		for column, names := range mc.Transforms {
			fns := make([]mapper.Transform, 0, len(names))
			for _, name := range names {
				if fn, err := parseTransform(name); err == nil {
					fns = append(fns, fn)
				}
			}
			transforms[column] = fns
		}
	}
	return mapper.New(mc.FieldMapping, transforms)
}

// applyIDStore replaces op's default in-memory id sets with a
// bbolt-backed pair when requested (§3: the extracted-id and pending-
// dependency maps have no required representation). A second on-disk
// database is opened for the pending set so the two sets, which share
// bucket names keyed by sobject, don't collide in one file.
func applyIDStore(op *extract.Operation, cfg IDStoreConfig) error {
	switch cfg.Backend {
	case "", "memory":
		return nil
	case "bolt":
		if cfg.Path == "" {
			return amaxaerrors.NewValueError("config", "id-store backend bolt requires a path")
		}
		extracted, err := idset.OpenBolt(cfg.Path)
		if err != nil {
			return err
		}
		pending, err := idset.OpenBolt(cfg.Path + ".pending")
		if err != nil {
			return err
		}
		op.UseIDStores(extracted, pending)
		return nil
	default:
		return amaxaerrors.NewValueError("config", "unknown id-store backend %q (expected memory or bolt)", cfg.Backend)
	}
}
