// Package config loads and validates the YAML operation descriptor
// cmd/amaxa runs against: an ordered list of object-type step
// declarations plus connection and id-store settings. It does not
// attempt to be a general-purpose schema system — the config file
// format itself is an external collaborator (spec §1); this package is
// the minimal two-stage loader (unmarshal, then validate) the engine
// needs to become runnable end to end.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/briannabrownOE/amaxa/pkg/errors"
)

// Config is the root of an operation descriptor file.
type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	IDStore    IDStoreConfig    `yaml:"id-store"`
	Steps      []StepConfig     `yaml:"steps"`
}

// ConnectionConfig carries whatever settings the caller's transport
// client construction needs. amaxa never interprets these beyond
// passing them through: credential acquisition and the wire protocol
// are out of scope (spec §1).
type ConnectionConfig struct {
	LoginURL   string            `yaml:"login-url,omitempty"`
	APIVersion string            `yaml:"api-version,omitempty"`
	Extra      map[string]string `yaml:"extra,omitempty"`
}

// IDStoreConfig selects the extracted-id / pending-dependency set
// backend. Backend "memory" (the default) never touches disk; "bolt"
// opens a go.etcd.io/bbolt database at Path for tenants too large to
// comfortably extract in memory.
type IDStoreConfig struct {
	Backend string `yaml:"backend,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// MapperConfig configures a step's field renaming and value-transform
// pipeline (component F).
type MapperConfig struct {
	FieldMapping map[string]string   `yaml:"field-mapping,omitempty"`
	Transforms   map[string][]string `yaml:"transforms,omitempty"`
}

// FieldOverrideConfig overrides a step's default self/outside lookup
// behavior for one specific field.
type FieldOverrideConfig struct {
	SelfLookupBehavior    string `yaml:"self-lookup-behavior,omitempty"`
	OutsideLookupBehavior string `yaml:"outside-lookup-behavior,omitempty"`
}

// StepConfig declares one object-type step. Not every field applies to
// both extract and load: Scope, Where, SelfLookupBehavior and
// OutputFile are extract-only; InputFile and ResultFile are load-only.
// ValidateLoadConfig rejects Scope, Where and SelfLookupBehavior on a
// load step; the other fields of the split are not checked against the
// subcommand and are ignored where they do not apply.
type StepConfig struct {
	SObject string   `yaml:"sobject"`
	Fields  []string `yaml:"fields"`

	Scope                 string `yaml:"scope,omitempty"`
	Where                 string `yaml:"where,omitempty"`
	SelfLookupBehavior    string `yaml:"self-lookup-behavior,omitempty"`
	OutsideLookupBehavior string `yaml:"outside-lookup-behavior,omitempty"`

	// SelectedIDs pre-seeds the pending-dependency set for a
	// SELECTED_RECORDS step, which has no initial pass of its own (§9
	// open question: the configuration layer owns this seeding).
	SelectedIDs []string `yaml:"selected-ids,omitempty"`

	FieldOverrides map[string]FieldOverrideConfig `yaml:"field-overrides,omitempty"`
	Mapper         *MapperConfig                  `yaml:"mapper,omitempty"`

	OutputFile string `yaml:"output-file,omitempty"`
	InputFile  string `yaml:"input-file,omitempty"`
	ResultFile string `yaml:"result-file,omitempty"`
}

// Load reads and parses the YAML operation descriptor at path. It does
// not validate; callers choose ValidateExtractConfig or
// ValidateLoadConfig depending on which subcommand is running.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewValueError("config", "reading %s: %v", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewValueError("config", "parsing %s: %v", path, err)
	}
	if cfg.IDStore.Backend == "" {
		cfg.IDStore.Backend = "memory"
	}
	return &cfg, nil
}

// ValidateExtractConfig checks cfg for use by the extract subcommand:
// every step needs a sobject, a non-empty field list, a known scope,
// and an output file; QUERY scope needs a where clause.
func ValidateExtractConfig(cfg *Config) error {
	if len(cfg.Steps) == 0 {
		return errors.NewValueError("config", "no steps declared")
	}
	seen := make(map[string]bool, len(cfg.Steps))
	for i, s := range cfg.Steps {
		if err := validateCommon(i, s, seen); err != nil {
			return err
		}
		if s.OutputFile == "" {
			return errors.NewValueError("config", "step %d (%s): output-file is required for extraction", i, s.SObject)
		}
		scope, err := parseScope(s.Scope)
		if err != nil {
			return errors.NewValueError("config", "step %d (%s): %v", i, s.SObject, err)
		}
		if scope == parsedQuery && s.Where == "" {
			return errors.NewValueError("config", "step %d (%s): scope QUERY requires a where clause", i, s.SObject)
		}
		if _, err := parseSelfLookupBehavior(s.SelfLookupBehavior); err != nil {
			return errors.NewValueError("config", "step %d (%s): %v", i, s.SObject, err)
		}
		if _, err := parseOutsideLookupBehavior(s.OutsideLookupBehavior); err != nil {
			return errors.NewValueError("config", "step %d (%s): %v", i, s.SObject, err)
		}
		if err := validateFieldOverrides(i, s); err != nil {
			return err
		}
		if err := validateMapper(i, s); err != nil {
			return err
		}
	}
	return nil
}

// ValidateLoadConfig checks cfg for use by the load subcommand: every
// step needs a sobject, a non-empty field list, an input file, and a
// valid outside-lookup behavior. Load steps have no scope or
// self-lookup behavior; Scope/Where/SelfLookupBehavior are rejected if
// set, since they would silently be ignored otherwise.
func ValidateLoadConfig(cfg *Config) error {
	if len(cfg.Steps) == 0 {
		return errors.NewValueError("config", "no steps declared")
	}
	seen := make(map[string]bool, len(cfg.Steps))
	for i, s := range cfg.Steps {
		if err := validateCommon(i, s, seen); err != nil {
			return err
		}
		if s.InputFile == "" {
			return errors.NewValueError("config", "step %d (%s): input-file is required for load", i, s.SObject)
		}
		if s.Scope != "" || s.Where != "" || s.SelfLookupBehavior != "" {
			return errors.NewValueError("config", "step %d (%s): scope/where/self-lookup-behavior do not apply to load steps", i, s.SObject)
		}
		if _, err := parseOutsideLookupBehavior(s.OutsideLookupBehavior); err != nil {
			return errors.NewValueError("config", "step %d (%s): %v", i, s.SObject, err)
		}
		if err := validateFieldOverrides(i, s); err != nil {
			return err
		}
		if err := validateMapper(i, s); err != nil {
			return err
		}
	}
	return nil
}

func validateCommon(i int, s StepConfig, seen map[string]bool) error {
	if s.SObject == "" {
		return errors.NewValueError("config", "step %d: sobject is required", i)
	}
	if len(s.Fields) == 0 {
		return errors.NewValueError("config", "step %d (%s): fields is required", i, s.SObject)
	}
	if seen[s.SObject] {
		return errors.NewValueError("config", "step %d: sobject %s declared more than once", i, s.SObject)
	}
	seen[s.SObject] = true
	return nil
}

func validateFieldOverrides(i int, s StepConfig) error {
	for field, override := range s.FieldOverrides {
		if override.SelfLookupBehavior != "" {
			if _, err := parseSelfLookupBehavior(override.SelfLookupBehavior); err != nil {
				return errors.NewValueError("config", "step %d (%s): field override %s: %v", i, s.SObject, field, err)
			}
		}
		if override.OutsideLookupBehavior != "" {
			if _, err := parseOutsideLookupBehavior(override.OutsideLookupBehavior); err != nil {
				return errors.NewValueError("config", "step %d (%s): field override %s: %v", i, s.SObject, field, err)
			}
		}
	}
	return nil
}

func validateMapper(i int, s StepConfig) error {
	if s.Mapper == nil {
		return nil
	}
	for column, names := range s.Mapper.Transforms {
		for _, name := range names {
			if _, err := parseTransform(name); err != nil {
				return errors.NewValueError("config", "step %d (%s): transform for %s: %v", i, s.SObject, column, err)
			}
		}
	}
	return nil
}

func fmtUnknown(kind, value string, allowed []string) error {
	return fmt.Errorf("unknown %s %q (expected one of %v)", kind, value, allowed)
}
