package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rs/zerolog"

	"github.com/briannabrownOE/amaxa/pkg/transport/transporttest"
)

const extractYAML = `
connection:
  login-url: https://example.my.salesforce.com
id-store:
  backend: memory
steps:
  - sobject: Account
    fields: [Name, ParentId]
    scope: QUERY
    where: "Name='ACME'"
    self-lookup-behavior: TRACE_ALL
    output-file: %s
`

func TestLoad_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extract.yaml")
	out := filepath.Join(dir, "account.csv")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(extractYAML, out)), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Steps, 1)
	assert.Equal(t, "Account", cfg.Steps[0].SObject)
	assert.Equal(t, "memory", cfg.IDStore.Backend)
	assert.Equal(t, "https://example.my.salesforce.com", cfg.Connection.LoginURL)
}

func TestValidateExtractConfig_RejectsMissingOutputFile(t *testing.T) {
	cfg := &Config{Steps: []StepConfig{
		{SObject: "Account", Fields: []string{"Name"}, Scope: "ALL_RECORDS"},
	}}
	err := ValidateExtractConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output-file")
}

func TestValidateExtractConfig_RejectsQueryScopeWithoutWhere(t *testing.T) {
	cfg := &Config{Steps: []StepConfig{
		{SObject: "Account", Fields: []string{"Name"}, Scope: "QUERY", OutputFile: "out.csv"},
	}}
	err := ValidateExtractConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "where clause")
}

func TestValidateExtractConfig_RejectsDuplicateSObject(t *testing.T) {
	cfg := &Config{Steps: []StepConfig{
		{SObject: "Account", Fields: []string{"Name"}, Scope: "ALL_RECORDS", OutputFile: "a.csv"},
		{SObject: "Account", Fields: []string{"Name"}, Scope: "ALL_RECORDS", OutputFile: "b.csv"},
	}}
	err := ValidateExtractConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than once")
}

func TestValidateLoadConfig_RejectsExtractOnlyFields(t *testing.T) {
	cfg := &Config{Steps: []StepConfig{
		{SObject: "Account", Fields: []string{"Name"}, Scope: "ALL_RECORDS", InputFile: "in.csv"},
	}}
	err := ValidateLoadConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not apply to load steps")
}

func TestBuildExtractOperation_WiresStepsAndFiles(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "account.csv")

	cfg := &Config{Steps: []StepConfig{
		{
			SObject:    "Account",
			Fields:     []string{"Name"},
			Scope:      "ALL_RECORDS",
			OutputFile: outPath,
			Mapper: &MapperConfig{
				FieldMapping: map[string]string{"Name": "AccountName"},
				Transforms:   map[string][]string{"Name": {"strip"}},
			},
		},
	}}

	fake := transporttest.New()
	op, err := BuildExtractOperation(cfg, fake, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, []string{"Account"}, op.GetSObjectList())
}

func TestBuildLoadOperation_RequiresReadableInputFile(t *testing.T) {
	cfg := &Config{Steps: []StepConfig{
		{SObject: "Account", Fields: []string{"Name"}, InputFile: "/does/not/exist.csv"},
	}}
	fake := transporttest.New()
	_, err := BuildLoadOperation(cfg, fake, nil, zerolog.Nop())
	require.Error(t, err)
}
