package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bytescan/dtype"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, "bytescan.yaml", `
batch_size: 2
data_dir: /srv/data
schema_cache:
  max_entries: 8
  ttl: 5m
trace:
  level: debug
  components: scan,csv
tables:
  - name: people
    location: people.csv
    delimiter: ";"
    columns:
      - {name: id, type: bigint}
      - {name: name, type: string}
  - name: events
    format: parquet
    location: https://example.com/events
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.BatchSize)
	assert.Equal(t, "/srv/data", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Trace.Level)
	assert.Equal(t, 8, cfg.SchemaCache.MaxEntries)
	assert.Equal(t, 5*time.Minute, cfg.SchemaCache.TTL)
	require.Len(t, cfg.Tables, 2)

	people := cfg.Tables[0]
	format, err := people.ResolveFormat()
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	delim, err := people.DelimiterRune()
	require.NoError(t, err)
	assert.Equal(t, ';', delim)

	schema, err := people.Schema()
	require.NoError(t, err)
	assert.True(t, schema.Equal(dtype.NewSchema(
		dtype.NewField("id", dtype.Int64),
		dtype.NewField("name", dtype.Utf8),
	)))

	format, err = cfg.Tables[1].ResolveFormat()
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, format)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, "OFF", cfg.Trace.Level)
	assert.Equal(t, DefaultSchemaCacheEntries, cfg.SchemaCache.MaxEntries)
	assert.Zero(t, cfg.SchemaCache.TTL)
	assert.Empty(t, cfg.Tables)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("BYTESCAN_BATCH_SIZE", "64")
	t.Setenv("BYTESCAN_TRACE_LEVEL", "info")

	path := writeConfig(t, "bytescan.json", `{"batch_size": 8}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, "info", cfg.Trace.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]Config{
		"negative batch": {BatchSize: -1},
		"negative ttl":   {SchemaCache: SchemaCacheConfig{TTL: -time.Second}},
		"bad level":      {Trace: TraceConfig{Level: "loud"}},
		"no name":        {Tables: []TableConfig{{Location: "a.csv"}}},
		"no location":    {Tables: []TableConfig{{Name: "a"}}},
		"duplicate": {Tables: []TableConfig{
			{Name: "a", Location: "a.csv"},
			{Name: "a", Location: "b.csv"},
		}},
		"unknown format":  {Tables: []TableConfig{{Name: "a", Location: "a.csv", Format: "orc"}}},
		"no format hint":  {Tables: []TableConfig{{Name: "a", Location: "a.dat"}}},
		"long delimiter":  {Tables: []TableConfig{{Name: "a", Location: "a.csv", Delimiter: "||"}}},
		"bad column type": {Tables: []TableConfig{{Name: "a", Location: "a.csv", Columns: []ColumnConfig{{Name: "x", Type: "date"}}}}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Validate())
		})
	}

	err := (&Config{Tables: []TableConfig{{Name: "a", Location: "a.csv", Columns: []ColumnConfig{{Name: "x", Type: "date"}}}}}).Validate()
	assert.True(t, errors.Is(err, dtype.ErrUnsupportedType))

	ok := Config{BatchSize: 10, Tables: []TableConfig{{Name: "t", Location: "t.tsv", Delimiter: `\t`}}}
	assert.NoError(t, ok.Validate())
}
