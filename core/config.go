package core

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"bytescan/dtype"
)

// DefaultBatchSize is the number of rows a file source decodes per batch
// when none is configured.
const DefaultBatchSize = 1024

// Supported table formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Config is the bytescan configuration, read from a YAML, JSON or TOML file
// and overridable through BYTESCAN_* environment variables.
type Config struct {
	BatchSize   int               `mapstructure:"batch_size"`
	DataDir     string            `mapstructure:"data_dir"`
	Trace       TraceConfig       `mapstructure:"trace"`
	SchemaCache SchemaCacheConfig `mapstructure:"schema_cache"`
	Tables      []TableConfig     `mapstructure:"tables"`
}

type TraceConfig struct {
	Level      string `mapstructure:"level"`
	Components string `mapstructure:"components"`
}

// TableConfig maps a table name onto a file. Columns, when present, give a
// CSV table an explicit schema instead of an inferred one.
type TableConfig struct {
	Name      string         `mapstructure:"name"`
	Format    string         `mapstructure:"format"`
	Location  string         `mapstructure:"location"`
	Delimiter string         `mapstructure:"delimiter"`
	InferRows int            `mapstructure:"infer_rows"` // 0 keeps the default, negative reads every row
	Columns   []ColumnConfig `mapstructure:"columns"`
}

type ColumnConfig struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("batch_size", DefaultBatchSize)
	v.SetDefault("data_dir", ".")
	v.SetDefault("trace.level", TraceLevelOff.String())
	v.SetDefault("trace.components", "")
	v.SetDefault("schema_cache.max_entries", DefaultSchemaCacheEntries)
	v.SetDefault("schema_cache.ttl", "0s")

	v.SetEnvPrefix("BYTESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the configuration at path. An empty path yields the
// defaults with environment overrides applied. The file type follows the
// extension.
func LoadConfig(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	GetTracer().Debug(TraceComponentConfig, "Loaded config", TraceContext(
		"path", path, "tables", len(cfg.Tables), "batch_size", cfg.BatchSize))
	return &cfg, nil
}

// Validate checks table formats, column types and name uniqueness.
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return errors.Newf("batch_size must not be negative, got %d", c.BatchSize)
	}
	if c.SchemaCache.TTL < 0 {
		return errors.Newf("schema_cache.ttl must not be negative, got %s", c.SchemaCache.TTL)
	}
	if c.Trace.Level != "" {
		if _, ok := ParseTraceLevel(c.Trace.Level); !ok {
			return errors.Newf("unknown trace level %q", c.Trace.Level)
		}
	}

	seen := make(map[string]bool, len(c.Tables))
	for i, tc := range c.Tables {
		if tc.Name == "" {
			return errors.Newf("table %d: missing name", i)
		}
		if seen[tc.Name] {
			return errors.Newf("table %s: declared twice", tc.Name)
		}
		seen[tc.Name] = true

		if tc.Location == "" {
			return errors.Newf("table %s: missing location", tc.Name)
		}
		if _, err := tc.ResolveFormat(); err != nil {
			return err
		}
		if _, err := tc.DelimiterRune(); err != nil {
			return err
		}
		if _, err := tc.Schema(); err != nil {
			return errors.Wrapf(err, "table %s", tc.Name)
		}
	}
	return nil
}

// ResolveFormat returns the declared format, or the one implied by the
// location's extension when none is declared.
func (tc TableConfig) ResolveFormat() (string, error) {
	format := strings.ToLower(strings.TrimSpace(tc.Format))
	if format == "" {
		format = FormatFromPath(tc.Location)
	}
	switch format {
	case FormatCSV, FormatParquet:
		return format, nil
	case "":
		return "", errors.Newf("table %s: cannot infer format of %s", tc.Name, tc.Location)
	default:
		return "", errors.Newf("table %s: unsupported format %q", tc.Name, tc.Format)
	}
}

// DelimiterRune returns the CSV field delimiter. When unset it follows the
// location's extension, see DefaultDelimiter. The value "\t" (two
// characters) is accepted for tab.
func (tc TableConfig) DelimiterRune() (rune, error) {
	switch tc.Delimiter {
	case "":
		return DefaultDelimiter(tc.Location), nil
	case `\t`:
		return '\t', nil
	}
	r := []rune(tc.Delimiter)
	if len(r) != 1 {
		return 0, errors.Newf("table %s: delimiter must be a single character, got %q", tc.Name, tc.Delimiter)
	}
	return r[0], nil
}

// Schema builds the declared schema, or returns nil when no columns are
// declared.
func (tc TableConfig) Schema() (*dtype.Schema, error) {
	if len(tc.Columns) == 0 {
		return nil, nil
	}
	fields := make([]dtype.Field, len(tc.Columns))
	for i, col := range tc.Columns {
		if col.Name == "" {
			return nil, errors.Newf("column %d: missing name", i)
		}
		dt, err := dtype.ParseDataType(col.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "column %s", col.Name)
		}
		fields[i] = dtype.NewField(col.Name, dt)
	}
	return dtype.NewSchema(fields...), nil
}

// FormatFromPath guesses a table format from a file name, looking through
// compression suffixes. It returns "" when the name says nothing.
func FormatFromPath(path string) string {
	name := fileName(path)
	switch {
	case strings.HasSuffix(name, ".parquet"), strings.HasSuffix(name, ".pq"):
		return FormatParquet
	case strings.HasSuffix(name, ".csv"), strings.HasSuffix(name, ".tsv"), strings.HasSuffix(name, ".txt"):
		return FormatCSV
	default:
		return ""
	}
}

// DefaultDelimiter returns the field delimiter a file name implies: a tab
// for .tsv files and a comma for everything else.
func DefaultDelimiter(path string) rune {
	if strings.HasSuffix(fileName(path), ".tsv") {
		return '\t'
	}
	return ','
}

// fileName lower-cases path and strips a URL query and any compression
// suffix.
func fileName(path string) string {
	name := strings.ToLower(path)
	if i := strings.IndexAny(name, "?#"); i >= 0 && IsRemote(path) {
		name = name[:i]
	}
	return strings.TrimSuffix(name, CompressionSuffix(name))
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
