package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"bytescan/core"
	"bytescan/dsource"
	"bytescan/dtype"
)

type entry struct {
	info   TableInfo
	source dsource.DataSource
}

// Registry maps table names onto data sources.
type Registry struct {
	tables    map[string]*entry
	basePath  string
	batchSize int
	cache     *core.SchemaCache
	mu        sync.RWMutex
}

// NewRegistry creates a registry resolving relative paths against basePath.
// File sources it builds decode batchSize rows per batch and share one
// schema cache.
func NewRegistry(basePath string, batchSize int) *Registry {
	return &Registry{
		tables:    make(map[string]*entry),
		basePath:  basePath,
		batchSize: batchSize,
		cache:     core.NewSchemaCache(core.SchemaCacheConfig{MaxEntries: core.DefaultSchemaCacheEntries}),
	}
}

// SetSchemaCache replaces the schema cache used by sources registered
// afterwards. A nil cache disables caching.
func (r *Registry) SetSchemaCache(cache *core.SchemaCache) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = cache
}

// SchemaCache returns the cache shared by the registry's file sources.
func (r *Registry) SchemaCache() *core.SchemaCache {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache
}

// RegisterTable builds a file source for mapping and registers it under
// mapping.Name, replacing any table of that name. Local files must exist.
func (r *Registry) RegisterTable(mapping TableMapping) error {
	if mapping.Name == "" {
		return errors.New("table name is required")
	}
	src, info, err := r.open(mapping)
	if err != nil {
		return errors.Wrapf(err, "register table %s", mapping.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[mapping.Name] = &entry{info: info, source: src}

	core.GetTracer().Info(core.TraceComponentCatalog, "Registered table", core.TraceContext(
		"table", mapping.Name, "format", info.Format, "location", info.Location))
	return nil
}

// RegisterSource registers an already built source, such as an in-memory
// table.
func (r *Registry) RegisterSource(name string, src dsource.DataSource) error {
	if name == "" {
		return errors.New("table name is required")
	}
	if src == nil {
		return errors.Newf("table %s: nil source", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[name] = &entry{info: TableInfo{Name: name, Format: "memory"}, source: src}

	core.GetTracer().Info(core.TraceComponentCatalog, "Registered source", core.TraceContext("table", name))
	return nil
}

func (r *Registry) open(mapping TableMapping) (dsource.DataSource, TableInfo, error) {
	location := mapping.Location
	if location == "" {
		return nil, TableInfo{}, errors.New("location is required")
	}
	if !core.IsRemote(location) {
		if !filepath.IsAbs(location) {
			location = filepath.Join(r.basePath, location)
		}
		if _, err := os.Stat(location); err != nil {
			return nil, TableInfo{}, errors.Mark(errors.Newf("file not found: %s", location), dtype.ErrIO)
		}
	}

	format := mapping.Format
	if format == "" {
		format = core.FormatFromPath(location)
	}
	info := TableInfo{Name: mapping.Name, Format: format, Location: location}
	cache := r.SchemaCache()

	switch format {
	case core.FormatCSV:
		if core.IsRemote(location) {
			return nil, info, errors.Newf("csv tables must be local files: %s", location)
		}
		delimiter := mapping.Delimiter
		if delimiter == 0 {
			delimiter = core.DefaultDelimiter(location)
		}
		opts := []dsource.CSVOption{dsource.WithCSVSchemaCache(cache), dsource.WithDelimiter(delimiter)}
		if mapping.InferenceRows != 0 {
			opts = append(opts, dsource.WithInferenceRows(mapping.InferenceRows))
		}
		return dsource.NewCSV(location, mapping.Schema, r.batchSize, opts...), info, nil
	case core.FormatParquet:
		if mapping.Schema != nil {
			return nil, info, errors.New("parquet tables take their schema from the file")
		}
		return dsource.NewParquet(location, r.batchSize, dsource.WithParquetSchemaCache(cache)), info, nil
	case "":
		return nil, info, errors.Newf("cannot infer format of %s", location)
	default:
		return nil, info, errors.Newf("unsupported format %q", format)
	}
}

// Source returns the source registered under name. A name qualified with
// the default schema, public.people, finds the table people.
func (r *Registry) Source(name string) (dsource.DataSource, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.source, nil
}

// Info describes the table registered under name.
func (r *Registry) Info(name string) (TableInfo, error) {
	e, err := r.lookup(name)
	if err != nil {
		return TableInfo{}, err
	}
	return e.info, nil
}

func (r *Registry) lookup(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.tables[name]; ok {
		return e, nil
	}
	if id := ParseTableIdentifier(name); id.Schema == DefaultSchemaName {
		if e, ok := r.tables[id.Table]; ok {
			return e, nil
		}
	}
	return nil, errors.Mark(errors.Newf("table not registered: %s", name), ErrTableNotFound)
}

// Resolve returns the registered table called nameOrPath, or, failing that,
// a source opened directly on nameOrPath when it names an existing file or
// an http(s) URL with a recognised extension.
func (r *Registry) Resolve(nameOrPath string) (dsource.DataSource, error) {
	src, err := r.Source(nameOrPath)
	if err == nil {
		return src, nil
	}
	if core.FormatFromPath(nameOrPath) == "" {
		return nil, err
	}
	src, _, openErr := r.open(TableMapping{Name: nameOrPath, Location: nameOrPath})
	if openErr != nil {
		return nil, openErr
	}
	core.GetTracer().Debug(core.TraceComponentCatalog, "Resolved table from path", core.TraceContext(
		"location", nameOrPath))
	return src, nil
}

// ListTables returns the registered table names, sorted.
func (r *Registry) ListTables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := make([]string, 0, len(r.tables))
	for name := range r.tables {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables
}

// Unregister removes a table. It reports whether the table was registered.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[name]; !ok {
		return false
	}
	delete(r.tables, name)
	core.GetTracer().Info(core.TraceComponentCatalog, "Unregistered table", core.TraceContext("table", name))
	return true
}

// Clear removes all tables.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = make(map[string]*entry)
}

// LoadConfig registers every table of cfg. Tables registered before the
// first failure stay registered.
func (r *Registry) LoadConfig(cfg *core.Config) error {
	for _, tc := range cfg.Tables {
		mapping, err := MappingFromConfig(tc)
		if err != nil {
			return err
		}
		if err := r.RegisterTable(mapping); err != nil {
			return err
		}
	}
	core.GetTracer().Info(core.TraceComponentCatalog, "Loaded tables from config", core.TraceContext(
		"tables", len(cfg.Tables)))
	return nil
}

// MappingFromConfig converts a configured table into a mapping.
func MappingFromConfig(tc core.TableConfig) (TableMapping, error) {
	format, err := tc.ResolveFormat()
	if err != nil {
		return TableMapping{}, err
	}
	delimiter, err := tc.DelimiterRune()
	if err != nil {
		return TableMapping{}, err
	}
	schema, err := tc.Schema()
	if err != nil {
		return TableMapping{}, errors.Wrapf(err, "table %s", tc.Name)
	}
	return TableMapping{
		Name:      tc.Name,
		Format:    format,
		Location:  tc.Location,
		Delimiter: delimiter,
		Schema:    schema,

		InferenceRows: tc.InferRows,
	}, nil
}
