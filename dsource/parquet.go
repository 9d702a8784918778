package dsource

import (
	"io"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"bytescan/core"
	"bytescan/dtype"
)

// Parquet is a Parquet file, local or served over HTTP. Only the column
// chunks of projected columns are decoded.
type Parquet struct {
	location  string
	batchSize int
	mem       memory.Allocator
	cache     *core.SchemaCache
}

var _ DataSource = (*Parquet)(nil)

type ParquetOption func(*Parquet)

// WithParquetAllocator sets the allocator for decoded arrays.
func WithParquetAllocator(mem memory.Allocator) ParquetOption {
	return func(p *Parquet) { p.mem = mem }
}

// WithParquetSchemaCache shares schemas read from file metadata through
// cache.
func WithParquetSchemaCache(cache *core.SchemaCache) ParquetOption {
	return func(p *Parquet) { p.cache = cache }
}

// NewParquet creates a source over location, a file path or an http(s)
// URL. A batch size of zero or less uses DefaultBatchSize.
func NewParquet(location string, batchSize int, opts ...ParquetOption) *Parquet {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	p := &Parquet{location: location, batchSize: batchSize, mem: memory.DefaultAllocator}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parquet) Location() string { return p.location }

// Schema reads the schema from the file metadata. Any top-level column of a
// type the scan layer cannot represent fails the call.
func (p *Parquet) Schema() (*dtype.Schema, error) {
	return p.cache.GetOrLoad(p.location, "parquet", func() (*dtype.Schema, error) {
		pr, err := core.NewParquetReader(p.location)
		if err != nil {
			return nil, err
		}
		defer pr.Close()
		return dtype.SchemaFromArrow(pr.ArrowSchema())
	})
}

// Scan opens the file and decodes the projected columns. Projected names are
// matched against the top-level fields of the file, so a projection may
// leave out columns whose type is unsupported.
func (p *Parquet) Scan(projection []string) (BatchIterator, error) {
	pr, err := core.NewParquetReader(p.location)
	if err != nil {
		return nil, err
	}

	it, err := p.newIterator(pr, projection)
	if err != nil {
		pr.Close()
		return nil, err
	}
	return it, nil
}

func (p *Parquet) newIterator(pr *core.ParquetReader, projection []string) (*parquetIterator, error) {
	as := pr.ArrowSchema()

	var indices []int
	if projection == nil {
		indices = make([]int, as.NumFields())
		for i := range indices {
			indices[i] = i
		}
	} else {
		indices = make([]int, len(projection))
		for i, name := range projection {
			idx := firstFieldIndex(as, name)
			if idx < 0 {
				return nil, dtype.FieldNotFound(name)
			}
			indices[i] = idx
		}
	}

	fields := make([]dtype.Field, len(indices))
	for i, idx := range indices {
		f, err := dtype.FieldFromArrow(as.Field(idx))
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	schema := dtype.NewSchema(fields...)

	br, err := pr.NewBatchReader(pr.LeafMask(indices), p.batchSize, p.mem)
	if err != nil {
		return nil, err
	}

	// The batch reader emits one column per distinct field, in file order.
	distinct := append([]int(nil), indices...)
	sort.Ints(distinct)
	position := make(map[int]int, len(distinct))
	for _, idx := range distinct {
		if _, ok := position[idx]; !ok {
			position[idx] = len(position)
		}
	}
	columns := make([]int, len(indices))
	for i, idx := range indices {
		columns[i] = position[idx]
	}

	core.GetTracer().Info(core.TraceComponentParquet, "Parquet scan started", core.TraceContext(
		"location", p.location,
		"columns", schema.Names(),
		"row_groups", pr.NumRowGroups(),
		"batch_size", p.batchSize,
	))

	return &parquetIterator{
		location: p.location,
		reader:   pr,
		batches:  br,
		schema:   schema,
		columns:  columns,
	}, nil
}

// firstFieldIndex returns the index of the first top-level field called
// name, or -1.
func firstFieldIndex(as *arrow.Schema, name string) int {
	for i, f := range as.Fields() {
		if f.Name == name {
			return i
		}
	}
	return -1
}

type parquetIterator struct {
	location string
	reader   *core.ParquetReader
	batches  *core.ParquetBatchReader
	schema   *dtype.Schema
	columns  []int // record column per output column
	rows     int64
	done     bool
}

func (it *parquetIterator) Next() (*dtype.RecordBatch, error) {
	if it.done {
		return nil, io.EOF
	}
	rec, err := it.batches.Next()
	if err != nil {
		it.finish()
		return nil, err
	}
	defer rec.Release()

	columns := make([]dtype.Column, len(it.columns))
	for i, pos := range it.columns {
		col, err := dtype.NewArrayColumn(rec.Column(pos))
		if err != nil {
			for _, c := range columns[:i] {
				c.Release()
			}
			it.finish()
			return nil, err
		}
		columns[i] = col
	}
	it.rows += rec.NumRows()
	return dtype.NewRecordBatch(it.schema, columns), nil
}

func (it *parquetIterator) finish() {
	if it.done {
		return
	}
	it.done = true
	it.batches.Close()
	it.reader.Close()
	core.GetTracer().Debug(core.TraceComponentParquet, "Parquet scan finished", core.TraceContext(
		"location", it.location, "rows", it.rows))
}

func (it *parquetIterator) Close() error {
	it.finish()
	return nil
}
