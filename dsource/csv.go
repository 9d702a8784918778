package dsource

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"bytescan/core"
	"bytescan/dtype"
)

// CSV is a delimited text file whose first row is a header. Without an
// explicit schema, column types are inferred from a sample of data rows.
// Files ending in .gz, .zst or .sz are decompressed while reading.
type CSV struct {
	path      string
	schema    *dtype.Schema
	batchSize int
	delimiter rune
	nulls     []string
	mem       memory.Allocator
	cache     *core.SchemaCache

	inferenceRows int
}

var _ DataSource = (*CSV)(nil)

type CSVOption func(*CSV)

// WithDelimiter sets the field delimiter. The default is a comma.
func WithDelimiter(r rune) CSVOption {
	return func(c *CSV) { c.delimiter = r }
}

// WithNullValues sets the cell values read as null. By default only the
// empty string is.
func WithNullValues(values ...string) CSVOption {
	return func(c *CSV) { c.nulls = append([]string(nil), values...) }
}

// WithInferenceRows sets how many data rows are sampled when inferring the
// schema. Zero or less samples the whole file.
func WithInferenceRows(n int) CSVOption {
	return func(c *CSV) { c.inferenceRows = n }
}

// WithAllocator sets the allocator for decoded arrays.
func WithAllocator(mem memory.Allocator) CSVOption {
	return func(c *CSV) { c.mem = mem }
}

// WithCSVSchemaCache shares inferred schemas through cache.
func WithCSVSchemaCache(cache *core.SchemaCache) CSVOption {
	return func(c *CSV) { c.cache = cache }
}

// NewCSV creates a source over the file at path. A nil schema means the
// schema is inferred. A batch size of zero or less uses DefaultBatchSize.
func NewCSV(path string, schema *dtype.Schema, batchSize int, opts ...CSVOption) *CSV {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	c := &CSV{
		path:      path,
		schema:    schema,
		batchSize: batchSize,
		delimiter: ',',
		nulls:     []string{""},
		mem:       memory.DefaultAllocator,

		inferenceRows: DefaultInferenceRows,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CSV) Path() string { return c.path }

func (c *CSV) readerOptions(chunk int) []csv.Option {
	return []csv.Option{
		csv.WithHeader(true),
		csv.WithComma(c.delimiter),
		csv.WithChunk(chunk),
		csv.WithAllocator(c.mem),
		csv.WithNullReader(true, c.nulls...),
	}
}

// Schema returns the explicit schema, or infers one from the header and a
// sample of data rows. Columns with no non-null sampled values, as in a file
// with only a header, are Utf8.
func (c *CSV) Schema() (*dtype.Schema, error) {
	if c.schema != nil {
		return c.schema, nil
	}
	variant := fmt.Sprintf("csv|%q|%q|%d", c.delimiter, c.nulls, c.inferenceRows)
	return c.cache.GetOrLoad(c.path, variant, c.inferSchema)
}

func (c *CSV) Scan(projection []string) (BatchIterator, error) {
	schema, err := c.Schema()
	if err != nil {
		return nil, err
	}
	indices, projected, err := resolveProjection(schema, projection)
	if err != nil {
		return nil, err
	}

	in, err := core.OpenInput(c.path)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(in, schema.ArrowSchema(), c.readerOptions(c.batchSize)...)

	core.GetTracer().Info(core.TraceComponentCSV, "CSV scan started", core.TraceContext(
		"path", c.path, "columns", projected.Names(), "batch_size", c.batchSize))

	return &csvIterator{
		path:    c.path,
		input:   in,
		reader:  reader,
		schema:  projected,
		indices: indices,
	}, nil
}

type csvIterator struct {
	path    string
	input   io.Closer
	reader  *csv.Reader
	schema  *dtype.Schema
	indices []int
	batches int
	done    bool
}

func (it *csvIterator) Next() (*dtype.RecordBatch, error) {
	if it.done {
		return nil, io.EOF
	}
	if !it.reader.Next() {
		err := it.reader.Err()
		it.finish()
		if err != nil {
			return nil, dtype.DecodeFailure(err, "decode "+it.path)
		}
		return nil, io.EOF
	}
	// A failed conversion still yields a record, padded with nulls.
	if err := it.reader.Err(); err != nil {
		it.finish()
		return nil, dtype.DecodeFailure(err, "decode "+it.path)
	}

	batch, err := it.convert(it.reader.Record())
	if err != nil {
		it.finish()
		return nil, err
	}
	it.batches++
	return batch, nil
}

// convert selects the projected columns of rec, checking each against the
// field it is read as.
func (it *csvIterator) convert(rec arrow.Record) (*dtype.RecordBatch, error) {
	columns := make([]dtype.Column, 0, len(it.indices))
	fail := func(err error) (*dtype.RecordBatch, error) {
		for _, col := range columns {
			col.Release()
		}
		return nil, err
	}
	for i, idx := range it.indices {
		col, err := dtype.NewArrayColumn(rec.Column(idx))
		if err != nil {
			return fail(err)
		}
		columns = append(columns, col)
		if want := it.schema.Field(i).DataType(); col.DataType() != want {
			return fail(dtype.UnsupportedType("column %q decoded as %s, expected %s",
				it.schema.Field(i).Name(), col.DataType(), want))
		}
	}
	return dtype.NewRecordBatch(it.schema, columns), nil
}

func (it *csvIterator) finish() {
	if it.done {
		return
	}
	it.done = true
	it.reader.Release()
	it.input.Close()
	core.GetTracer().Debug(core.TraceComponentCSV, "CSV scan finished", core.TraceContext(
		"path", it.path, "batches", it.batches))
}

func (it *csvIterator) Close() error {
	it.finish()
	return nil
}
