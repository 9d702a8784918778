package core

import (
	"io"
	"net/url"
	"os"
	"time"

	roaring "github.com/RoaringBitmap/roaring/v2"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/parquet-go/parquet-go"
	"howett.net/ranger"

	"bytescan/dtype"
)

// ParquetReader is an open Parquet file, local or fetched over HTTP with
// range requests. It exposes the file schema in Arrow terms and decodes
// selected leaf columns into Arrow records.
type ParquetReader struct {
	location    string
	file        *parquet.File
	closer      io.Closer
	arrowSchema *arrow.Schema
	leafRoots   []int // top-level field index of every leaf column
}

// NewParquetReader opens location, which is a file path or an http(s) URL.
func NewParquetReader(location string) (*ParquetReader, error) {
	if IsRemote(location) {
		return newHTTPParquetReader(location)
	}
	return newLocalParquetReader(location)
}

func newLocalParquetReader(filePath string) (*ParquetReader, error) {
	tracer := GetTracer()
	startTime := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		return nil, dtype.IOFailure(err, "failed to open file")
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, dtype.IOFailure(err, "failed to get file stats")
	}

	reader, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		file.Close()
		return nil, dtype.DecodeFailure(err, "failed to open parquet file "+filePath)
	}

	pr := newParquetReader(filePath, reader, file)
	tracer.Info(TraceComponentParquet, "Parquet reader initialized", TraceContext(
		"file", filePath,
		"size_bytes", stat.Size(),
		"elapsed_ms", time.Since(startTime).Milliseconds(),
		"fields", len(reader.Schema().Fields()),
		"row_groups", len(reader.RowGroups()),
		"total_rows", reader.NumRows(),
	))
	return pr, nil
}

func newHTTPParquetReader(urlStr string) (*ParquetReader, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, dtype.IOFailure(err, "failed to parse URL")
	}

	httpRanger := &ranger.HTTPRanger{URL: parsedURL}
	reader, err := ranger.NewReader(httpRanger)
	if err != nil {
		return nil, dtype.IOFailure(err, "failed to create HTTP reader")
	}
	length, err := reader.Length()
	if err != nil {
		return nil, dtype.IOFailure(err, "failed to get HTTP content length")
	}

	file, err := parquet.OpenFile(reader, length)
	if err != nil {
		return nil, dtype.DecodeFailure(err, "failed to open remote parquet file "+urlStr)
	}

	GetTracer().Info(TraceComponentParquet, "Remote parquet reader initialized", TraceContext(
		"url", urlStr,
		"size_bytes", length,
		"row_groups", len(file.RowGroups()),
		"total_rows", file.NumRows(),
	))
	return newParquetReader(urlStr, file, nil), nil
}

func newParquetReader(location string, file *parquet.File, closer io.Closer) *ParquetReader {
	pr := &ParquetReader{location: location, file: file, closer: closer}

	fields := file.Schema().Fields()
	arrowFields := make([]arrow.Field, len(fields))
	for i, field := range fields {
		arrowFields[i] = arrow.Field{
			Name:     field.Name(),
			Type:     parquetNodeToArrow(field),
			Nullable: !field.Required(),
		}
		for n := countLeaves(field); n > 0; n-- {
			pr.leafRoots = append(pr.leafRoots, i)
		}
	}
	pr.arrowSchema = arrow.NewSchema(arrowFields, nil)
	return pr
}

func (pr *ParquetReader) Close() error {
	if pr.closer == nil {
		return nil
	}
	err := pr.closer.Close()
	pr.closer = nil
	return err
}

func (pr *ParquetReader) Location() string { return pr.location }

func (pr *ParquetReader) NumRows() int64 { return pr.file.NumRows() }

func (pr *ParquetReader) NumRowGroups() int { return len(pr.file.RowGroups()) }

// ArrowSchema returns the top-level fields of the file as Arrow fields.
// Nested and logical types the scan layer cannot represent still get their
// closest Arrow type so callers can report them.
func (pr *ParquetReader) ArrowSchema() *arrow.Schema { return pr.arrowSchema }

// ColumnPaths returns the path of every leaf column, in file order.
func (pr *ParquetReader) ColumnPaths() [][]string { return pr.file.Schema().Columns() }

// LeafMask returns the set of leaf columns that belong to the given
// top-level fields.
func (pr *ParquetReader) LeafMask(fieldIndices []int) *roaring.Bitmap {
	wanted := make(map[int]bool, len(fieldIndices))
	for _, idx := range fieldIndices {
		wanted[idx] = true
	}
	mask := roaring.New()
	for leaf, root := range pr.leafRoots {
		if wanted[root] {
			mask.Add(uint32(leaf))
		}
	}
	return mask
}

// NewBatchReader returns a reader decoding the leaves in mask, batchSize rows
// at a time. Each leaf must be a flat column of a type the scan layer
// supports. Records carry one column per leaf, in leaf order.
func (pr *ParquetReader) NewBatchReader(mask *roaring.Bitmap, batchSize int, mem memory.Allocator) (*ParquetBatchReader, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	leaves := mask.ToArray()
	fields := make([]arrow.Field, len(leaves))
	for i, leaf := range leaves {
		if int(leaf) >= len(pr.leafRoots) {
			return nil, errors.Newf("leaf column %d out of range", leaf)
		}
		field := pr.arrowSchema.Field(pr.leafRoots[leaf])
		if _, err := dtype.FromArrowType(field.Type); err != nil {
			return nil, dtype.UnsupportedType("column %q: unsupported arrow type: %s", field.Name, field.Type)
		}
		fields[i] = field
	}

	return &ParquetBatchReader{
		file:      pr.file,
		leaves:    leaves,
		schema:    arrow.NewSchema(fields, nil),
		batchSize: batchSize,
		mem:       mem,
		buf:       make([]parquet.Value, batchSize),
	}, nil
}

type valueReadCloser interface {
	parquet.ValueReader
	io.Closer
}

// ParquetBatchReader pulls Arrow records out of a Parquet file, one row group
// at a time. Records never span row groups.
type ParquetBatchReader struct {
	file      *parquet.File
	leaves    []uint32
	schema    *arrow.Schema
	batchSize int
	mem       memory.Allocator
	buf       []parquet.Value

	rowGroup  int
	remaining int64
	readers   []valueReadCloser
	started   bool
}

// Schema returns the schema of the records, one field per selected leaf.
func (br *ParquetBatchReader) Schema() *arrow.Schema { return br.schema }

// Next decodes the next record. It returns io.EOF after the last row group.
func (br *ParquetBatchReader) Next() (arrow.Record, error) {
	for br.remaining == 0 {
		if err := br.advanceRowGroup(); err != nil {
			return nil, err
		}
	}

	n := br.batchSize
	if int64(n) > br.remaining {
		n = int(br.remaining)
	}

	columns := make([]arrow.Array, len(br.leaves))
	release := func() {
		for _, col := range columns {
			if col != nil {
				col.Release()
			}
		}
	}
	for i := range br.leaves {
		col, err := br.readLeaf(i, n)
		if err != nil {
			release()
			return nil, err
		}
		columns[i] = col
	}
	br.remaining -= int64(n)

	rec := array.NewRecord(br.schema, columns, int64(n))
	release()
	return rec, nil
}

func (br *ParquetBatchReader) advanceRowGroup() error {
	br.closeReaders()
	rowGroups := br.file.RowGroups()
	if br.started {
		br.rowGroup++
	}
	br.started = true
	if br.rowGroup >= len(rowGroups) {
		return io.EOF
	}

	rowGroup := rowGroups[br.rowGroup]
	chunks := rowGroup.ColumnChunks()
	br.readers = make([]valueReadCloser, len(br.leaves))
	for i, leaf := range br.leaves {
		br.readers[i] = parquet.NewColumnChunkValueReader(chunks[leaf])
	}
	br.remaining = rowGroup.NumRows()

	GetTracer().Debug(TraceComponentParquet, "Reading row group", TraceContext(
		"row_group", br.rowGroup, "rows", br.remaining, "leaves", len(br.leaves)))
	return nil
}

// readLeaf reads exactly n values of the i-th selected leaf.
func (br *ParquetBatchReader) readLeaf(i, n int) (arrow.Array, error) {
	field := br.schema.Field(i)
	bldr := array.NewBuilder(br.mem, field.Type)
	defer bldr.Release()
	bldr.Reserve(n)

	got := 0
	for got < n {
		read, err := br.readers[i].ReadValues(br.buf[:n-got])
		for _, v := range br.buf[:read] {
			if err := appendParquetValue(bldr, v); err != nil {
				return nil, dtype.DecodeFailure(err, "column "+field.Name)
			}
		}
		got += read
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, dtype.DecodeFailure(err, "error reading values of column "+field.Name)
		}
	}
	if got != n {
		return nil, dtype.DecodeFailure(
			errors.Newf("expected %d values, got %d", n, got),
			"column "+field.Name+" ended early")
	}
	return bldr.NewArray(), nil
}

func (br *ParquetBatchReader) closeReaders() {
	for _, r := range br.readers {
		r.Close()
	}
	br.readers = nil
}

// Close releases the open column chunk readers. It does not close the file.
func (br *ParquetBatchReader) Close() error {
	br.closeReaders()
	br.remaining = 0
	br.rowGroup = len(br.file.RowGroups())
	br.started = true
	return nil
}

func appendParquetValue(bldr array.Builder, v parquet.Value) error {
	if v.IsNull() {
		bldr.AppendNull()
		return nil
	}
	switch b := bldr.(type) {
	case *array.BooleanBuilder:
		b.Append(v.Boolean())
	case *array.Int8Builder:
		b.Append(int8(v.Int32()))
	case *array.Int16Builder:
		b.Append(int16(v.Int32()))
	case *array.Int32Builder:
		b.Append(v.Int32())
	case *array.Int64Builder:
		b.Append(v.Int64())
	case *array.Uint8Builder:
		b.Append(uint8(v.Int32()))
	case *array.Uint16Builder:
		b.Append(uint16(v.Int32()))
	case *array.Uint32Builder:
		b.Append(uint32(v.Int32()))
	case *array.Uint64Builder:
		b.Append(uint64(v.Int64()))
	case *array.Float32Builder:
		b.Append(v.Float())
	case *array.Float64Builder:
		b.Append(v.Double())
	case *array.StringBuilder:
		b.Append(string(v.ByteArray()))
	case *array.BinaryBuilder:
		b.Append(v.ByteArray())
	default:
		return errors.Newf("cannot decode parquet %s value into %s", v.Kind(), bldr.Type())
	}
	return nil
}

func countLeaves(node parquet.Node) int {
	if node.Leaf() {
		return 1
	}
	n := 0
	for _, child := range node.Fields() {
		n += countLeaves(child)
	}
	return n
}

// parquetNodeToArrow maps a parquet schema node onto an Arrow type.
func parquetNodeToArrow(node parquet.Node) arrow.DataType {
	var dt arrow.DataType
	if node.Leaf() {
		dt = parquetLeafToArrow(node.Type())
	} else {
		children := node.Fields()
		fields := make([]arrow.Field, len(children))
		for i, child := range children {
			fields[i] = arrow.Field{
				Name:     child.Name(),
				Type:     parquetNodeToArrow(child),
				Nullable: !child.Required(),
			}
		}
		dt = arrow.StructOf(fields...)
	}
	if node.Repeated() {
		return arrow.ListOf(dt)
	}
	return dt
}

func parquetLeafToArrow(t parquet.Type) arrow.DataType {
	lt := t.LogicalType()
	switch t.Kind() {
	case parquet.Boolean:
		return arrow.FixedWidthTypes.Boolean
	case parquet.Int32:
		switch {
		case lt == nil:
			return arrow.PrimitiveTypes.Int32
		case lt.Integer != nil:
			return integerType(int(lt.Integer.BitWidth), lt.Integer.IsSigned)
		case lt.Date != nil:
			return arrow.FixedWidthTypes.Date32
		case lt.Time != nil:
			return arrow.FixedWidthTypes.Time32ms
		case lt.Decimal != nil:
			return &arrow.Decimal128Type{Precision: lt.Decimal.Precision, Scale: lt.Decimal.Scale}
		}
		return arrow.PrimitiveTypes.Int32
	case parquet.Int64:
		switch {
		case lt == nil:
			return arrow.PrimitiveTypes.Int64
		case lt.Integer != nil:
			return integerType(int(lt.Integer.BitWidth), lt.Integer.IsSigned)
		case lt.Timestamp != nil:
			return arrow.FixedWidthTypes.Timestamp_us
		case lt.Time != nil:
			return arrow.FixedWidthTypes.Time64us
		case lt.Decimal != nil:
			return &arrow.Decimal128Type{Precision: lt.Decimal.Precision, Scale: lt.Decimal.Scale}
		}
		return arrow.PrimitiveTypes.Int64
	case parquet.Int96:
		return arrow.FixedWidthTypes.Timestamp_ns
	case parquet.Float:
		return arrow.PrimitiveTypes.Float32
	case parquet.Double:
		return arrow.PrimitiveTypes.Float64
	case parquet.ByteArray:
		if lt != nil && (lt.UTF8 != nil || lt.Enum != nil || lt.Json != nil) {
			return arrow.BinaryTypes.String
		}
		if lt != nil && lt.Decimal != nil {
			return &arrow.Decimal128Type{Precision: lt.Decimal.Precision, Scale: lt.Decimal.Scale}
		}
		return arrow.BinaryTypes.Binary
	case parquet.FixedLenByteArray:
		return &arrow.FixedSizeBinaryType{ByteWidth: t.Length()}
	default:
		return arrow.Null
	}
}

func integerType(bitWidth int, signed bool) arrow.DataType {
	switch {
	case bitWidth == 8 && signed:
		return arrow.PrimitiveTypes.Int8
	case bitWidth == 16 && signed:
		return arrow.PrimitiveTypes.Int16
	case bitWidth == 32 && signed:
		return arrow.PrimitiveTypes.Int32
	case bitWidth == 64 && signed:
		return arrow.PrimitiveTypes.Int64
	case bitWidth == 8:
		return arrow.PrimitiveTypes.Uint8
	case bitWidth == 16:
		return arrow.PrimitiveTypes.Uint16
	case bitWidth == 32:
		return arrow.PrimitiveTypes.Uint32
	case bitWidth == 64:
		return arrow.PrimitiveTypes.Uint64
	default:
		return arrow.Null
	}
}
