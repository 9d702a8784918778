package dtype

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
)

// RecordBatch is a schema plus one column per field, all of the same length.
// It is the unit of data exchange between sources and operators.
//
// The column/field correspondence is established by whoever builds the batch
// and is not re-checked on access; Validate checks it on demand.
type RecordBatch struct {
	schema  *Schema
	columns []Column
}

// NewRecordBatch creates a batch. The batch takes ownership of the column
// handles it is given.
func NewRecordBatch(schema *Schema, columns []Column) *RecordBatch {
	return &RecordBatch{schema: schema, columns: columns}
}

func (b *RecordBatch) Schema() *Schema { return b.schema }

// Column returns the column at index i.
func (b *RecordBatch) Column(i int) Column { return b.columns[i] }

// Columns returns all columns. The returned slice must not be modified.
func (b *RecordBatch) Columns() []Column { return b.columns }

// RowCount returns the number of rows, 0 for a batch without columns.
func (b *RecordBatch) RowCount() int {
	if len(b.columns) == 0 {
		return 0
	}
	return b.columns[0].Len()
}

// ColumnCount returns the number of columns.
func (b *RecordBatch) ColumnCount() int { return len(b.columns) }

// Validate checks that the batch is well formed: one column per field, matching
// types, and a single row count.
func (b *RecordBatch) Validate() error {
	if len(b.columns) != b.schema.Len() {
		return errors.Newf("record batch has %d columns but schema has %d fields",
			len(b.columns), b.schema.Len())
	}
	rows := b.RowCount()
	for i, col := range b.columns {
		f := b.schema.Field(i)
		if col.DataType() != f.DataType() {
			return errors.Newf("column %d (%s) has type %s, schema says %s",
				i, f.Name(), col.DataType(), f.DataType())
		}
		if col.Len() != rows {
			return errors.Newf("column %d (%s) has %d rows, expected %d",
				i, f.Name(), col.Len(), rows)
		}
	}
	return nil
}

// Project returns a batch with the columns at indices, in that order. No data
// is copied: the new batch shares the column handles and takes its own
// reference to each.
func (b *RecordBatch) Project(indices []int) *RecordBatch {
	columns := make([]Column, len(indices))
	for i, idx := range indices {
		columns[i] = b.columns[idx]
		columns[i].Retain()
	}
	return &RecordBatch{schema: b.schema.Project(indices), columns: columns}
}

// WithSchema returns a batch sharing b's columns under another schema, which
// must describe the same column layout.
func (b *RecordBatch) WithSchema(schema *Schema) *RecordBatch {
	columns := make([]Column, len(b.columns))
	for i, col := range b.columns {
		col.Retain()
		columns[i] = col
	}
	return &RecordBatch{schema: schema, columns: columns}
}

// Clone returns a batch sharing b's schema and column handles.
func (b *RecordBatch) Clone() *RecordBatch {
	return b.WithSchema(b.schema)
}

// Release drops the batch's references to its arrays.
func (b *RecordBatch) Release() {
	for _, col := range b.columns {
		col.Release()
	}
}

// ToArrow converts the batch to an Arrow record, materializing literal
// columns with mem.
func (b *RecordBatch) ToArrow(mem memory.Allocator) arrow.Record {
	arrs := make([]arrow.Array, len(b.columns))
	for i, col := range b.columns {
		arrs[i] = col.ToArrow(mem)
	}
	rec := array.NewRecord(b.schema.ArrowSchema(), arrs, int64(b.RowCount()))
	for _, arr := range arrs {
		arr.Release()
	}
	return rec
}

// RecordBatchFromArrow converts an Arrow record. Every column type is
// validated; one unsupported column fails the whole batch.
func RecordBatchFromArrow(rec arrow.Record) (*RecordBatch, error) {
	schema, err := SchemaFromArrow(rec.Schema())
	if err != nil {
		return nil, err
	}
	columns := make([]Column, rec.NumCols())
	for i, arr := range rec.Columns() {
		col, err := NewArrayColumn(arr)
		if err != nil {
			for _, c := range columns[:i] {
				c.Release()
			}
			return nil, err
		}
		columns[i] = col
	}
	return NewRecordBatch(schema, columns), nil
}
