package dsource

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/cockroachdb/errors"

	"bytescan/core"
	"bytescan/dtype"
)

// InMemory is a table held in memory as a list of batches. It keeps a
// reference to every batch for its own lifetime.
type InMemory struct {
	schema  *dtype.Schema
	batches []*dtype.RecordBatch
}

var _ DataSource = (*InMemory)(nil)

// NewInMemory creates a source over batches, which must all carry schema.
// The source takes ownership of the batches.
func NewInMemory(schema *dtype.Schema, batches []*dtype.RecordBatch) *InMemory {
	return &InMemory{schema: schema, batches: batches}
}

// NewInMemoryFromRecords builds a source from Arrow records. The schema is
// taken from the first record and every record must match it.
func NewInMemoryFromRecords(records ...arrow.Record) (*InMemory, error) {
	if len(records) == 0 {
		return nil, errors.New("at least one record is required")
	}
	schema, err := dtype.SchemaFromArrow(records[0].Schema())
	if err != nil {
		return nil, err
	}

	batches := make([]*dtype.RecordBatch, 0, len(records))
	release := func() {
		for _, b := range batches {
			b.Release()
		}
	}
	for i, rec := range records {
		batch, err := dtype.RecordBatchFromArrow(rec)
		if err != nil {
			release()
			return nil, err
		}
		if !batch.Schema().Equal(schema) {
			batch.Release()
			release()
			return nil, errors.Newf("record %d has %s, expected %s", i, batch.Schema(), schema)
		}
		batches = append(batches, batch)
	}
	return NewInMemory(schema, batches), nil
}

func (m *InMemory) Schema() (*dtype.Schema, error) {
	return m.schema, nil
}

// Batches returns the stored batches. They stay owned by the source.
func (m *InMemory) Batches() []*dtype.RecordBatch { return m.batches }

func (m *InMemory) Scan(projection []string) (BatchIterator, error) {
	if projection == nil {
		return &sliceIterator{batches: m.batches, next: (*dtype.RecordBatch).Clone}, nil
	}

	indices, projected, err := resolveProjection(m.schema, projection)
	if err != nil {
		return nil, err
	}
	core.GetTracer().Debug(core.TraceComponentScan, "In-memory scan", core.TraceContext(
		"batches", len(m.batches), "projection", projection))

	return &sliceIterator{
		batches: m.batches,
		next: func(b *dtype.RecordBatch) *dtype.RecordBatch {
			columns := make([]dtype.Column, len(indices))
			for i, idx := range indices {
				columns[i] = b.Column(idx)
				columns[i].Retain()
			}
			return dtype.NewRecordBatch(projected, columns)
		},
	}, nil
}

// Release drops the source's references to its batches.
func (m *InMemory) Release() {
	for _, b := range m.batches {
		b.Release()
	}
	m.batches = nil
}
