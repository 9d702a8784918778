// Package dsource reads tabular data from files and memory into record
// batches through one scan contract.
package dsource

import (
	"io"

	"bytescan/core"
	"bytescan/dtype"
)

// DefaultBatchSize is the row count file sources decode per batch when
// given a batch size of zero or less.
const DefaultBatchSize = core.DefaultBatchSize

// DataSource is a table that can describe itself and be scanned.
type DataSource interface {
	// Schema returns the full, unprojected schema.
	Schema() (*dtype.Schema, error)

	// Scan returns an iterator over the table. A nil projection selects all
	// columns in schema order; otherwise exactly the named columns are
	// returned in the order given. Names are resolved before any row is read
	// and an unknown name fails the call with dtype.ErrFieldNotFound.
	Scan(projection []string) (BatchIterator, error)
}

// BatchIterator yields record batches. Next returns io.EOF once the scan is
// exhausted; after any other error the iterator is finished and every later
// call returns io.EOF. The caller owns each returned batch and releases it.
//
// Close releases the resources held by the scan and may be called more than
// once.
type BatchIterator interface {
	Next() (*dtype.RecordBatch, error)
	Close() error
}

// Collect drains it and closes it. On error the batches read so far are
// released.
func Collect(it BatchIterator) ([]*dtype.RecordBatch, error) {
	defer it.Close()

	var batches []*dtype.RecordBatch
	for {
		batch, err := it.Next()
		if err == io.EOF {
			return batches, nil
		}
		if err != nil {
			for _, b := range batches {
				b.Release()
			}
			return nil, err
		}
		batches = append(batches, batch)
	}
}

// ScanAll scans src with projection and collects every batch.
func ScanAll(src DataSource, projection []string) ([]*dtype.RecordBatch, error) {
	it, err := src.Scan(projection)
	if err != nil {
		return nil, err
	}
	return Collect(it)
}

// CountRows returns the total row count of batches.
func CountRows(batches []*dtype.RecordBatch) int {
	n := 0
	for _, b := range batches {
		n += b.RowCount()
	}
	return n
}

// resolveProjection maps a projection onto schema indices and builds the
// output schema. A nil projection selects everything.
func resolveProjection(schema *dtype.Schema, projection []string) ([]int, *dtype.Schema, error) {
	if projection == nil {
		indices := make([]int, schema.Len())
		for i := range indices {
			indices[i] = i
		}
		return indices, schema, nil
	}
	indices, err := schema.Resolve(projection)
	if err != nil {
		return nil, nil, err
	}
	return indices, schema.Project(indices), nil
}

// sliceIterator yields a fixed list of batches.
type sliceIterator struct {
	batches []*dtype.RecordBatch
	next    func(*dtype.RecordBatch) *dtype.RecordBatch
	pos     int
}

func (it *sliceIterator) Next() (*dtype.RecordBatch, error) {
	if it.pos >= len(it.batches) {
		return nil, io.EOF
	}
	batch := it.batches[it.pos]
	it.pos++
	return it.next(batch), nil
}

func (it *sliceIterator) Close() error {
	it.pos = len(it.batches)
	return nil
}
