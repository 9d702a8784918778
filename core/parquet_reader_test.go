package core

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bytescan/dtype"
)

type address struct {
	City string `parquet:"city"`
	Zip  string `parquet:"zip"`
}

type typedRow struct {
	ID      int64   `parquet:"id"`
	Age     int32   `parquet:"age"`
	Count   uint32  `parquet:"count"`
	Big     uint64  `parquet:"big"`
	Ratio   float32 `parquet:"ratio"`
	Score   float64 `parquet:"score"`
	Active  bool    `parquet:"active"`
	Name    string  `parquet:"name"`
	Mood    string  `parquet:"mood,enum"`
	Payload []byte  `parquet:"payload"`
	Nick    *string `parquet:"nick,optional"`
	Home    address `parquet:"home"`
	Tags    []int32 `parquet:"tags"`
}

func strPtr(s string) *string { return &s }

// writeTypedParquet writes rows split into row groups of the given sizes.
func writeTypedParquet(t *testing.T, path string, groups ...[]typedRow) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	writer := parquet.NewGenericWriter[typedRow](f)
	for _, rows := range groups {
		_, err := writer.Write(rows)
		require.NoError(t, err)
		require.NoError(t, writer.Flush())
	}
	require.NoError(t, writer.Close())
}

func sampleTypedRows(from, n int) []typedRow {
	rows := make([]typedRow, n)
	for i := range rows {
		id := from + i
		rows[i] = typedRow{
			ID:      int64(id),
			Age:     int32(20 + id),
			Count:   uint32(id * 3),
			Big:     uint64(id) << 40,
			Ratio:   float32(id) / 2,
			Score:   float64(id) * 1.5,
			Active:  id%2 == 0,
			Name:    "user" + string(rune('a'+id)),
			Mood:    "happy",
			Payload: []byte{byte(id), 0xff},
			Home:    address{City: "c", Zip: "z"},
			Tags:    []int32{int32(id)},
		}
		if id%2 == 1 {
			rows[i].Nick = strPtr("nick")
		}
	}
	return rows
}

func openTyped(t *testing.T, groups ...[]typedRow) *ParquetReader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "typed.parquet")
	writeTypedParquet(t, path, groups...)
	pr, err := NewParquetReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { pr.Close() })
	return pr
}

func TestParquetReaderArrowSchema(t *testing.T) {
	pr := openTyped(t, sampleTypedRows(0, 3))
	as := pr.ArrowSchema()

	want := map[string]dtype.DataType{
		"id":      dtype.Int64,
		"age":     dtype.Int32,
		"count":   dtype.UInt32,
		"big":     dtype.UInt64,
		"ratio":   dtype.Float32,
		"score":   dtype.Float64,
		"active":  dtype.Boolean,
		"name":    dtype.Utf8,
		"mood":    dtype.Utf8,
		"payload": dtype.Binary,
		"nick":    dtype.Utf8,
	}
	require.Equal(t, 13, as.NumFields())
	for name, dt := range want {
		idx := as.FieldIndices(name)
		require.Len(t, idx, 1, name)
		got, err := dtype.FromArrowType(as.Field(idx[0]).Type)
		require.NoError(t, err, name)
		assert.Equal(t, dt, got, name)
	}

	nick := as.Field(as.FieldIndices("nick")[0])
	assert.True(t, nick.Nullable)

	for _, name := range []string{"home", "tags"} {
		_, err := dtype.FromArrowType(as.Field(as.FieldIndices(name)[0]).Type)
		assert.True(t, errors.Is(err, dtype.ErrUnsupportedType), name)
	}
	assert.Equal(t, arrow.STRUCT, as.Field(as.FieldIndices("home")[0]).Type.ID())

	assert.Equal(t, int64(3), pr.NumRows())
	assert.Equal(t, 1, pr.NumRowGroups())
}

func TestParquetReaderLeafMask(t *testing.T) {
	pr := openTyped(t, sampleTypedRows(0, 1))
	paths := pr.ColumnPaths()

	homeIdx := pr.ArrowSchema().FieldIndices("home")[0]
	mask := pr.LeafMask([]int{homeIdx})
	require.Equal(t, uint64(2), mask.GetCardinality())
	for _, leaf := range mask.ToArray() {
		assert.Equal(t, "home", paths[leaf][0])
	}

	// tags follows the two leaves of home
	tagsIdx := pr.ArrowSchema().FieldIndices("tags")[0]
	mask = pr.LeafMask([]int{0, tagsIdx, 0})
	assert.Equal(t, []uint32{0, uint32(len(paths) - 1)}, mask.ToArray())
	assert.Equal(t, "tags", paths[len(paths)-1][0])
	assert.True(t, pr.LeafMask(nil).IsEmpty())
}

func TestParquetBatchReaderRowGroups(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	pr := openTyped(t, sampleTypedRows(0, 3), sampleTypedRows(3, 2))
	require.Equal(t, 2, pr.NumRowGroups())

	as := pr.ArrowSchema()
	fields := []int{as.FieldIndices("nick")[0], as.FieldIndices("id")[0]}
	br, err := pr.NewBatchReader(pr.LeafMask(fields), 2, mem)
	require.NoError(t, err)
	defer br.Close()

	// leaf order, not request order
	assert.Equal(t, "id", br.Schema().Field(0).Name)
	assert.Equal(t, "nick", br.Schema().Field(1).Name)

	var sizes []int64
	var ids []int64
	nulls := 0
	for {
		rec, err := br.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, rec.NumRows())
		ids = append(ids, rec.Column(0).(*array.Int64).Int64Values()...)
		nulls += rec.Column(1).NullN()
		rec.Release()
	}
	assert.Equal(t, []int64{2, 1, 2}, sizes)
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, ids)
	assert.Equal(t, 3, nulls)

	_, err = br.Next()
	assert.Equal(t, io.EOF, err)
}

func TestParquetBatchReaderAllTypes(t *testing.T) {
	pr := openTyped(t, sampleTypedRows(1, 1))
	as := pr.ArrowSchema()

	var supported []int
	for i, f := range as.Fields() {
		if _, err := dtype.FromArrowType(f.Type); err == nil {
			supported = append(supported, i)
		}
	}
	require.Len(t, supported, 11)

	br, err := pr.NewBatchReader(pr.LeafMask(supported), 0, nil)
	require.NoError(t, err)
	defer br.Close()

	rec, err := br.Next()
	require.NoError(t, err)
	defer rec.Release()

	batch, err := dtype.RecordBatchFromArrow(rec)
	require.NoError(t, err)
	defer batch.Release()

	get := func(name string) dtype.Scalar {
		return batch.Column(batch.Schema().IndexOf(name)).Get(0)
	}
	assert.True(t, get("id").Equal(dtype.Int64Scalar(1)))
	assert.True(t, get("count").Equal(dtype.UInt32Scalar(3)))
	assert.True(t, get("big").Equal(dtype.UInt64Scalar(1<<40)))
	assert.True(t, get("ratio").Equal(dtype.Float32Scalar(0.5)))
	assert.True(t, get("score").Equal(dtype.Float64Scalar(1.5)))
	assert.True(t, get("active").Equal(dtype.BooleanScalar(false)))
	assert.True(t, get("name").Equal(dtype.Utf8Scalar("userb")))
	assert.True(t, get("mood").Equal(dtype.Utf8Scalar("happy")))
	assert.True(t, get("payload").Equal(dtype.BinaryScalar([]byte{1, 0xff})))
	assert.True(t, get("nick").Equal(dtype.Utf8Scalar("nick")))
}

// writeNarrowIntParquet writes a file whose integer columns carry 8, 16, 32
// and 64 bit logical widths. Leaves of a parquet.Group are ordered by name:
// big, count, flags, medium, port, small.
func writeNarrowIntParquet(t *testing.T, path string, ids ...int) {
	t.Helper()
	schema := parquet.NewSchema("narrow", parquet.Group{
		"small":  parquet.Int(8),
		"medium": parquet.Int(16),
		"flags":  parquet.Uint(8),
		"port":   parquet.Uint(16),
		"count":  parquet.Uint(32),
		"big":    parquet.Uint(64),
	})

	rows := make([]parquet.Row, len(ids))
	for i, id := range ids {
		rows[i] = parquet.Row{
			parquet.Int64Value(int64(uint64(id) << 40)).Level(0, 0, 0),
			parquet.Int32Value(int32(id * 3)).Level(0, 0, 1),
			parquet.Int32Value(int32(id)).Level(0, 0, 2),
			parquet.Int32Value(int32(id * 10)).Level(0, 0, 3),
			parquet.Int32Value(int32(8000 + id)).Level(0, 0, 4),
			parquet.Int32Value(int32(-id)).Level(0, 0, 5),
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	writer := parquet.NewWriter(f, schema)
	_, err = writer.WriteRows(rows)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
}

func TestParquetReaderNarrowIntegers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narrow.parquet")
	writeNarrowIntParquet(t, path, 1, 2)

	pr, err := NewParquetReader(path)
	require.NoError(t, err)
	defer pr.Close()

	schema, err := dtype.SchemaFromArrow(pr.ArrowSchema())
	require.NoError(t, err)
	assert.Equal(t, "schema<big: UInt64, count: UInt32, flags: UInt8, medium: Int16, port: UInt16, small: Int8>",
		schema.String())

	all := make([]int, schema.Len())
	for i := range all {
		all[i] = i
	}
	br, err := pr.NewBatchReader(pr.LeafMask(all), 0, nil)
	require.NoError(t, err)
	defer br.Close()

	rec, err := br.Next()
	require.NoError(t, err)
	defer rec.Release()

	batch, err := dtype.RecordBatchFromArrow(rec)
	require.NoError(t, err)
	defer batch.Release()
	require.Equal(t, 2, batch.RowCount())

	get := func(name string) dtype.Scalar {
		return batch.Column(batch.Schema().IndexOf(name)).Get(1)
	}
	assert.True(t, get("big").Equal(dtype.UInt64Scalar(2<<40)))
	assert.True(t, get("count").Equal(dtype.UInt32Scalar(6)))
	assert.True(t, get("flags").Equal(dtype.UInt8Scalar(2)))
	assert.True(t, get("medium").Equal(dtype.Int16Scalar(20)))
	assert.True(t, get("port").Equal(dtype.UInt16Scalar(8002)))
	assert.True(t, get("small").Equal(dtype.Int8Scalar(-2)))

	_, err = br.Next()
	assert.Equal(t, io.EOF, err)
}

func TestParquetBatchReaderRejectsNestedLeaves(t *testing.T) {
	pr := openTyped(t, sampleTypedRows(0, 1))
	home := pr.ArrowSchema().FieldIndices("home")[0]

	_, err := pr.NewBatchReader(pr.LeafMask([]int{home}), 10, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dtype.ErrUnsupportedType))
}

func TestParquetReaderErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewParquetReader(filepath.Join(dir, "missing.parquet"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dtype.ErrIO))

	garbage := filepath.Join(dir, "garbage.parquet")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not parquet"), 0644))
	_, err = NewParquetReader(garbage)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dtype.ErrDecode))
}

func TestHTTPParquetReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remote.parquet")
	writeTypedParquet(t, path, sampleTypedRows(0, 4))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, err := os.Open(path)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer file.Close()
		stat, _ := file.Stat()
		http.ServeContent(w, r, "remote.parquet", stat.ModTime(), file)
	}))
	defer server.Close()

	pr, err := NewParquetReader(server.URL + "/remote.parquet")
	require.NoError(t, err)
	defer pr.Close()

	assert.Equal(t, int64(4), pr.NumRows())
	br, err := pr.NewBatchReader(pr.LeafMask([]int{0}), 10, nil)
	require.NoError(t, err)
	defer br.Close()

	rec, err := br.Next()
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, []int64{0, 1, 2, 3}, rec.Column(0).(*array.Int64).Int64Values())
}
