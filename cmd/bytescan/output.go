package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"bytescan/catalog"
	"bytescan/dsource"
	"bytescan/dtype"
)

type rowSet struct {
	columns []string
	values  [][]dtype.Scalar
}

// collectRows reads rows from it until it is exhausted or limit rows have
// been read. A negative limit reads everything.
func collectRows(it dsource.BatchIterator, limit int) (*rowSet, error) {
	defer it.Close()

	rows := &rowSet{}
	for limit < 0 || len(rows.values) < limit {
		batch, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rows.columns == nil {
			rows.columns = batch.Schema().Names()
		}
		for r := 0; r < batch.RowCount(); r++ {
			if limit >= 0 && len(rows.values) == limit {
				break
			}
			row := make([]dtype.Scalar, batch.ColumnCount())
			for c := range row {
				row[c] = batch.Column(c).Get(r)
			}
			rows.values = append(rows.values, row)
		}
		batch.Release()
	}
	return rows, nil
}

func writeRows(w io.Writer, rows *rowSet) error {
	if len(rows.values) == 0 {
		_, err := io.WriteString(w, "No results found\n")
		return err
	}

	var out strings.Builder
	out.WriteString(strings.Join(rows.columns, "\t"))
	out.WriteString("\n")
	for _, row := range rows.values {
		values := make([]string, len(row))
		for i, v := range row {
			values[i] = v.String()
		}
		out.WriteString(strings.Join(values, "\t"))
		out.WriteString("\n")
	}
	fmt.Fprintf(&out, "\n(%d rows)\n", len(rows.values))

	_, err := io.WriteString(w, out.String())
	return err
}

func writeJSON(w io.Writer, rows *rowSet) error {
	objects := make([]map[string]interface{}, len(rows.values))
	for i, row := range rows.values {
		obj := make(map[string]interface{}, len(row))
		for c, v := range row {
			obj[rows.columns[c]] = v.Value()
		}
		objects[i] = obj
	}
	result := map[string]interface{}{
		"columns": rows.columns,
		"rows":    objects,
		"count":   len(objects),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeSchema(w io.Writer, table string, schema *dtype.Schema) error {
	var info strings.Builder
	fmt.Fprintf(&info, "Table: %s\n", table)
	info.WriteString("Columns:\n")
	for _, f := range schema.Fields() {
		fmt.Fprintf(&info, "  - %s (%s)\n", f.Name(), f.DataType())
	}
	_, err := io.WriteString(w, info.String())
	return err
}

func writeTables(w io.Writer, tables []catalog.TableInfo) error {
	var out strings.Builder
	out.WriteString("Tables:\n")
	for _, t := range tables {
		if t.Location == "" {
			fmt.Fprintf(&out, "  - %s (%s)\n", t.Name, t.Format)
			continue
		}
		fmt.Fprintf(&out, "  - %s (%s) %s\n", t.Name, t.Format, t.Location)
	}
	_, err := io.WriteString(w, out.String())
	return err
}
