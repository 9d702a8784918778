package dsource

import (
	stdcsv "encoding/csv"
	"io"
	"strconv"

	"bytescan/core"
	"bytescan/dtype"
)

// DefaultInferenceRows is the number of data rows sampled to infer a CSV
// schema.
const DefaultInferenceRows = 500

// columnGuess narrows the type of one column as values are observed. Each
// flag stays set while every non-null value so far parses as that type,
// using the same parsers the Arrow decoder applies.
type columnGuess struct {
	seen    bool
	isInt   bool
	isFloat bool
	isBool  bool
}

func newColumnGuess() columnGuess {
	return columnGuess{isInt: true, isFloat: true, isBool: true}
}

func (g *columnGuess) observe(v string) {
	g.seen = true
	if g.isInt {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			g.isInt = false
		}
	}
	if g.isFloat {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			g.isFloat = false
		}
	}
	if g.isBool {
		if _, err := strconv.ParseBool(v); err != nil {
			g.isBool = false
		}
	}
}

// dataType widens null to Int64 to Float64 to Utf8. Boolean wins only when
// every value is a boolean that is not also an integer. A column with no
// non-null values is Utf8.
func (g columnGuess) dataType() dtype.DataType {
	switch {
	case !g.seen:
		return dtype.Utf8
	case g.isInt:
		return dtype.Int64
	case g.isFloat:
		return dtype.Float64
	case g.isBool:
		return dtype.Boolean
	default:
		return dtype.Utf8
	}
}

func (c *CSV) isNull(v string) bool {
	for _, n := range c.nulls {
		if v == n {
			return true
		}
	}
	return false
}

// inferSchema reads the header and up to inferenceRows data rows, or every
// row when inferenceRows is zero or less.
func (c *CSV) inferSchema() (*dtype.Schema, error) {
	in, err := core.OpenInput(c.path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	r := stdcsv.NewReader(in)
	r.Comma = c.delimiter
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, dtype.DecodeFailure(err, "read header of "+c.path)
	}
	names := append([]string(nil), header...)
	guesses := make([]columnGuess, len(names))
	for i := range guesses {
		guesses[i] = newColumnGuess()
	}

	rows := 0
	for c.inferenceRows <= 0 || rows < c.inferenceRows {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, dtype.DecodeFailure(err, "infer schema of "+c.path)
		}
		for i, v := range record {
			if !c.isNull(v) {
				guesses[i].observe(v)
			}
		}
		rows++
	}

	fields := make([]dtype.Field, len(names))
	for i, name := range names {
		fields[i] = dtype.NewField(name, guesses[i].dataType())
	}
	schema := dtype.NewSchema(fields...)

	core.GetTracer().Debug(core.TraceComponentSchema, "Inferred CSV schema", core.TraceContext(
		"path", c.path, "sampled_rows", rows, "schema", schema.String()))
	return schema, nil
}
