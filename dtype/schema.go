package dtype

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Schema is an ordered list of fields. Field order defines column index
// correspondence in every RecordBatch that carries the schema.
//
// Field names are not required to be unique. Every lookup by name returns the
// first match, so later duplicates are shadowed.
type Schema struct {
	fields []Field
}

// NewSchema creates a schema from fields. The slice is copied.
func NewSchema(fields ...Field) *Schema {
	return &Schema{fields: append([]Field(nil), fields...)}
}

// Fields returns the fields in order. The returned slice must not be modified.
func (s *Schema) Fields() []Field { return s.fields }

// Field returns the field at index i.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Names returns the field names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.name
	}
	return names
}

// IndexOf returns the index of the first field called name, or -1.
func (s *Schema) IndexOf(name string) int {
	for i, f := range s.fields {
		if f.name == name {
			return i
		}
	}
	return -1
}

// Resolve maps each name to the index of its first matching field, in the
// order given. It fails on the first name that does not resolve.
func (s *Schema) Resolve(names []string) ([]int, error) {
	indices := make([]int, len(names))
	for i, name := range names {
		idx := s.IndexOf(name)
		if idx < 0 {
			return nil, FieldNotFound(name)
		}
		indices[i] = idx
	}
	return indices, nil
}

// Project returns a new schema holding the fields at indices, in that order.
// Indices may repeat or be out of order. An out of range index panics.
func (s *Schema) Project(indices []int) *Schema {
	fields := make([]Field, len(indices))
	for i, idx := range indices {
		fields[i] = s.fields[idx]
	}
	return &Schema{fields: fields}
}

// Select returns a new schema with the fields named by names, in the order of
// names.
func (s *Schema) Select(names []string) (*Schema, error) {
	indices, err := s.Resolve(names)
	if err != nil {
		return nil, err
	}
	return s.Project(indices), nil
}

// Equal reports whether both schemas have the same fields in the same order.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("schema<%s>", strings.Join(parts, ", "))
}

// ArrowSchema converts the schema into an Arrow schema.
func (s *Schema) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(s.fields))
	for i, f := range s.fields {
		fields[i] = f.ArrowField()
	}
	return arrow.NewSchema(fields, nil)
}

// SchemaFromArrow converts an Arrow schema, failing if any field type is
// unsupported.
func SchemaFromArrow(as *arrow.Schema) (*Schema, error) {
	fields := make([]Field, as.NumFields())
	for i, af := range as.Fields() {
		f, err := FieldFromArrow(af)
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return &Schema{fields: fields}, nil
}
