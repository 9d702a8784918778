package dtype

import "github.com/apache/arrow-go/v18/arrow"

// Field is a named, typed column descriptor. Fields are immutable.
type Field struct {
	name  string
	dtype DataType
}

// NewField creates a field.
func NewField(name string, dt DataType) Field {
	return Field{name: name, dtype: dt}
}

func (f Field) Name() string       { return f.name }
func (f Field) DataType() DataType { return f.dtype }

func (f Field) String() string {
	return f.name + ": " + f.dtype.String()
}

// ArrowField converts the field into a nullable Arrow field.
func (f Field) ArrowField() arrow.Field {
	return arrow.Field{Name: f.name, Type: f.dtype.ArrowType(), Nullable: true}
}

// FieldFromArrow converts an Arrow field, failing on unsupported types.
func FieldFromArrow(af arrow.Field) (Field, error) {
	dt, err := FromArrowType(af.Type)
	if err != nil {
		return Field{}, UnsupportedType("field %q: unsupported arrow type: %s", af.Name, af.Type)
	}
	return NewField(af.Name, dt), nil
}
