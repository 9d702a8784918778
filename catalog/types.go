package catalog

import (
	"strings"

	"github.com/cockroachdb/errors"

	"bytescan/dtype"
)

// DefaultSchemaName is the schema qualifier tables are registered under.
const DefaultSchemaName = "public"

// TableMapping maps a logical table name onto a file.
type TableMapping struct {
	Name      string
	Format    string // csv or parquet; empty means derive from Location
	Location  string // file path, relative to the registry base path, or http(s) URL
	Delimiter rune   // CSV only; zero means tab for .tsv files, comma otherwise
	Schema    *dtype.Schema

	// InferenceRows is the CSV inference sample size. Zero keeps the
	// default; negative samples the whole file.
	InferenceRows int
}

// TableInfo describes a registered table.
type TableInfo struct {
	Name     string
	Format   string
	Location string
}

// TableIdentifier is a possibly schema-qualified table name.
type TableIdentifier struct {
	Schema string
	Table  string
}

// ParseTableIdentifier parses `table` or `schema.table`. A missing schema
// becomes DefaultSchemaName.
func ParseTableIdentifier(identifier string) TableIdentifier {
	if i := strings.LastIndexByte(identifier, '.'); i >= 0 {
		return TableIdentifier{Schema: identifier[:i], Table: identifier[i+1:]}
	}
	return TableIdentifier{Schema: DefaultSchemaName, Table: identifier}
}

// QualifiedName returns schema.table format
func (ti TableIdentifier) QualifiedName() string {
	return ti.Schema + "." + ti.Table
}

// ErrTableNotFound marks lookups of names no table is registered under.
var ErrTableNotFound = errors.New("table not registered")
