// Package table reads raw tabular cross-section files into typed rows under
// the parsing convention declared by a descriptor's reader options.
package table

import (
	"strconv"

	"github.com/misho104/SUSY-crosssection/pkg/descriptor"
)

// Kind identifies the type of a cell value. The set is closed: every cell is
// classified once at load time, either a number or a label string.
type Kind int

const (
	KindNumber Kind = iota
	KindString
)

// Value is one typed cell of the table.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// Number returns a numeric Value.
func Number(v float64) Value {
	return Value{kind: KindNumber, num: v}
}

// Text returns a string Value.
func Text(s string) Value {
	return Value{kind: KindString, str: s}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNumber reports whether the value is numeric.
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// Float returns the numeric value. The second return is false for string
// values.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

func (v Value) String() string {
	if v.kind == KindNumber {
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
	return v.str
}

// Row is one parsed record, keyed by column name and positionally aligned to
// the descriptor's columns. Index is the zero-based data-row position in the
// raw file, after skipped lines.
type Row struct {
	Index  int
	Fields map[string]Value
}

// Value returns the cell for the given column.
func (r *Row) Value(column string) (Value, bool) {
	v, ok := r.Fields[column]
	return v, ok
}

// Float returns the numeric cell for the given column; false if the column
// is absent or holds a string.
func (r *Row) Float(column string) (float64, bool) {
	v, ok := r.Fields[column]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Table is the ordered result of one raw-file load. It is read-only after
// Read returns.
type Table struct {
	Columns []descriptor.Column
	Rows    []Row

	// SkippedRows counts malformed rows dropped in lenient mode.
	SkippedRows int
}
