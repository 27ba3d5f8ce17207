// Package descriptor parses and validates the JSON documents that annotate
// raw cross-section tables: which columns exist, how to read the file, which
// columns are query parameters, and which columns compose a physical value
// with its uncertainty sources.
package descriptor

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// AttrValue holds a descriptor attribute value, which the schema allows to be
// either a single string or a list of strings (e.g. multiple processes).
// Both shapes are preserved verbatim.
type AttrValue struct {
	values []string
	list   bool
}

// StringAttr returns an AttrValue holding a single string.
func StringAttr(s string) AttrValue {
	return AttrValue{values: []string{s}}
}

// ListAttr returns an AttrValue holding a list of strings.
func ListAttr(ss ...string) AttrValue {
	return AttrValue{values: ss, list: true}
}

// IsList reports whether the attribute was declared as a list.
func (v AttrValue) IsList() bool { return v.list }

// Values returns the attribute values. A single-string attribute yields a
// one-element slice.
func (v AttrValue) Values() []string { return v.values }

func (v AttrValue) String() string {
	if v.list {
		return strings.Join(v.values, ", ")
	}
	if len(v.values) == 0 {
		return ""
	}
	return v.values[0]
}

func (v *AttrValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = StringAttr(s)
		return nil
	}
	var ss []string
	if err := json.Unmarshal(data, &ss); err != nil {
		return fmt.Errorf("attribute value must be a string or a list of strings: %s", data)
	}
	*v = ListAttr(ss...)
	return nil
}

func (v AttrValue) MarshalJSON() ([]byte, error) {
	if v.list {
		return json.Marshal(v.values)
	}
	return json.Marshal(v.String())
}

// Attrs is a set of physics attributes (processes, collider, energy, order,
// PDF set) attached to a dataset or overridden by a single value spec.
type Attrs map[string]AttrValue

// Merge returns a new Attrs with override applied on top of base. Override
// wins on key collision, union otherwise. Neither input is modified.
func (a Attrs) Merge(override Attrs) Attrs {
	merged := make(Attrs, len(a)+len(override))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// Column annotates one column of the raw table. Name is the join key used by
// parameters and value specs; Unit is informational (fb, pb, GeV, %).
type Column struct {
	Name string `json:"name"`
	Unit string `json:"unit,omitempty"`
}

// ReaderOptions configures how the paired raw table file is parsed.
type ReaderOptions struct {
	// SkipRows is the number of leading lines to discard.
	SkipRows int
	// DelimWhitespace selects whitespace token splitting instead of a
	// fixed delimiter.
	DelimWhitespace bool
	// SkipInitialSpace trims leading space from each field before type
	// coercion.
	SkipInitialSpace bool
	// Delimiter is the field separator when DelimWhitespace is unset.
	// Empty means comma.
	Delimiter string
}

// Parameter declares one axis of the query grid: the column that stores the
// parameter and the rounding bucket applied before grid indexing.
type Parameter struct {
	Column      string  `json:"column"`
	Granularity float64 `json:"granularity"`
}

// UncertaintyType tags how an uncertainty source column combines with the
// central value.
type UncertaintyType string

const (
	// Relative sources hold a percentage of the central value.
	Relative UncertaintyType = "relative"
	// Absolute sources hold a directly additive value in the unit of the
	// central column.
	Absolute UncertaintyType = "absolute"
	// AbsoluteSigned sources are a pair of independently signed shifts
	// (e.g. a mu1/mu2 scale-variation pair); each value routes to the
	// lower or upper side by its own sign.
	AbsoluteSigned UncertaintyType = "absolute,signed"
)

// UncertaintySource is one contributing uncertainty component. Columns has
// exactly one entry, except for AbsoluteSigned which has exactly two.
type UncertaintySource struct {
	Columns []string
	Type    UncertaintyType
}

// ValueSpec names one reportable quantity: the central-value column, its
// uncertainty sources per side, and an optional attribute override merged on
// top of the dataset attributes.
type ValueSpec struct {
	Column   string
	UncMinus []UncertaintySource
	UncPlus  []UncertaintySource
	// Symmetric records that the schema declared a single "unc" block,
	// which was expanded into identical minus and plus source lists.
	Symmetric bool
	Attrs     Attrs
}

// Descriptor is the validated, immutable annotation of one dataset.
type Descriptor struct {
	// Document holds free-form provenance (title, authors, calculator,
	// source, version). It is never used for computation.
	Document map[string]any

	Attrs         Attrs
	Columns       []Column
	ReaderOptions ReaderOptions
	Parameters    []Parameter
	Values        []ValueSpec

	columnIndex map[string]int
}

// Column returns the declared column with the given name.
func (d *Descriptor) Column(name string) (Column, bool) {
	i, ok := d.columnIndex[name]
	if !ok {
		return Column{}, false
	}
	return d.Columns[i], true
}

// Describe returns a short human-readable summary of the document block,
// for operator display only.
func (d *Descriptor) Describe() string {
	keys := make([]string, 0, len(d.Document))
	for k := range d.Document {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := []string{"[Document]"}
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  %s: %v", k, d.Document[k]))
	}
	return strings.Join(lines, "\n")
}
