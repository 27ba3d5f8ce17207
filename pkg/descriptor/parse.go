package descriptor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// SchemaError reports a malformed or incomplete descriptor. It is fatal at
// load time; the Field names the offending part of the document.
type SchemaError struct {
	Field string
	Msg   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s: %s", e.Field, e.Msg)
}

func schemaErrf(field, format string, args ...any) error {
	return &SchemaError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// columnRefs accepts either a bare string or a list of strings, so that a
// plain source "column" and a signed pair declare the same way.
type columnRefs []string

func (c *columnRefs) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = columnRefs{s}
		return nil
	}
	var ss []string
	if err := json.Unmarshal(data, &ss); err != nil {
		return fmt.Errorf("column reference must be a string or a list of strings: %s", data)
	}
	*c = columnRefs(ss)
	return nil
}

type rawSource struct {
	Column columnRefs `json:"column"`
	Type   string     `json:"type"`
}

type rawValue struct {
	Column   string      `json:"column"`
	Unc      []rawSource `json:"unc"`
	UncMinus []rawSource `json:"unc-"`
	UncPlus  []rawSource `json:"unc+"`
	Attrs    Attrs       `json:"attributes"`
}

type rawDescriptor struct {
	Document      map[string]any             `json:"document"`
	Attributes    Attrs                      `json:"attributes"`
	Columns       []Column                   `json:"columns"`
	ReaderOptions map[string]json.RawMessage `json:"reader_options"`
	Parameters    []Parameter                `json:"parameters"`
	Values        []rawValue                 `json:"values"`
}

// Load reads and parses a descriptor document from a file.
func Load(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open descriptor: %w", err)
	}
	defer f.Close()

	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes and validates a descriptor document. Any structural problem
// is reported as a *SchemaError naming the offending field.
func Parse(r io.Reader) (*Descriptor, error) {
	var raw rawDescriptor
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, schemaErrf("document", "invalid JSON: %v", err)
	}

	opts, err := parseReaderOptions(raw.ReaderOptions)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{
		Document:      raw.Document,
		Attrs:         raw.Attributes,
		Columns:       raw.Columns,
		ReaderOptions: opts,
		Parameters:    raw.Parameters,
		columnIndex:   make(map[string]int, len(raw.Columns)),
	}
	if d.Attrs == nil {
		d.Attrs = Attrs{}
	}

	if len(d.Columns) == 0 {
		return nil, schemaErrf("columns", "at least one column is required")
	}
	for i, c := range d.Columns {
		if c.Name == "" {
			return nil, schemaErrf("columns", "column %d has no name", i)
		}
		if _, dup := d.columnIndex[c.Name]; dup {
			return nil, schemaErrf("columns", "duplicate column name %q", c.Name)
		}
		d.columnIndex[c.Name] = i
	}

	if len(d.Parameters) == 0 {
		return nil, schemaErrf("parameters", "at least one parameter is required")
	}
	for i, p := range d.Parameters {
		field := fmt.Sprintf("parameters[%d]", i)
		if p.Column == "" {
			return nil, schemaErrf(field, "column is required")
		}
		if _, ok := d.columnIndex[p.Column]; !ok {
			return nil, schemaErrf(field, "unknown column %q", p.Column)
		}
		if !(p.Granularity > 0) {
			return nil, schemaErrf(field, "granularity must be positive, got %v", p.Granularity)
		}
	}

	if len(raw.Values) == 0 {
		return nil, schemaErrf("values", "at least one value specification is required")
	}
	for i, rv := range raw.Values {
		spec, err := parseValueSpec(i, rv, d.columnIndex)
		if err != nil {
			return nil, err
		}
		d.Values = append(d.Values, spec)
	}

	return d, nil
}

func parseReaderOptions(raw map[string]json.RawMessage) (ReaderOptions, error) {
	var opts ReaderOptions
	for key, val := range raw {
		field := fmt.Sprintf("reader_options.%s", key)
		var err error
		switch key {
		case "skiprows":
			err = json.Unmarshal(val, &opts.SkipRows)
		case "delim_whitespace":
			err = json.Unmarshal(val, &opts.DelimWhitespace)
		case "skipinitialspace":
			err = json.Unmarshal(val, &opts.SkipInitialSpace)
		case "delimiter":
			err = json.Unmarshal(val, &opts.Delimiter)
		default:
			// Silently ignoring an unknown option would mean silently
			// misparsing the raw file.
			return opts, schemaErrf(field, "unrecognized reader option")
		}
		if err != nil {
			return opts, schemaErrf(field, "invalid value: %v", err)
		}
	}
	if opts.SkipRows < 0 {
		return opts, schemaErrf("reader_options.skiprows", "must be non-negative, got %d", opts.SkipRows)
	}
	return opts, nil
}

func parseValueSpec(index int, rv rawValue, columns map[string]int) (ValueSpec, error) {
	field := fmt.Sprintf("values[%d]", index)
	spec := ValueSpec{Column: rv.Column, Attrs: rv.Attrs}

	if spec.Column == "" {
		return spec, schemaErrf(field, "column is required")
	}
	if _, ok := columns[spec.Column]; !ok {
		return spec, schemaErrf(field, "unknown column %q", spec.Column)
	}

	if rv.Unc != nil && (rv.UncMinus != nil || rv.UncPlus != nil) {
		return spec, schemaErrf(field, `"unc" cannot be combined with "unc-" or "unc+"`)
	}

	minus, plus := rv.UncMinus, rv.UncPlus
	if rv.Unc != nil {
		minus, plus = rv.Unc, rv.Unc
		spec.Symmetric = true
	}

	var err error
	if spec.UncMinus, err = parseSources(field+".unc-", minus, columns); err != nil {
		return spec, err
	}
	if spec.UncPlus, err = parseSources(field+".unc+", plus, columns); err != nil {
		return spec, err
	}
	return spec, nil
}

func parseSources(field string, raw []rawSource, columns map[string]int) ([]UncertaintySource, error) {
	sources := make([]UncertaintySource, 0, len(raw))
	for i, rs := range raw {
		f := fmt.Sprintf("%s[%d]", field, i)
		src := UncertaintySource{Columns: rs.Column, Type: UncertaintyType(rs.Type)}
		switch src.Type {
		case Relative, Absolute:
			if len(src.Columns) != 1 {
				return nil, schemaErrf(f, "%s source needs exactly one column, got %d", src.Type, len(src.Columns))
			}
		case AbsoluteSigned:
			if len(src.Columns) != 2 {
				return nil, schemaErrf(f, "%s source needs exactly two columns, got %d", src.Type, len(src.Columns))
			}
		default:
			return nil, schemaErrf(f, "unknown uncertainty type %q", rs.Type)
		}
		for _, c := range src.Columns {
			if _, ok := columns[c]; !ok {
				return nil, schemaErrf(f, "unknown column %q", c)
			}
		}
		sources = append(sources, src)
	}
	return sources, nil
}
