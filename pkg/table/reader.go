package table

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/misho104/SUSY-crosssection/pkg/descriptor"
)

// ParseError reports a raw-file row whose shape does not match the declared
// columns. The loader never pads or truncates; in strict mode (the default)
// the first malformed row aborts the load.
type ParseError struct {
	RowIndex int
	Line     string
	Msg      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: row %d: %s: %q", e.RowIndex, e.Msg, e.Line)
}

type readerConfig struct {
	lenient bool
	log     *slog.Logger
}

// Option configures Read.
type Option func(*readerConfig)

// WithLenient makes Read skip malformed rows instead of failing. Skipped
// rows are counted on the returned table and reported through the logger.
func WithLenient(log *slog.Logger) Option {
	return func(cfg *readerConfig) {
		cfg.lenient = true
		cfg.log = log
	}
}

// Open reads the raw table file at path according to the descriptor's reader
// options.
func Open(path string, d *descriptor.Descriptor, opts ...Option) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	tbl, err := Read(f, d, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tbl, nil
}

// Read parses raw tabular content into typed rows. The first SkipRows lines
// are discarded unconditionally; the rest are split by whitespace or by the
// declared delimiter, and each field is coerced to a number when it parses
// as one.
func Read(r io.Reader, d *descriptor.Descriptor, opts ...Option) (*Table, error) {
	var cfg readerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	lines, err := readLines(r, d.ReaderOptions.SkipRows)
	if err != nil {
		return nil, err
	}

	tbl := &Table{Columns: d.Columns}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields, err := splitLine(line, d.ReaderOptions)
		if err != nil {
			return nil, &ParseError{RowIndex: i, Line: line, Msg: err.Error()}
		}
		if len(fields) != len(d.Columns) {
			perr := &ParseError{
				RowIndex: i,
				Line:     line,
				Msg:      fmt.Sprintf("expected %d fields, got %d", len(d.Columns), len(fields)),
			}
			if !cfg.lenient {
				return nil, perr
			}
			tbl.SkippedRows++
			continue
		}

		row := Row{Index: len(tbl.Rows), Fields: make(map[string]Value, len(fields))}
		for j, field := range fields {
			if d.ReaderOptions.SkipInitialSpace {
				field = strings.TrimLeft(field, " \t")
			}
			row.Fields[d.Columns[j].Name] = coerce(field)
		}
		tbl.Rows = append(tbl.Rows, row)
	}

	if cfg.lenient && tbl.SkippedRows > 0 {
		cfg.log.Warn("table: skipped malformed rows", "count", tbl.SkippedRows)
	}
	return tbl, nil
}

func readLines(r io.Reader, skip int) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if skip > 0 {
			skip--
			continue
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	return lines, nil
}

func splitLine(line string, opts descriptor.ReaderOptions) ([]string, error) {
	if opts.DelimWhitespace {
		return strings.Fields(line), nil
	}

	delim := ","
	if opts.Delimiter != "" {
		delim = opts.Delimiter
	}
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = rune(delim[0])
	cr.TrimLeadingSpace = opts.SkipInitialSpace
	cr.LazyQuotes = true
	fields, err := cr.Read()
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func coerce(field string) Value {
	if n, err := strconv.ParseFloat(field, 64); err == nil {
		return Number(n)
	}
	return Text(field)
}
