// Package grid indexes table rows by their rounded parameter values. The
// grid is built once per dataset and is immutable afterwards.
package grid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/misho104/SUSY-crosssection/pkg/descriptor"
	"github.com/misho104/SUSY-crosssection/pkg/table"
)

// Round snaps a parameter value to its axis granularity:
// round(v / granularity) * granularity.
func Round(v, granularity float64) float64 {
	r := math.Round(v/granularity) * granularity
	if r == 0 {
		// Normalize -0 so that the surrogate encoding is unique.
		return 0
	}
	return r
}

// Key is a rounded tuple of parameter values, one per grid axis, in declared
// order.
type Key []float64

// Surrogate returns a deterministic, collision-free string form of the key,
// usable as a map key. Each value is encoded as its big-endian IEEE-754 bits.
func (k Key) Surrogate() string {
	var buf bytes.Buffer
	for _, v := range k.Values() {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
		buf.Write(b[:])
	}
	return buf.String()
}

// Values returns the key's values as a plain slice.
func (k Key) Values() []float64 { return []float64(k) }

func (k Key) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// compare orders keys lexicographically by parameter, in declared axis order.
func compare(a, b Key) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

type buildConfig struct {
	errorOnDuplicate bool
}

// Option configures Build.
type Option func(*buildConfig)

// WithErrorOnDuplicate makes Build fail when two rows round to the same key,
// instead of the default last-wins overwrite.
func WithErrorOnDuplicate() Option {
	return func(cfg *buildConfig) { cfg.errorOnDuplicate = true }
}

// Grid maps rounded parameter keys to table rows.
//
// When the table stores rows at finer resolution than the declared
// granularity, several rows round to the same key; by default the last row
// encountered wins, mirroring the load order of the raw file. This overwrite
// policy is deliberate: rows are never averaged or merged silently.
type Grid struct {
	params []descriptor.Parameter
	rows   map[string]*table.Row
	keys   []Key
	axes   [][]float64
}

// Build computes each row's key by rounding the parameter columns to their
// granularity and indexes the rows.
func Build(tbl *table.Table, params []descriptor.Parameter, opts ...Option) (*Grid, error) {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	g := &Grid{
		params: params,
		rows:   make(map[string]*table.Row, len(tbl.Rows)),
	}

	for i := range tbl.Rows {
		row := &tbl.Rows[i]
		key := make(Key, len(params))
		for j, p := range params {
			v, ok := row.Float(p.Column)
			if !ok {
				return nil, fmt.Errorf("row %d: parameter column %q is not numeric", row.Index, p.Column)
			}
			key[j] = Round(v, p.Granularity)
		}
		surrogate := key.Surrogate()
		if _, exists := g.rows[surrogate]; exists && cfg.errorOnDuplicate {
			return nil, fmt.Errorf("row %d: duplicate grid key %s", row.Index, key)
		}
		g.rows[surrogate] = row
	}

	g.buildIndex()
	return g, nil
}

func (g *Grid) buildIndex() {
	g.keys = make([]Key, 0, len(g.rows))
	axisSets := make([]map[float64]struct{}, len(g.params))
	for i := range axisSets {
		axisSets[i] = make(map[float64]struct{})
	}

	for surrogate := range g.rows {
		key := decodeSurrogate(surrogate, len(g.params))
		g.keys = append(g.keys, key)
		for i, v := range key {
			axisSets[i][v] = struct{}{}
		}
	}
	sort.Slice(g.keys, func(i, j int) bool { return compare(g.keys[i], g.keys[j]) < 0 })

	g.axes = make([][]float64, len(axisSets))
	for i, set := range axisSets {
		axis := make([]float64, 0, len(set))
		for v := range set {
			axis = append(axis, v)
		}
		sort.Float64s(axis)
		g.axes[i] = axis
	}
}

func decodeSurrogate(s string, dims int) Key {
	key := make(Key, dims)
	b := []byte(s)
	for i := 0; i < dims; i++ {
		key[i] = math.Float64frombits(binary.BigEndian.Uint64(b[i*8:]))
	}
	return key
}

// Dims returns the number of grid axes.
func (g *Grid) Dims() int { return len(g.params) }

// Parameters returns the declared grid axes.
func (g *Grid) Parameters() []descriptor.Parameter { return g.params }

// Round converts an un-rounded query point to its grid key.
func (g *Grid) Round(point []float64) (Key, error) {
	if len(point) != len(g.params) {
		return nil, fmt.Errorf("expected %d parameter values, got %d", len(g.params), len(point))
	}
	key := make(Key, len(point))
	for i, v := range point {
		key[i] = Round(v, g.params[i].Granularity)
	}
	return key, nil
}

// Lookup rounds the point and returns the row stored at the resulting key.
func (g *Grid) Lookup(point []float64) (*table.Row, Key, bool) {
	key, err := g.Round(point)
	if err != nil {
		return nil, nil, false
	}
	row, ok := g.rows[key.Surrogate()]
	return row, key, ok
}

// LookupKey returns the row stored at an already-rounded key.
func (g *Grid) LookupKey(key Key) (*table.Row, bool) {
	if len(key) != len(g.params) {
		return nil, false
	}
	row, ok := g.rows[key.Surrogate()]
	return row, ok
}

// Keys enumerates all known keys in ascending lexicographic parameter order.
func (g *Grid) Keys() []Key { return g.keys }

// AxisValues returns the sorted distinct known values along one axis.
func (g *Grid) AxisValues(axis int) []float64 { return g.axes[axis] }

// Len returns the number of grid entries.
func (g *Grid) Len() int { return len(g.rows) }
