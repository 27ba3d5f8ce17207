package dataset

import (
	"fmt"
	"math"
	"sort"

	"github.com/misho104/SUSY-crosssection/pkg/grid"
	"github.com/misho104/SUSY-crosssection/pkg/metrics"
	"github.com/misho104/SUSY-crosssection/pkg/table"
)

// Method selects how a query point maps to the grid.
type Method int

const (
	// MethodExact rounds the point to the grid granularity and requires a
	// stored entry at the resulting key.
	MethodExact Method = iota
	// MethodNearest snaps each axis to the closest known grid value.
	MethodNearest
	// MethodLinear interpolates linearly between the bracketing grid
	// points on every axis.
	MethodLinear
)

func (m Method) String() string {
	switch m {
	case MethodExact:
		return "exact"
	case MethodNearest:
		return "nearest"
	case MethodLinear:
		return "linear"
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod converts a method name ("exact", "nearest", "linear").
func ParseMethod(s string) (Method, error) {
	switch s {
	case "exact":
		return MethodExact, nil
	case "nearest":
		return MethodNearest, nil
	case "linear":
		return MethodLinear, nil
	}
	return 0, fmt.Errorf("unknown query method %q", s)
}

// Query answers a lookup for one value spec at one parameter point. Misses,
// out-of-range points, and interpolation on label columns are reported as
// typed, recoverable errors.
func (ds *Dataset) Query(specIndex int, point []float64, method Method) (*Record, error) {
	rec, err := ds.query(specIndex, point, method)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.QueriesTotal.WithLabelValues(method.String(), status).Inc()
	return rec, err
}

func (ds *Dataset) query(specIndex int, point []float64, method Method) (*Record, error) {
	if specIndex < 0 || specIndex >= len(ds.specs) {
		return nil, fmt.Errorf("value spec index %d out of range (have %d)", specIndex, len(ds.specs))
	}
	st := &ds.specs[specIndex]
	if st.err != nil {
		return nil, st.err
	}

	key, err := ds.grid.Round(point)
	if err != nil {
		return nil, err
	}

	switch method {
	case MethodExact:
		return ds.exact(st, key)
	case MethodNearest:
		if err := ds.checkExtent(point); err != nil {
			return nil, err
		}
		return ds.exact(st, ds.snapNearest(point))
	case MethodLinear:
		if err := ds.checkExtent(point); err != nil {
			return nil, err
		}
		// The exact rounded key, when present, is authoritative.
		if rec, ok := st.records[key.Surrogate()]; ok {
			return rec, nil
		}
		return ds.interpolate(st, key, point)
	}
	return nil, fmt.Errorf("unknown query method %d", int(method))
}

func (ds *Dataset) exact(st *specState, key grid.Key) (*Record, error) {
	rec, ok := st.records[key.Surrogate()]
	if !ok {
		return nil, &NotFoundError{Key: key}
	}
	return rec, nil
}

// checkExtent rejects points outside the convex extent of known keys on any
// axis. Points exactly at the boundary pass.
func (ds *Dataset) checkExtent(point []float64) error {
	for i, v := range point {
		axis := ds.grid.AxisValues(i)
		if len(axis) == 0 {
			return &NotFoundError{Key: grid.Key(point)}
		}
		min, max := axis[0], axis[len(axis)-1]
		if v < min || v > max {
			return &OutOfRangeError{
				Axis:  ds.grid.Parameters()[i].Column,
				Value: v,
				Min:   min,
				Max:   max,
			}
		}
	}
	return nil
}

func (ds *Dataset) snapNearest(point []float64) grid.Key {
	key := make(grid.Key, len(point))
	for i, v := range point {
		axis := ds.grid.AxisValues(i)
		j := sort.SearchFloat64s(axis, v)
		switch {
		case j == 0:
			key[i] = axis[0]
		case j == len(axis):
			key[i] = axis[len(axis)-1]
		case v-axis[j-1] <= axis[j]-v:
			key[i] = axis[j-1]
		default:
			key[i] = axis[j]
		}
	}
	return key
}

// interpolate fits the central value and both uncertainty bands over the
// 2^n corners bracketing the query point, in the coordinates selected by
// the dataset's Axes setting. Following the source-data convention, the
// three fitted surfaces are central, central+upper, and central-lower; the
// interpolated bands are recovered by subtraction.
func (ds *Dataset) interpolate(st *specState, key grid.Key, point []float64) (*Record, error) {
	if !st.numeric {
		return nil, &InterpolationUnsupportedError{Column: st.spec.Column}
	}

	dims := ds.grid.Dims()
	lo := make([]int, dims)
	hi := make([]int, dims)
	t := make([]float64, dims)

	for i := 0; i < dims; i++ {
		axis := ds.grid.AxisValues(i)
		v := point[i]
		j := sort.SearchFloat64s(axis, v)
		if j < len(axis) && axis[j] == v {
			lo[i], hi[i], t[i] = j, j, 0
			continue
		}
		// checkExtent guarantees axis[j-1] < v < axis[j].
		lo[i], hi[i] = j-1, j
		x0, x1, x := axis[j-1], axis[j], v
		if ds.axes.logParams() {
			var err error
			if x0, err = log10Checked(x0); err != nil {
				return nil, err
			}
			if x1, err = log10Checked(x1); err != nil {
				return nil, err
			}
			if x, err = log10Checked(x); err != nil {
				return nil, err
			}
		}
		t[i] = (x - x0) / (x1 - x0)
	}

	var f0, fp, fm float64
	for mask := 0; mask < 1<<dims; mask++ {
		w := 1.0
		corner := make(grid.Key, dims)
		for i := 0; i < dims; i++ {
			axis := ds.grid.AxisValues(i)
			if mask>>i&1 == 1 {
				corner[i] = axis[hi[i]]
				w *= t[i]
			} else {
				corner[i] = axis[lo[i]]
				w *= 1 - t[i]
			}
		}
		if w == 0 {
			continue
		}
		rec, ok := st.records[corner.Surrogate()]
		if !ok {
			return nil, &NotFoundError{Key: corner}
		}
		c, _ := rec.Central()
		y0, yp, ym := c, c+rec.UpperUncertainty, c-rec.LowerUncertainty
		if ds.axes.logValue() {
			var err error
			if y0, err = log10Checked(y0); err != nil {
				return nil, err
			}
			if yp, err = log10Checked(yp); err != nil {
				return nil, err
			}
			if ym, err = log10Checked(ym); err != nil {
				return nil, err
			}
		}
		f0 += w * y0
		fp += w * yp
		fm += w * ym
	}

	if ds.axes.logValue() {
		f0 = math.Pow(10, f0)
		fp = math.Pow(10, fp)
		fm = math.Pow(10, fm)
	}

	return &Record{
		Key:              key,
		CentralValue:     table.Number(f0),
		Unit:             ds.unitOf(st),
		LowerUncertainty: f0 - fm,
		UpperUncertainty: fp - f0,
		Attrs:            st.attrs,
	}, nil
}

func (ds *Dataset) unitOf(st *specState) string {
	if col, ok := ds.desc.Column(st.spec.Column); ok {
		return col.Unit
	}
	return ""
}

func log10Checked(v float64) (float64, error) {
	if v <= 0 {
		return 0, fmt.Errorf("log axes require positive values, got %g", v)
	}
	return math.Log10(v), nil
}
