package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/misho104/SUSY-crosssection/pkg/descriptor"
	"github.com/misho104/SUSY-crosssection/pkg/grid"
	"github.com/misho104/SUSY-crosssection/pkg/table"
)

// Record is the fully combined output for one grid point and one value spec:
// the central value, its quadrature-combined lower/upper uncertainty
// magnitudes, the unit of the target column, and the merged attributes.
type Record struct {
	Key              grid.Key
	CentralValue     table.Value
	Unit             string
	LowerUncertainty float64
	UpperUncertainty float64
	Attrs            descriptor.Attrs
}

// Central returns the numeric central value; false for label columns.
func (r *Record) Central() (float64, bool) {
	return r.CentralValue.Float()
}

func uncErrf(column, format string, args ...any) error {
	return &UncertaintyConfigError{ValueColumn: column, Msg: fmt.Sprintf(format, args...)}
}

// resolve combines one row and one value spec into a Record.
//
// Relative sources contribute |v|/100 * central, absolute sources contribute
// |v|, and each value of a signed pair routes to the lower (negative) or
// upper (positive) side by its own sign, no matter which side block declared
// the pair. Per-side contributions combine in quadrature.
func resolve(row *table.Row, key grid.Key, spec descriptor.ValueSpec, d *descriptor.Descriptor) (*Record, error) {
	central, ok := row.Value(spec.Column)
	if !ok {
		return nil, uncErrf(spec.Column, "column missing from row %d", row.Index)
	}

	var lowerSq, upperSq float64

	addPlain := func(src descriptor.UncertaintySource, sq *float64) error {
		if len(src.Columns) != 1 {
			return uncErrf(spec.Column, "%s source needs exactly one column, got %d", src.Type, len(src.Columns))
		}
		v, ok := row.Float(src.Columns[0])
		if !ok {
			return uncErrf(spec.Column, "uncertainty column %q is missing or not numeric in row %d", src.Columns[0], row.Index)
		}
		var mag float64
		switch src.Type {
		case descriptor.Relative:
			c, ok := central.Float()
			if !ok {
				return uncErrf(spec.Column, "relative uncertainty requires a numeric central value")
			}
			mag = math.Abs(v / 100 * c)
		case descriptor.Absolute:
			mag = math.Abs(v)
		default:
			return uncErrf(spec.Column, "unknown uncertainty type %q", src.Type)
		}
		*sq += mag * mag
		return nil
	}

	// A signed pair may legitimately be declared on both sides; it is
	// routed by sign and therefore processed only once.
	seenSigned := map[string]bool{}
	addSigned := func(src descriptor.UncertaintySource) error {
		if len(src.Columns) != 2 {
			return uncErrf(spec.Column, "%s source needs exactly two columns, got %d", src.Type, len(src.Columns))
		}
		id := strings.Join(src.Columns, "\x00")
		if seenSigned[id] {
			return nil
		}
		seenSigned[id] = true
		for _, col := range src.Columns {
			v, ok := row.Float(col)
			if !ok {
				return uncErrf(spec.Column, "uncertainty column %q is missing or not numeric in row %d", col, row.Index)
			}
			if v < 0 {
				lowerSq += v * v
			} else {
				upperSq += v * v
			}
		}
		return nil
	}

	for _, side := range []struct {
		sources []descriptor.UncertaintySource
		sq      *float64
	}{
		{spec.UncMinus, &lowerSq},
		{spec.UncPlus, &upperSq},
	} {
		for _, src := range side.sources {
			var err error
			if src.Type == descriptor.AbsoluteSigned {
				err = addSigned(src)
			} else {
				err = addPlain(src, side.sq)
			}
			if err != nil {
				return nil, err
			}
		}
	}

	var unit string
	if col, ok := d.Column(spec.Column); ok {
		unit = col.Unit
	}

	return &Record{
		Key:              key,
		CentralValue:     central,
		Unit:             unit,
		LowerUncertainty: math.Sqrt(lowerSq),
		UpperUncertainty: math.Sqrt(upperSq),
		Attrs:            d.Attrs.Merge(spec.Attrs),
	}, nil
}
