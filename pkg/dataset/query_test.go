package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const massGridDoc = `{
	"columns": [
		{"name": "mass", "unit": "GeV"},
		{"name": "xsec", "unit": "fb"},
		{"name": "dminus", "unit": "%"},
		{"name": "dplus", "unit": "%"}
	],
	"reader_options": {"delim_whitespace": true},
	"parameters": [{"column": "mass", "granularity": 1}],
	"values": [{
		"column": "xsec",
		"unc-": [{"column": "dminus", "type": "relative"}],
		"unc+": [{"column": "dplus", "type": "relative"}]
	}]
}`

// xsec 10 @ 100 (lower 1, upper 2) and 20 @ 200 (lower 2, upper 4).
const massGridRaw = "100 10 10 20\n200 20 10 20\n"

func TestXsec_Dataset_Query_Exact(t *testing.T) {
	t.Parallel()
	ds := loadDataset(t, massGridDoc, massGridRaw)

	t.Run("hit_returns_raw_value", func(t *testing.T) {
		t.Parallel()
		rec, err := ds.Query(0, []float64{100}, MethodExact)
		require.NoError(t, err)
		c, _ := rec.Central()
		require.Equal(t, 10.0, c)
		require.InDelta(t, 1.0, rec.LowerUncertainty, 1e-9)
		require.InDelta(t, 2.0, rec.UpperUncertainty, 1e-9)
	})

	t.Run("rounding_applies_before_lookup", func(t *testing.T) {
		t.Parallel()
		rec, err := ds.Query(0, []float64{100.2}, MethodExact)
		require.NoError(t, err)
		c, _ := rec.Central()
		require.Equal(t, 10.0, c)
	})

	t.Run("miss_is_not_found", func(t *testing.T) {
		t.Parallel()
		_, err := ds.Query(0, []float64{150}, MethodExact)
		var nf *NotFoundError
		require.True(t, errors.As(err, &nf))
		require.Contains(t, err.Error(), "150")
	})

	t.Run("spec_index_out_of_range", func(t *testing.T) {
		t.Parallel()
		_, err := ds.Query(3, []float64{100}, MethodExact)
		require.Error(t, err)
	})

	t.Run("wrong_point_dimension", func(t *testing.T) {
		t.Parallel()
		_, err := ds.Query(0, []float64{100, 200}, MethodExact)
		require.Error(t, err)
	})
}

func TestXsec_Dataset_Query_Nearest(t *testing.T) {
	t.Parallel()
	ds := loadDataset(t, massGridDoc, massGridRaw)

	t.Run("snaps_to_closest_key", func(t *testing.T) {
		t.Parallel()
		rec, err := ds.Query(0, []float64{140}, MethodNearest)
		require.NoError(t, err)
		c, _ := rec.Central()
		require.Equal(t, 10.0, c)

		rec, err = ds.Query(0, []float64{160}, MethodNearest)
		require.NoError(t, err)
		c, _ = rec.Central()
		require.Equal(t, 20.0, c)
	})

	t.Run("outside_extent_fails", func(t *testing.T) {
		t.Parallel()
		_, err := ds.Query(0, []float64{99}, MethodNearest)
		var oor *OutOfRangeError
		require.True(t, errors.As(err, &oor))
		require.Equal(t, "mass", oor.Axis)
	})
}

func TestXsec_Dataset_Query_Linear(t *testing.T) {
	t.Parallel()
	ds := loadDataset(t, massGridDoc, massGridRaw)

	t.Run("interpolates_value_and_bands", func(t *testing.T) {
		t.Parallel()
		rec, err := ds.Query(0, []float64{150}, MethodLinear)
		require.NoError(t, err)
		c, _ := rec.Central()
		require.InDelta(t, 15.0, c, 1e-9)
		require.InDelta(t, 1.5, rec.LowerUncertainty, 1e-9)
		require.InDelta(t, 3.0, rec.UpperUncertainty, 1e-9)
		require.Equal(t, "fb", rec.Unit)
	})

	t.Run("exact_grid_point_short_circuits", func(t *testing.T) {
		t.Parallel()
		rec, err := ds.Query(0, []float64{200}, MethodLinear)
		require.NoError(t, err)
		c, _ := rec.Central()
		require.Equal(t, 20.0, c)
	})

	t.Run("boundary_succeeds_outside_fails", func(t *testing.T) {
		t.Parallel()
		_, err := ds.Query(0, []float64{100}, MethodLinear)
		require.NoError(t, err)
		_, err = ds.Query(0, []float64{200}, MethodLinear)
		require.NoError(t, err)

		_, err = ds.Query(0, []float64{200.4}, MethodLinear)
		var oor *OutOfRangeError
		require.True(t, errors.As(err, &oor))
	})
}

func TestXsec_Dataset_Query_Linear_TwoAxes(t *testing.T) {
	t.Parallel()

	doc := `{
		"columns": [
			{"name": "m1", "unit": "GeV"},
			{"name": "m2", "unit": "GeV"},
			{"name": "xsec", "unit": "fb"}
		],
		"reader_options": {"delim_whitespace": true},
		"parameters": [
			{"column": "m1", "granularity": 1},
			{"column": "m2", "granularity": 1}
		],
		"values": [{"column": "xsec"}]
	}`
	raw := "100 100 1\n100 200 2\n200 100 3\n200 200 4\n"
	ds := loadDataset(t, doc, raw)

	rec, err := ds.Query(0, []float64{150, 150}, MethodLinear)
	require.NoError(t, err)
	c, _ := rec.Central()
	require.InDelta(t, 2.5, c, 1e-9)

	// a missing corner is reported, not extrapolated around
	_, err = ds.Query(0, []float64{150, 150}, MethodExact)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestXsec_Dataset_Query_Linear_SparseGridCornerMissing(t *testing.T) {
	t.Parallel()

	doc := `{
		"columns": [
			{"name": "m1", "unit": "GeV"},
			{"name": "m2", "unit": "GeV"},
			{"name": "xsec", "unit": "fb"}
		],
		"reader_options": {"delim_whitespace": true},
		"parameters": [
			{"column": "m1", "granularity": 1},
			{"column": "m2", "granularity": 1}
		],
		"values": [{"column": "xsec"}]
	}`
	// corner (200, 200) absent
	raw := "100 100 1\n100 200 2\n200 100 3\n"
	ds := loadDataset(t, doc, raw)

	_, err := ds.Query(0, []float64{150, 150}, MethodLinear)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestXsec_Dataset_Query_Linear_NonNumericTarget(t *testing.T) {
	t.Parallel()

	doc := `{
		"columns": [
			{"name": "mass", "unit": "GeV"},
			{"name": "process"}
		],
		"reader_options": {"delim_whitespace": true},
		"parameters": [{"column": "mass", "granularity": 1}],
		"values": [{"column": "process"}]
	}`
	ds := loadDataset(t, doc, "100 gg\n200 sq\n")

	// exact lookup of a label column works
	rec, err := ds.Query(0, []float64{100}, MethodExact)
	require.NoError(t, err)
	require.Equal(t, "gg", rec.CentralValue.String())

	_, err = ds.Query(0, []float64{150}, MethodLinear)
	var unsupported *InterpolationUnsupportedError
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "process", unsupported.Column)
}

func TestXsec_Dataset_Query_Linear_LogLogAxes(t *testing.T) {
	t.Parallel()

	// xsec follows m^-2 exactly; a log-log fit recovers the power law at
	// the geometric midpoint.
	doc := `{
		"columns": [
			{"name": "mass", "unit": "GeV"},
			{"name": "xsec", "unit": "fb"}
		],
		"reader_options": {"delim_whitespace": true},
		"parameters": [{"column": "mass", "granularity": 1}],
		"values": [{"column": "xsec"}]
	}`
	raw := "100 1e-4\n1000 1e-6\n"
	ds := loadDataset(t, doc, raw, Config{Axes: AxesLogLog})

	rec, err := ds.Query(0, []float64{316.2277660168379}, MethodLinear)
	require.NoError(t, err)
	c, _ := rec.Central()
	require.InEpsilon(t, 1e-5, c, 1e-9)
}
