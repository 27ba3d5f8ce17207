// Package dataset resolves descriptor value specifications against a loaded
// table grid and answers point and interpolated queries. A Dataset is built
// once by Load and is immutable afterwards; all read operations are safe for
// concurrent use without locking.
package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/misho104/SUSY-crosssection/pkg/descriptor"
	"github.com/misho104/SUSY-crosssection/pkg/grid"
	"github.com/misho104/SUSY-crosssection/pkg/metrics"
	"github.com/misho104/SUSY-crosssection/pkg/table"
)

// Axes selects the coordinate scaling used by linear interpolation. The fit
// is performed in the transformed coordinates and mapped back afterwards.
type Axes int

const (
	// AxesLinear interpolates values against parameters as-is.
	AxesLinear Axes = iota
	// AxesLogValue interpolates log10 of the value.
	AxesLogValue
	// AxesLogParams interpolates against log10 of the parameters.
	AxesLogParams
	// AxesLogLog interpolates log10 of the value against log10 of the
	// parameters.
	AxesLogLog
)

func (a Axes) logParams() bool { return a == AxesLogParams || a == AxesLogLog }
func (a Axes) logValue() bool  { return a == AxesLogValue || a == AxesLogLog }

// Config configures Load.
type Config struct {
	Logger *slog.Logger

	// Axes selects interpolation coordinate scaling. Default linear.
	Axes Axes

	// ErrorOnDuplicateKey fails the load when two rows round to the same
	// grid key, instead of the default last-wins overwrite.
	ErrorOnDuplicateKey bool
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// specState holds everything resolved for one value spec: one record per
// grid key, the merged attributes, and the load-time error if the spec's
// uncertainty configuration could not be applied.
type specState struct {
	spec    descriptor.ValueSpec
	attrs   descriptor.Attrs
	records map[string]*Record
	numeric bool
	err     error
}

// Dataset is the immutable result of loading one descriptor/table pair.
type Dataset struct {
	log   *slog.Logger
	desc  *descriptor.Descriptor
	grid  *grid.Grid
	axes  Axes
	specs []specState
}

// Load runs the one-shot pipeline: grid construction, then value resolution
// and uncertainty combination for every value spec at every grid key. A spec
// whose uncertainty configuration fails is marked broken and skipped;
// queries against it return the stored error while the other specs of the
// dataset stay usable.
func Load(d *descriptor.Descriptor, tbl *table.Table, cfg Config) (*Dataset, error) {
	start := time.Now()
	ds, err := load(d, tbl, cfg)
	if err != nil {
		metrics.DatasetLoadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.DatasetLoadsTotal.WithLabelValues("ok").Inc()
	metrics.DatasetLoadDuration.Observe(time.Since(start).Seconds())
	return ds, nil
}

func load(d *descriptor.Descriptor, tbl *table.Table, cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var gridOpts []grid.Option
	if cfg.ErrorOnDuplicateKey {
		gridOpts = append(gridOpts, grid.WithErrorOnDuplicate())
	}
	g, err := grid.Build(tbl, d.Parameters, gridOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build parameter grid: %w", err)
	}

	ds := &Dataset{
		log:   cfg.Logger,
		desc:  d,
		grid:  g,
		axes:  cfg.Axes,
		specs: make([]specState, 0, len(d.Values)),
	}

	for i, spec := range d.Values {
		st := specState{
			spec:    spec,
			attrs:   d.Attrs.Merge(spec.Attrs),
			records: make(map[string]*Record, g.Len()),
			numeric: true,
		}
		for _, key := range g.Keys() {
			row, _ := g.LookupKey(key)
			rec, err := resolve(row, key, spec, d)
			if err != nil {
				st.err = err
				cfg.Logger.Warn("dataset: value spec is unusable", "spec", i, "column", spec.Column, "error", err)
				break
			}
			if !rec.CentralValue.IsNumber() {
				st.numeric = false
			}
			st.records[key.Surrogate()] = rec
		}
		ds.specs = append(ds.specs, st)
	}

	cfg.Logger.Debug("dataset: loaded",
		"rows", len(tbl.Rows), "grid_points", g.Len(), "value_specs", len(ds.specs))
	return ds, nil
}

// Descriptor returns the descriptor the dataset was loaded from.
func (ds *Dataset) Descriptor() *descriptor.Descriptor { return ds.desc }

// Grid returns the underlying parameter grid.
func (ds *Dataset) Grid() *grid.Grid { return ds.grid }

// SpecInfo describes one value specification with its resolved attributes,
// so a caller can choose among e.g. LO/NLO/NNLL variants before querying.
type SpecInfo struct {
	Index  int
	Column string
	Attrs  descriptor.Attrs

	// Err is the load-time uncertainty configuration error, nil for a
	// usable spec.
	Err error
}

// ValueSpecs lists all value specifications of the dataset.
func (ds *Dataset) ValueSpecs() []SpecInfo {
	infos := make([]SpecInfo, len(ds.specs))
	for i, st := range ds.specs {
		infos[i] = SpecInfo{Index: i, Column: st.spec.Column, Attrs: st.attrs, Err: st.err}
	}
	return infos
}
