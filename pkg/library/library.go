// Package library manages a catalogue of named descriptor/table pairs and
// loads them into queryable datasets.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/misho104/SUSY-crosssection/pkg/dataset"
	"github.com/misho104/SUSY-crosssection/pkg/descriptor"
	"github.com/misho104/SUSY-crosssection/pkg/table"
)

// Source names the two files backing one dataset.
type Source struct {
	DescriptorPath string
	TablePath      string
}

// Config configures Load.
type Config struct {
	Logger  *slog.Logger
	Sources map[string]Source

	// Dataset is applied to every dataset load; its Logger is filled in
	// from the library logger when unset.
	Dataset dataset.Config
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Sources) == 0 {
		return errors.New("at least one source is required")
	}
	for name, src := range cfg.Sources {
		if src.DescriptorPath == "" || src.TablePath == "" {
			return fmt.Errorf("source %q: descriptor and table paths are required", name)
		}
	}
	return nil
}

// Library holds loaded datasets by name. It is immutable after Load.
type Library struct {
	log      *slog.Logger
	datasets map[string]*dataset.Dataset
}

// Load reads all configured sources concurrently, fail-fast. Each dataset
// goes through the full descriptor/table/grid pipeline once; the resulting
// handles are immutable and safe for concurrent queries.
func Load(ctx context.Context, cfg Config) (*Library, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dsCfg := cfg.Dataset
	if dsCfg.Logger == nil {
		dsCfg.Logger = cfg.Logger
	}

	lib := &Library{
		log:      cfg.Logger,
		datasets: make(map[string]*dataset.Dataset, len(cfg.Sources)),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for name, src := range cfg.Sources {
		name, src := name, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ds, err := loadOne(src, dsCfg)
			if err != nil {
				return fmt.Errorf("dataset %q: %w", name, err)
			}
			mu.Lock()
			lib.datasets[name] = ds
			mu.Unlock()
			cfg.Logger.Debug("library: dataset loaded", "name", name, "grid_points", ds.Grid().Len())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cfg.Logger.Info("library: loaded", "datasets", len(lib.datasets))
	return lib, nil
}

func loadOne(src Source, cfg dataset.Config) (*dataset.Dataset, error) {
	d, err := descriptor.Load(src.DescriptorPath)
	if err != nil {
		return nil, err
	}
	tbl, err := table.Open(src.TablePath, d)
	if err != nil {
		return nil, err
	}
	return dataset.Load(d, tbl, cfg)
}

// Names returns the sorted names of all loaded datasets.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.datasets))
	for name := range l.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dataset returns the loaded dataset with the given name.
func (l *Library) Dataset(name string) (*dataset.Dataset, error) {
	ds, ok := l.datasets[name]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q", name)
	}
	return ds, nil
}
