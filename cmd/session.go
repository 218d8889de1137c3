package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/KaramelBytes/lfbdash-cli/internal/dashboard"
	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/KaramelBytes/lfbdash-cli/internal/filter"
	"github.com/spf13/cobra"
)

// sourceFlags select where the dataset comes from.
type sourceFlags struct {
	path   string
	pick   string
	upload string
}

func (f *sourceFlags) bind(c *cobra.Command) {
	c.Flags().StringVar(&f.path, "path", "", "full path to a CSV/TSV or Parquet file")
	c.Flags().StringVar(&f.pick, "pick", "", "detected file to use: name or 1-based index (default: first detected)")
	c.Flags().StringVar(&f.upload, "upload", "", "read a file as if uploaded (content-addressed cache)")
}

// viewFlags hold the filter and map controls.
type viewFlags struct {
	years     []string
	allYears  bool
	types     []string
	boroughs  []string
	noBBox    bool
	mapSample int
}

func (f *viewFlags) bind(c *cobra.Command) {
	c.Flags().StringSliceVar(&f.years, "year", nil, "years to include (repeatable; default: most recent years)")
	c.Flags().BoolVar(&f.allYears, "all-years", false, "do not restrict by year")
	c.Flags().StringSliceVar(&f.types, "type", nil, "incident types to include (repeatable; default: all)")
	c.Flags().StringSliceVar(&f.boroughs, "borough", nil, "boroughs to include (repeatable; default: all)")
	c.Flags().BoolVar(&f.noBBox, "no-bbox", false, "do not restrict map points to the bounding box")
	c.Flags().IntVar(&f.mapSample, "map-sample", 0, "map sample size (0 = default)")
}

func dataDirAndPatterns() (string, []string) {
	if cfg == nil {
		return ".", dataset.DefaultPatterns
	}
	return cfg.DataDir, cfg.DiscoverPatterns
}

// sources turns the flags into loader sources. Resolve applies precedence.
func (f *sourceFlags) sources() ([]dataset.Source, error) {
	var out []dataset.Source
	if f.path != "" {
		out = append(out, dataset.PathSource(f.path))
	}
	dir, patterns := dataDirAndPatterns()
	found, err := dataset.Discover(dir, patterns)
	if err != nil {
		return nil, err
	}
	if f.pick != "" {
		match := ""
		if i, err := strconv.Atoi(f.pick); err == nil {
			if i < 1 || i > len(found) {
				return nil, fmt.Errorf("--pick %d out of range (%d detected files)", i, len(found))
			}
			match = found[i-1]
		} else {
			for _, p := range found {
				if p == f.pick || filepath.Base(p) == f.pick {
					match = p
					break
				}
			}
			if match == "" {
				return nil, fmt.Errorf("no detected file named %q", f.pick)
			}
		}
		out = append(out, dataset.DiscoveredSource(match))
	} else if len(found) > 0 {
		out = append(out, dataset.DiscoveredSource(found[0]))
	}
	if f.upload != "" {
		data, err := os.ReadFile(f.upload)
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		out = append(out, dataset.UploadSource(filepath.Base(f.upload), data))
	}
	return out, nil
}

// openSession loads the dataset and applies the filter and map flags.
func openSession(sf *sourceFlags, vf *viewFlags) (*dashboard.Session, error) {
	srcs, err := sf.sources()
	if err != nil {
		return nil, err
	}
	sess := dashboard.NewSession("cli", dashboard.SettingsFromConfig(cfg))
	if err := sess.Open(dataset.NewLoader(logger), srcs...); err != nil {
		return nil, err
	}
	for _, le := range sess.Failures() {
		fmt.Fprintf(os.Stderr, "⚠ Skipped %v\n", le)
	}
	if vf == nil {
		return sess, nil
	}
	st := sess.State()
	sets := []struct {
		facet  filter.Facet
		values []string
	}{
		{filter.FacetYear, vf.years},
		{filter.FacetType, vf.types},
		{filter.FacetBorough, vf.boroughs},
	}
	if vf.allYears {
		st.SetYears(nil)
	}
	for _, s := range sets {
		if len(s.values) == 0 {
			continue
		}
		rejected, err := st.Set(s.facet, s.values)
		if err != nil {
			return nil, err
		}
		if len(rejected) > 0 {
			fmt.Fprintf(os.Stderr, "⚠ Ignored unknown %s values: %v\n", s.facet, rejected)
		}
	}
	if vf.noBBox {
		sess.Map.EnforceBBox = false
	}
	sess.Map.SampleSize = vf.mapSample
	return sess, nil
}
