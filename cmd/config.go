package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/lfbdash-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set lfbdash configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "data_dir: %s\n", cfg.DataDir)
		fmt.Fprintf(out, "discover_patterns: %s\n", strings.Join(cfg.DiscoverPatterns, ","))
		fmt.Fprintf(out, "recent_years: %d\n", cfg.RecentYears)
		fmt.Fprintf(out, "bbox_min_lat: %.4f\n", cfg.BBoxMinLat)
		fmt.Fprintf(out, "bbox_max_lat: %.4f\n", cfg.BBoxMaxLat)
		fmt.Fprintf(out, "bbox_min_lon: %.4f\n", cfg.BBoxMinLon)
		fmt.Fprintf(out, "bbox_max_lon: %.4f\n", cfg.BBoxMaxLon)
		fmt.Fprintf(out, "enforce_bbox: %t\n", cfg.EnforceBBox)
		fmt.Fprintf(out, "map_sample_default: %d\n", cfg.MapSampleDefault)
		fmt.Fprintf(out, "map_sample_min: %d\n", cfg.MapSampleMin)
		fmt.Fprintf(out, "map_sample_max: %d\n", cfg.MapSampleMax)
		fmt.Fprintf(out, "map_sample_step: %d\n", cfg.MapSampleStep)
		if cfg.SampleSeed != 0 {
			fmt.Fprintf(out, "sample_seed: %d\n", cfg.SampleSeed)
		}
		fmt.Fprintf(out, "export_file: %s\n", cfg.ExportFile)
		fmt.Fprintf(out, "serve_addr: %s\n", cfg.ServeAddr)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		next := *cfg
		if err := setKey(&next, key, val); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		*cfg = next
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	floatVal := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float for %s: %w", key, err)
		}
		return f, nil
	}
	intVal := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid int for %s: %w", key, err)
		}
		return i, nil
	}
	var err error
	switch key {
	case "data_dir":
		c.DataDir = val
	case "discover_patterns":
		c.DiscoverPatterns = cfgpkg.SplitList(val)
	case "recent_years":
		c.RecentYears, err = intVal()
	case "bbox_min_lat":
		c.BBoxMinLat, err = floatVal()
	case "bbox_max_lat":
		c.BBoxMaxLat, err = floatVal()
	case "bbox_min_lon":
		c.BBoxMinLon, err = floatVal()
	case "bbox_max_lon":
		c.BBoxMaxLon, err = floatVal()
	case "enforce_bbox":
		c.EnforceBBox, err = strconv.ParseBool(val)
		if err != nil {
			err = fmt.Errorf("invalid bool for enforce_bbox: %w", err)
		}
	case "map_sample_default":
		c.MapSampleDefault, err = intVal()
	case "map_sample_min":
		c.MapSampleMin, err = intVal()
	case "map_sample_max":
		c.MapSampleMax, err = intVal()
	case "map_sample_step":
		c.MapSampleStep, err = intVal()
	case "sample_seed":
		var i int
		i, err = intVal()
		c.SampleSeed = int64(i)
	case "export_file":
		c.ExportFile = val
	case "serve_addr":
		c.ServeAddr = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
