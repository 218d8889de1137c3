package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	DataDir          string   `mapstructure:"data_dir" yaml:"data_dir"`
	DiscoverPatterns []string `mapstructure:"discover_patterns" yaml:"discover_patterns"`
	RecentYears      int      `mapstructure:"recent_years" yaml:"recent_years"`

	// Bounding box for map points
	BBoxMinLat  float64 `mapstructure:"bbox_min_lat" yaml:"bbox_min_lat"`
	BBoxMaxLat  float64 `mapstructure:"bbox_max_lat" yaml:"bbox_max_lat"`
	BBoxMinLon  float64 `mapstructure:"bbox_min_lon" yaml:"bbox_min_lon"`
	BBoxMaxLon  float64 `mapstructure:"bbox_max_lon" yaml:"bbox_max_lon"`
	EnforceBBox bool    `mapstructure:"enforce_bbox" yaml:"enforce_bbox"`

	// Map sampling
	MapSampleDefault int   `mapstructure:"map_sample_default" yaml:"map_sample_default"`
	MapSampleMin     int   `mapstructure:"map_sample_min" yaml:"map_sample_min"`
	MapSampleMax     int   `mapstructure:"map_sample_max" yaml:"map_sample_max"`
	MapSampleStep    int   `mapstructure:"map_sample_step" yaml:"map_sample_step"`
	SampleSeed       int64 `mapstructure:"sample_seed" yaml:"sample_seed"`

	ExportFile string `mapstructure:"export_file" yaml:"export_file"`
	ServeAddr  string `mapstructure:"serve_addr" yaml:"serve_addr"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
}

// Dir returns ~/.lfbdash.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".lfbdash"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.lfbdash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("LFBDASH")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data_dir", ".")
	v.SetDefault("discover_patterns", []string{"lfb_fact_incident_kpi*.parquet", "lfb_fact_incident_kpi*.csv"})
	v.SetDefault("recent_years", 3)
	v.SetDefault("bbox_min_lat", 51.2)
	v.SetDefault("bbox_max_lat", 51.8)
	v.SetDefault("bbox_min_lon", -0.6)
	v.SetDefault("bbox_max_lon", 0.3)
	v.SetDefault("enforce_bbox", true)
	// Map sample slider
	v.SetDefault("map_sample_default", 3000)
	v.SetDefault("map_sample_min", 500)
	v.SetDefault("map_sample_max", 20000)
	v.SetDefault("map_sample_step", 500)
	v.SetDefault("sample_seed", 0)
	v.SetDefault("export_file", "lfb_filtered.csv")
	v.SetDefault("serve_addr", "127.0.0.1:8501")
	v.SetDefault("log_level", "info")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// A comma-separated env value arrives as a single element.
	if len(c.DiscoverPatterns) == 1 && strings.Contains(c.DiscoverPatterns[0], ",") {
		c.DiscoverPatterns = splitList(c.DiscoverPatterns[0])
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ranges that would make the dashboard misbehave.
func (c *Global) Validate() error {
	if c.RecentYears < 1 {
		return fmt.Errorf("recent_years must be at least 1, got %d", c.RecentYears)
	}
	if c.BBoxMinLat > c.BBoxMaxLat || c.BBoxMinLon > c.BBoxMaxLon {
		return fmt.Errorf("bounding box is inverted: lat %.4f..%.4f lon %.4f..%.4f",
			c.BBoxMinLat, c.BBoxMaxLat, c.BBoxMinLon, c.BBoxMaxLon)
	}
	if c.MapSampleMin < 1 || c.MapSampleMax < c.MapSampleMin {
		return fmt.Errorf("map sample bounds invalid: %d..%d", c.MapSampleMin, c.MapSampleMax)
	}
	if c.MapSampleStep < 1 {
		return fmt.Errorf("map_sample_step must be positive, got %d", c.MapSampleStep)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitList parses a comma-separated value as used by `config set`.
func SplitList(s string) []string { return splitList(s) }
