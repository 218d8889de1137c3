package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, c.RecentYears)
	assert.Equal(t, 51.2, c.BBoxMinLat)
	assert.Equal(t, 0.3, c.BBoxMaxLon)
	assert.True(t, c.EnforceBBox)
	assert.Equal(t, 3000, c.MapSampleDefault)
	assert.Equal(t, "lfb_filtered.csv", c.ExportFile)
	assert.Len(t, c.DiscoverPatterns, 2)
}

func TestEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recent_years: 5\nexport_file: out.csv\n"), 0o644))
	t.Setenv("LFBDASH_EXPORT_FILE", "env.csv")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.RecentYears)
	assert.Equal(t, "env.csv", c.ExportFile)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	c.RecentYears = 2
	c.DiscoverPatterns = SplitList("a*.csv, b*.parquet")
	require.NoError(t, Save(c, ""))

	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, again.RecentYears)
	assert.Equal(t, []string{"a*.csv", "b*.parquet"}, again.DiscoverPatterns)
}

func TestValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	c.BBoxMinLat, c.BBoxMaxLat = 52, 51
	assert.Error(t, c.Validate())
}
