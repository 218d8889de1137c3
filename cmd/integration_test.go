package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const sampleCSV = `IncidentNumber,IncidentGroup,Borough,DateTimeOfCall,year,month,hour,dow,response_time_min,mobilisation_time_min,travel_time_min,Latitude,Longitude
1,Fire,CAMDEN,2023-01-03 10:00:00,2023,1,10,Monday,5,1,4,51.54,-0.14
2,False Alarm,CAMDEN,2023-02-07 11:00:00,2023,2,11,Tuesday,6,1.5,4.5,51.55,-0.15
3,Fire,HACKNEY,2024-02-08 12:00:00,2024,2,12,Wednesday,7,2,5,51.55,-0.05
4,Special Service,HACKNEY,2024-03-01 13:00:00,2024,3,13,Friday,8,2,6,NULL,-0.06
`

// resetFlags clears state that persists between rootCmd executions.
func resetFlags() {
	cfgFile, debug, dataDir = "", false, ""
	dashSource, dashView = sourceFlags{}, viewFlags{}
	dashOutputPath, dashJSON, dashCards, dashPreview = "", false, false, 0
	expSource, expView, expOutputPath = sourceFlags{}, viewFlags{}, ""
	chSource, chView = sourceFlags{}, viewFlags{}
	chOutDir, chViews, chMedian, chQuiet = "charts", nil, false, false
	var clear func(c *cobra.Command)
	clear = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) { f.Changed = false })
		}
		for _, sub := range c.Commands() {
			clear(sub)
		}
	}
	clear(rootCmd)
}

func execCmd(args ...string) (string, error) {
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

// setupHome isolates config under a temp HOME and writes a detectable dataset.
func setupHome(t *testing.T) (home, data string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	data = filepath.Join(home, "data")
	if err := os.MkdirAll(data, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(data, "lfb_fact_incident_kpi.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return home, data
}

func TestCLI_SourcesAndDashboard(t *testing.T) {
	home, data := setupHome(t)

	out := runCmd(t, "sources", "--data-dir", data)
	if !strings.Contains(out, "1. ") || !strings.Contains(out, "lfb_fact_incident_kpi.csv") {
		t.Fatalf("expected detected file, got:\n%s", out)
	}

	report := filepath.Join(home, "out", "report.md")
	runCmd(t, "dashboard", "--data-dir", data, "--output", report)
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	for _, want := range []string{"[KPIS]", "[BOROUGHS]", "- Incidents: 4", "detected file"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("report missing %q", want)
		}
	}

	out = runCmd(t, "dashboard", "--data-dir", data, "--preview", "2")
	if !strings.Contains(out, "[DATA] first 2 of 4 filtered rows") {
		t.Errorf("expected data preview, got:\n%s", out)
	}

	out = runCmd(t, "dashboard", "--data-dir", data, "--borough", "CAMDEN", "--json")
	if !strings.Contains(out, `"incidents": 2`) {
		t.Errorf("expected 2 CAMDEN incidents in JSON, got:\n%s", out)
	}
}

func TestCLI_ExplicitPathWinsOverDetected(t *testing.T) {
	home, data := setupHome(t)
	other := filepath.Join(home, "other.csv")
	if err := os.WriteFile(other, []byte(strings.SplitN(sampleCSV, "\n", 3)[0]+"\n"+strings.SplitN(sampleCSV, "\n", 3)[1]+"\n"), 0o644); err != nil {
		t.Fatalf("write other: %v", err)
	}
	out := runCmd(t, "dashboard", "--data-dir", data, "--path", other, "--all-years")
	if !strings.Contains(out, "typed path") || !strings.Contains(out, "- Incidents: 1") {
		t.Errorf("expected the typed path to be used, got:\n%s", out)
	}
}

func TestCLI_ExportAndCharts(t *testing.T) {
	home, data := setupHome(t)

	csvPath := filepath.Join(home, "filtered.csv")
	runCmd(t, "export", "--data-dir", data, "--type", "Fire", "-o", csvPath)
	b, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 Fire rows, got %d lines:\n%s", len(lines), b)
	}

	dir := filepath.Join(home, "charts")
	runCmd(t, "charts", "--data-dir", data, "-o", dir, "--quiet")
	for _, name := range []string{"monthly.png", "boroughs.png", "groups.png", "hours.png", "weekdays.png", "map.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing chart %s: %v", name, err)
		}
	}
}

func TestCLI_NoDataFails(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	_, err := execCmd("dashboard", "--data-dir", home)
	if err == nil || !strings.Contains(err.Error(), "no data loaded") {
		t.Fatalf("expected no data error, got %v", err)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	runCmd(t, "config", "set", "recent_years", "5")
	runCmd(t, "config", "set", "discover_patterns", "a*.csv, b*.parquet")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "recent_years: 5") || !strings.Contains(out, "discover_patterns: a*.csv,b*.parquet") {
		t.Fatalf("unexpected config show output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".lfbdash", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	if _, err := execCmd("config", "set", "recent_years", "0"); err == nil {
		t.Error("expected validation error for recent_years=0")
	}
	if _, err := execCmd("config", "set", "nope", "1"); err == nil {
		t.Error("expected error for unknown key")
	}
}
