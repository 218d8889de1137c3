package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/lfbdash-cli/internal/analysis"
	"github.com/KaramelBytes/lfbdash-cli/internal/render"
	"github.com/KaramelBytes/lfbdash-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	chSource sourceFlags
	chView   viewFlags
	chOutDir string
	chViews  []string
	chMedian bool
	chQuiet  bool
)

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Render the trend, comparison and map charts as PNG files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defs := analysis.Views
		if len(chViews) > 0 {
			defs = nil
			for _, name := range chViews {
				d, err := analysis.LookupView(name)
				if err != nil {
					return err
				}
				defs = append(defs, d)
			}
		}
		sess, err := openSession(&chSource, &chView)
		if err != nil {
			return err
		}
		v, err := sess.Recompute()
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(chOutDir); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		metric := render.MetricIncidents
		if chMedian {
			metric = render.MetricMedian
		}

		total := len(defs) + 1
		written := 0
		for i, d := range defs {
			if !chQuiet {
				fmt.Fprintf(out, "[%d/%d] Rendering %s...\n", i+1, total, d.Title)
			}
			rows, err := v.Section(d.Name)
			if err != nil {
				// Missing columns skip the chart, not the run
				fmt.Fprintf(out, "⚠ Skipped %s: %v\n", d.Title, err)
				continue
			}
			if d.Name != analysis.ViewMonthly && !analysis.HasMedians(rows) {
				fmt.Fprintf(out, "⚠ Skipped %s: no response times\n", d.Title)
				continue
			}
			var png []byte
			if d.Name == analysis.ViewMonthly {
				png, err = render.TrendChart(rows, metric)
			} else {
				png, err = render.BarChart(d.Title, rows)
			}
			if errors.Is(err, render.ErrNoData) {
				fmt.Fprintf(out, "⚠ Skipped %s: no data\n", d.Title)
				continue
			}
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(filepath.Join(chOutDir, string(d.Name)+".png"), png); err != nil {
				return err
			}
			written++
		}

		if !chQuiet {
			fmt.Fprintf(out, "[%d/%d] Rendering map...\n", total, total)
		}
		switch {
		case v.Map == nil:
			fmt.Fprintf(out, "⚠ Skipped map: %s\n", v.MapError)
		case len(v.Map.Sample) == 0:
			fmt.Fprintln(out, "⚠ Skipped map: no usable coordinates")
		default:
			bbox := &v.Map.BBox
			if !v.Map.EnforceBBox {
				bbox = nil
			}
			png, err := render.MapPlot(v.Map.Sample, bbox)
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(filepath.Join(chOutDir, "map.png"), png); err != nil {
				return err
			}
			written++
		}
		fmt.Fprintf(out, "✓ Wrote %d chart(s) to %s\n", written, chOutDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartsCmd)
	chSource.bind(chartsCmd)
	chView.bind(chartsCmd)
	chartsCmd.Flags().StringVarP(&chOutDir, "out-dir", "o", "charts", "directory for PNG files")
	chartsCmd.Flags().StringSliceVar(&chViews, "view", nil, "views to render: monthly|boroughs|groups|hours|weekdays (default: all)")
	chartsCmd.Flags().BoolVar(&chMedian, "median", false, "plot monthly median response instead of incident counts")
	chartsCmd.Flags().BoolVar(&chQuiet, "quiet", false, "suppress progress output")
}
