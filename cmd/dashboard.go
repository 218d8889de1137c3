package cmd

import (
	"fmt"

	"github.com/KaramelBytes/lfbdash-cli/internal/dashboard"
	"github.com/KaramelBytes/lfbdash-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	dashSource     sourceFlags
	dashView       viewFlags
	dashOutputPath string
	dashJSON       bool
	dashCards      bool
	dashPreview    int
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Load the dataset, apply filters and print the dashboard report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(&dashSource, &dashView)
		if err != nil {
			return err
		}
		v, err := sess.Recompute()
		if err != nil {
			return err
		}

		var out []byte
		if dashJSON {
			out, err = utils.PrettyJSON(v)
			if err != nil {
				return err
			}
		} else {
			md := v.Markdown()
			if dashPreview > 0 {
				md += "\n" + v.Preview(dashPreview)
			}
			out = []byte(md)
		}

		// Decide where to write: --output path or stdout
		if dashOutputPath != "" {
			if err := utils.SafeWriteFile(dashOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote dashboard to %s\n", dashOutputPath)
			return nil
		}
		if dashCards && !dashJSON {
			fmt.Fprintln(cmd.OutOrStdout(), dashboard.KPICards(v.KPIs))
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashSource.bind(dashboardCmd)
	dashView.bind(dashboardCmd)
	dashboardCmd.Flags().StringVarP(&dashOutputPath, "output", "o", "", "optional path to write the report")
	dashboardCmd.Flags().BoolVar(&dashJSON, "json", false, "emit the view as JSON instead of Markdown")
	dashboardCmd.Flags().BoolVar(&dashCards, "cards", false, "print KPI cards above the report")
	dashboardCmd.Flags().IntVar(&dashPreview, "preview", 0, "append the first N filtered rows to the report")
}
