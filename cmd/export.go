package cmd

import (
	"bytes"
	"fmt"

	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/KaramelBytes/lfbdash-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	expSource     sourceFlags
	expView       viewFlags
	expOutputPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the filtered rows as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(&expSource, &expView)
		if err != nil {
			return err
		}
		v, err := sess.Recompute()
		if err != nil {
			return err
		}
		path := expOutputPath
		if path == "" {
			path = sess.Settings.ExportFile
		}
		if path == "-" {
			return dataset.WriteCSV(cmd.OutOrStdout(), v.Filtered)
		}
		var buf bytes.Buffer
		if err := dataset.WriteCSV(&buf, v.Filtered); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d of %d rows to %s\n", v.Filtered.NumRows(), v.TotalRows, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	expSource.bind(exportCmd)
	expView.bind(exportCmd)
	exportCmd.Flags().StringVarP(&expOutputPath, "output", "o", "", "CSV path, '-' for stdout (default: export_file)")
}
