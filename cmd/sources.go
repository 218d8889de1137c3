package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List detected dataset files and supported formats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, patterns := dataDirAndPatterns()
		found, err := dataset.Discover(dir, patterns)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Searching %s for %s\n", dir, strings.Join(patterns, ", "))
		if len(found) == 0 {
			fmt.Fprintln(out, "(no detected files)")
		}
		for i, p := range found {
			fmt.Fprintf(out, "%d. %s\n", i+1, p)
		}
		fmt.Fprintf(out, "Supported extensions: %s\n", strings.Join(dataset.Extensions(), " "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
