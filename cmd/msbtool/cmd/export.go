package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-msbt/internal/grid"
)

func newExportCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.msbt> <sheet.tsv>",
		Short: "Export messages to a tab-separated sheet",
		Long: `Export the messages, styles and attributes of a message file to a
tab-separated sheet. A sheet name ending in .zst is zstd-compressed.

Example:
  msbtool export -p Project.msbp Talk.msbt Talk.tsv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := e.openMessages(args[0])
			if err != nil {
				return err
			}
			g := grid.Export(f)
			if err := grid.Save(args[1], g); err != nil {
				return err
			}
			e.log.Info("exported sheet", "messages", len(g.Rows), "attributes", len(g.Attributes), "path", args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d messages to %s\n", len(g.Rows), args[1])
			return nil
		},
	}
}
