package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-msbt/internal/grid"
)

func newImportCmd(e *env) *cobra.Command {
	var output string

	importCmd := &cobra.Command{
		Use:   "import <file.msbt> <sheet.tsv>",
		Short: "Apply an edited sheet to a message file",
		Long: `Apply the rows of a sheet written by export to a message file. Only rows
edited since export are re-encoded; rows with new labels are added.

Example:
  msbtool import -p Project.msbp Talk.msbt Talk.tsv -o Talk.new.msbt`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := e.openMessages(args[0])
			if err != nil {
				return err
			}
			g, err := grid.Load(args[1])
			if err != nil {
				return err
			}
			changed, err := grid.Apply(g, f)
			if err != nil {
				return err
			}

			dst := output
			if dst == "" {
				dst = args[0]
			}
			if err := f.Save(dst); err != nil {
				return err
			}
			e.log.Info("imported sheet", "changed", changed, "path", dst)
			fmt.Fprintf(cmd.OutOrStdout(), "%d messages changed, wrote %s\n", changed, dst)
			return nil
		},
	}
	importCmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: overwrite the message file)")
	return importCmd
}
