package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDumpCmd(e *env) *cobra.Command {
	var withAttrs bool

	dumpCmd := &cobra.Command{
		Use:   "dump <file.msbt>",
		Short: "Print the messages of a message file",
		Long: `Print every message of a message file as "[label] text".

Example:
  msbtool dump --project Project.msbp Talk.msbt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := e.openMessages(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			sections := make([]string, 0, len(f.Sections()))
			for _, s := range f.Sections() {
				sections = append(sections, string(s))
			}
			fmt.Fprintf(out, "# encoding=%s version=%d sections=%s messages=%d\n",
				f.Header.Encoding, f.Header.Version, strings.Join(sections, ","), f.Messages.Len())

			for key, m := range f.Messages.AllFromFront() {
				fmt.Fprintf(out, "[%s] %s\n", key, m.Text)
				if !withAttrs {
					continue
				}
				if m.StyleID >= 0 {
					fmt.Fprintf(out, "  style=%d\n", m.StyleID)
				}
				for name, v := range m.Attributes.AllFromFront() {
					fmt.Fprintf(out, "  %s=%s\n", name, v)
				}
			}
			return nil
		},
	}
	dumpCmd.Flags().BoolVarP(&withAttrs, "attributes", "a", false, "Also print styles and attributes")
	return dumpCmd
}
