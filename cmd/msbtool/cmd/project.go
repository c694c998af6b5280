package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-msbt/msbp"
)

func newProjectCmd(e *env) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Inspect and rewrite project files",
	}

	projectCmd.AddCommand(&cobra.Command{
		Use:   "dump <file.msbp>",
		Short: "Print the schema of a project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := msbp.Open(args[0], msbp.WithLogger(e.log.Named("msbp")))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			printProject(cmd.OutOrStdout(), p)
			return nil
		},
	})

	projectCmd.AddCommand(&cobra.Command{
		Use:   "compile <in.msbp> <out.msbp>",
		Short: "Parse a project file and write it back",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := msbp.Open(args[0], msbp.WithLogger(e.log.Named("msbp")))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if err := p.Save(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[1])
			return nil
		},
	})

	return projectCmd
}

func printProject(w io.Writer, p *msbp.Project) {
	sections := make([]string, 0, len(p.Sections()))
	for _, s := range p.Sections() {
		sections = append(sections, string(s))
	}
	fmt.Fprintf(w, "=== Project (version %d, %s) ===\n", p.Header.Version, p.Header.Encoding)
	fmt.Fprintf(w, "Sections: %s\n\n", strings.Join(sections, ","))

	fmt.Fprintf(w, "Tag groups: %d\n", len(p.TagGroups))
	for gi, g := range p.TagGroups {
		fmt.Fprintf(w, "  [%d] %s (id %d)\n", p.GroupCode(gi), g.Name, g.ID)
		for ti, t := range g.Tags {
			params := make([]string, 0, len(t.Params))
			for _, prm := range t.Params {
				s := prm.Name + ":" + prm.Type.String()
				if prm.Enum != nil {
					s += "{" + strings.Join(prm.Enum.Items(), "|") + "}"
				}
				params = append(params, s)
			}
			fmt.Fprintf(w, "    [%d] %s(%s)\n", ti, t.Name, strings.Join(params, ", "))
		}
	}

	fmt.Fprintf(w, "Colors: %d\n", p.Colors.Len())
	for name, c := range p.Colors.AllFromFront() {
		fmt.Fprintf(w, "  %s %s\n", name, c)
	}

	fmt.Fprintf(w, "Attributes: %d\n", len(p.Attributes))
	for _, a := range p.Attributes {
		fmt.Fprintf(w, "  %s %s @%d", a.Name, a.Type, a.Offset)
		if a.Enum != nil {
			fmt.Fprintf(w, " {%s}", strings.Join(a.Enum.Items(), "|"))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Styles: %d\n", len(p.Styles))
	for i, s := range p.Styles {
		fmt.Fprintf(w, "  [%d] %s width=%d lines=%d font=%d color=%d\n",
			i, s.Name, s.RegionWidth, s.LineCount, s.FontID, s.BaseColorID)
	}

	if len(p.SourceFiles) > 0 {
		fmt.Fprintf(w, "Sources: %s\n", strings.Join(p.SourceFiles, ", "))
	}
}
