package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-msbt/msbp"
	"github.com/robert-malhotra/go-msbt/msbt"
)

// errRoundtrip is returned when any file fails to recompile to its own bytes.
var errRoundtrip = errors.New("round trip mismatch")

func newRoundtripCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "roundtrip <file>...",
		Short: "Check that files recompile to identical bytes",
		Long: `Parse and recompile each file and compare digests of the input and output.
Files ending in .msbp are treated as projects; everything else as messages.

Example:
  msbtool roundtrip -p Project.msbp *.msbt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				in, got, err := e.recompile(path)
				if err != nil {
					fmt.Fprintf(out, "ERROR    %s: %v\n", path, err)
					failed++
					continue
				}
				want, have := xxhash.Sum64(in), xxhash.Sum64(got)
				if want != have || len(in) != len(got) {
					fmt.Fprintf(out, "MISMATCH %s %016x -> %016x (%d -> %d bytes)\n", path, want, have, len(in), len(got))
					failed++
					continue
				}
				fmt.Fprintf(out, "ok       %s %016x\n", path, want)
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d files", errRoundtrip, failed, len(args))
			}
			return nil
		},
	}
}

// recompile returns a file's bytes and the bytes it compiles back to.
func (e *env) recompile(path string) ([]byte, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	if strings.HasSuffix(strings.ToLower(path), ".msbp") {
		p, err := msbp.Parse(data, msbp.WithLogger(e.log.Named("msbp")))
		if err != nil {
			return nil, nil, err
		}
		out, err := p.Compile()
		return data, out, err
	}

	opts, err := e.messageOptions()
	if err != nil {
		return nil, nil, err
	}
	f, err := msbt.Parse(data, opts...)
	if err != nil {
		return nil, nil, err
	}
	out, err := f.Compile()
	return data, out, err
}
