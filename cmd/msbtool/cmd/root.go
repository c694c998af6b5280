package cmd

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-msbt/internal/config"
	"github.com/robert-malhotra/go-msbt/internal/logging"
	"github.com/robert-malhotra/go-msbt/msbp"
	"github.com/robert-malhotra/go-msbt/msbt"
)

// env is the state shared by all subcommands, set up before each run.
type env struct {
	config  *config.Config
	log     hclog.Logger
	project *msbp.Project
}

// messageOptions returns the options for opening message files.
func (e *env) messageOptions() ([]msbt.Option, error) {
	text, err := e.config.TextOptions()
	if err != nil {
		return nil, err
	}
	opts := []msbt.Option{
		msbt.WithTextOptions(text),
		msbt.WithLogger(e.log.Named("msbt")),
	}
	if e.project != nil {
		opts = append(opts, msbt.WithProject(e.project))
	}
	return opts, nil
}

// openMessages opens a message file with the configured project and options.
func (e *env) openMessages(path string) (*msbt.File, error) {
	opts, err := e.messageOptions()
	if err != nil {
		return nil, err
	}
	f, err := msbt.Open(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:   "msbtool",
		Short: "msbtool - message file toolkit",
		Long: `msbtool reads and writes MSBT message files and MSBP project files.

Messages are rendered with their control codes as readable tags. A project
file (--project, or "project:" in the config file) gives tags, colors and
attributes their names.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "YAML config file")
	flags.StringP("project", "p", "", "MSBP project file")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.Bool("shorten-tags", false, "Render unambiguous tags without their group")
	flags.Bool("shorten-pagebreak", false, "Render page breaks as <p>")
	flags.Bool("linebreak-after-pagebreak", false, "Insert a newline after each page break")
	flags.Bool("skip-ruby", false, "Drop ruby tags from rendered text")
	flags.String("color-mode", "", "Color tag form: byRGBA or byColorId")

	rootCmd.AddCommand(
		newDumpCmd(e),
		newRoundtripCmd(e),
		newExportCmd(e),
		newImportCmd(e),
		newProjectCmd(e),
	)
	return rootCmd
}

// setup loads the config file, applies flag overrides and opens the project.
func (e *env) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()

	e.config = config.DefaultConfig()
	if path, _ := flags.GetString("config"); path != "" {
		c, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		e.config = c
	}

	if flags.Changed("project") {
		e.config.Project, _ = flags.GetString("project")
	}
	if flags.Changed("log-level") {
		e.config.Logging.Level, _ = flags.GetString("log-level")
	}
	for name, dst := range map[string]*bool{
		"shorten-tags":              &e.config.Text.ShortenTags,
		"shorten-pagebreak":         &e.config.Text.ShortenPageBreak,
		"linebreak-after-pagebreak": &e.config.Text.AddLinebreakAfterPageBreak,
		"skip-ruby":                 &e.config.Text.SkipRuby,
	} {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}
	if flags.Changed("color-mode") {
		e.config.Text.ColorMode, _ = flags.GetString("color-mode")
	}
	if _, err := e.config.TextOptions(); err != nil {
		return err
	}

	e.log = logging.NewLogger("msbtool", logging.LogLevel(e.config.Logging.Level), cmd.ErrOrStderr())

	e.project = nil
	if e.config.Project != "" {
		p, err := msbp.Open(e.config.Project, msbp.WithLogger(e.log.Named("msbp")))
		if err != nil {
			return fmt.Errorf("%s: %w", e.config.Project, err)
		}
		e.project = p
		e.log.Debug("loaded project", "path", e.config.Project, "attributes", len(p.Attributes), "groups", len(p.TagGroups))
	}
	return nil
}

// Execute runs the root command.
// This is called by main.main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
