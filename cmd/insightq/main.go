package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/razeghi71/insightq/ast"
	"github.com/razeghi71/insightq/catalog"
	"github.com/razeghi71/insightq/internal/config"
	"github.com/razeghi71/insightq/internal/logger"
	"github.com/razeghi71/insightq/loader"
	"github.com/razeghi71/insightq/schema"
)

// Exit codes.
const (
	exitOK           = 0
	exitError        = 1
	exitInvalidQuery = 2
	exitTooLarge     = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(&app{stdin: stdin})
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(stderr, "hint:", hint)
		}
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ast.ErrInvalidQuery):
		return exitInvalidQuery
	case errors.Is(err, ast.ErrResultTooLarge):
		return exitTooLarge
	default:
		return exitError
	}
}

// app is the state shared by all commands once flags are parsed.
type app struct {
	stdin io.Reader

	configPath string
	logLevel   string
	logFormat  string
	datasets   []string

	cfg     *config.Config
	catalog *catalog.Memory
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "insightq",
		Short:         "Validate and run JSON queries over course and room datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	flags.StringArrayVar(&a.datasets, "dataset", nil, "dataset to load, as id=kind:path (repeatable)")

	root.AddCommand(newQueryCmd(a), newValidateCmd(a), newDatasetsCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})
	a.cfg = cfg

	sources := make([]loader.Source, 0, len(cfg.Datasets)+len(a.datasets))
	for _, d := range cfg.Datasets {
		kind, err := schema.ParseKind(d.Kind)
		if err != nil {
			return errors.Wrapf(err, "config dataset %q", d.ID)
		}
		sources = append(sources, loader.Source{ID: d.ID, Kind: kind, Path: d.Path})
	}
	for _, arg := range a.datasets {
		src, err := loader.ParseSource(arg)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	a.catalog = catalog.NewMemory()
	for _, src := range sources {
		ds, err := src.Dataset()
		if err != nil {
			return errors.Wrapf(err, "load dataset %q", src.ID)
		}
		if err := a.catalog.Add(ds); err != nil {
			return err
		}
	}
	return nil
}
