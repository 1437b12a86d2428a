package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/razeghi71/insightq/ast"
	"github.com/razeghi71/insightq/engine"
	"github.com/razeghi71/insightq/internal/logger"
	"github.com/razeghi71/insightq/output"
	"github.com/razeghi71/insightq/parser"
	"github.com/razeghi71/insightq/table"
)

// readQuery returns the query text from --query, FILE, or stdin when FILE is
// missing or "-".
func (a *app) readQuery(inline string, args []string) ([]byte, error) {
	if inline != "" {
		if len(args) > 0 {
			return nil, errors.New("pass the query either with --query or as FILE, not both")
		}
		return []byte(inline), nil
	}
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, errors.Wrap(err, "cannot read query file")
		}
		return data, nil
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read query from stdin")
	}
	return data, nil
}

// parseAndValidate runs the static checks without executing the query.
func (a *app) parseAndValidate(src []byte) (*engine.Resolved, error) {
	q, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	return engine.Validate(q, a.catalog)
}

func outcome(err error) string {
	if kind := ast.Kind(err); kind != "" {
		return kind
	}
	return "Error"
}

func newQueryCmd(a *app) *cobra.Command {
	var inline, format string
	cmd := &cobra.Command{
		Use:   "query [FILE]",
		Short: "Run a query and print the result rows",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.readQuery(inline, args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("format") {
				format = a.cfg.Output.Format
			}
			f, err := output.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			log := logger.With("query_id", uuid.NewString())
			start := time.Now()
			q, err := parser.Parse(src)
			if err != nil {
				log.Warn("query rejected", "outcome", outcome(err), "error", err)
				return err
			}
			result, res, err := engine.Run(q, a.catalog)
			if err != nil {
				if res != nil {
					log = log.With("dataset", res.DatasetID)
				}
				log.Warn("query failed", "outcome", outcome(err), "error", err)
				return err
			}
			log.Info("query finished",
				"dataset", res.DatasetID, "rows", result.Len(), "elapsed", time.Since(start))
			return f.Format(result)
		},
	}
	cmd.Flags().StringVarP(&inline, "query", "q", "", "query JSON text")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, jsonl, csv, table")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var inline string
	cmd := &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Check a query without running it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.readQuery(inline, args)
			if err != nil {
				return err
			}
			res, err := a.parseAndValidate(src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: dataset %s (%s)\n", res.DatasetID, res.Kind)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inline, "query", "q", "", "query JSON text")
	return cmd
}

func newDatasetsCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List the loaded datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			t := table.NewTable([]string{"id", "kind", "numRows"})
			for _, info := range a.catalog.List() {
				t.AddRow([]table.Value{
					table.Text(info.ID),
					table.Text(string(info.Kind)),
					table.Number(float64(info.NumRows)),
				})
			}
			return f.Format(t)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: json, jsonl, csv, table")
	return cmd
}
