package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rfpquote/backend/config"
	"github.com/rfpquote/backend/internal/bootstrap"
	"github.com/rfpquote/backend/internal/observability"
	"github.com/rfpquote/backend/internal/usecase"
	"github.com/spf13/cobra"
)

// options holds the flags shared by every subcommand
type options struct {
	catalogFile string
	vendors     []string
	topK        int
	threshold   float64
	verbose     bool
}

// overrides maps the flags that were set onto configuration keys
func (o *options) overrides(cmd *cobra.Command) map[string]interface{} {
	values := make(map[string]interface{})
	if o.catalogFile != "" {
		values["catalog.payload_file"] = o.catalogFile
	}
	if cmd.Flags().Changed("threshold") {
		values["matching.threshold"] = o.threshold
	}
	if cmd.Flags().Changed("top-k") {
		values["matching.top_k"] = o.topK
	}
	return values
}

// service loads configuration and wires the availability service
func (o *options) service(ctx context.Context, cmd *cobra.Command, stderr io.Writer) (*usecase.AvailabilityService, bootstrap.Closer, error) {
	cfg, err := config.LoadWith(o.overrides(cmd))
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      stderr,
		ServiceName: "rfpmatch",
	})

	return bootstrap.NewAvailabilityService(ctx, cfg, logger)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "rfpmatch",
		Short: "Match RFP line items against vendor furniture catalogs",
		Long: `rfpmatch runs the hybrid lexical and semantic matcher from the command line.
Configuration is read the same way as the server (config.yaml, .env and RFPQUOTE_*
variables); the flags below override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.catalogFile, "catalog", "", "price list JSON file to match against instead of the vendor API")
	flags.StringSliceVar(&opts.vendors, "vendor", nil, "vendor code to include (repeatable; default all vendors)")
	flags.IntVar(&opts.topK, "top-k", usecase.DefaultTopK, "lexical candidates rescored per query")
	flags.Float64Var(&opts.threshold, "threshold", usecase.DefaultThreshold, "minimum combined score for a match")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log matcher diagnostics to stderr")

	root.AddCommand(newSearchCmd(opts), newAvailabilityCmd(opts), newProductsCmd(opts))
	return root
}

// execute runs the CLI and returns the process exit code.
// Errors are printed to stdout as {"error": "..."}.
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		writeJSON(stdout, map[string]string{"error": err.Error()})
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
