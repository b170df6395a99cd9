package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/OAT7963/mae-pdf-processing/internal/batch"
	"github.com/OAT7963/mae-pdf-processing/internal/config"
	"github.com/OAT7963/mae-pdf-processing/internal/extractor"
	"github.com/OAT7963/mae-pdf-processing/internal/logger"
	"github.com/OAT7963/mae-pdf-processing/internal/models"
	"github.com/OAT7963/mae-pdf-processing/internal/writer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <file|dir>...",
		Short: "Convert statements to CSV, Excel, OFX or SQLite",
		Long: `Convert reconstructs the transactions of every statement given and writes
them to one output file. Directories are scanned (not recursively) for .pdf
and .txt files.

A document that fails is reported and skipped; the rest of the batch is
still written. The output type follows the --output extension:
.csv, .xlsx, .ofx/.qfx or .db/.sqlite.`,
		Example: `  # Auto-detect formats and write an Excel workbook
  maepdf convert statements/

  # Force the MAE format and write CSV
  maepdf convert --format maybank-mae --output mae.csv MAE_20240215.pdf

  # Append a run to a SQLite database
  maepdf convert --output ledger.db jan.pdf feb.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := convertOptionsFrom(appConfig)
			opts.header, _ = cmd.Flags().GetBool("header")
			return runConvert(cmd.Context(), opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringP("format", "f", "", "statement format (see 'maepdf formats'); auto-detected when empty")
	cmd.Flags().StringP("output", "o", "transactions.xlsx", "output file; the extension picks the writer")
	cmd.Flags().IntP("workers", "w", 0, "documents processed in parallel (default: number of CPUs)")
	cmd.Flags().Int("max-reconcile-iterations", 0, "cap on balance reconciliation passes")
	cmd.Flags().Bool("debug", false, "print how every line was classified")
	cmd.Flags().Bool("no-pdftotext", false, "do not fall back to poppler's pdftotext")
	cmd.Flags().Bool("header", true, "include metadata comment rows in CSV output")

	_ = viper.BindPFlag("convert.format", cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("convert.output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("convert.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("convert.max_reconcile_iterations", cmd.Flags().Lookup("max-reconcile-iterations"))
	_ = viper.BindPFlag("convert.debug", cmd.Flags().Lookup("debug"))
	_ = viper.BindPFlag("convert.disable_pdftotext", cmd.Flags().Lookup("no-pdftotext"))

	return cmd
}

type convertOptions struct {
	formatFiles      []string
	format           string
	output           string
	workers          int
	maxIterations    int
	debug            bool
	disablePdftotext bool
	header           bool
	progress         bool
}

func convertOptionsFrom(cfg *config.Config) convertOptions {
	return convertOptions{
		formatFiles:      cfg.FormatFiles,
		format:           cfg.Convert.Format,
		output:           cfg.Convert.Output,
		workers:          cfg.Convert.Workers,
		maxIterations:    cfg.Convert.MaxReconcileIterations,
		debug:            cfg.Convert.Debug,
		disablePdftotext: cfg.Convert.DisablePdftotext,
		header:           true,
		progress:         true,
	}
}

func runConvert(ctx context.Context, opts convertOptions, args []string, stdout, stderr io.Writer) error {
	log := logger.FromContext(ctx)

	out, err := writer.ForPath(opts.output)
	if err != nil {
		return err
	}
	if csvOut, ok := out.(*writer.CSVWriter); ok {
		csvOut.IncludeHeader = opts.header
	}

	registry, err := config.NewRegistry(opts.formatFiles)
	if err != nil {
		return err
	}
	if opts.format != "" {
		if _, err := registry.Lookup(models.FormatID(opts.format)); err != nil {
			return err
		}
	}

	inputs, err := batch.CollectInputs(args)
	if err != nil {
		return err
	}

	proc := &batch.Processor{
		Registry:               registry,
		Source:                 &extractor.Extractor{DisablePdftotext: opts.disablePdftotext},
		Format:                 models.FormatID(opts.format),
		Workers:                opts.workers,
		MaxReconcileIterations: opts.maxIterations,
		Debug:                  opts.debug,
	}
	if opts.progress {
		proc.Progress = stderr
	}

	report, runErr := proc.Run(ctx, inputs)
	if report == nil {
		return runErr
	}

	if opts.debug {
		printDebug(stdout, report)
	}

	statements := report.Statements()
	if report.Transactions() > 0 {
		if sqlOut, ok := out.(*writer.SQLiteWriter); ok {
			sqlOut.RunID = report.RunID
		}
		if err := out.WriteFile(opts.output, statements); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.output, err)
		}
		log.Info().Str("output", opts.output).Str("run", report.RunID).Msg("wrote output")
	}

	printSummary(stdout, report, opts.output)

	if runErr != nil {
		return runErr
	}
	if succeeded, _, _ := report.Counts(); succeeded == 0 {
		return fmt.Errorf("no transactions found in %d document(s)", len(inputs))
	}
	return nil
}

// printSummary lists every document with its outcome, then the batch totals.
func printSummary(w io.Writer, report *batch.Report, output string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Conversion summary"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		headerStyle.Render("Document"),
		headerStyle.Render("Format"),
		headerStyle.Render("Rows"),
		headerStyle.Render("Status"))
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 24),
		strings.Repeat("─", 14),
		strings.Repeat("─", 4),
		strings.Repeat("─", 30))

	for _, res := range report.Results {
		name := filepath.Base(res.Path)
		format := "-"
		if res.Statement != nil {
			format = string(res.Statement.Format)
		}
		switch {
		case res.Err != nil:
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, format, "-", errorStyle.Render(res.Err.Error()))
		case res.Empty():
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", name, format, 0, warningStyle.Render("no transactions found"))
		default:
			status := successStyle.Render("ok")
			if n := len(res.Statement.Warnings); n > 0 {
				status = warningStyle.Render(fmt.Sprintf("ok, %d warning(s)", n))
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", name, format, len(res.Statement.Transactions), status)
		}
	}
	tw.Flush()

	for _, res := range report.Results {
		if res.Statement == nil {
			continue
		}
		for _, warn := range res.Statement.Warnings {
			msg := warn.Message
			if warn.Row > 0 {
				msg = fmt.Sprintf("row %d: %s", warn.Row, msg)
			}
			fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("  %s: %s", filepath.Base(res.Path), msg)))
		}
	}

	succeeded, failed, empty := report.Counts()
	fmt.Fprintln(w)
	if report.Transactions() == 0 {
		fmt.Fprintln(w, warningStyle.Render("No data: no transactions were found in any document."))
		return
	}
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf(
		"Wrote %d transaction(s) from %d document(s) to %s", report.Transactions(), succeeded, output)))
	if failed > 0 || empty > 0 {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("%d failed, %d without transactions", failed, empty)))
	}
}

func printDebug(w io.Writer, report *batch.Report) {
	for _, res := range report.Results {
		if res.Statement == nil || len(res.Statement.DebugLines) == 0 {
			continue
		}
		fmt.Fprintln(w, titleStyle.Render(filepath.Base(res.Path)))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, dl := range res.Statement.DebugLines {
			marker := " "
			if dl.HasDate {
				marker = "*"
			}
			fmt.Fprintf(tw, "%4d\t%s\t%s\t%s\n", dl.LineNum, marker, subtleStyle.Render(dl.Result), dl.Text)
		}
		tw.Flush()
	}
}
