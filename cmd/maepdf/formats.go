package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/OAT7963/mae-pdf-processing/internal/config"
	"github.com/OAT7963/mae-pdf-processing/internal/parser"
	"github.com/spf13/cobra"
)

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported statement formats",
		Long: `List every registered statement format in detection order, including
formats loaded with --format-file. Pass an id to 'convert --format' to skip
auto-detection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := config.NewRegistry(appConfig.FormatFiles)
			if err != nil {
				return err
			}
			return printFormats(cmd.OutOrStdout(), registry)
		},
	}
}

func printFormats(w io.Writer, registry *parser.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Name"),
		headerStyle.Render("Grammar"),
		headerStyle.Render("Schema"),
		headerStyle.Render("Notes"))
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 14),
		strings.Repeat("─", 30),
		strings.Repeat("─", 15),
		strings.Repeat("─", 15),
		strings.Repeat("─", 20))

	for _, cfg := range registry.Formats() {
		var notes []string
		if cfg.NeedsYear {
			notes = append(notes, "needs year")
		}
		if cfg.Reconcile {
			notes = append(notes, "reconciles")
		}
		note := subtleStyle.Render("-")
		if len(notes) > 0 {
			note = strings.Join(notes, ", ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", cfg.ID, cfg.Name, cfg.Grammar, cfg.Schema, note)
	}
	return tw.Flush()
}
