package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nao1215/storefront/internal/config"
	"github.com/nao1215/storefront/internal/database"
	"github.com/nao1215/storefront/internal/report"
	"github.com/spf13/cobra"
)

// NewViolationsCmd creates the violations command.
func NewViolationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "violations",
		Short: "List stored CSP violation reports",
		Long: `Violations prints the CSP violation reports collected by serve, grouped by
fingerprint and most recently seen first.

Examples:
  # Show every group as a text table
  storefront violations

  # Only script-src violations from the last day, as Markdown
  storefront violations --directive script-src --since 24h --markdown

  # Delete groups not seen for 30 days, then list the rest as JSON
  storefront violations --prune 720h --json`,
		Args: cobra.NoArgs,
		RunE: runViolationsCmd,
	}

	cmd.Flags().String("db", "",
		"Violation database path (default: the serve database in the XDG data dir)")
	cmd.Flags().StringP("directive", "d", "", "Only show this effective directive")
	cmd.Flags().Duration("since", 0, "Only show groups seen within this duration")
	cmd.Flags().IntP("limit", "n", 0, "Maximum number of groups (0 = all)")
	cmd.Flags().Duration("prune", 0, "Delete groups not seen within this duration first")
	cmd.Flags().BoolP("json", "j", false, "Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "", "Write the report to this file")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

func runViolationsCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("db")
	directive, _ := flags.GetString("directive")
	since, _ := flags.GetDuration("since")
	limit, _ := flags.GetInt("limit")
	prune, _ := flags.GetDuration("prune")
	asJSON, _ := flags.GetBool("json")
	asMarkdown, _ := flags.GetBool("markdown")
	outputPath, _ := flags.GetString("output")

	if path == "" {
		path = config.NewConfig().DatabasePath()
	}
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative: %d", limit)
	}

	db, err := database.Open(path, database.Options{})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no violation database at %s; run serve first or pass --db", path)
		}
		return err
	}
	defer db.Close() //nolint:errcheck // read-mostly

	ctx := cmd.Context()
	now := time.Now()
	if prune > 0 {
		n, err := db.Prune(ctx, now.Add(-prune))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Pruned %d violation group(s)\n", n)
	}

	opts := database.ListOptions{Directive: directive, Limit: limit}
	if since > 0 {
		opts.Since = now.Add(-since)
	}
	records, err := db.List(ctx, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath) //nolint:gosec // operator supplied path
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close() //nolint:errcheck // write errors are reported by Write
		out = f
	}

	format := report.FormatText
	switch {
	case asJSON:
		format = report.FormatJSON
	case asMarkdown:
		format = report.FormatMarkdown
	}
	var w report.Writer
	if format == report.FormatText {
		w = report.NewSimpleWriter(out, report.WithVerbose(getVerboseFlag(cmd)))
	} else if w, err = report.NewWriter(format, out); err != nil {
		return err
	}
	_, err = w.Write(report.NewSummary(db.Path(), records))
	return err
}
