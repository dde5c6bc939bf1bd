package report

import (
	"fmt"
	"io"
	"strings"
)

const timeFormat = "2006-01-02 15:04:05 MST"

// SimpleWriter writes a plain text table for terminals.
type SimpleWriter struct {
	output  io.Writer
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose adds source location and sample lines to each group.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{output: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(s *Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 70) + "\n")
	sb.WriteString("                    CSP VIOLATION REPORT\n")
	sb.WriteString(strings.Repeat("=", 70) + "\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n", s.GeneratedAt.Format(timeFormat))
	if s.Database != "" {
		fmt.Fprintf(&sb, "Database:  %s\n", s.Database)
	}
	fmt.Fprintf(&sb, "Groups:    %d\n", len(s.Records))
	fmt.Fprintf(&sb, "Reports:   %d\n\n", s.TotalReports())

	if len(s.Records) == 0 {
		sb.WriteString("No violations recorded.\n")
		return io.WriteString(w.output, sb.String())
	}

	sb.WriteString("BY DIRECTIVE\n")
	sb.WriteString(strings.Repeat("-", 70) + "\n")
	for _, d := range s.ByDirective() {
		fmt.Fprintf(&sb, "  %-30s %6d reports in %d group(s)\n", d.Directive, d.Reports, d.Groups)
	}
	sb.WriteString("\nVIOLATIONS\n")
	sb.WriteString(strings.Repeat("-", 70) + "\n")
	for _, r := range s.Records {
		v := r.Violation
		fmt.Fprintf(&sb, "[%dx] %s blocked %s\n", r.Count, dash(v.Directive()), dash(v.BlockedURI))
		fmt.Fprintf(&sb, "      document:  %s\n", dash(v.DocumentURI))
		fmt.Fprintf(&sb, "      last seen: %s\n", r.LastSeen.Format(timeFormat))
		if w.verbose {
			if v.SourceFile != "" {
				fmt.Fprintf(&sb, "      source:    %s:%d:%d\n", v.SourceFile, v.LineNumber, v.ColumnNumber)
			}
			if v.Sample != "" {
				fmt.Fprintf(&sb, "      sample:    %s\n", truncate(v.Sample, 60))
			}
			fmt.Fprintf(&sb, "      first seen: %s\n", r.FirstSeen.Format(timeFormat))
		}
	}
	return io.WriteString(w.output, sb.String())
}
