package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter writes GitHub flavored Markdown with a directive chart.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("CSP Violation Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", s.GeneratedAt.Format(timeFormat)},
			{"Groups", strconv.Itoa(len(s.Records))},
			{"Reports", strconv.FormatInt(s.TotalReports(), 10)},
		},
	})
	md.PlainText("")

	if len(s.Records) == 0 {
		md.Tip("No violations recorded.")
		return len(md.String()), md.Build()
	}

	byDirective := s.ByDirective()
	md.H2("By Directive")
	md.PlainText("")
	rows := make([][]string, len(byDirective))
	chart := piechart.NewPieChart(io.Discard,
		piechart.WithTitle("Reports by directive"),
		piechart.WithShowData(true),
	)
	for i, d := range byDirective {
		rows[i] = []string{"`" + d.Directive + "`", strconv.FormatInt(d.Reports, 10), strconv.Itoa(d.Groups)}
		chart.LabelAndIntValue(d.Directive, uint64(d.Reports)) //nolint:gosec // counts are positive
	}
	md.Table(markdown.TableSet{Header: []string{"Directive", "Reports", "Groups"}, Rows: rows})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	if byDirective[0].Directive == "script-src" || byDirective[0].Directive == "script-src-elem" {
		md.Warningf("Most reports block scripts (%d). Check the script-src allow-list.", byDirective[0].Reports)
		md.PlainText("")
	}

	md.H2("Violations")
	md.PlainText("")
	vrows := make([][]string, len(s.Records))
	for i, r := range s.Records {
		v := r.Violation
		vrows[i] = []string{
			strconv.FormatInt(r.Count, 10),
			dash(v.Directive()),
			truncate(dash(v.BlockedURI), 50),
			truncate(dash(v.DocumentURI), 50),
			r.LastSeen.Format(timeFormat),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Count", "Directive", "Blocked", "Document", "Last Seen"},
		Rows:   vrows,
	})
	md.PlainText("")
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by storefront violations*")

	return len(md.String()), md.Build()
}
