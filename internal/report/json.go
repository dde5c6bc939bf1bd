package report

import (
	"encoding/json"
	"io"
)

// JSONWriter writes the summary as one JSON document.
type JSONWriter struct {
	output io.Writer
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint indents the output by two spaces.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = "  "
	}
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{output: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type jsonSummary struct {
	*Summary
	TotalReports int64            `json:"totalReports"`
	ByDirective  []DirectiveCount `json:"byDirective"`
}

// Write implements Writer.
func (w *JSONWriter) Write(s *Summary) (int, error) {
	doc := jsonSummary{Summary: s, TotalReports: s.TotalReports(), ByDirective: s.ByDirective()}
	var (
		data []byte
		err  error
	)
	if w.indent != "" {
		data, err = json.MarshalIndent(doc, "", w.indent)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return 0, err
	}
	return w.output.Write(append(data, '\n'))
}
