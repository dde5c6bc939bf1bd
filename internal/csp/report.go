package csp

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/crypto/sha3"
)

// maxReportBody bounds a report request body.
const maxReportBody = 64 << 10

// Violation is one CSP violation reported by a browser.
type Violation struct {
	DocumentURI        string `json:"documentUri"`
	Referrer           string `json:"referrer,omitempty"`
	ViolatedDirective  string `json:"violatedDirective"`
	EffectiveDirective string `json:"effectiveDirective"`
	BlockedURI         string `json:"blockedUri"`
	SourceFile         string `json:"sourceFile,omitempty"`
	LineNumber         int    `json:"lineNumber,omitempty"`
	ColumnNumber       int    `json:"columnNumber,omitempty"`
	Disposition        string `json:"disposition,omitempty"`
	StatusCode         int    `json:"statusCode,omitempty"`
	Sample             string `json:"sample,omitempty"`
	UserAgent          string `json:"userAgent,omitempty"`
}

// Fingerprint identifies violations that differ only in volatile details:
// the document query string, line and column, and the sample.
func (v Violation) Fingerprint() string {
	directive := v.EffectiveDirective
	if directive == "" {
		directive = firstField(v.ViolatedDirective)
	}
	sum := sha3.Sum256([]byte(strings.Join([]string{
		stripQuery(v.DocumentURI),
		directive,
		stripQuery(v.BlockedURI),
		stripQuery(v.SourceFile),
	}, "\x00")))
	return hex.EncodeToString(sum[:16])
}

// Directive returns the effective directive, falling back to the violated one.
func (v Violation) Directive() string {
	if v.EffectiveDirective != "" {
		return v.EffectiveDirective
	}
	return firstField(v.ViolatedDirective)
}

// legacyReport is the application/csp-report body sent for report-uri.
type legacyReport struct {
	Report struct {
		DocumentURI        string `json:"document-uri"`
		Referrer           string `json:"referrer"`
		ViolatedDirective  string `json:"violated-directive"`
		EffectiveDirective string `json:"effective-directive"`
		BlockedURI         string `json:"blocked-uri"`
		SourceFile         string `json:"source-file"`
		LineNumber         int    `json:"line-number"`
		ColumnNumber       int    `json:"column-number"`
		Disposition        string `json:"disposition"`
		StatusCode         int    `json:"status-code"`
		ScriptSample       string `json:"script-sample"`
	} `json:"csp-report"`
}

// reportingEntry is one application/reports+json entry of the Reporting API.
type reportingEntry struct {
	Type      string `json:"type"`
	UserAgent string `json:"user_agent"`
	Body      struct {
		DocumentURL        string `json:"documentURL"`
		Referrer           string `json:"referrer"`
		EffectiveDirective string `json:"effectiveDirective"`
		BlockedURL         string `json:"blockedURL"`
		SourceFile         string `json:"sourceFile"`
		LineNumber         int    `json:"lineNumber"`
		ColumnNumber       int    `json:"columnNumber"`
		Disposition        string `json:"disposition"`
		StatusCode         int    `json:"statusCode"`
		Sample             string `json:"sample"`
	} `json:"body"`
}

// ParseReport decodes a report body in either the report-uri
// (application/csp-report) or the Reporting API (application/reports+json)
// format. Non-CSP Reporting API entries are skipped.
func ParseReport(r io.Reader) ([]Violation, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxReportBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if len(data) > maxReportBody {
		return nil, fmt.Errorf("%w: body too large", ErrInvalidReport)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidReport)
	}

	if data[0] == '[' {
		var entries []reportingEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
		}
		out := make([]Violation, 0, len(entries))
		for _, e := range entries {
			if e.Type != "csp-violation" {
				continue
			}
			out = append(out, Violation{
				DocumentURI:        e.Body.DocumentURL,
				Referrer:           e.Body.Referrer,
				ViolatedDirective:  e.Body.EffectiveDirective,
				EffectiveDirective: e.Body.EffectiveDirective,
				BlockedURI:         e.Body.BlockedURL,
				SourceFile:         e.Body.SourceFile,
				LineNumber:         e.Body.LineNumber,
				ColumnNumber:       e.Body.ColumnNumber,
				Disposition:        e.Body.Disposition,
				StatusCode:         e.Body.StatusCode,
				Sample:             e.Body.Sample,
				UserAgent:          e.UserAgent,
			})
		}
		return out, nil
	}

	var lr legacyReport
	if err := json.Unmarshal(data, &lr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	rep := lr.Report
	if rep.DocumentURI == "" && rep.ViolatedDirective == "" && rep.EffectiveDirective == "" {
		return nil, fmt.Errorf("%w: missing csp-report member", ErrInvalidReport)
	}
	return []Violation{{
		DocumentURI:        rep.DocumentURI,
		Referrer:           rep.Referrer,
		ViolatedDirective:  rep.ViolatedDirective,
		EffectiveDirective: rep.EffectiveDirective,
		BlockedURI:         rep.BlockedURI,
		SourceFile:         rep.SourceFile,
		LineNumber:         rep.LineNumber,
		ColumnNumber:       rep.ColumnNumber,
		Disposition:        rep.Disposition,
		StatusCode:         rep.StatusCode,
		Sample:             rep.ScriptSample,
	}}, nil
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
