package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/nao1215/storefront/internal/database"
)

// Summary is the input of every Writer.
type Summary struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Database    string            `json:"database,omitempty"`
	Records     []database.Record `json:"records"`
}

// DirectiveCount is the number of reports for one directive.
type DirectiveCount struct {
	Directive string `json:"directive"`
	Groups    int    `json:"groups"`
	Reports   int64  `json:"reports"`
}

// NewSummary builds a Summary stamped with the current time.
func NewSummary(dbPath string, records []database.Record) *Summary {
	return &Summary{GeneratedAt: time.Now(), Database: dbPath, Records: records}
}

// TotalReports sums the report counts of every group.
func (s *Summary) TotalReports() int64 {
	var n int64
	for _, r := range s.Records {
		n += r.Count
	}
	return n
}

// ByDirective aggregates groups per directive, most reported first.
func (s *Summary) ByDirective() []DirectiveCount {
	idx := map[string]int{}
	var out []DirectiveCount
	for _, r := range s.Records {
		d := r.Violation.Directive()
		if d == "" {
			d = "unknown"
		}
		i, ok := idx[d]
		if !ok {
			i = len(out)
			idx[d] = i
			out = append(out, DirectiveCount{Directive: d})
		}
		out[i].Groups++
		out[i].Reports += r.Count
	}
	slices.SortStableFunc(out, func(a, b DirectiveCount) int {
		if c := cmp.Compare(b.Reports, a.Reports); c != 0 {
			return c
		}
		return cmp.Compare(a.Directive, b.Directive)
	})
	return out
}
