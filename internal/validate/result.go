// Package validate checks that a dataset survived a hop between storage
// zones: per-column non-null counts must match exactly, and columns with a
// declared type must hold conforming data.
//
// Both checks return a full per-column Result alongside the first failure,
// so callers can report every column while still failing on the first
// violated invariant.
package validate

// Check names a validation check.
type Check string

// Checks.
const (
	CheckCounts    Check = "counts"
	CheckDatatypes Check = "datatypes"
)

// ColumnResult is the outcome for one column.
type ColumnResult struct {
	Column    string `json:"column" yaml:"column"`
	Passed    bool   `json:"passed" yaml:"passed"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Reference *int   `json:"reference,omitempty" yaml:"reference,omitempty"`
	Candidate *int   `json:"candidate,omitempty" yaml:"candidate,omitempty"`
}

// Result aggregates column outcomes for one check.
type Result struct {
	Check   Check          `json:"check" yaml:"check"`
	Passed  bool           `json:"passed" yaml:"passed"`
	Columns []ColumnResult `json:"columns" yaml:"columns"`
}

func (r *Result) add(c ColumnResult) {
	r.Columns = append(r.Columns, c)
	if !c.Passed {
		r.Passed = false
	}
}

// Failed returns the failing column results.
func (r *Result) Failed() []ColumnResult {
	var out []ColumnResult
	for _, c := range r.Columns {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// Report groups the results of the checks run for one zone pair.
type Report struct {
	Reference string    `json:"reference" yaml:"reference"`
	Candidate string    `json:"candidate" yaml:"candidate"`
	Passed    bool      `json:"passed" yaml:"passed"`
	Results   []*Result `json:"results" yaml:"results"`
}

// NewReport builds a report; it passes only if every result passed.
func NewReport(reference, candidate string, results ...*Result) *Report {
	r := &Report{Reference: reference, Candidate: candidate, Passed: true}
	for _, res := range results {
		if res == nil {
			continue
		}
		r.Results = append(r.Results, res)
		if !res.Passed {
			r.Passed = false
		}
	}
	return r
}
