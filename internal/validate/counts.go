package validate

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/zonehop/internal/dataset"
)

// CountParity compares per-column non-null counts of candidate against
// reference. The reference's first column must hold data, both tables must
// declare the same column names, and every count must match exactly.
//
// The returned Result is always non-nil. The error is the first violation:
// *EmptyDatasetError, *SchemaMismatchError or *CountMismatchError.
func CountParity(reference, candidate *dataset.Table) (*Result, error) {
	res := &Result{Check: CheckCounts, Passed: true}
	if reference == nil {
		reference = &dataset.Table{}
	}
	if candidate == nil {
		candidate = &dataset.Table{}
	}

	if len(reference.Columns) == 0 {
		res.Passed = false
		return res, &EmptyDatasetError{}
	}
	first := reference.Columns[0]
	if n := first.NonNullCount(); n == 0 {
		res.add(ColumnResult{Column: first.Name, Reason: "no data available", Reference: &n})
		return res, &EmptyDatasetError{Column: first.Name}
	}

	if err := compareColumnSets(reference, candidate); err != nil {
		for _, name := range err.Missing {
			res.add(ColumnResult{Column: name, Reason: "missing from candidate"})
		}
		for _, name := range err.Unexpected {
			res.add(ColumnResult{Column: name, Reason: "missing from reference"})
		}
		return res, err
	}

	var firstErr error
	for _, col := range reference.Columns {
		other, _ := candidate.Column(col.Name)
		ref, cand := col.NonNullCount(), other.NonNullCount()
		cr := ColumnResult{Column: col.Name, Passed: ref == cand, Reference: &ref, Candidate: &cand}
		if !cr.Passed {
			cr.Reason = fmt.Sprintf("reference has %d non-null values, candidate has %d", ref, cand)
			if firstErr == nil {
				firstErr = &CountMismatchError{Column: col.Name, Reference: ref, Candidate: cand}
			}
		}
		res.add(cr)
	}
	return res, firstErr
}

func compareColumnSets(reference, candidate *dataset.Table) *SchemaMismatchError {
	var missing, unexpected []string
	for _, name := range reference.ColumnNames() {
		if _, ok := candidate.Column(name); !ok {
			missing = append(missing, name)
		}
	}
	for _, name := range candidate.ColumnNames() {
		if _, ok := reference.Column(name); !ok {
			unexpected = append(unexpected, name)
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unexpected)
	return &SchemaMismatchError{Missing: missing, Unexpected: unexpected}
}
