package coverage

import "fmt"

// FailUnder checks a report against a minimum coverage threshold.
func FailUnder(report *Report, minCoverage float64) error {
	if report.Coverage < minCoverage {
		return fmt.Errorf("%w: measured coverage %.3f lower than min required %.3f",
			ErrBelowThreshold, report.Coverage, minCoverage)
	}
	return nil
}

// FailCompare diffs the current report against a baseline and fails when
// overall coverage decreased. The diff is returned in both cases so callers
// can render the comparison.
func FailCompare(current, baseline *Report) (*Diff, error) {
	diff, err := Compare(current, baseline)
	if err != nil {
		return nil, err
	}
	if diff.Before == nil {
		return diff, nil
	}
	if diff.After.Coverage < diff.Before.Coverage {
		return diff, fmt.Errorf("%w: coverage decreased from %.2f%% to %.2f%%",
			ErrCoverageRegressed, diff.Before.Coverage*100, diff.After.Coverage*100)
	}
	return diff, nil
}
