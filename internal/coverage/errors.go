package coverage

import "errors"

// ErrUnsupportedCoverageType is returned when an unknown coverage dimension
// is requested.
var ErrUnsupportedCoverageType = errors.New("unsupported coverage type")

// ErrIncompatibleReports is returned when comparing reports of differing
// coverage or entity types.
var ErrIncompatibleReports = errors.New("incompatible reports")

// ErrMalformedDocument is returned when a deserialized report document is
// missing expected keys.
var ErrMalformedDocument = errors.New("malformed coverage document")

// ErrBelowThreshold is returned by FailUnder when measured coverage is below
// the required minimum.
var ErrBelowThreshold = errors.New("coverage below threshold")

// ErrCoverageRegressed is returned by FailCompare when coverage decreased
// against the baseline.
var ErrCoverageRegressed = errors.New("coverage regressed")
