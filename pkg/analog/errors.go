package analog

import "errors"

var (
	// ErrNoSamples reports a reduction requested over zero samples.
	ErrNoSamples = errors.New("analog: no samples")

	// ErrInvalidPercentile reports a percentile outside [0, 100] or a low
	// percentile above the high one.
	ErrInvalidPercentile = errors.New("analog: invalid percentile range")
)
