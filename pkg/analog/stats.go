package analog

import (
	"fmt"
	"slices"

	"github.com/chewxy/math32"

	"github.com/openfluidics/godmf/pkg/dmf"
)

// PercentileDiff sorts samples ascending and returns the difference between
// the high- and low-percentile-ranked values. With low=25 and high=75 this
// is the inter-quartile range of the buffer.
//
// The buffer is sorted in place. Percentiles must satisfy
// 0 <= low <= high <= 100; the 100th percentile selects the last element.
func PercentileDiff(samples []uint16, low, high float32) (uint16, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}
	if low < 0 || high > 100 || low > high {
		return 0, fmt.Errorf("%w: low=%v high=%v", ErrInvalidPercentile, low, high)
	}

	slices.Sort(samples)

	highIdx := percentileIndex(high, len(samples))
	lowIdx := percentileIndex(low, len(samples))

	return samples[highIdx] - samples[lowIdx], nil
}

// percentileIndex maps a percentile to a zero-based index into a sorted
// buffer of length n, rounding to the nearest index and clamping so the
// 100th percentile lands on the last element rather than past the buffer.
func percentileIndex(percentile float32, n int) int {
	idx := int(math32.Round(percentile / 100 * float32(n)))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// ReadPercentileDiff reads n samples from ch and returns their percentile
// spread. See PercentileDiff.
func ReadPercentileDiff(d dmf.Device, ch dmf.Channel, n int, low, high float32) (uint16, error) {
	samples, err := ReadSamples(d, ch, n)
	if err != nil {
		return 0, err
	}
	return PercentileDiff(samples, low, high)
}

// ReadMax reads n samples from ch and returns the largest. The samples are
// reduced on the fly; no buffer is materialized. With n <= 0 (or a channel
// pinned at zero) the result is 0.
func ReadMax(d dmf.Device, ch dmf.Channel, n int) (uint16, error) {
	var maxValue uint16
	for i := 0; i < n; i++ {
		value, err := d.ReadRaw(ch)
		if err != nil {
			return 0, fmt.Errorf("read channel %d: %w", ch, err)
		}
		if value > maxValue {
			maxValue = value
		}
	}
	return maxValue, nil
}

// ReadRMS reads n samples from ch and returns their root mean square. The
// squares are accumulated in a float to avoid overflow across large n.
func ReadRMS(d dmf.Device, ch dmf.Channel, n int) (float32, error) {
	if n <= 0 {
		return 0, ErrNoSamples
	}

	var sum2 float32
	for i := 0; i < n; i++ {
		value, err := d.ReadRaw(ch)
		if err != nil {
			return 0, fmt.Errorf("read channel %d: %w", ch, err)
		}
		v := float32(value)
		sum2 += v * v
	}

	return math32.Sqrt(sum2 / float32(n)), nil
}
