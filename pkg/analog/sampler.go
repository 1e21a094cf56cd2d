package analog

import (
	"fmt"

	"github.com/openfluidics/godmf/pkg/dmf"
)

// ReadSamples pulls n raw samples from ch into a fresh buffer. Each element
// is one independent conversion, collected in call order; n <= 0 returns an
// empty buffer.
func ReadSamples(d dmf.Device, ch dmf.Channel, n int) ([]uint16, error) {
	if n < 0 {
		n = 0
	}

	samples := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		value, err := d.ReadRaw(ch)
		if err != nil {
			return nil, fmt.Errorf("read channel %d: %w", ch, err)
		}
		samples = append(samples, value)
	}

	return samples, nil
}

// ReadMean reads n samples from ch and returns their mean. The samples are
// accumulated on the fly; no buffer is materialized.
func ReadMean(d dmf.Device, ch dmf.Channel, n int) (float32, error) {
	if n <= 0 {
		return 0, ErrNoSamples
	}

	var sum uint64
	for i := 0; i < n; i++ {
		value, err := d.ReadRaw(ch)
		if err != nil {
			return 0, fmt.Errorf("read channel %d: %w", ch, err)
		}
		sum += uint64(value)
	}

	return float32(sum) / float32(n), nil
}
