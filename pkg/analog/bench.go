package analog

import (
	"fmt"
	"time"

	"github.com/openfluidics/godmf/pkg/dmf"
)

// Clock provides microsecond timestamps for benchmarking. Only differences
// between NowMicros values are meaningful.
type Clock interface {
	NowMicros() uint64
}

// systemClock counts microseconds from a fixed origin, so readings are
// monotonic regardless of wall-clock adjustments.
type systemClock struct {
	start time.Time
}

// NewSystemClock returns a Clock backed by the monotonic system clock.
func NewSystemClock() Clock {
	return &systemClock{start: time.Now()}
}

func (c *systemClock) NowMicros() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}

// Benchmark invokes op repeats times, discarding results, and returns the
// elapsed wall-clock time in seconds. repeats <= 0 performs no work and
// reports exactly 0 without touching the clock.
func Benchmark(clk Clock, repeats int, op func() error) (float64, error) {
	if repeats <= 0 {
		return 0, nil
	}

	start := clk.NowMicros()
	for i := 0; i < repeats; i++ {
		if err := op(); err != nil {
			return 0, err
		}
	}
	end := clk.NowMicros()

	return float64(end-start) * 1e-6, nil
}

// BenchmarkRead times n single-sample reads on ch.
func BenchmarkRead(clk Clock, d dmf.Device, ch dmf.Channel, n int) (float64, error) {
	elapsed, err := Benchmark(clk, n, func() error {
		_, err := d.ReadRaw(ch)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("benchmark read: %w", err)
	}
	return elapsed, nil
}

// BenchmarkPercentileDiff times repeats percentile-spread measurements of n
// samples each on ch.
func BenchmarkPercentileDiff(clk Clock, d dmf.Device, ch dmf.Channel, n int, low, high float32, repeats int) (float64, error) {
	elapsed, err := Benchmark(clk, repeats, func() error {
		_, err := ReadPercentileDiff(d, ch, n, low, high)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("benchmark percentile diff: %w", err)
	}
	return elapsed, nil
}
