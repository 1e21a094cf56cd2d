package analog

import (
	"fmt"
	"sync"

	"github.com/openfluidics/godmf/pkg/config"
	"github.com/openfluidics/godmf/pkg/dmf"
)

// Monitor converts raw readings from a control board into calibrated
// physical quantities. It owns the most recent high-voltage measurement so
// other parts of the system can read it without re-sampling.
type Monitor struct {
	dev dmf.Device
	cfg *config.Config

	mu          sync.RWMutex
	highVoltage float32
}

// NewMonitor creates a Monitor for the given device. A nil cfg selects the
// reference board configuration.
func NewMonitor(dev dmf.Device, cfg *config.Config) *Monitor {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Monitor{
		dev: dev,
		cfg: cfg,
	}
}

// countsToVolts normalizes a raw statistic against the ADC full scale and
// scales it by the board reference voltage.
func (m *Monitor) countsToVolts(counts float32) float32 {
	return counts / m.cfg.ADC.FullScale() * m.cfg.ADC.AREF
}

// HighVoltage measures the high-side RMS voltage of the boost converter via
// its feedback divider and caches the result for LastHighVoltage.
func (m *Monitor) HighVoltage() (float32, error) {
	raw, err := m.dev.ReadRaw(dmf.Channel(m.cfg.Channels.HighVoltage))
	if err != nil {
		return 0, fmt.Errorf("high voltage: %w", err)
	}

	feedback := m.countsToVolts(float32(raw))
	peakToPeak := feedback * m.cfg.HighVoltage.R8 / m.cfg.HighVoltage.R9
	// The feedback tap sees the rectified envelope; RMS is half peak-to-peak.
	rms := 0.5 * peakToPeak

	m.mu.Lock()
	m.highVoltage = rms
	m.mu.Unlock()

	return rms, nil
}

// LastHighVoltage returns the most recent HighVoltage measurement, or 0 if
// none has been taken yet.
func (m *Monitor) LastHighVoltage() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.highVoltage
}

// OutputCurrent measures the peak output current over n samples.
func (m *Monitor) OutputCurrent(n int) (float32, error) {
	raw, err := ReadMax(m.dev, dmf.Channel(m.cfg.Channels.OutputCurrent), n)
	if err != nil {
		return 0, fmt.Errorf("output current: %w", err)
	}
	return m.countsToVolts(float32(raw)) / m.cfg.Current.OutputGain(), nil
}

// OutputCurrentRMS measures the RMS output current over n samples.
func (m *Monitor) OutputCurrentRMS(n int) (float32, error) {
	rms, err := ReadRMS(m.dev, dmf.Channel(m.cfg.Channels.OutputCurrent), n)
	if err != nil {
		return 0, fmt.Errorf("output current rms: %w", err)
	}
	return m.countsToVolts(rms) / m.cfg.Current.OutputGain(), nil
}

// InputCurrent measures the peak input current over n samples.
func (m *Monitor) InputCurrent(n int) (float32, error) {
	raw, err := ReadMax(m.dev, dmf.Channel(m.cfg.Channels.InputCurrent), n)
	if err != nil {
		return 0, fmt.Errorf("input current: %w", err)
	}
	return m.countsToVolts(float32(raw)) / m.cfg.Current.InputShunt, nil
}

// Temperature measures the MCU temperature via its internal sensor. The
// sensor is sampled against the internal reference; the default reference is
// restored before returning, also when the measurement fails.
func (m *Monitor) Temperature() (float32, error) {
	tc := m.cfg.Temperature

	var mean float32
	err := m.withInternalReference(func() error {
		var err error
		mean, err = ReadMean(m.dev, dmf.Channel(m.cfg.Channels.Temperature), tc.Samples)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("temperature: %w", err)
	}

	voltage := mean / m.cfg.ADC.MaxCount() * tc.InternalRef
	return tc.BaseTemp + tc.Slope*(tc.Offset-voltage), nil
}

// Aref measures the actual board reference voltage by sampling the known
// internal reference and comparing it against full scale. The result can be
// used to correct other conversions for reference drift. The reference mode
// is not changed.
func (m *Monitor) Aref() (float32, error) {
	rc := m.cfg.Reference

	mean, err := ReadMean(m.dev, dmf.Channel(m.cfg.Channels.Reference), rc.Samples)
	if err != nil {
		return 0, fmt.Errorf("aref: %w", err)
	}
	if mean == 0 {
		return 0, fmt.Errorf("aref: reference channel reads zero")
	}

	return rc.InternalRef * m.cfg.ADC.MaxCount() / mean, nil
}

// withInternalReference runs fn with the board switched to its internal
// voltage reference and restores the default reference afterwards, also when
// fn fails.
func (m *Monitor) withInternalReference(fn func() error) (err error) {
	if err := m.dev.SetReference(dmf.ReferenceInternal); err != nil {
		return fmt.Errorf("switch to internal reference: %w", err)
	}
	defer func() {
		if rerr := m.dev.SetReference(dmf.ReferenceDefault); rerr != nil && err == nil {
			err = fmt.Errorf("restore default reference: %w", rerr)
		}
	}()

	return fn()
}
