package analog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfluidics/godmf/pkg/config"
	"github.com/openfluidics/godmf/pkg/dmf"
)

func newTestMonitor(t *testing.T) (*Monitor, *dmf.Mock, *config.Config) {
	t.Helper()

	dev := dmf.NewMock()
	require.NoError(t, dev.Connect())

	cfg := config.Default()
	return NewMonitor(dev, cfg), dev, cfg
}

func TestMonitor_HighVoltage(t *testing.T) {
	m, dev, cfg := newTestMonitor(t)

	raw := uint16(32768)
	dev.Enqueue(dmf.Channel(cfg.Channels.HighVoltage), raw)

	got, err := m.HighVoltage()
	require.NoError(t, err)

	// Expected value derived from the divider formula, not a magic number.
	feedback := float32(raw) / cfg.ADC.FullScale() * cfg.ADC.AREF
	want := 0.5 * feedback * cfg.HighVoltage.R8 / cfg.HighVoltage.R9

	assert.Equal(t, want, got)
}

func TestMonitor_HighVoltage_Cache(t *testing.T) {
	m, dev, cfg := newTestMonitor(t)

	// No measurement yet.
	assert.Equal(t, float32(0), m.LastHighVoltage())

	dev.Enqueue(dmf.Channel(cfg.Channels.HighVoltage), 1000, 2000)

	first, err := m.HighVoltage()
	require.NoError(t, err)
	assert.Equal(t, first, m.LastHighVoltage())

	second, err := m.HighVoltage()
	require.NoError(t, err)
	assert.Equal(t, second, m.LastHighVoltage())
	assert.NotEqual(t, first, second)
}

func TestMonitor_OutputCurrent(t *testing.T) {
	m, dev, cfg := newTestMonitor(t)

	ch := dmf.Channel(cfg.Channels.OutputCurrent)
	dev.Enqueue(ch, 10, 5000, 200)

	got, err := m.OutputCurrent(3)
	require.NoError(t, err)

	volts := float32(5000) / cfg.ADC.FullScale() * cfg.ADC.AREF
	want := volts / cfg.Current.OutputGain()

	assert.Equal(t, want, got)
	assert.Equal(t, 3, dev.Reads(ch))
}

func TestMonitor_OutputCurrent_Reproducible(t *testing.T) {
	m, dev, cfg := newTestMonitor(t)

	ch := dmf.Channel(cfg.Channels.OutputCurrent)
	dev.SetLevel(ch, 4321)

	first, err := m.OutputCurrent(8)
	require.NoError(t, err)
	second, err := m.OutputCurrent(8)
	require.NoError(t, err)

	// Pure function of the raw statistic and fixed constants.
	assert.Equal(t, first, second)
}

func TestMonitor_OutputCurrentRMS(t *testing.T) {
	m, dev, cfg := newTestMonitor(t)

	ch := dmf.Channel(cfg.Channels.OutputCurrent)
	dev.SetLevel(ch, 2000)

	got, err := m.OutputCurrentRMS(16)
	require.NoError(t, err)

	volts := float32(2000) / cfg.ADC.FullScale() * cfg.ADC.AREF
	want := volts / cfg.Current.OutputGain()

	assert.InDelta(t, want, got, 1e-5)
}

func TestMonitor_OutputCurrentRMS_NoSamples(t *testing.T) {
	m, _, _ := newTestMonitor(t)

	_, err := m.OutputCurrentRMS(0)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestMonitor_InputCurrent(t *testing.T) {
	m, dev, cfg := newTestMonitor(t)

	ch := dmf.Channel(cfg.Channels.InputCurrent)
	dev.Enqueue(ch, 100, 900, 300)

	got, err := m.InputCurrent(3)
	require.NoError(t, err)

	volts := float32(900) / cfg.ADC.FullScale() * cfg.ADC.AREF
	want := volts / cfg.Current.InputShunt

	assert.Equal(t, want, got)
}

func TestMonitor_Temperature(t *testing.T) {
	m, dev, cfg := newTestMonitor(t)

	ch := dmf.Channel(cfg.Channels.Temperature)
	dev.SetLevel(ch, 20000)

	got, err := m.Temperature()
	require.NoError(t, err)

	voltage := float32(20000) / cfg.ADC.MaxCount() * cfg.Temperature.InternalRef
	want := cfg.Temperature.BaseTemp + cfg.Temperature.Slope*(cfg.Temperature.Offset-voltage)

	assert.InDelta(t, want, got, 1e-3)
	assert.Equal(t, cfg.Temperature.Samples, dev.Reads(ch))

	// Sampled against the internal reference, default restored afterwards.
	assert.Equal(t, []dmf.Reference{dmf.ReferenceInternal, dmf.ReferenceDefault}, dev.ReferenceLog())
	assert.Equal(t, dmf.ReferenceDefault, dev.Reference())
}

func TestMonitor_Temperature_RestoresReferenceOnFailure(t *testing.T) {
	m, dev, _ := newTestMonitor(t)

	boom := errors.New("bus fault")
	dev.FailReads(boom)

	_, err := m.Temperature()
	assert.ErrorIs(t, err, boom)

	// The default reference is restored even though sampling failed.
	assert.Equal(t, []dmf.Reference{dmf.ReferenceInternal, dmf.ReferenceDefault}, dev.ReferenceLog())
	assert.Equal(t, dmf.ReferenceDefault, dev.Reference())
}

func TestMonitor_Aref(t *testing.T) {
	m, dev, cfg := newTestMonitor(t)

	ch := dmf.Channel(cfg.Channels.Reference)
	dev.SetLevel(ch, 23000)

	got, err := m.Aref()
	require.NoError(t, err)

	want := cfg.Reference.InternalRef * cfg.ADC.MaxCount() / float32(23000)

	assert.InDelta(t, want, got, 1e-4)
	assert.Equal(t, cfg.Reference.Samples, dev.Reads(ch))

	// Unlike Temperature, the reference mode is untouched.
	assert.Empty(t, dev.ReferenceLog())
}

func TestMonitor_Aref_ZeroReading(t *testing.T) {
	m, _, _ := newTestMonitor(t)

	// Channel stuck at zero cannot yield a correction factor.
	_, err := m.Aref()
	assert.Error(t, err)
}

func TestMonitor_DeviceErrorsPropagate(t *testing.T) {
	m, dev, _ := newTestMonitor(t)

	boom := errors.New("bus fault")
	dev.FailReads(boom)

	_, err := m.HighVoltage()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, float32(0), m.LastHighVoltage())

	_, err = m.OutputCurrent(4)
	assert.ErrorIs(t, err, boom)

	_, err = m.InputCurrent(4)
	assert.ErrorIs(t, err, boom)

	_, err = m.Aref()
	assert.ErrorIs(t, err, boom)
}

func TestNewMonitor_NilConfig(t *testing.T) {
	dev := dmf.NewMock()
	m := NewMonitor(dev, nil)

	assert.NotNil(t, m.cfg)
	assert.Equal(t, config.Default(), m.cfg)
}
