package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes the control board: how the ADC is set up, which channels
// the measurement taps live on, and the calibration constants used to turn
// raw counts into physical quantities.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	ADC         ADCConfig         `yaml:"adc"`
	Channels    ChannelsConfig    `yaml:"channels"`
	HighVoltage HighVoltageConfig `yaml:"high_voltage"`
	Current     CurrentConfig     `yaml:"current"`
	Temperature TemperatureConfig `yaml:"temperature"`
	Reference   ReferenceConfig   `yaml:"reference"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ADCConfig contains the converter resolution and board reference voltage.
type ADCConfig struct {
	ResolutionBits uint    `yaml:"resolution_bits"`
	AREF           float32 `yaml:"aref"` // Board analog reference (V)
}

// FullScale returns 2^bits, the raw count range used to normalize samples.
func (c ADCConfig) FullScale() float32 {
	return float32(uint32(1) << c.ResolutionBits)
}

// MaxCount returns 2^bits - 1, the largest representable raw sample.
func (c ADCConfig) MaxCount() float32 {
	return float32((uint32(1) << c.ResolutionBits) - 1)
}

// ChannelsConfig maps measurements to analog input channels.
type ChannelsConfig struct {
	HighVoltage   uint8 `yaml:"high_voltage"`   // HV feedback tap
	OutputCurrent uint8 `yaml:"output_current"` // Output shunt amplifier
	InputCurrent  uint8 `yaml:"input_current"`  // Input shunt
	Temperature   uint8 `yaml:"temperature"`    // MCU internal temperature sensor
	Reference     uint8 `yaml:"reference"`      // MCU internal reference tap
}

// HighVoltageConfig contains the boost converter feedback divider.
// HV peak-to-peak = HV_FB * R8 / R9.
type HighVoltageConfig struct {
	R8 float32 `yaml:"r8"` // Feedback divider, high side (ohm)
	R9 float32 `yaml:"r9"` // Feedback divider, low side (ohm)
}

// CurrentConfig contains the shunt and amplifier constants for the current
// measurements.
type CurrentConfig struct {
	RFeedback  float32 `yaml:"r_feedback"`  // Output amplifier feedback (ohm)
	RGain      float32 `yaml:"r_gain"`      // Output amplifier gain resistor (ohm)
	InputShunt float32 `yaml:"input_shunt"` // Input shunt (V/A)
}

// OutputGain returns the output amplifier voltage-to-current ratio (V/A).
func (c CurrentConfig) OutputGain() float32 {
	return c.RFeedback / c.RGain
}

// TemperatureConfig contains the internal temperature sensor calibration.
// Temperature = BaseTemp + Slope * (Offset - sensor voltage), with the
// sensor sampled against the internal reference.
type TemperatureConfig struct {
	InternalRef float32 `yaml:"internal_ref"` // Internal reference voltage (V)
	Slope       float32 `yaml:"slope"`        // Sensor slope (degC/V), empirical
	Offset      float32 `yaml:"offset"`       // Sensor voltage at BaseTemp (V)
	BaseTemp    float32 `yaml:"base_temp"`    // degC
	Samples     int     `yaml:"samples"`      // Samples averaged per measurement
}

// ReferenceConfig contains the reference-voltage self-calibration constants.
type ReferenceConfig struct {
	InternalRef float32 `yaml:"internal_ref"` // Known internal reference (V)
	Samples     int     `yaml:"samples"`      // Samples averaged per measurement
}

// Default returns the configuration for the reference control board.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		ADC: ADCConfig{
			ResolutionBits: 16,
			AREF:           3.3,
		},
		Channels: ChannelsConfig{
			HighVoltage:   1,
			OutputCurrent: 2,
			InputCurrent:  3,
			Temperature:   38,
			Reference:     39,
		},
		HighVoltage: HighVoltageConfig{
			R8: 2e6,
			R9: 20e3,
		},
		Current: CurrentConfig{
			RFeedback:  51e3,
			RGain:      5.1e3,
			InputShunt: 0.03,
		},
		Temperature: TemperatureConfig{
			InternalRef: 1.2,
			Slope:       583.0904,
			Offset:      0.719,
			BaseTemp:    25.0,
			Samples:     255,
		},
		Reference: ReferenceConfig{
			InternalRef: 1.195,
			Samples:     255,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.ADC.ResolutionBits == 0 {
		c.ADC.ResolutionBits = def.ADC.ResolutionBits
	}
	if c.ADC.AREF == 0 {
		c.ADC.AREF = def.ADC.AREF
	}

	if c.HighVoltage.R8 == 0 {
		c.HighVoltage.R8 = def.HighVoltage.R8
	}
	if c.HighVoltage.R9 == 0 {
		c.HighVoltage.R9 = def.HighVoltage.R9
	}

	if c.Current.RFeedback == 0 {
		c.Current.RFeedback = def.Current.RFeedback
	}
	if c.Current.RGain == 0 {
		c.Current.RGain = def.Current.RGain
	}
	if c.Current.InputShunt == 0 {
		c.Current.InputShunt = def.Current.InputShunt
	}

	if c.Temperature.InternalRef == 0 {
		c.Temperature.InternalRef = def.Temperature.InternalRef
	}
	if c.Temperature.Slope == 0 {
		c.Temperature.Slope = def.Temperature.Slope
	}
	if c.Temperature.Offset == 0 {
		c.Temperature.Offset = def.Temperature.Offset
	}
	if c.Temperature.BaseTemp == 0 {
		c.Temperature.BaseTemp = def.Temperature.BaseTemp
	}
	if c.Temperature.Samples == 0 {
		c.Temperature.Samples = def.Temperature.Samples
	}

	if c.Reference.InternalRef == 0 {
		c.Reference.InternalRef = def.Reference.InternalRef
	}
	if c.Reference.Samples == 0 {
		c.Reference.Samples = def.Reference.Samples
	}
}
