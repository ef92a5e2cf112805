package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration.
type Config struct {
	I2C      I2CConfig      `yaml:"i2c"`
	Serial   SerialConfig   `yaml:"serial"`
	Sampling SamplingConfig `yaml:"sampling"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Mock     MockConfig     `yaml:"mock"`
}

// I2CConfig selects the bus the two-wire sensors sit on.
type I2CConfig struct {
	// Bus is the i2creg bus name; empty selects the first available bus.
	Bus string `yaml:"bus"`
}

// SerialConfig contains the particulate sensor serial port settings.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// SamplingConfig contains the scheduler periods.
type SamplingConfig struct {
	SampleInterval  time.Duration `yaml:"sample_interval"`
	PublishInterval time.Duration `yaml:"publish_interval"`
}

// IngestConfig contains the ingestion endpoint settings.
type IngestConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// MetricsConfig configures the local Prometheus listener. An empty
// listen address disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// MockConfig contains simulated sensor configuration for running
// without hardware.
type MockConfig struct {
	Temperature float64 `yaml:"temperature"` // baseline temperature (degF)
	Humidity    float64 `yaml:"humidity"`    // baseline humidity (%RH)
	RawVOC      float64 `yaml:"raw_voc"`     // baseline raw gas ticks
	PM25        float64 `yaml:"pm2_5"`       // baseline PM2.5 (ug/m3)
	NoiseLevel  float64 `yaml:"noise_level"` // relative noise amplitude
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		I2C: I2CConfig{
			Bus: "", // first available bus
		},
		Serial: SerialConfig{
			Port: "/dev/ttyAMA0",
			Baud: 9600,
		},
		Sampling: SamplingConfig{
			SampleInterval:  5 * time.Second,
			PublishInterval: 60 * time.Second,
		},
		Ingest: IngestConfig{
			URL:     "",
			Timeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Listen: "",
		},
		Mock: MockConfig{
			Temperature: 70.0,
			Humidity:    45.0,
			RawVOC:      30000.0,
			PM25:        8.0,
			NoiseLevel:  0.02,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist
// or fields are missing, it uses default values.
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
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	if c.Sampling.SampleInterval == 0 {
		c.Sampling.SampleInterval = def.Sampling.SampleInterval
	}
	if c.Sampling.PublishInterval == 0 {
		c.Sampling.PublishInterval = def.Sampling.PublishInterval
	}

	if c.Ingest.Timeout == 0 {
		c.Ingest.Timeout = def.Ingest.Timeout
	}

	if c.Mock.Temperature == 0 {
		c.Mock.Temperature = def.Mock.Temperature
	}
	if c.Mock.Humidity == 0 {
		c.Mock.Humidity = def.Mock.Humidity
	}
	if c.Mock.RawVOC == 0 {
		c.Mock.RawVOC = def.Mock.RawVOC
	}
	if c.Mock.PM25 == 0 {
		c.Mock.PM25 = def.Mock.PM25
	}
	if c.Mock.NoiseLevel == 0 {
		c.Mock.NoiseLevel = def.Mock.NoiseLevel
	}
}
