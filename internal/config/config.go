package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skyward-labs/flightloop/internal/axis"
)

const (
	DefaultPeriodMS = 100

	DefaultAltitudeKp = 0.1
	DefaultAltitudeKi = 0.01
	DefaultAltitudeKd = 0.05

	DefaultHeadingKp = 0.005
	DefaultHeadingKi = 0.0002
	DefaultHeadingKd = 0.002

	DefaultSpeedKp = 0.002
	DefaultSpeedKi = 0.0001
	DefaultSpeedKd = 0.0005
)

type AxisConfig struct {
	Kp        float64 `yaml:"kp"`
	Ki        float64 `yaml:"ki"`
	Kd        float64 `yaml:"kd"`
	Target    float64 `yaml:"target"`
	MinOutput float64 `yaml:"min_output"`
	MaxOutput float64 `yaml:"max_output"`
}

// DropoutConfig schedules a simulated sensor source outage, used by
// the run and live commands to exercise failover.
type DropoutConfig struct {
	Axis   string  `yaml:"axis"`
	Source string  `yaml:"source"`
	FromS  float64 `yaml:"from_s"`
	UntilS float64 `yaml:"until_s"`
}

type Config struct {
	PeriodMS     int             `yaml:"period_ms"`
	Altitude     AxisConfig      `yaml:"altitude"`
	Heading      AxisConfig      `yaml:"heading"`
	Speed        AxisConfig      `yaml:"speed"`
	SafeThrottle float64         `yaml:"safe_throttle"`
	Seed         int64           `yaml:"seed"`
	Dropouts     []DropoutConfig `yaml:"dropouts"`
}

func DefaultConfig() *Config {
	return &Config{
		PeriodMS: DefaultPeriodMS,
		Altitude: AxisConfig{
			Kp: DefaultAltitudeKp, Ki: DefaultAltitudeKi, Kd: DefaultAltitudeKd,
			Target: 30000, MinOutput: 0, MaxOutput: 1,
		},
		Heading: AxisConfig{
			Kp: DefaultHeadingKp, Ki: DefaultHeadingKi, Kd: DefaultHeadingKd,
			Target: 90, MinOutput: -1, MaxOutput: 1,
		},
		Speed: AxisConfig{
			Kp: DefaultSpeedKp, Ki: DefaultSpeedKi, Kd: DefaultSpeedKd,
			Target: 450, MinOutput: 0, MaxOutput: 1,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.PeriodMS <= 0 {
		return fmt.Errorf("period_ms must be positive, got %d", c.PeriodMS)
	}
	for _, a := range []struct {
		name string
		cfg  AxisConfig
	}{
		{"altitude", c.Altitude},
		{"heading", c.Heading},
		{"speed", c.Speed},
	} {
		if a.cfg.MinOutput >= a.cfg.MaxOutput {
			return fmt.Errorf("%s: min_output %v must be below max_output %v", a.name, a.cfg.MinOutput, a.cfg.MaxOutput)
		}
	}
	if c.SafeThrottle < c.Altitude.MinOutput || c.SafeThrottle > c.Altitude.MaxOutput {
		return fmt.Errorf("safe_throttle %v outside throttle range", c.SafeThrottle)
	}
	for _, d := range c.Dropouts {
		if _, err := ParseAxis(d.Axis); err != nil {
			return err
		}
		if _, err := ParseSource(d.Source); err != nil {
			return err
		}
		if d.UntilS < d.FromS {
			return fmt.Errorf("dropout for %s: until_s %v before from_s %v", d.Axis, d.UntilS, d.FromS)
		}
	}
	return nil
}

// AxisConfigFor returns the section for one axis.
func (c *Config) AxisConfigFor(ax axis.Name) AxisConfig {
	switch ax {
	case axis.Heading:
		return c.Heading
	case axis.Speed:
		return c.Speed
	default:
		return c.Altitude
	}
}

func ParseAxis(s string) (axis.Name, error) {
	switch s {
	case "altitude":
		return axis.Altitude, nil
	case "heading":
		return axis.Heading, nil
	case "speed":
		return axis.Speed, nil
	default:
		return 0, fmt.Errorf("unknown axis %q", s)
	}
}

func ParseSource(s string) (axis.Source, error) {
	switch s {
	case "primary":
		return axis.Primary, nil
	case "secondary":
		return axis.Secondary, nil
	default:
		return 0, fmt.Errorf("unknown sensor source %q", s)
	}
}
