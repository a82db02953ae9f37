package config

var Presets = map[string]*Config{
	"cruise": {
		PeriodMS: 100,
		Altitude: AxisConfig{Kp: 0.1, Ki: 0.01, Kd: 0.05, Target: 30000, MinOutput: 0, MaxOutput: 1},
		Heading:  AxisConfig{Kp: 0.005, Ki: 0.0002, Kd: 0.002, Target: 90, MinOutput: -1, MaxOutput: 1},
		Speed:    AxisConfig{Kp: 0.002, Ki: 0.0001, Kd: 0.0005, Target: 450, MinOutput: 0, MaxOutput: 1},
	},
	"climb": {
		PeriodMS: 100,
		Altitude: AxisConfig{Kp: 0.15, Ki: 0.02, Kd: 0.05, Target: 35000, MinOutput: 0, MaxOutput: 1},
		Heading:  AxisConfig{Kp: 0.005, Ki: 0.0002, Kd: 0.002, Target: 270, MinOutput: -1, MaxOutput: 1},
		Speed:    AxisConfig{Kp: 0.001, Ki: 0.0001, Kd: 0.0005, Target: 320, MinOutput: 0, MaxOutput: 1},
	},
	"descent": {
		PeriodMS: 100,
		Altitude: AxisConfig{Kp: 0.08, Ki: 0.005, Kd: 0.06, Target: 12000, MinOutput: 0, MaxOutput: 1},
		Heading:  AxisConfig{Kp: 0.006, Ki: 0.0002, Kd: 0.002, Target: 180, MinOutput: -1, MaxOutput: 1},
		Speed:    AxisConfig{Kp: 0.002, Ki: 0.0001, Kd: 0.0005, Target: 280, MinOutput: 0, MaxOutput: 1},
	},
	"degraded-sensors": {
		PeriodMS: 100,
		Altitude: AxisConfig{Kp: 0.1, Ki: 0.01, Kd: 0.05, Target: 30000, MinOutput: 0, MaxOutput: 1},
		Heading:  AxisConfig{Kp: 0.005, Ki: 0.0002, Kd: 0.002, Target: 90, MinOutput: -1, MaxOutput: 1},
		Speed:    AxisConfig{Kp: 0.002, Ki: 0.0001, Kd: 0.0005, Target: 450, MinOutput: 0, MaxOutput: 1},
		Dropouts: []DropoutConfig{
			{Axis: "altitude", Source: "primary", FromS: 5, UntilS: 12},
			{Axis: "heading", Source: "primary", FromS: 8, UntilS: 10},
			{Axis: "heading", Source: "secondary", FromS: 8, UntilS: 10},
		},
	},
}

func GetPreset(name string) *Config {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
