package axis

// Name identifies one of the three control axes.
type Name int

const (
	Altitude Name = iota
	Heading
	Speed

	NumAxes = 3
)

func (n Name) String() string {
	switch n {
	case Altitude:
		return "altitude"
	case Heading:
		return "heading"
	case Speed:
		return "speed"
	default:
		return "unknown"
	}
}

// Source identifies a redundant sensor source.
type Source int

const (
	Primary Source = iota
	Secondary
)

func (s Source) String() string {
	if s == Secondary {
		return "secondary"
	}
	return "primary"
}

// Sample is one sensor reading, produced fresh each cycle.
// Valid=false means neither source could provide a measurement.
type Sample struct {
	Value  float64
	Valid  bool
	Source Source
}

// Health is the failsafe state of one axis.
type Health int

const (
	Nominal Health = iota
	Degraded
	Failed
	ManualOverride
)

func (h Health) String() string {
	switch h {
	case Nominal:
		return "nominal"
	case Degraded:
		return "degraded"
	case Failed:
		return "failed"
	case ManualOverride:
		return "manual_override"
	default:
		return "unknown"
	}
}

// Usable reports whether a fresh controller output may be trusted
// for an axis in this state.
func (h Health) Usable() bool {
	return h == Nominal || h == Degraded
}

// Range is the declared operating range of an axis output.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// State is the per-axis control record. It is owned by the control
// loop and mutated only during that axis's compute step.
type State struct {
	Name        Name
	Target      float64
	Measurement float64
	Err         float64
	Integral    float64
	LastErr     float64
	Output      float64
	Range       Range

	// Saturated records whether the last committed output was clamped.
	// The anti-windup branch keys off this, not off value equality,
	// so an output that merely starts at a bound does not trigger it.
	Saturated bool
	// Fresh reports whether Measurement was updated this cycle.
	Fresh bool
}
