package sensor

import "github.com/skyward-labs/flightloop/internal/axis"

// Sensors is the collaborator giving access to the redundant sensor
// sources. Implementations live outside the core (hardware drivers,
// the simulated plant); the bool result is false for an unavailable
// or invalid reading.
type Sensors interface {
	Altitude(src axis.Source) (float64, bool)
	Heading(src axis.Source) (float64, bool)
	Speed(src axis.Source) (float64, bool)
}

// Outcome summarizes how a cycle's source selection went for one axis.
type Outcome int

const (
	// PrimaryGood: the primary source answered; secondary untouched.
	PrimaryGood Outcome = iota
	// Failover: primary invalid, secondary answered.
	Failover
	// AllInvalid: both sources invalid, no measurement this cycle.
	AllInvalid
)

// StatusSink receives exactly one selection outcome per axis per
// cycle. The failsafe manager implements it.
type StatusSink interface {
	ObserveSensor(ax axis.Name, o Outcome)
}

// Reader applies the primary-first failover policy over a Sensors
// collaborator. Selection is resolved once per cycle with no retries:
// primary, then secondary, then a single AllInvalid report.
type Reader struct {
	src  Sensors
	sink StatusSink
}

func NewReader(src Sensors, sink StatusSink) *Reader {
	return &Reader{src: src, sink: sink}
}

// Read selects this cycle's measurement for one axis. An invalid
// Sample (Valid=false) means both sources failed; the sink has
// already been told.
func (r *Reader) Read(ax axis.Name) axis.Sample {
	if v, ok := r.get(ax, axis.Primary); ok {
		r.sink.ObserveSensor(ax, PrimaryGood)
		return axis.Sample{Value: v, Valid: true, Source: axis.Primary}
	}
	if v, ok := r.get(ax, axis.Secondary); ok {
		r.sink.ObserveSensor(ax, Failover)
		return axis.Sample{Value: v, Valid: true, Source: axis.Secondary}
	}
	r.sink.ObserveSensor(ax, AllInvalid)
	return axis.Sample{}
}

func (r *Reader) get(ax axis.Name, src axis.Source) (float64, bool) {
	switch ax {
	case axis.Altitude:
		return r.src.Altitude(src)
	case axis.Heading:
		return r.src.Heading(src)
	case axis.Speed:
		return r.src.Speed(src)
	default:
		return 0, false
	}
}
