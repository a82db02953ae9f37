package telemetry

import "github.com/skyward-labs/flightloop/internal/axis"

// AxisRecord is one axis's view of a completed cycle.
type AxisRecord struct {
	Target      float64
	Measurement float64
	Output      float64
	Health      axis.Health
}

// Record is the telemetry snapshot the loop emits once per cycle,
// after the actuator write.
type Record struct {
	Cycle    uint64
	Axes     [axis.NumAxes]AxisRecord
	Throttle float64
	Rudder   float64
}

// Observer receives each cycle's record. Called from the loop
// goroutine; implementations must not block.
type Observer interface {
	OnCycle(Record)
}

// Recorder retains cycle records in memory for later storage or
// plotting.
type Recorder struct {
	records []Record
}

func NewRecorder(capacity int) *Recorder {
	return &Recorder{records: make([]Record, 0, capacity)}
}

func (r *Recorder) OnCycle(rec Record) {
	r.records = append(r.records, rec)
}

func (r *Recorder) Records() []Record { return r.records }

func (r *Recorder) Reset() { r.records = r.records[:0] }
