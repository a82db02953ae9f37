package telemetry

// Counter is a monotonic event count, reset between runs.
type Counter struct {
	name string
	n    uint64
}

func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

func (c *Counter) Name() string  { return c.name }
func (c *Counter) Add(n uint64)  { c.n += n }
func (c *Counter) Value() uint64 { return c.n }
func (c *Counter) Reset()        { c.n = 0 }

// Counters is the fixed set the loop reports into. Faults never
// propagate out of the loop; they surface here and in the failsafe
// transition log instead.
type Counters struct {
	Overruns          *Counter
	Failovers         *Counter
	SensorFailures    *Counter
	ComputationFaults *Counter
}

func NewCounters() *Counters {
	return &Counters{
		Overruns:          NewCounter("schedule_overruns"),
		Failovers:         NewCounter("sensor_failovers"),
		SensorFailures:    NewCounter("sensor_failures"),
		ComputationFaults: NewCounter("computation_faults"),
	}
}

// Snapshot returns the current values keyed by counter name.
func (c *Counters) Snapshot() map[string]uint64 {
	return map[string]uint64{
		c.Overruns.Name():          c.Overruns.Value(),
		c.Failovers.Name():         c.Failovers.Value(),
		c.SensorFailures.Name():    c.SensorFailures.Value(),
		c.ComputationFaults.Name(): c.ComputationFaults.Value(),
	}
}

// Reset clears all counters.
func (c *Counters) Reset() {
	c.Overruns.Reset()
	c.Failovers.Reset()
	c.SensorFailures.Reset()
	c.ComputationFaults.Reset()
}
