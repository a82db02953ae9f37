package loop

import (
	"context"
	"errors"
	"time"

	"github.com/skyward-labs/flightloop/internal/axis"
	"github.com/skyward-labs/flightloop/internal/control"
	"github.com/skyward-labs/flightloop/internal/failsafe"
	"github.com/skyward-labs/flightloop/internal/sensor"
	"github.com/skyward-labs/flightloop/internal/telemetry"
)

// Actuators is the sink the loop writes once per cycle. SetThrottle
// receives [0,1]; the surface setters receive [-1,1]. The loop clamps
// before calling, implementations may assume in-range values.
type Actuators interface {
	SetThrottle(v float64)
	SetRudder(v float64)
	SetAilerons(v float64)
	SetElevators(v float64)
}

// Options configures a Loop.
type Options struct {
	Axes      [axis.NumAxes]axis.State
	PIDs      [axis.NumAxes]control.PID
	Sensors   sensor.Sensors
	Actuators Actuators

	// Health defaults to a fresh failsafe.Manager.
	Health *failsafe.Manager
	// Counters defaults to a fresh telemetry.Counters.
	Counters *telemetry.Counters
	// SafeThrottle is written on shutdown; surfaces are centered.
	SafeThrottle float64
}

// Loop runs one control cycle at a time: sensors, then guarded PID
// steps, then a single actuator write. All axis state is owned here
// and touched only from the loop's goroutine; axes are computed
// independently so a fault in one never delays the others.
type Loop struct {
	axes       [axis.NumAxes]axis.State
	pids       [axis.NumAxes]control.PID
	reader     *sensor.Reader
	health     *failsafe.Manager
	act        Actuators
	counters   *telemetry.Counters
	observers  []telemetry.Observer
	lastHealth [axis.NumAxes]axis.Health
	faults     [axis.NumAxes]*axis.Fault

	throttle     float64
	rudder       float64
	safeThrottle float64
	cycle        uint64
}

func New(opts Options) *Loop {
	if opts.Health == nil {
		opts.Health = failsafe.New()
	}
	if opts.Counters == nil {
		opts.Counters = telemetry.NewCounters()
	}
	l := &Loop{
		axes:         opts.Axes,
		pids:         opts.PIDs,
		health:       opts.Health,
		act:          opts.Actuators,
		counters:     opts.Counters,
		safeThrottle: opts.SafeThrottle,
	}
	l.reader = sensor.NewReader(opts.Sensors, l)
	return l
}

// AddObserver registers a per-cycle telemetry observer.
func (l *Loop) AddObserver(o telemetry.Observer) {
	l.observers = append(l.observers, o)
}

// ObserveSensor forwards source-selection outcomes to the failsafe
// manager and counts them. It exists to satisfy sensor.StatusSink;
// only the loop's own reader calls it.
func (l *Loop) ObserveSensor(ax axis.Name, o sensor.Outcome) {
	switch o {
	case sensor.Failover:
		l.counters.Failovers.Add(1)
	case sensor.AllInvalid:
		l.counters.SensorFailures.Add(1)
		l.faults[ax] = &axis.Fault{Axis: ax, Cycle: l.cycle, Wrapped: axis.ErrSensorFailure}
	}
	l.health.ObserveSensor(ax, o)
}

// Run drives the loop on sched until ctx is canceled, then performs
// one final safe actuator write. Cancellation is polled at the top of
// each cycle; a cycle in progress always completes.
func (l *Loop) Run(ctx context.Context, sched *Scheduler) {
	sched.OnOverrun = func(late time.Duration) {
		l.counters.Overruns.Add(1)
	}
	sched.Run(ctx, l.Cycle)
	l.SafeStop()
}

// Cycle executes one control cycle: sensor reads for all axes, then
// per-axis guarded compute, then exactly one write per actuator.
func (l *Loop) Cycle() {
	for ax := axis.Name(0); ax < axis.NumAxes; ax++ {
		s := l.reader.Read(ax)
		if s.Valid {
			l.axes[ax].Measurement = s.Value
			l.axes[ax].Fresh = true
		} else {
			// Measurement stays at last-known-good; the axis is
			// Failed by now and its output is held.
			l.axes[ax].Fresh = false
		}
	}

	l.stepAxis(axis.Altitude, 0, &l.throttle)
	l.stepAxis(axis.Heading, 0, &l.rudder)
	// Speed trims the throttle the altitude axis just commanded.
	l.stepAxis(axis.Speed, l.throttle, &l.throttle)

	l.act.SetThrottle(l.throttle)
	l.act.SetRudder(l.rudder)

	// Emit before the end-of-cycle promotion so a Failed axis is
	// visible in this cycle's record, not just the transition log.
	l.emit()
	l.health.EndCycle()
	l.cycle++
}

// stepAxis runs one guarded PID step. Unusable axes keep their held
// output and carried state untouched; a computation fault escalates
// the axis and holds, it never propagates.
func (l *Loop) stepAxis(ax axis.Name, base float64, out *float64) {
	h := l.health.Health(ax)
	defer func() { l.lastHealth[ax] = h }()

	if !h.Usable() {
		return
	}
	if !l.lastHealth[ax].Usable() {
		// Externally reset axis: stale integrator state from before
		// the failure must not leak into the recovered axis.
		control.Reset(&l.axes[ax])
	}

	st := l.axes[ax]
	v, err := l.pids[ax].Step(&st, base)
	if err != nil {
		var f *axis.Fault
		if errors.As(err, &f) {
			f.Cycle = l.cycle
			l.faults[ax] = f
		}
		l.counters.ComputationFaults.Add(1)
		l.health.ReportComputationFault(ax)
		return
	}
	l.axes[ax] = st
	*out = v
}

// SafeStop writes the shutdown posture: safe throttle, centered
// surfaces.
func (l *Loop) SafeStop() {
	l.act.SetThrottle(l.safeThrottle)
	l.act.SetRudder(0)
	l.act.SetAilerons(0)
	l.act.SetElevators(0)
}

func (l *Loop) emit() {
	if len(l.observers) == 0 {
		return
	}
	rec := telemetry.Record{
		Cycle:    l.cycle,
		Throttle: l.throttle,
		Rudder:   l.rudder,
	}
	for ax := 0; ax < axis.NumAxes; ax++ {
		rec.Axes[ax] = telemetry.AxisRecord{
			Target:      l.axes[ax].Target,
			Measurement: l.axes[ax].Measurement,
			Output:      l.axes[ax].Output,
			Health:      l.health.Health(axis.Name(ax)),
		}
	}
	for _, o := range l.observers {
		o.OnCycle(rec)
	}
}

// Axis returns a copy of one axis's control record.
func (l *Loop) Axis(ax axis.Name) axis.State { return l.axes[ax] }

// SetTarget changes an axis set-point between cycles.
func (l *Loop) SetTarget(ax axis.Name, v float64) { l.axes[ax].Target = v }

// TunePID replaces one axis's gains, keeping carried state.
func (l *Loop) TunePID(ax axis.Name, name string, value float64) {
	l.pids[ax].SetParam(name, value)
}

// PID returns a copy of one axis's controller configuration.
func (l *Loop) PID(ax axis.Name) control.PID { return l.pids[ax] }

// Health reports an axis's failsafe state.
func (l *Loop) Health(ax axis.Name) axis.Health { return l.health.Health(ax) }

// ResetAxis is the external recovery path for a ManualOverride axis.
// It also clears the fault that took the axis down.
func (l *Loop) ResetAxis(ax axis.Name) {
	l.health.Reset(ax)
	l.faults[ax] = nil
}

// AxisErr reports why an axis stopped producing output, nil while the
// axis is usable. An axis failed before this loop saw the fault, such
// as one handed in already failed, reports ErrAxisFailed.
func (l *Loop) AxisErr(ax axis.Name) error {
	if l.health.Health(ax).Usable() {
		return nil
	}
	if f := l.faults[ax]; f != nil {
		return f
	}
	return &axis.Fault{Axis: ax, Wrapped: axis.ErrAxisFailed}
}

// Throttle returns the last written throttle command.
func (l *Loop) Throttle() float64 { return l.throttle }

// Rudder returns the last written rudder command.
func (l *Loop) Rudder() float64 { return l.rudder }

// Cycles returns the number of completed cycles.
func (l *Loop) Cycles() uint64 { return l.cycle }

// Counters exposes the loop's telemetry counters.
func (l *Loop) Counters() *telemetry.Counters { return l.counters }

// Transitions exposes the failsafe transition log.
func (l *Loop) Transitions() []failsafe.Transition { return l.health.Transitions() }
