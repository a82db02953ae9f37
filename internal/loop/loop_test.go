package loop

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/skyward-labs/flightloop/internal/axis"
	"github.com/skyward-labs/flightloop/internal/control"
	"github.com/skyward-labs/flightloop/internal/failsafe"
	"github.com/skyward-labs/flightloop/internal/telemetry"
)

// scriptableSensors lets tests knock individual sources out between
// cycles.
type scriptableSensors struct {
	values map[axis.Name]map[axis.Source]float64
}

func newScriptableSensors() *scriptableSensors {
	return &scriptableSensors{values: map[axis.Name]map[axis.Source]float64{
		axis.Altitude: {axis.Primary: 29000, axis.Secondary: 29000},
		axis.Heading:  {axis.Primary: 350, axis.Secondary: 350},
		axis.Speed:    {axis.Primary: 450, axis.Secondary: 450},
	}}
}

func (s *scriptableSensors) set(ax axis.Name, v float64) {
	s.values[ax] = map[axis.Source]float64{axis.Primary: v, axis.Secondary: v}
}

func (s *scriptableSensors) kill(ax axis.Name, src axis.Source) {
	delete(s.values[ax], src)
}

func (s *scriptableSensors) read(ax axis.Name, src axis.Source) (float64, bool) {
	v, ok := s.values[ax][src]
	return v, ok
}

func (s *scriptableSensors) Altitude(src axis.Source) (float64, bool) {
	return s.read(axis.Altitude, src)
}
func (s *scriptableSensors) Heading(src axis.Source) (float64, bool) {
	return s.read(axis.Heading, src)
}
func (s *scriptableSensors) Speed(src axis.Source) (float64, bool) {
	return s.read(axis.Speed, src)
}

type recordingActuators struct {
	throttle  []float64
	rudder    []float64
	ailerons  []float64
	elevators []float64
}

func (a *recordingActuators) SetThrottle(v float64)  { a.throttle = append(a.throttle, v) }
func (a *recordingActuators) SetRudder(v float64)    { a.rudder = append(a.rudder, v) }
func (a *recordingActuators) SetAilerons(v float64)  { a.ailerons = append(a.ailerons, v) }
func (a *recordingActuators) SetElevators(v float64) { a.elevators = append(a.elevators, v) }

func (a *recordingActuators) lastThrottle() float64 { return a.throttle[len(a.throttle)-1] }
func (a *recordingActuators) lastRudder() float64   { return a.rudder[len(a.rudder)-1] }

func testOptions(src *scriptableSensors, act *recordingActuators) Options {
	return Options{
		Axes: [axis.NumAxes]axis.State{
			{Name: axis.Altitude, Target: 30000, Range: axis.Range{Min: 0, Max: 1}},
			{Name: axis.Heading, Target: 90, Range: axis.Range{Min: -1, Max: 1}},
			{Name: axis.Speed, Target: 450, Range: axis.Range{Min: 0, Max: 1}},
		},
		PIDs: [axis.NumAxes]control.PID{
			{Kp: 0.1, Ki: 0.01, Kd: 0.05},
			{Kp: 0.005, Angular: true},
			{Kp: 0.001, Trim: true},
		},
		Sensors:   src,
		Actuators: act,
	}
}

func TestCycle_NominalComputeAndWrite(t *testing.T) {
	src := newScriptableSensors()
	act := &recordingActuators{}
	l := New(testOptions(src, act))

	l.Cycle()

	// Altitude error 1000 saturates the throttle; speed error is zero
	// so the trim leaves it alone.
	if got := act.lastThrottle(); got != 1.0 {
		t.Errorf("throttle = %v, want 1.0", got)
	}
	// Heading error wraps -260 to +100; Kp 0.005 gives 0.5.
	if got := act.lastRudder(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("rudder = %v, want 0.5", got)
	}
	// Exactly one write per actuator per cycle.
	if len(act.throttle) != 1 || len(act.rudder) != 1 {
		t.Errorf("writes: throttle %d, rudder %d, want 1 each", len(act.throttle), len(act.rudder))
	}
	for ax := axis.Name(0); ax < axis.NumAxes; ax++ {
		if l.Health(ax) != axis.Nominal {
			t.Errorf("%v health = %v, want nominal", ax, l.Health(ax))
		}
	}
}

func TestCycle_SpeedTrimsThrottle(t *testing.T) {
	src := newScriptableSensors()
	src.set(axis.Altitude, 29999) // small error keeps throttle off the clamp
	src.set(axis.Speed, 440)      // 10 knots slow: trim adds Kp*10
	act := &recordingActuators{}
	l := New(testOptions(src, act))

	l.Cycle()

	base := l.Axis(axis.Altitude).Output
	want := base + 0.001*10
	if got := act.lastThrottle(); math.Abs(got-want) > 1e-12 {
		t.Errorf("trimmed throttle = %v, want %v (base %v)", got, want, base)
	}
}

func TestCycle_SingleSourceLossDegradesOnly(t *testing.T) {
	src := newScriptableSensors()
	src.kill(axis.Altitude, axis.Primary)
	act := &recordingActuators{}
	l := New(testOptions(src, act))

	l.Cycle()

	if l.Health(axis.Altitude) != axis.Degraded {
		t.Errorf("health = %v, want degraded", l.Health(axis.Altitude))
	}
	// The secondary measurement still drives a fresh output.
	if l.Axis(axis.Altitude).Measurement != 29000 {
		t.Errorf("measurement = %v, want secondary 29000", l.Axis(axis.Altitude).Measurement)
	}
	if l.Counters().Failovers.Value() != 1 {
		t.Errorf("failovers = %d, want 1", l.Counters().Failovers.Value())
	}

	// Primary back: next cycle recovers to nominal.
	src.set(axis.Altitude, 29100)
	l.Cycle()
	if l.Health(axis.Altitude) != axis.Nominal {
		t.Errorf("health = %v, want nominal after primary recovery", l.Health(axis.Altitude))
	}
}

func TestCycle_DualSourceLossHoldsThrottle(t *testing.T) {
	src := newScriptableSensors()
	act := &recordingActuators{}
	opts := testOptions(src, act)
	opts.PIDs[axis.Speed] = control.PID{Trim: true} // zero gains: no trim
	l := New(opts)

	l.Cycle()
	held := act.lastThrottle()
	heldState := l.Axis(axis.Altitude)

	src.kill(axis.Altitude, axis.Primary)
	src.kill(axis.Altitude, axis.Secondary)
	l.Cycle()

	// The throttle written this cycle is the prior cycle's held value.
	if got := act.lastThrottle(); got != held {
		t.Errorf("throttle = %v, want held %v", got, held)
	}
	// Failed is promoted to manual override at end of cycle; the axis
	// is never silently retried.
	if l.Health(axis.Altitude) != axis.ManualOverride {
		t.Errorf("health = %v, want manual_override", l.Health(axis.Altitude))
	}
	// Carried controller state is frozen.
	st := l.Axis(axis.Altitude)
	if st.Integral != heldState.Integral || st.LastErr != heldState.LastErr || st.Output != heldState.Output {
		t.Errorf("axis state mutated while failed: %+v vs %+v", st, heldState)
	}
	if l.Counters().SensorFailures.Value() != 1 {
		t.Errorf("sensor failures = %d, want 1", l.Counters().SensorFailures.Value())
	}
	// The failure cause is retrievable, stamped with the cycle it hit.
	var f *axis.Fault
	if err := l.AxisErr(axis.Altitude); !errors.As(err, &f) || !errors.Is(err, axis.ErrSensorFailure) {
		t.Errorf("axis err = %v, want wrapped sensor failure", err)
	} else if f.Cycle != 1 {
		t.Errorf("fault cycle = %d, want 1", f.Cycle)
	}

	// Good sensor data alone must not revive the axis.
	src.set(axis.Altitude, 29500)
	l.Cycle()
	if l.Health(axis.Altitude) != axis.ManualOverride {
		t.Errorf("health = %v, want manual_override to persist", l.Health(axis.Altitude))
	}
	if got := act.lastThrottle(); got != held {
		t.Errorf("throttle = %v, want still held %v", got, held)
	}
}

func TestCycle_ComputationFaultContained(t *testing.T) {
	src := newScriptableSensors()
	act := &recordingActuators{}
	opts := testOptions(src, act)
	opts.PIDs[axis.Speed] = control.PID{Trim: true} // zero gains: no trim
	l := New(opts)

	l.Cycle()
	held := act.lastThrottle()
	heldState := l.Axis(axis.Altitude)

	// A NaN measurement passes source selection but poisons the PID
	// arithmetic.
	src.set(axis.Altitude, math.NaN())
	l.Cycle()

	if got := act.lastThrottle(); got != held {
		t.Errorf("throttle = %v, want held %v", got, held)
	}
	if l.Counters().ComputationFaults.Value() != 1 {
		t.Errorf("computation faults = %d, want 1", l.Counters().ComputationFaults.Value())
	}
	if l.Health(axis.Altitude) != axis.ManualOverride {
		t.Errorf("health = %v, want manual_override", l.Health(axis.Altitude))
	}
	// The failed step committed nothing to the carried controller state.
	st := l.Axis(axis.Altitude)
	if st.Integral != heldState.Integral || st.LastErr != heldState.LastErr || st.Output != heldState.Output {
		t.Errorf("axis state mutated by faulted step: %+v vs %+v", st, heldState)
	}
	// The other axes keep computing.
	if l.Health(axis.Heading) != axis.Nominal {
		t.Errorf("heading health = %v, want nominal", l.Health(axis.Heading))
	}
	if got := act.lastRudder(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("rudder = %v, want fresh 0.5", got)
	}
	var f *axis.Fault
	if err := l.AxisErr(axis.Altitude); !errors.As(err, &f) || !errors.Is(err, axis.ErrNonFinite) {
		t.Errorf("axis err = %v, want wrapped non-finite", err)
	} else if f.Cycle != 1 {
		t.Errorf("fault cycle = %d, want 1", f.Cycle)
	}
}

func TestAxisErr_ExternallyFailedAxis(t *testing.T) {
	src := newScriptableSensors()
	act := &recordingActuators{}
	opts := testOptions(src, act)

	// A manager handed in with an axis already down: the loop never saw
	// the fault, so the generic cause is reported.
	mgr := failsafe.New()
	mgr.ReportComputationFault(axis.Altitude)
	mgr.EndCycle()
	opts.Health = mgr
	l := New(opts)

	if err := l.AxisErr(axis.Altitude); !errors.Is(err, axis.ErrAxisFailed) {
		t.Errorf("axis err = %v, want wrapped axis-failed", err)
	}
	if err := l.AxisErr(axis.Heading); err != nil {
		t.Errorf("usable axis err = %v, want nil", err)
	}
}

func TestCycle_AxisFaultDoesNotBlockOthers(t *testing.T) {
	src := newScriptableSensors()
	src.kill(axis.Altitude, axis.Primary)
	src.kill(axis.Altitude, axis.Secondary)
	act := &recordingActuators{}
	l := New(testOptions(src, act))

	l.Cycle()

	// Heading computed and wrote a fresh rudder despite the altitude
	// failure.
	if got := act.lastRudder(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("rudder = %v, want 0.5", got)
	}
	if l.Health(axis.Heading) != axis.Nominal {
		t.Errorf("heading health = %v, want nominal", l.Health(axis.Heading))
	}
	if len(act.throttle) != 1 || len(act.rudder) != 1 {
		t.Error("every actuator must still be written exactly once")
	}
}

func TestCycle_StaleMeasurementKept(t *testing.T) {
	src := newScriptableSensors()
	act := &recordingActuators{}
	l := New(testOptions(src, act))

	l.Cycle()
	src.kill(axis.Speed, axis.Primary)
	src.kill(axis.Speed, axis.Secondary)
	l.Cycle()

	st := l.Axis(axis.Speed)
	if st.Measurement != 450 {
		t.Errorf("measurement = %v, want last-known-good 450", st.Measurement)
	}
	if st.Fresh {
		t.Error("measurement marked fresh with no valid source")
	}
}

func TestCycle_ExternalResetRecoversAxis(t *testing.T) {
	src := newScriptableSensors()
	act := &recordingActuators{}
	opts := testOptions(src, act)
	opts.PIDs[axis.Speed] = control.PID{Trim: true}
	l := New(opts)

	l.Cycle() // builds up altitude integral
	src.kill(axis.Altitude, axis.Primary)
	src.kill(axis.Altitude, axis.Secondary)
	l.Cycle() // altitude fails

	src.set(axis.Altitude, 29800)
	l.Cycle() // still held
	l.ResetAxis(axis.Altitude)
	l.Cycle()

	if l.Health(axis.Altitude) != axis.Nominal {
		t.Fatalf("health = %v, want nominal after reset", l.Health(axis.Altitude))
	}
	st := l.Axis(axis.Altitude)
	// The recovered axis restarted from cleared controller state: one
	// accumulate step from the current error, not the pre-failure sum.
	if st.Integral != 200 {
		t.Errorf("integral = %v, want 200 (fresh accumulation)", st.Integral)
	}
	if !st.Fresh {
		t.Error("recovered axis should be consuming fresh measurements")
	}
	if err := l.AxisErr(axis.Altitude); err != nil {
		t.Errorf("axis err after reset = %v, want nil", err)
	}
}

func TestRun_StopWritesSafePosture(t *testing.T) {
	src := newScriptableSensors()
	act := &recordingActuators{}
	opts := testOptions(src, act)
	opts.SafeThrottle = 0
	l := New(opts)

	clock := newFakeClock()
	sched := NewScheduler(clock, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cycles := 0

	// Cancel from within a cycle via an observer; the loop must
	// finish that cycle before stopping.
	l.AddObserver(observerFunc(func(telemetry.Record) {
		cycles++
		if cycles == 3 {
			cancel()
		}
	}))
	l.Run(ctx, sched)

	if cycles != 3 {
		t.Fatalf("ran %d cycles, want 3", cycles)
	}
	// Final writes are the safe posture: zero throttle, centered
	// surfaces.
	if got := act.lastThrottle(); got != 0 {
		t.Errorf("final throttle = %v, want 0", got)
	}
	if got := act.lastRudder(); got != 0 {
		t.Errorf("final rudder = %v, want 0", got)
	}
	if len(act.ailerons) != 1 || act.ailerons[0] != 0 {
		t.Errorf("ailerons writes = %v, want single centered write", act.ailerons)
	}
	if len(act.elevators) != 1 || act.elevators[0] != 0 {
		t.Errorf("elevators writes = %v, want single centered write", act.elevators)
	}
}

type observerFunc func(telemetry.Record)

func (f observerFunc) OnCycle(r telemetry.Record) { f(r) }

func TestCycle_ObserverSeesCommittedState(t *testing.T) {
	src := newScriptableSensors()
	act := &recordingActuators{}
	l := New(testOptions(src, act))

	var records []telemetry.Record
	l.AddObserver(observerFunc(func(r telemetry.Record) { records = append(records, r) }))

	l.Cycle()
	l.Cycle()

	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Cycle != 0 || records[1].Cycle != 1 {
		t.Errorf("cycle numbers = %d, %d", records[0].Cycle, records[1].Cycle)
	}
	r := records[0]
	if r.Throttle != act.throttle[0] {
		t.Errorf("record throttle %v != written %v", r.Throttle, act.throttle[0])
	}
	if r.Axes[axis.Heading].Measurement != 350 {
		t.Errorf("heading measurement = %v, want 350", r.Axes[axis.Heading].Measurement)
	}
	if r.Axes[axis.Altitude].Health != axis.Nominal {
		t.Errorf("altitude health = %v, want nominal", r.Axes[axis.Altitude].Health)
	}
}
