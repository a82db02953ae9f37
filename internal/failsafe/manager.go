package failsafe

import (
	"github.com/skyward-labs/flightloop/internal/axis"
	"github.com/skyward-labs/flightloop/internal/sensor"
)

// transitionLogCap bounds the retained transition history.
const transitionLogCap = 256

// Transition is one recorded health change, kept for telemetry.
type Transition struct {
	Cycle uint64
	Axis  axis.Name
	From  axis.Health
	To    axis.Health
}

// Manager owns the per-axis health state machine:
//
//	Nominal <-> Degraded -> Failed -> ManualOverride
//
// Degraded means the axis is running on its secondary source and
// recovers to Nominal as soon as the primary answers again. Failed is
// entered on a dual-source loss or a computation fault and is never
// retried: EndCycle promotes it to ManualOverride, which only an
// explicit external Reset leaves.
//
// Manager is owned by the loop goroutine; it is not safe for
// concurrent use.
type Manager struct {
	health      [axis.NumAxes]axis.Health
	cycle       uint64
	transitions []Transition
}

func New() *Manager {
	return &Manager{transitions: make([]Transition, 0, 16)}
}

// Health reports the current state of an axis.
func (m *Manager) Health(ax axis.Name) axis.Health {
	return m.health[ax]
}

// ObserveSensor consumes one per-cycle source selection outcome.
// Outcomes never downgrade a Failed or ManualOverride axis; a failed
// axis waits for Reset regardless of what its sensors do.
func (m *Manager) ObserveSensor(ax axis.Name, o sensor.Outcome) {
	cur := m.health[ax]
	if !cur.Usable() {
		return
	}
	switch o {
	case sensor.PrimaryGood:
		if cur == axis.Degraded {
			m.transition(ax, axis.Nominal)
		}
	case sensor.Failover:
		if cur == axis.Nominal {
			m.transition(ax, axis.Degraded)
		}
	case sensor.AllInvalid:
		m.transition(ax, axis.Failed)
	}
}

// ReportComputationFault escalates an axis whose PID step produced a
// non-finite output. Treated identically to a dual-source loss.
func (m *Manager) ReportComputationFault(ax axis.Name) {
	if m.health[ax].Usable() {
		m.transition(ax, axis.Failed)
	}
}

// EndCycle closes out one loop cycle: any axis that failed during the
// cycle is promoted to ManualOverride so it is never silently retried.
func (m *Manager) EndCycle() {
	for ax := range m.health {
		if m.health[ax] == axis.Failed {
			m.transition(axis.Name(ax), axis.ManualOverride)
		}
	}
	m.cycle++
}

// Reset is the external recovery path: it returns an axis to Nominal
// from any state. The loop clears the axis's controller state when it
// sees the recovery.
func (m *Manager) Reset(ax axis.Name) {
	if m.health[ax] != axis.Nominal {
		m.transition(ax, axis.Nominal)
	}
}

// Transitions returns the recorded health changes, oldest first.
func (m *Manager) Transitions() []Transition {
	return m.transitions
}

func (m *Manager) transition(ax axis.Name, to axis.Health) {
	from := m.health[ax]
	m.health[ax] = to
	if len(m.transitions) >= transitionLogCap {
		copy(m.transitions, m.transitions[1:])
		m.transitions = m.transitions[:len(m.transitions)-1]
	}
	m.transitions = append(m.transitions, Transition{Cycle: m.cycle, Axis: ax, From: from, To: to})
}
