package control

import (
	"math"

	"github.com/skyward-labs/flightloop/internal/axis"
)

// PID is a discrete PID controller stepped once per loop cycle. The
// fixed cycle period is folded into the gains, so the integral is a
// plain running sum of errors and the derivative a first difference.
//
// All cross-cycle state (integral, last error, saturation flag) lives
// in the axis.State passed to Step; a PID value itself is pure
// configuration and may be shared.
type PID struct {
	Kp float64
	Ki float64
	Kd float64

	// Angular wraps the error into (-180, 180] before use. Set for
	// the heading axis only.
	Angular bool

	// Trim makes Step produce an increment on top of a base value
	// instead of an absolute output. The speed axis trims the
	// throttle commanded by the altitude axis.
	Trim bool
}

// Step advances the controller one cycle against st, committing the
// new error, integral and output into it. base is the value a trim
// controller builds on; absolute controllers pass 0.
//
// The returned output is already clamped to st.Range. A NaN or Inf in
// the set-point, measurement, carried state or raw output aborts the
// step with axis.ErrNonFinite wrapped in an *axis.Fault, leaving st
// untouched.
func (p PID) Step(st *axis.State, base float64) (float64, error) {
	if !finite(st.Target) || !finite(st.Measurement) || !finite(st.Integral) || !finite(st.LastErr) || !finite(base) {
		return 0, &axis.Fault{Axis: st.Name, Wrapped: axis.ErrNonFinite}
	}

	e := st.Target - st.Measurement
	if p.Angular {
		e = NormalizeDeg(e)
	}

	// Inherited anti-windup: while the previous output sat on a
	// clamp bound the error is subtracted from the integral instead
	// of added. See the saturation tests for the exact contract.
	integral := st.Integral
	if st.Saturated {
		integral -= e
	} else {
		integral += e
	}

	raw := p.Kp*e + p.Ki*integral + p.Kd*(e-st.LastErr)
	if !finite(raw) {
		return 0, &axis.Fault{Axis: st.Name, Wrapped: axis.ErrNonFinite}
	}

	out := st.Range.Clamp(base + raw)

	st.Err = e
	st.Integral = integral
	st.LastErr = e
	st.Output = out
	st.Saturated = out != base+raw

	return out, nil
}

// Reset clears the carried controller state of an axis.
func Reset(st *axis.State) {
	st.Err = 0
	st.Integral = 0
	st.LastErr = 0
	st.Saturated = false
}

// GetParams returns tunable parameters for live adjustment.
func (p PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp": p.Kp,
		"Ki": p.Ki,
		"Kd": p.Kd,
	}
}

// SetParam adjusts a PID gain.
func (p *PID) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
