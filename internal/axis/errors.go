package axis

import "errors"

// Domain errors for control computation and sensor selection.
var (
	// ErrNonFinite indicates a NaN or Inf entered a control computation.
	ErrNonFinite = errors.New("flightloop: non-finite value in control computation")

	// ErrSensorFailure indicates both redundant sources were invalid in a cycle.
	ErrSensorFailure = errors.New("flightloop: all sensor sources invalid")

	// ErrAxisFailed indicates an axis is in Failed or ManualOverride health.
	ErrAxisFailed = errors.New("flightloop: axis failed, awaiting external reset")
)

// Fault wraps an error with the axis it was contained to.
type Fault struct {
	Axis    Name
	Cycle   uint64
	Wrapped error
}

func (f *Fault) Error() string {
	return f.Axis.String() + ": " + f.Wrapped.Error()
}

func (f *Fault) Unwrap() error {
	return f.Wrapped
}
