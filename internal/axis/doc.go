// Package axis defines the shared data model for the autopilot core.
//
// The three control axes map onto actuators as follows:
//
//   - [Altitude]: throttle, output range [0, 1]
//   - [Heading]: rudder, output range [-1, 1]
//   - [Speed]: throttle trim, shares the throttle actuator with altitude
//
// Each axis carries a [State] record (set-point, last trusted measurement,
// controller state, last committed output) owned by the control loop, and a
// [Health] value owned by the failsafe manager. Sensor readings arrive as
// [Sample] values selected from redundant Primary/Secondary sources.
//
// # Thread Safety
//
// State and Health values are owned by the single loop goroutine and are
// never shared; the package defines no synchronization.
package axis
