// Package loop contains the control loop and its fixed-period scheduler.
//
// One cycle, in order: poll the stop signal, read the redundant
// sensors for all three axes, run each axis's guarded PID step, write
// the actuators once. The [Scheduler] wakes the loop at absolute
// deadlines (start + k*period) so compute jitter never drifts the
// cadence; overruns are counted, not fatal.
//
// Per-axis failure containment: a sensor loss or computation fault
// escalates that axis through the failsafe manager and holds its last
// valid output. The other axes compute and actuate unaffected, and no
// fault ever terminates the loop. The only exit path is context
// cancellation, which finishes the current cycle and writes the safe
// shutdown posture.
//
// # Thread Safety
//
// Loop is single-threaded by construction: all axis and health state
// is confined to the goroutine calling Run (or Cycle). There are no
// locks because there is no concurrent access.
package loop
