// Package control implements the discrete PID law stepped by the loop.
//
// One [PID] value per axis, configured from [config]:
//
//	pid := control.PID{Kp: 0.1, Ki: 0.01, Kd: 0.05}
//	out, err := pid.Step(&st, 0) // st carries integral/lastErr across cycles
//
// The heading axis sets Angular to wrap errors into (-180, 180]; the
// speed axis sets Trim to produce a throttle increment instead of an
// absolute output. PIDs implementing GetParams/SetParam support live
// tuning from the TUI.
package control
