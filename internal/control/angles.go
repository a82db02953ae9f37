package control

import "math"

// NormalizeDeg wraps an angle in degrees into the half-open interval
// (-180, 180]. Heading errors go through this before the PID terms so
// that a set-point of 90 with a measurement of 350 yields +100, not
// -260.
func NormalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg <= -180 {
		deg += 360
	} else if deg > 180 {
		deg -= 360
	}
	return deg
}
