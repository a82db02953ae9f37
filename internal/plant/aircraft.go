package plant

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/skyward-labs/flightloop/internal/axis"
)

// Dropout is a scheduled outage of one sensor source, in plant time.
type Dropout struct {
	Axis   axis.Name
	Source axis.Source
	FromS  float64
	UntilS float64
}

// Aircraft is a deliberately simple point-mass plant that closes the
// loop for the CLI and tests. Throttle above the hover/cruise setting
// climbs and accelerates, rudder yaws. It implements both the
// sensor.Sensors and loop.Actuators collaborator interfaces.
type Aircraft struct {
	AltitudeFt float64
	HeadingDeg float64
	SpeedKts   float64

	ClimbRateFtS float64 // climb rate at full throttle above trim
	YawRateDegS  float64 // yaw rate at full rudder
	AccelKtsS    float64 // acceleration at full throttle
	DragPerKt    float64
	TrimThrottle float64
	NoiseStd     float64

	throttle float64
	rudder   float64
	t        float64
	dropouts []Dropout
	rng      *rand.Rand
}

func NewAircraft(seed int64) *Aircraft {
	return &Aircraft{
		AltitudeFt:   29000,
		HeadingDeg:   350,
		SpeedKts:     430,
		ClimbRateFtS: 40,
		YawRateDegS:  3,
		AccelKtsS:    8,
		DragPerKt:    0.015,
		TrimThrottle: 0.55,
		NoiseStd:     0.3,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// AddDropout schedules a sensor source outage.
func (a *Aircraft) AddDropout(d Dropout) {
	a.dropouts = append(a.dropouts, d)
}

// Step advances the plant by dt seconds using the last actuator
// commands.
func (a *Aircraft) Step(dt float64) {
	excess := a.throttle - a.TrimThrottle
	a.AltitudeFt += excess * a.ClimbRateFtS / (1 - a.TrimThrottle) * dt
	a.SpeedKts += (a.throttle*a.AccelKtsS - a.DragPerKt*a.SpeedKts) * dt
	if a.SpeedKts < 0 {
		a.SpeedKts = 0
	}
	a.HeadingDeg = math.Mod(a.HeadingDeg+a.rudder*a.YawRateDegS*dt+360, 360)
	a.t += dt
}

// Time returns elapsed plant time in seconds.
func (a *Aircraft) Time() float64 { return a.t }

func (a *Aircraft) dropped(ax axis.Name, src axis.Source) bool {
	for _, d := range a.dropouts {
		if d.Axis == ax && d.Source == src && a.t >= d.FromS && a.t < d.UntilS {
			return true
		}
	}
	return false
}

func (a *Aircraft) sense(ax axis.Name, src axis.Source, truth float64) (float64, bool) {
	if a.dropped(ax, src) {
		return 0, false
	}
	noise := a.rng.NormFloat64() * a.NoiseStd
	if src == axis.Secondary {
		// The secondary unit is the noisier of the pair.
		noise *= 2
	}
	return truth + noise, true
}

func (a *Aircraft) Altitude(src axis.Source) (float64, bool) {
	return a.sense(axis.Altitude, src, a.AltitudeFt)
}

func (a *Aircraft) Heading(src axis.Source) (float64, bool) {
	return a.sense(axis.Heading, src, a.HeadingDeg)
}

func (a *Aircraft) Speed(src axis.Source) (float64, bool) {
	return a.sense(axis.Speed, src, a.SpeedKts)
}

func (a *Aircraft) SetThrottle(v float64) { a.throttle = v }
func (a *Aircraft) SetRudder(v float64)   { a.rudder = v }

// Ailerons and elevators are accepted and ignored; the plant has no
// roll or pitch state.
func (a *Aircraft) SetAilerons(v float64)  {}
func (a *Aircraft) SetElevators(v float64) {}

func (a *Aircraft) Throttle() float64 { return a.throttle }
func (a *Aircraft) Rudder() float64   { return a.rudder }

func (a *Aircraft) GetParams() map[string]float64 {
	return map[string]float64{
		"climb_rate":    a.ClimbRateFtS,
		"yaw_rate":      a.YawRateDegS,
		"accel":         a.AccelKtsS,
		"drag":          a.DragPerKt,
		"trim_throttle": a.TrimThrottle,
		"noise":         a.NoiseStd,
	}
}

func (a *Aircraft) SetParam(name string, value float64) error {
	switch name {
	case "climb_rate":
		a.ClimbRateFtS = value
	case "yaw_rate":
		a.YawRateDegS = value
	case "accel":
		a.AccelKtsS = value
	case "drag":
		a.DragPerKt = value
	case "trim_throttle":
		a.TrimThrottle = value
	case "noise":
		a.NoiseStd = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
