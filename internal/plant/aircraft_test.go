package plant

import (
	"testing"

	"github.com/skyward-labs/flightloop/internal/axis"
)

func TestAircraft_ClimbsAboveTrimThrottle(t *testing.T) {
	a := NewAircraft(1)
	start := a.AltitudeFt

	a.SetThrottle(1.0)
	for i := 0; i < 100; i++ {
		a.Step(0.1)
	}
	if a.AltitudeFt <= start {
		t.Errorf("altitude %v did not climb from %v at full throttle", a.AltitudeFt, start)
	}

	a.SetThrottle(0)
	mid := a.AltitudeFt
	for i := 0; i < 100; i++ {
		a.Step(0.1)
	}
	if a.AltitudeFt >= mid {
		t.Errorf("altitude %v did not descend from %v at idle", a.AltitudeFt, mid)
	}
}

func TestAircraft_HeadingWrapsAtNorth(t *testing.T) {
	a := NewAircraft(1)
	a.HeadingDeg = 359
	a.SetRudder(1.0)
	for i := 0; i < 10; i++ {
		a.Step(0.1)
	}
	if a.HeadingDeg < 0 || a.HeadingDeg >= 360 {
		t.Errorf("heading %v outside [0, 360)", a.HeadingDeg)
	}
}

func TestAircraft_DropoutWindow(t *testing.T) {
	a := NewAircraft(1)
	a.AddDropout(Dropout{Axis: axis.Altitude, Source: axis.Primary, FromS: 1, UntilS: 2})

	if _, ok := a.Altitude(axis.Primary); !ok {
		t.Error("primary should answer before the window")
	}
	for a.Time() < 1.5 {
		a.Step(0.1)
	}
	if _, ok := a.Altitude(axis.Primary); ok {
		t.Error("primary should be out inside the window")
	}
	if _, ok := a.Altitude(axis.Secondary); !ok {
		t.Error("secondary unaffected by a primary dropout")
	}
	for a.Time() < 2.5 {
		a.Step(0.1)
	}
	if _, ok := a.Altitude(axis.Primary); !ok {
		t.Error("primary should recover after the window")
	}
}

func TestAircraft_DeterministicBySeed(t *testing.T) {
	a := NewAircraft(42)
	b := NewAircraft(42)

	for i := 0; i < 5; i++ {
		va, _ := a.Speed(axis.Primary)
		vb, _ := b.Speed(axis.Primary)
		if va != vb {
			t.Fatalf("same seed diverged: %v vs %v", va, vb)
		}
	}
}
