package control

import (
	"math"
	"testing"
)

func enabledSetpoint(p Vec3) Setpoint {
	return Setpoint{Position: p, ModeX: AxisEnabled, ModeY: AxisEnabled, ModeZ: AxisEnabled}
}

func TestTick_DisarmForcesZeroCommands(t *testing.T) {
	cases := []struct {
		name string
		in   TickInput
	}{
		{
			name: "AtRest",
			in:   TickInput{DT: 0.002},
		},
		{
			name: "LargeState",
			in: TickInput{
				DT:       0.002,
				Gyro:     Vec3{X: 500, Y: -500, Z: 250},
				AccelZ:   3,
				External: ExternalState{Position: Vec3{Z: 100}, Velocity: Vec3{X: 50}},
			},
		},
		{
			name: "NaNState",
			in: TickInput{
				DT:       0.002,
				External: ExternalState{Position: Vec3{Z: math.NaN()}},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New(DefaultGains())
			in := tc.in
			in.Setpoint = Setpoint{ModeZ: AxisDisabled}
			if cmd := c.Tick(in); cmd != (MotorCommand{}) {
				t.Fatalf("cmd=%v want all zero while disarmed", cmd)
			}
			if snap := c.Snapshot(); snap.Effort != (Effort{}) {
				t.Fatalf("effort=%+v want zero while disarmed", snap.Effort)
			}
		})
	}
}

func TestTick_HoverAtTrim(t *testing.T) {
	g := DefaultGains()
	c := New(g)

	// At rest at the trim altitude with the setpoint on top of us, the
	// controller asks for exactly the equilibrium thrust and no torque.
	in := TickInput{
		Setpoint: enabledSetpoint(Vec3{Z: g.AltEq}),
		External: ExternalState{Position: Vec3{Z: g.AltEq}},
		DT:       0.002,
	}
	cmd := c.Tick(in)
	snap := c.Snapshot()

	approxEq(t, "tauX", snap.Effort.TorqueX, 0, 1e-12)
	approxEq(t, "tauY", snap.Effort.TorqueY, 0, 1e-12)
	approxEq(t, "tauZ", snap.Effort.TorqueZ, 0, 1e-12)
	approxEq(t, "thrust", snap.Effort.Thrust, g.ThrustBias, 1e-12)

	if cmd[0] == 0 || cmd[0] == g.CommandMax {
		t.Fatalf("m1=%d should be strictly inside the range at hover", cmd[0])
	}
	for i := 1; i < 4; i++ {
		if cmd[i] != cmd[0] {
			t.Fatalf("cmd=%v want all four rotors equal at hover", cmd)
		}
	}
}

func TestTick_AltitudeErrorRaisesThrustEqually(t *testing.T) {
	g := DefaultGains()

	hover := New(g)
	hover.Tick(TickInput{
		Setpoint: enabledSetpoint(Vec3{Z: g.AltEq}),
		External: ExternalState{Position: Vec3{Z: g.AltEq}},
		DT:       0.002,
	})
	hoverCmd := hover.Snapshot().Motors

	low := New(g)
	low.Tick(TickInput{
		Setpoint: enabledSetpoint(Vec3{Z: g.AltEq}),
		External: ExternalState{Position: Vec3{Z: g.AltEq - 0.1}},
		DT:       0.002,
	})
	snap := low.Snapshot()

	wantThrust := g.ThrustBias + 0.1*(-g.ThrustFromAlt)
	approxEq(t, "thrust", snap.Effort.Thrust, wantThrust, 1e-12)
	approxEq(t, "tauX", snap.Effort.TorqueX, 0, 1e-12)
	approxEq(t, "tauY", snap.Effort.TorqueY, 0, 1e-12)

	for i := 1; i < 4; i++ {
		if snap.Motors[i] != snap.Motors[0] {
			t.Fatalf("cmd=%v want all four rotors equal", snap.Motors)
		}
	}
	if snap.Motors[0] <= hoverCmd[0] {
		t.Fatalf("m1=%d want above hover command %d", snap.Motors[0], hoverCmd[0])
	}
}

func TestTick_ResetIsOneShot(t *testing.T) {
	c := New(DefaultGains())
	c.Flags.SetUseObserver(true)

	// Build up observer state from a steady range measurement.
	c.RecordRange(0.5)
	for i := 0; i < 100; i++ {
		c.Tick(TickInput{Setpoint: enabledSetpoint(Vec3{Z: 0.5}), AccelZ: 1, DT: 0.002})
	}
	if z := c.Snapshot().State.Position.Z; z == 0 {
		t.Fatalf("altitude estimate still zero after 100 ticks; observer not integrating")
	}

	c.Flags.RequestReset()

	// The reset zeroes state before this tick's integration, so the only
	// content left afterwards is a single fresh step.
	c.Tick(TickInput{Setpoint: enabledSetpoint(Vec3{Z: 0.5}), AccelZ: 1, DT: 0.002})
	g := DefaultGains()
	approxEq(t, "alt", c.Snapshot().State.Position.Z, 0.002*g.ObsAltFromRange*0.5, 1e-12)

	if c.Flags.consumeReset() {
		t.Fatalf("reset flag still set after being observed")
	}
}

func TestFlags_ResetConsumedAtMostOnce(t *testing.T) {
	var f Flags
	f.RequestReset()
	if !f.consumeReset() {
		t.Fatalf("first consume should observe the request")
	}
	if f.consumeReset() {
		t.Fatalf("second consume observed an already-cleared request")
	}
}

func TestTick_ObserverIgnoresExternalState(t *testing.T) {
	g := DefaultGains()

	run := func(ext ExternalState) State {
		c := New(g)
		c.Flags.SetUseObserver(true)
		c.RecordRange(0.4)
		c.RecordFlow(2, -1)
		for i := 0; i < 50; i++ {
			c.Tick(TickInput{
				Setpoint: enabledSetpoint(Vec3{Z: 0.5}),
				Gyro:     Vec3{X: 1, Y: 2, Z: 3},
				AccelZ:   1,
				External: ext,
				DT:       0.002,
			})
		}
		return c.Snapshot().State
	}

	a := run(ExternalState{})
	b := run(ExternalState{Position: Vec3{X: 9, Y: 9, Z: 9}, Velocity: Vec3{X: 5}})
	if a != b {
		t.Fatalf("observer state depends on external state:\n%+v\n%+v", a, b)
	}
}

func TestTick_PassThroughIgnoresObserverHistory(t *testing.T) {
	g := DefaultGains()
	ext := ExternalState{
		Position:    Vec3{X: 0.1, Y: 0.2, Z: 0.3},
		AttitudeDeg: Attitude{Roll: 5, Pitch: -3, Yaw: 40},
		Velocity:    Vec3{X: 0.5, Y: -0.5, Z: 0.1},
	}
	in := TickInput{Setpoint: enabledSetpoint(Vec3{Z: 0.5}), Gyro: Vec3{X: 10}, External: ext, DT: 0.002}

	// Core A accumulates observer state first, then switches modes.
	a := New(g)
	a.Flags.SetUseObserver(true)
	a.RecordRange(0.7)
	for i := 0; i < 50; i++ {
		a.Tick(TickInput{Setpoint: enabledSetpoint(Vec3{Z: 0.5}), AccelZ: 1, DT: 0.002})
	}
	a.Flags.SetUseObserver(false)
	a.Tick(in)

	// Core B goes straight to pass-through.
	b := New(g)
	b.Tick(in)

	if a.Snapshot().State != b.Snapshot().State {
		t.Fatalf("pass-through state leaked observer history:\n%+v\n%+v",
			a.Snapshot().State, b.Snapshot().State)
	}
}

func TestTick_SnapshotExposesIntermediates(t *testing.T) {
	g := DefaultGains()
	c := New(g)
	c.RecordRange(0.45)
	c.RecordFlow(1, 2)

	in := TickInput{
		Setpoint: enabledSetpoint(Vec3{Z: g.AltEq}),
		Gyro:     Vec3{X: 90},
		AccelZ:   1,
		External: ExternalState{Position: Vec3{Z: g.AltEq}},
		DT:       0.002,
	}
	cmd := c.Tick(in)
	snap := c.Snapshot()

	if snap.Motors != cmd {
		t.Fatalf("snapshot motors %v != returned %v", snap.Motors, cmd)
	}
	if snap.Measurement.Range != 0.45 || snap.Measurement.FlowCount != 1 {
		t.Fatalf("measurement=%+v", snap.Measurement)
	}
	approxEq(t, "wx", snap.Gyro.X, math.Pi/2, 1e-12)
	approxEq(t, "az", snap.AccelZ, g.Gravity, 1e-12)
	if snap.Ticks != 1 {
		t.Fatalf("ticks=%d want 1", snap.Ticks)
	}
	if snap.UseObserver {
		t.Fatalf("snapshot reports observer mode for a pass-through tick")
	}
}
