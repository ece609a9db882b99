// Package control implements the per-tick estimation and feedback-control
// pipeline of a quadrotor flight controller: a last-value-wins measurement
// buffer, a selectable state estimator (pass-through or fixed-gain observer),
// LQR state feedback, and a fixed linear mix into four motor commands.
//
// The Core runs synchronously and never blocks; an external scheduler invokes
// Tick at a fixed rate (nominally 500 Hz). Sensor ingestion and the two
// control-plane flags may be driven concurrently from other goroutines.
package control

import (
	"sync"
	"sync/atomic"
)

// Flags is the complete external control-plane surface of the core: a mode
// selector and a one-shot reset request. Both are settable from any goroutine
// at any time.
type Flags struct {
	useObserver atomic.Bool
	resetReq    atomic.Bool
}

// SetUseObserver selects the internal observer (true) or pass-through mode.
func (f *Flags) SetUseObserver(v bool) { f.useObserver.Store(v) }

// UseObserver reports the currently selected estimator mode.
func (f *Flags) UseObserver() bool { return f.useObserver.Load() }

// RequestReset asks the estimator to zero its integrated state once, before
// the next tick's integration.
func (f *Flags) RequestReset() { f.resetReq.Store(true) }

// consumeReset is test-and-clear: at most one tick observes a given request.
func (f *Flags) consumeReset() bool { return f.resetReq.CompareAndSwap(true, false) }

// TickInput is everything a tick consumes besides the buffered asynchronous
// measurements.
type TickInput struct {
	Setpoint Setpoint
	Gyro     Vec3          // deg/s, synchronous with the tick
	AccelZ   float64       // g's, synchronous with the tick
	External ExternalState // consumed only in pass-through mode
	DT       float64       // seconds, fixed tick period
}

// Snapshot exposes every intermediate quantity of the most recent tick for an
// external telemetry collaborator. The core only publishes values; it never
// writes telemetry itself.
type Snapshot struct {
	Measurement Measurement
	Gyro        Vec3    // rad/s, after conversion
	AccelZ      float64 // m/s^2, after conversion
	State       State
	Setpoint    Setpoint
	Effort      Effort
	Motors      MotorCommand
	UseObserver bool
	Ticks       uint64
}

// Core owns all per-tick mutable state: the measurement buffer, the estimator
// state, the mode/reset flags, and the injected gain set. One goroutine calls
// Tick; ingestion and flag methods are safe from any other.
type Core struct {
	Flags Flags

	gains Gains
	est   estimator
	mix   *mixer
	buf   Buffer
	aux   AuxMeasurementHandler

	state State // estimator state, touched only by Tick

	mu    sync.RWMutex
	snap  Snapshot
	ticks uint64
}

// Option configures a Core at construction.
type Option func(*Core)

// WithAuxHandler routes anchor-distance, absolute-position, and pose
// measurements to h instead of discarding them.
func WithAuxHandler(h AuxMeasurementHandler) Option {
	return func(c *Core) {
		if h != nil {
			c.aux = h
		}
	}
}

// New builds a Core around an immutable gain set.
func New(g Gains, opts ...Option) *Core {
	c := &Core{
		gains: g,
		est:   estimator{g: g},
		mix:   newMixer(g),
		aux:   NopAuxHandler{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordRange ingests a range sample. Safe from any goroutine.
func (c *Core) RecordRange(distance float64) { c.buf.RecordRange(distance) }

// RecordFlow ingests an optical-flow sample. Safe from any goroutine.
func (c *Core) RecordFlow(dx, dy float64) { c.buf.RecordFlow(dx, dy) }

// RecordDistance forwards an anchor-distance measurement to the aux handler.
func (c *Core) RecordDistance(m DistanceMeasurement) { c.aux.HandleDistance(m) }

// RecordPosition forwards an absolute-position measurement to the aux handler.
func (c *Core) RecordPosition(m PositionMeasurement) { c.aux.HandlePosition(m) }

// RecordPose forwards a pose measurement to the aux handler.
func (c *Core) RecordPose(m PoseMeasurement) { c.aux.HandlePose(m) }

// Tick runs one estimate -> control -> mix pass and returns the motor command
// to hand to the actuation layer. It never blocks.
func (c *Core) Tick(in TickInput) MotorCommand {
	meas := c.buf.sample()

	rate := Vec3{
		X: radians(in.Gyro.X),
		Y: radians(in.Gyro.Y),
		Z: radians(in.Gyro.Z),
	}
	accelZ := c.gains.Gravity * in.AccelZ

	if c.Flags.consumeReset() {
		c.state = State{}
	}

	useObserver := c.Flags.UseObserver()
	if useObserver {
		c.state = c.est.observe(c.state, meas, rate, accelZ, in.DT)
	} else {
		c.state = c.est.passThrough(in.External, rate)
	}

	// Disarmed/idle: the sole fail-safe path. Honored before any controller
	// math so an invalid upstream state cannot leak into actuation.
	var effort Effort
	var cmd MotorCommand
	if in.Setpoint.ModeZ != AxisDisabled {
		effort = computeEffort(c.gains, c.state, in.Setpoint)
		cmd = c.mix.mix(effort)
	}

	c.mu.Lock()
	c.ticks++
	c.snap = Snapshot{
		Measurement: meas,
		Gyro:        rate,
		AccelZ:      accelZ,
		State:       c.state,
		Setpoint:    in.Setpoint,
		Effort:      effort,
		Motors:      cmd,
		UseObserver: useObserver,
		Ticks:       c.ticks,
	}
	c.mu.Unlock()

	return cmd
}

// Snapshot returns the intermediate quantities of the most recent tick.
// Safe from any goroutine.
func (c *Core) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}
