// Package sim provides a deterministic quadrotor plant and a script-driven
// setpoint source for closed-loop bring-up and tests. No randomness, no wall
// clock: every run of the same script is identical.
package sim

import (
	"math"

	"flightcore/internal/control"
)

// Inertia is the diagonal of the body inertia tensor in kg*m^2.
type Inertia struct {
	XX float64
	YY float64
	ZZ float64
}

// Quad integrates the hover-linearized rigid-body model the controller was
// synthesized against, driven by the four motor commands. It also synthesizes
// the sensor readings the real vehicle would produce: gyro, z-accelerometer,
// single-point range, and optical flow.
type Quad struct {
	gains   control.Gains
	mass    float64
	inertia Inertia

	pos  control.Vec3     // world frame, m
	vel  control.Vec3     // world frame, m/s
	att  control.Attitude // rad
	rate control.Vec3     // body frame, rad/s

	specificForceZ float64 // m/s^2, what the z-accelerometer feels
}

// NewQuad builds a plant consistent with the gain set: the mass is derived
// from the equilibrium thrust so hover is exact by construction.
func NewQuad(g control.Gains) *Quad {
	return &Quad{
		gains:          g,
		mass:           g.ThrustBias / g.Gravity,
		inertia:        Inertia{XX: 2.3951e-5, YY: 2.3951e-5, ZZ: 3.2347e-5},
		specificForceZ: g.Gravity, // at rest, supported
	}
}

// SetPosition places the vehicle without touching velocities.
func (q *Quad) SetPosition(p control.Vec3) { q.pos = p }

// SetPitch sets the pitch angle in radians.
func (q *Quad) SetPitch(theta float64) { q.att.Pitch = theta }

// Step advances the plant one forward-Euler step of length dt under the
// given motor command.
func (q *Quad) Step(cmd control.MotorCommand, dt float64) {
	tauX, tauY, tauZ, thrust := q.invertMix(cmd)

	g := q.gains.Gravity

	q.pos.X += dt * q.vel.X
	q.pos.Y += dt * q.vel.Y
	q.pos.Z += dt * q.vel.Z

	q.att.Roll += dt * q.rate.X
	q.att.Pitch += dt * q.rate.Y
	q.att.Yaw += dt * q.rate.Z

	q.specificForceZ = thrust / q.mass

	q.vel.X += dt * (g * q.att.Pitch)
	q.vel.Y += dt * (-g * q.att.Roll)
	q.vel.Z += dt * (q.specificForceZ - g)

	q.rate.X += dt * (tauX / q.inertia.XX)
	q.rate.Y += dt * (tauY / q.inertia.YY)
	q.rate.Z += dt * (tauZ / q.inertia.ZZ)

	// Ground: the vehicle cannot descend below the floor.
	if q.pos.Z < 0 {
		q.pos.Z = 0
		if q.vel.Z < 0 {
			q.vel.Z = 0
		}
	}
}

// invertMix recovers (tau_x, tau_y, tau_z, thrust) from the four commands.
// The mixing rows are sign patterns on common coefficients, so the inverse
// reduces to four signed sums.
func (q *Quad) invertMix(cmd control.MotorCommand) (tauX, tauY, tauZ, thrust float64) {
	a := q.gains.Mix[2][0] // torque coefficient
	b := q.gains.Mix[1][2] // yaw coefficient
	c := q.gains.Mix[0][3] // thrust coefficient

	m1, m2, m3, m4 := float64(cmd[0]), float64(cmd[1]), float64(cmd[2]), float64(cmd[3])
	tauX = (-m1 - m2 + m3 + m4) / (4 * a)
	tauY = (-m1 + m2 + m3 - m4) / (4 * a)
	tauZ = (-m1 + m2 - m3 + m4) / (4 * b)
	thrust = (m1 + m2 + m3 + m4) / (4 * c)
	return tauX, tauY, tauZ, thrust
}

// External returns the plant truth in the convention an external estimator
// would report it: attitude in degrees with the platform pitch sign, velocity
// world-frame.
func (q *Quad) External() control.ExternalState {
	const radToDeg = 180.0 / math.Pi
	return control.ExternalState{
		Position: q.pos,
		AttitudeDeg: control.Attitude{
			Roll:  q.att.Roll * radToDeg,
			Pitch: -q.att.Pitch * radToDeg,
			Yaw:   q.att.Yaw * radToDeg,
		},
		Velocity: q.vel,
	}
}

// GyroDegPerSec returns the body rates as the gyro reports them.
func (q *Quad) GyroDegPerSec() control.Vec3 {
	const radToDeg = 180.0 / math.Pi
	return control.Vec3{X: q.rate.X * radToDeg, Y: q.rate.Y * radToDeg, Z: q.rate.Z * radToDeg}
}

// AccelZG returns the z specific force in g's.
func (q *Quad) AccelZG() float64 { return q.specificForceZ / q.gains.Gravity }

// RangeMeters returns what the downward range sensor reads.
func (q *Quad) RangeMeters() float64 {
	if q.pos.Z < 0 {
		return 0
	}
	return q.pos.Z
}

// Flow returns the optical-flow pixel rates. The true flow scales with
// velocity over height; height is floored to keep the signal finite on the
// ground.
func (q *Quad) Flow() (dx, dy float64) {
	z := q.pos.Z
	if z < 0.1 {
		z = 0.1
	}
	k := q.gains.KFlow
	dx = k * (q.vel.X/z - q.rate.Y)
	dy = k * (q.rate.X + q.vel.Y/z)
	return dx, dy
}
