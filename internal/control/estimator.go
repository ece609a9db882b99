package control

import "math"

// estimator applies one of the two estimation modes each tick. It carries no
// state of its own; the integrated state lives in the Core and is passed in.
type estimator struct {
	g Gains
}

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }

// passThrough relays an externally computed state estimate into this core's
// convention. Nothing is integrated: every field is recomputed algebraically
// from the external state and the current gyro sample.
//
// The external pitch sign is inverted (theta here is the negative of the
// platform's pitch), and the external world-frame velocity is rotated into
// the body-aligned frame through the ZYX (yaw, pitch, roll) transform.
func (e estimator) passThrough(ext ExternalState, rate Vec3) State {
	psi := radians(ext.AttitudeDeg.Yaw)
	theta := -radians(ext.AttitudeDeg.Pitch)
	phi := radians(ext.AttitudeDeg.Roll)

	sPhi, cPhi := math.Sin(phi), math.Cos(phi)
	sTheta, cTheta := math.Sin(theta), math.Cos(theta)
	sPsi, cPsi := math.Sin(psi), math.Cos(psi)

	v := ext.Velocity
	return State{
		Position: ext.Position,
		Attitude: Attitude{Roll: phi, Pitch: theta, Yaw: psi},
		Velocity: Vec3{
			X: v.X*cPsi*cTheta + v.Y*sPsi*cTheta - v.Z*sTheta,
			Y: v.X*(sPhi*sTheta*cPsi-sPsi*cPhi) + v.Y*(sPhi*sPsi*sTheta+cPhi*cPsi) + v.Z*sPhi*cTheta,
			Z: v.X*(sPhi*sPsi+sTheta*cPhi*cPsi) + v.Y*(-sPhi*cPsi+sPsi*sTheta*cPhi) + v.Z*cPhi*cTheta,
		},
		Rate: rate,
	}
}

// observe advances the fixed-gain observer by one forward-Euler step of
// length dt.
//
// The residuals compare what the flow and range sensors should read at the
// current estimate against what they last reported:
//
//	flowX residual = kFlow * (v_x/altEq - w_y) - measured_dx
//	flowY residual = kFlow * (w_x + v_y/altEq) - measured_dy
//	range residual = estimated altitude - measured range
//
// Each integrated variable then follows its rigid-body kinematic derivative
// minus a pre-synthesized correction gain times the relevant residual.
// Angular rate and z-acceleration are direct measurement inputs, never
// integrated.
//
// The updates are sequential: residuals and position use the previous state,
// but the horizontal velocities integrate the pitch/roll already advanced
// this same step.
func (e estimator) observe(prev State, m Measurement, rate Vec3, accelZ float64, dt float64) State {
	g := e.g

	flowXErr := g.KFlow*(prev.Velocity.X/g.AltEq-rate.Y) - m.FlowDX
	flowYErr := g.KFlow*(rate.X+prev.Velocity.Y/g.AltEq) - m.FlowDY
	rangeErr := prev.Position.Z - m.Range

	next := prev
	next.Rate = rate

	next.Position.X += dt * prev.Velocity.X
	next.Position.Y += dt * prev.Velocity.Y
	next.Position.Z += dt * (prev.Velocity.Z - g.ObsAltFromRange*rangeErr)

	next.Attitude.Yaw += dt * rate.Z
	next.Attitude.Pitch += dt * (rate.Y - g.ObsPitchFromFlowX*flowXErr)
	next.Attitude.Roll += dt * (rate.X - g.ObsRollFromFlowY*flowYErr)

	next.Velocity.X += dt * (g.Gravity*next.Attitude.Pitch - g.ObsVxFromFlowX*flowXErr)
	next.Velocity.Y += dt * (-g.Gravity*next.Attitude.Roll - g.ObsVyFromFlowY*flowYErr)
	next.Velocity.Z += dt * (accelZ - g.Gravity - g.ObsVzFromRange*rangeErr)

	return next
}
