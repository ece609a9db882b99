package control

// computeEffort maps the current state estimate and setpoint to a body-frame
// control effort. Pure proportional state feedback: each output is an affine
// combination of error terms and raw state terms with fixed gains, plus the
// equilibrium thrust bias. No integral or derivative action beyond what the
// state vector already carries.
func computeEffort(g Gains, st State, sp Setpoint) Effort {
	return Effort{
		TorqueX: g.TauXFromPosY*(st.Position.Y-sp.Position.Y) +
			g.TauXFromRoll*st.Attitude.Roll +
			g.TauXFromVy*st.Velocity.Y +
			g.TauXFromRateX*st.Rate.X,
		TorqueY: g.TauYFromPosX*(st.Position.X-sp.Position.X) +
			g.TauYFromPitch*st.Attitude.Pitch +
			g.TauYFromVx*st.Velocity.X +
			g.TauYFromRateY*st.Rate.Y,
		TorqueZ: g.TauZFromYaw*st.Attitude.Yaw +
			g.TauZFromRateZ*st.Rate.Z,
		Thrust: g.ThrustFromAlt*(st.Position.Z-sp.Position.Z) +
			g.ThrustFromVz*st.Velocity.Z +
			g.ThrustBias,
	}
}
