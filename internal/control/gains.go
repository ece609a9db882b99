package control

// Gains is the immutable product of the offline LQR/observer synthesis.
//
// Construct one with DefaultGains and inject it into the Core. Nothing in
// this package mutates a Gains value after construction; tests may substitute
// their own.
type Gains struct {
	// Model constants.
	KFlow   float64 // optical-flow linearization constant (pixel-rate per rad/s)
	Gravity float64 // m/s^2
	AltEq   float64 // trim/equilibrium altitude o_z_eq (m)

	// Observer correction gains. Each integrated state variable is advanced
	// by dt * (nominal_derivative - gain * residual), so the signs here match
	// the synthesis output verbatim.
	ObsAltFromRange   float64 // altitude <- range residual
	ObsPitchFromFlowX float64 // pitch <- flow-x residual
	ObsRollFromFlowY  float64 // roll <- flow-y residual
	ObsVxFromFlowX    float64 // velocity-x <- flow-x residual
	ObsVyFromFlowY    float64 // velocity-y <- flow-y residual
	ObsVzFromRange    float64 // velocity-z <- range residual

	// State-feedback gains. Signed coefficients; efforts are plain sums of
	// gain * term.
	TauXFromPosY  float64
	TauXFromRoll  float64
	TauXFromVy    float64
	TauXFromRateX float64

	TauYFromPosX  float64
	TauYFromPitch float64
	TauYFromVx    float64
	TauYFromRateY float64

	TauZFromYaw   float64
	TauZFromRateZ float64

	ThrustFromAlt float64
	ThrustFromVz  float64
	ThrustBias    float64 // equilibrium thrust holding the vehicle level at AltEq

	// Mix holds the per-rotor mixing rows; each row multiplies
	// (tau_x, tau_y, tau_z, thrust).
	Mix [4][4]float64

	// CommandMax is the saturation ceiling for motor commands.
	CommandMax uint16
}

// DefaultGains returns the flight gain set.
func DefaultGains() Gains {
	const (
		mixTau  = 3706927.3
		mixYaw  = 38218981.7
		mixLift = 122328.6
	)
	return Gains{
		KFlow:   4.09255568,
		Gravity: 9.81,
		AltEq:   0.5,

		ObsAltFromRange:   3.524731,
		ObsPitchFromFlowX: 0.029925,
		ObsRollFromFlowY:  -0.024252,
		ObsVxFromFlowX:    0.322134,
		ObsVyFromFlowY:    0.317070,
		ObsVzFromRange:    5.676619,

		TauXFromPosY:  0.00239430,
		TauXFromRoll:  -0.00346463,
		TauXFromVy:    0.00135445,
		TauXFromRateX: -0.00047651,

		TauYFromPosX:  -0.00223966,
		TauYFromPitch: -0.00734151,
		TauYFromVx:    -0.00186963,
		TauYFromRateY: -0.00129356,

		TauZFromYaw:   -0.00164210,
		TauZFromRateZ: -0.00039822,

		ThrustFromAlt: -0.11471886,
		ThrustFromVz:  -0.09147906,
		ThrustBias:    0.35217900,

		Mix: [4][4]float64{
			{-mixTau, -mixTau, -mixYaw, mixLift},
			{-mixTau, mixTau, mixYaw, mixLift},
			{mixTau, mixTau, -mixYaw, mixLift},
			{mixTau, -mixTau, mixYaw, mixLift},
		},

		CommandMax: 65535,
	}
}
