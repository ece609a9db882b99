package control

// Vec3 is a three-component vector. Units depend on context (meters,
// meters/second, radians/second).
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Attitude holds ZYX Euler angles in radians, body-to-world convention.
type Attitude struct {
	Roll  float64 // phi
	Pitch float64 // theta
	Yaw   float64 // psi
}

// State is the full 12-element vehicle state estimate.
//
// Velocity and Rate are expressed in the body-aligned frame used by the
// offline synthesis; Position is world-frame.
type State struct {
	Position Vec3
	Attitude Attitude
	Velocity Vec3
	Rate     Vec3
}

// ExternalState is a state estimate computed outside this core (e.g. by the
// platform's stock estimator). Attitude is in degrees in the platform's
// convention; Velocity is world-frame.
type ExternalState struct {
	Position    Vec3
	AttitudeDeg Attitude
	Velocity    Vec3
}

// AxisMode enables or disables setpoint tracking per axis.
type AxisMode int

const (
	AxisDisabled AxisMode = iota
	AxisEnabled
)

// Setpoint is the desired position supplied once per tick.
//
// Only the z-axis mode gates actuation: when ModeZ is AxisDisabled the tick
// produces an all-zero motor command unconditionally.
type Setpoint struct {
	Position Vec3
	ModeX    AxisMode
	ModeY    AxisMode
	ModeZ    AxisMode
}

// Effort is the body-frame control effort for one tick: three torques and a
// net thrust, in the normalized units of the synthesis.
type Effort struct {
	TorqueX float64
	TorqueY float64
	TorqueZ float64
	Thrust  float64
}

// MotorCommand is the per-rotor power command, one value per rotor in
// [0, CommandMax].
type MotorCommand [4]uint16
