// Package telemetry serializes the control core's per-tick snapshot into a
// compact binary frame for off-board logging. The core only exposes values;
// all encoding and transport lives outside it.
package telemetry

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"flightcore/internal/control"
)

const (
	magic0  = 'F'
	magic1  = 'C'
	version = 1

	flagUseObserver = 1 << 0
	flagZEnabled    = 1 << 1
)

// Frame is the decoded wire frame. Scalars are float32 on the wire; the
// snapshot's float64 precision is not needed for logging.
type Frame struct {
	Ticks       uint64
	RangeCount  uint32
	FlowCount   uint32
	UseObserver bool
	ZEnabled    bool

	Range  float32
	FlowDX float32
	FlowDY float32

	Gyro   [3]float32
	AccelZ float32

	Position [3]float32
	Attitude [3]float32 // roll, pitch, yaw
	Velocity [3]float32
	Rate     [3]float32

	SetpointPos [3]float32

	Torque [3]float32
	Thrust float32

	Motors [4]uint16
}

// wireFrame is the fixed-size layout behind the 4-byte header.
type wireFrame struct {
	Ticks      uint64
	RangeCount uint32
	FlowCount  uint32

	Range  float32
	FlowDX float32
	FlowDY float32

	Gyro   [3]float32
	AccelZ float32

	Position [3]float32
	Attitude [3]float32
	Velocity [3]float32
	Rate     [3]float32

	SetpointPos [3]float32

	Torque [3]float32
	Thrust float32

	Motors [4]uint16
}

// Encode builds one telemetry frame from a snapshot.
func Encode(s control.Snapshot) []byte {
	var flags byte
	if s.UseObserver {
		flags |= flagUseObserver
	}
	if s.Setpoint.ModeZ != control.AxisDisabled {
		flags |= flagZEnabled
	}

	w := wireFrame{
		Ticks:      s.Ticks,
		RangeCount: s.Measurement.RangeCount,
		FlowCount:  s.Measurement.FlowCount,

		Range:  float32(s.Measurement.Range),
		FlowDX: float32(s.Measurement.FlowDX),
		FlowDY: float32(s.Measurement.FlowDY),

		Gyro:   vec3f(s.Gyro),
		AccelZ: float32(s.AccelZ),

		Position: vec3f(s.State.Position),
		Attitude: [3]float32{
			float32(s.State.Attitude.Roll),
			float32(s.State.Attitude.Pitch),
			float32(s.State.Attitude.Yaw),
		},
		Velocity: vec3f(s.State.Velocity),
		Rate:     vec3f(s.State.Rate),

		SetpointPos: vec3f(s.Setpoint.Position),

		Torque: [3]float32{
			float32(s.Effort.TorqueX),
			float32(s.Effort.TorqueY),
			float32(s.Effort.TorqueZ),
		},
		Thrust: float32(s.Effort.Thrust),

		Motors: s.Motors,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 4+binary.Size(w)))
	buf.WriteByte(magic0)
	buf.WriteByte(magic1)
	buf.WriteByte(version)
	buf.WriteByte(flags)
	// Writing a fixed-size struct into a bytes.Buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, w)
	return buf.Bytes()
}

// Decode parses a frame produced by Encode.
func Decode(b []byte) (Frame, error) {
	if len(b) < 4 {
		return Frame{}, fmt.Errorf("telemetry: frame too short (%d bytes)", len(b))
	}
	if b[0] != magic0 || b[1] != magic1 {
		return Frame{}, fmt.Errorf("telemetry: bad magic 0x%02X%02X", b[0], b[1])
	}
	if b[2] != version {
		return Frame{}, fmt.Errorf("telemetry: unsupported version %d", b[2])
	}
	flags := b[3]

	var w wireFrame
	if err := binary.Read(bytes.NewReader(b[4:]), binary.LittleEndian, &w); err != nil {
		return Frame{}, fmt.Errorf("telemetry: decode: %w", err)
	}

	return Frame{
		Ticks:       w.Ticks,
		RangeCount:  w.RangeCount,
		FlowCount:   w.FlowCount,
		UseObserver: flags&flagUseObserver != 0,
		ZEnabled:    flags&flagZEnabled != 0,

		Range:  w.Range,
		FlowDX: w.FlowDX,
		FlowDY: w.FlowDY,

		Gyro:   w.Gyro,
		AccelZ: w.AccelZ,

		Position: w.Position,
		Attitude: w.Attitude,
		Velocity: w.Velocity,
		Rate:     w.Rate,

		SetpointPos: w.SetpointPos,

		Torque: w.Torque,
		Thrust: w.Thrust,

		Motors: w.Motors,
	}, nil
}

func vec3f(v control.Vec3) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
