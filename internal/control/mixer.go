package control

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// mixer applies the fixed 4x4 mixing matrix to a control effort and saturates
// the result into the valid command range.
//
// The rotor layout alternates mixing signs per position so differential
// torque and common thrust both fall out of one linear map.
type mixer struct {
	m   *mat.Dense
	max float64
}

func newMixer(g Gains) *mixer {
	rows := make([]float64, 0, 16)
	for _, r := range g.Mix {
		rows = append(rows, r[:]...)
	}
	return &mixer{
		m:   mat.NewDense(4, 4, rows),
		max: float64(g.CommandMax),
	}
}

// mix produces the four motor commands for one tick. Out-of-range values
// saturate at the nearest boundary; they never wrap and never fault.
func (mx *mixer) mix(e Effort) MotorCommand {
	u := mat.NewVecDense(4, []float64{e.TorqueX, e.TorqueY, e.TorqueZ, e.Thrust})
	var raw mat.VecDense
	raw.MulVec(mx.m, u)

	var cmd MotorCommand
	for i := 0; i < 4; i++ {
		cmd[i] = mx.limit(raw.AtVec(i))
	}
	return cmd
}

func (mx *mixer) limit(v float64) uint16 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= mx.max {
		return uint16(mx.max)
	}
	return uint16(v)
}
