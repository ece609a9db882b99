package commander

import (
	"fmt"
	"strconv"
	"strings"

	"flightcore/internal/control"
)

type Kind int

const (
	KindSetpoint Kind = iota
	KindStop
	KindObserver
	KindReset
)

type Command struct {
	Kind     Kind
	Setpoint control.Setpoint
	On       bool
}

// parseLine parses one uplink line. Grammar:
//
//	sp <x> <y> <z>   position setpoint, all axes enabled
//	stop             disable all axes
//	obs on|off       select internal observer or pass-through
//	reset            zero the estimator state
func parseLine(s string) (Command, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty line")
	}

	switch fields[0] {
	case "sp":
		if len(fields) != 4 {
			return Command{}, fmt.Errorf("sp wants 3 args, got %d", len(fields)-1)
		}
		var v [3]float64
		for i, f := range fields[1:] {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return Command{}, fmt.Errorf("sp arg %d: %w", i+1, err)
			}
			v[i] = x
		}
		return Command{
			Kind: KindSetpoint,
			Setpoint: control.Setpoint{
				Position: control.Vec3{X: v[0], Y: v[1], Z: v[2]},
				ModeX:    control.AxisEnabled,
				ModeY:    control.AxisEnabled,
				ModeZ:    control.AxisEnabled,
			},
		}, nil

	case "stop":
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("stop takes no args")
		}
		return Command{Kind: KindStop}, nil

	case "obs":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("obs wants on|off")
		}
		switch fields[1] {
		case "on":
			return Command{Kind: KindObserver, On: true}, nil
		case "off":
			return Command{Kind: KindObserver, On: false}, nil
		}
		return Command{}, fmt.Errorf("obs wants on|off, got %q", fields[1])

	case "reset":
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("reset takes no args")
		}
		return Command{Kind: KindReset}, nil
	}

	return Command{}, fmt.Errorf("unknown command %q", fields[0])
}
