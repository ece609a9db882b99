package sim

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"flightcore/internal/config"
	"flightcore/internal/control"
)

// SetpointScript is a deterministic, script-driven setpoint source.
//
// Time is expressed as Go duration strings (e.g. "0s", "250ms", "10s").
// If Duration is zero, it is derived from the latest keyframe time.
//
// YAML schema (v1):
//
//	version: 1
//	duration: 20s
//	setpoints:
//	  - t: 0s
//	    x: 0.0
//	    y: 0.0
//	    z: 0.5
//	    enabled: true
//	  - t: 15s
//	    enabled: false
//
// Keyframes must be sorted by non-decreasing t. A keyframe holds until the
// next one: setpoints are commands, not trajectories, so there is no
// interpolation between frames.
//
// Keep this struct stable: scripts are test fixtures.
type SetpointScript struct {
	Version   int                `yaml:"version"`
	Duration  config.Duration    `yaml:"duration"`
	Setpoints []SetpointKeyframe `yaml:"setpoints"`
}

// SetpointKeyframe is a time-stamped position hold command.
type SetpointKeyframe struct {
	T       config.Duration `yaml:"t"`
	X       float64         `yaml:"x"`
	Y       float64         `yaml:"y"`
	Z       float64         `yaml:"z"`
	Enabled bool            `yaml:"enabled"`
}

// LoadSetpointScript reads and validates a script file.
func LoadSetpointScript(path string) (SetpointScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return SetpointScript{}, err
	}
	var s SetpointScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return SetpointScript{}, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return SetpointScript{}, err
	}
	if s.Duration == 0 {
		s.Duration = s.Setpoints[len(s.Setpoints)-1].T
	}
	return s, nil
}

func (s SetpointScript) Validate() error {
	if s.Version != 1 {
		return fmt.Errorf("scenario version %d unsupported (want 1)", s.Version)
	}
	if len(s.Setpoints) == 0 {
		return fmt.Errorf("scenario has no setpoints")
	}
	var prev config.Duration
	for i, kf := range s.Setpoints {
		if kf.T < prev {
			return fmt.Errorf("setpoint %d: t=%s before previous %s", i, kf.T, prev)
		}
		prev = kf.T
	}
	return nil
}

// At returns the setpoint in force at elapsed time t: the latest keyframe at
// or before t. Before the first keyframe the setpoint is disabled.
func (s SetpointScript) At(t time.Duration) control.Setpoint {
	idx := -1
	for i, kf := range s.Setpoints {
		if kf.T.D() > t {
			break
		}
		idx = i
	}
	if idx < 0 {
		return control.Setpoint{}
	}
	kf := s.Setpoints[idx]
	sp := control.Setpoint{Position: control.Vec3{X: kf.X, Y: kf.Y, Z: kf.Z}}
	if kf.Enabled {
		sp.ModeX = control.AxisEnabled
		sp.ModeY = control.AxisEnabled
		sp.ModeZ = control.AxisEnabled
	}
	return sp
}
