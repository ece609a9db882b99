package sim

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"flightcore/internal/config"
	"flightcore/internal/control"
)

func writeScript(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

const hoverScript = `version: 1
setpoints:
  - t: 0s
    z: 0.5
    enabled: true
  - t: 10s
    x: 0.3
    z: 0.5
    enabled: true
  - t: 15s
    enabled: false
`

func TestLoadSetpointScript_Valid(t *testing.T) {
	s, err := LoadSetpointScript(writeScript(t, hoverScript))
	if err != nil {
		t.Fatalf("LoadSetpointScript() error: %v", err)
	}
	if len(s.Setpoints) != 3 {
		t.Fatalf("keyframes=%d want 3", len(s.Setpoints))
	}
	// Duration derives from the last keyframe when unset.
	if s.Duration.D() != 15*time.Second {
		t.Fatalf("duration=%s want 15s", s.Duration)
	}
}

func TestSetpointScript_AtHoldsKeyframe(t *testing.T) {
	s, err := LoadSetpointScript(writeScript(t, hoverScript))
	if err != nil {
		t.Fatalf("LoadSetpointScript() error: %v", err)
	}

	sp := s.At(5 * time.Second)
	if sp.ModeZ != control.AxisEnabled || sp.Position.Z != 0.5 || sp.Position.X != 0 {
		t.Fatalf("At(5s)=%+v", sp)
	}

	// No interpolation: the 10s frame applies as a step.
	sp = s.At(12 * time.Second)
	if sp.Position.X != 0.3 {
		t.Fatalf("At(12s).X=%v want 0.3", sp.Position.X)
	}

	// Final frame disables flight.
	sp = s.At(20 * time.Second)
	if sp.ModeZ != control.AxisDisabled {
		t.Fatalf("At(20s)=%+v want disabled", sp)
	}
}

func TestSetpointScript_DisabledBeforeFirstKeyframe(t *testing.T) {
	s := SetpointScript{
		Version:   1,
		Setpoints: []SetpointKeyframe{{T: config.Duration(time.Second), Z: 0.5, Enabled: true}},
	}
	if sp := s.At(0); sp.ModeZ != control.AxisDisabled {
		t.Fatalf("At(0)=%+v want disabled before first keyframe", sp)
	}
}

func TestLoadSetpointScript_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "BadVersion",
			yaml: "version: 2\nsetpoints:\n  - t: 0s\n",
			want: "scenario version 2 unsupported (want 1)",
		},
		{
			name: "NoSetpoints",
			yaml: "version: 1\n",
			want: "scenario has no setpoints",
		},
		{
			name: "Unsorted",
			yaml: "version: 1\nsetpoints:\n  - t: 5s\n  - t: 1s\n",
			want: "setpoint 1: t=1s before previous 5s",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadSetpointScript(writeScript(t, tc.yaml))
			if err == nil || err.Error() != tc.want {
				t.Fatalf("err=%v want %q", err, tc.want)
			}
		})
	}
}

func TestLoadSetpointScript_ParseError(t *testing.T) {
	_, err := LoadSetpointScript(writeScript(t, "version: [\n"))
	if err == nil || !strings.Contains(err.Error(), "parse scenario") {
		t.Fatalf("err=%v want parse error", err)
	}
}
