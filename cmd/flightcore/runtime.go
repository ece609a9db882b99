package main

import (
	"context"
	"log"
	"time"

	"flightcore/internal/arming"
	"flightcore/internal/commander"
	"flightcore/internal/config"
	"flightcore/internal/control"
	"flightcore/internal/sim"
	"flightcore/internal/telemetry"
	"flightcore/internal/udp"
)

// runtime wires the control core to its tick source (simulated plant or
// real sensors), the operator-facing services, and telemetry.
type runtime struct {
	cfg  config.Config
	core *control.Core

	// Sim mode.
	quad   *sim.Quad
	script sim.SetpointScript

	// Hardware mode.
	rig *sensorRig

	armSvc  *arming.Service
	cmdLink *commander.Link

	broadcaster *udp.Broadcaster
}

func newRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	if err := config.DefaultAndValidate(&cfg); err != nil {
		return nil, err
	}

	gains := control.DefaultGains()
	core := control.New(gains)
	core.Flags.SetUseObserver(cfg.Control.UseObserver)

	r := &runtime{cfg: cfg, core: core}

	if cfg.Sim.Enable {
		script, err := sim.LoadSetpointScript(cfg.Sim.Scenario)
		if err != nil {
			return nil, err
		}
		r.script = script
		r.quad = sim.NewQuad(gains)
	} else {
		rig, err := openSensorRig(cfg.Sensors)
		if err != nil {
			return nil, err
		}
		r.rig = rig
	}

	if cfg.Arming.Enable {
		svc := arming.New(arming.Config{Enable: true, Pin: cfg.Arming.Pin})
		// Keep a reference even if init fails: a missing switch reads
		// disarmed, which is the safe state.
		r.armSvc = svc
		if err := svc.Start(ctx); err != nil {
			log.Printf("arming init failed: %v", err)
		}
	}

	if cfg.Commander.Enable {
		link, err := commander.NewLink(commander.Config{
			Enable: true,
			Port:   cfg.Commander.Port,
			Baud:   cfg.Commander.Baud,
		}, &core.Flags)
		if err != nil {
			// Keep flying on the scripted setpoints if the uplink is absent.
			log.Printf("commander init failed: %v", err)
		} else {
			r.cmdLink = link
			go func() {
				if err := link.Run(ctx); err != nil && ctx.Err() == nil {
					log.Printf("commander stopped: %v", err)
				}
			}()
		}
	}

	b, err := udp.NewBroadcaster(cfg.Telemetry.Dest, cfg.Telemetry.Interval.D())
	if err != nil {
		r.Close()
		return nil, err
	}
	r.broadcaster = b
	return r, nil
}

func (r *runtime) Close() {
	if r == nil {
		return
	}
	if r.cmdLink != nil {
		_ = r.cmdLink.Close()
		r.cmdLink = nil
	}
	if r.armSvc != nil {
		r.armSvc.Close()
		r.armSvc = nil
	}
	if r.rig != nil {
		r.rig.Close()
		r.rig = nil
	}
	if r.broadcaster != nil {
		_ = r.broadcaster.Close()
		r.broadcaster = nil
	}
}

// setpoint picks the setpoint in force for this tick. A live uplink command
// overrides the script; the arming switch overrides everything.
func (r *runtime) setpoint(elapsed time.Duration) control.Setpoint {
	var sp control.Setpoint
	if r.quad != nil {
		sp = r.script.At(elapsed)
	}
	if r.cmdLink != nil {
		if got, seq := r.cmdLink.Latest(); seq > 0 {
			sp = got
		}
	}
	if r.armSvc != nil && !r.armSvc.Armed() {
		sp = control.Setpoint{}
	}
	return sp
}

// run drives the fixed-rate control loop until the context ends. In sim mode
// it also ends when the scripted scenario does.
func (r *runtime) run(ctx context.Context) error {
	go func() {
		err := r.broadcaster.Run(ctx, func(uint64) []byte {
			return telemetry.Encode(r.core.Snapshot())
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("telemetry stopped: %v", err)
		}
	}()

	if r.rig != nil {
		r.rig.start(ctx, r.core)
	}

	period := r.cfg.Control.Period.D()
	dt := period.Seconds()
	t := time.NewTicker(period)
	defer t.Stop()

	var elapsed time.Duration
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		in := control.TickInput{
			Setpoint: r.setpoint(elapsed),
			DT:       dt,
		}
		if r.quad != nil {
			r.core.RecordRange(r.quad.RangeMeters())
			dx, dy := r.quad.Flow()
			r.core.RecordFlow(dx, dy)
			in.Gyro = r.quad.GyroDegPerSec()
			in.AccelZ = r.quad.AccelZG()
			in.External = r.quad.External()
		} else if r.rig != nil {
			in.Gyro, in.AccelZ = r.rig.inertial()
		}

		cmd := r.core.Tick(in)

		if r.quad != nil {
			r.quad.Step(cmd, dt)
			elapsed += period
			if elapsed >= r.script.Duration.D() {
				log.Printf("scenario complete after %s", elapsed)
				return nil
			}
		}
	}
}
