package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"flightcore/internal/config"
	"flightcore/internal/control"
	"flightcore/internal/i2c"
	"flightcore/internal/sensors/bmi088"
	"flightcore/internal/sensors/pmw3901"
	"flightcore/internal/sensors/vl53l1x"
	"flightcore/internal/spi"
)

// Sensor poll rates. The IMU is sampled at the control rate; range and flow
// run at their native update rates and land in the core's measurement buffer.
const (
	imuPeriod   = 2 * time.Millisecond
	rangePeriod = 20 * time.Millisecond
	flowPeriod  = 10 * time.Millisecond

	flowSPIMode  = 3
	flowSPISpeed = 2_000_000
)

// sensorRig owns the hardware sensor set: ToF ranger and IMU on I2C, optical
// flow on SPI. It publishes range/flow into the core asynchronously and holds
// the latest inertial sample for the control loop to read synchronously.
type sensorRig struct {
	bus     *i2c.Bus
	flowDev *spi.Dev

	ranger *vl53l1x.Device
	flow   *pmw3901.Device
	imu    *bmi088.Device

	mu     sync.Mutex
	gyro   control.Vec3
	accelZ float64
}

func openSensorRig(cfg config.SensorsConfig) (*sensorRig, error) {
	bus, err := i2c.Open(fmt.Sprintf("/dev/i2c-%d", cfg.I2CBus))
	if err != nil {
		return nil, fmt.Errorf("i2c bus %d: %w", cfg.I2CBus, err)
	}

	r := &sensorRig{bus: bus, accelZ: 1.0}

	ranger, err := vl53l1x.New(bus.Dev(cfg.RangeAddr))
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("vl53l1x: %w", err)
	}
	r.ranger = ranger

	imu, err := bmi088.New(bus.Dev(cfg.IMUGyroAddr), bus.Dev(cfg.IMUAccelAddr))
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("bmi088: %w", err)
	}
	r.imu = imu

	flowDev, err := spi.Open(cfg.SPIDev, flowSPIMode, flowSPISpeed)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("spi %s: %w", cfg.SPIDev, err)
	}
	r.flowDev = flowDev

	flow, err := pmw3901.New(flowDev)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("pmw3901: %w", err)
	}
	r.flow = flow

	return r, nil
}

// start launches the sensor pollers. They run until the context ends.
func (r *sensorRig) start(ctx context.Context, core *control.Core) {
	go r.pollIMU(ctx)
	go r.pollRange(ctx, core)
	go r.pollFlow(ctx, core)
}

// inertial returns the most recent gyro (deg/s) and z-accel (g) sample.
func (r *sensorRig) inertial() (control.Vec3, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gyro, r.accelZ
}

func (r *sensorRig) pollIMU(ctx context.Context) {
	t := time.NewTicker(imuPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s, err := r.imu.Read()
			if err != nil {
				log.Printf("imu read failed: %v", err)
				continue
			}
			r.mu.Lock()
			r.gyro = control.Vec3{X: s.Gx, Y: s.Gy, Z: s.Gz}
			r.accelZ = s.Az
			r.mu.Unlock()
		}
	}
}

func (r *sensorRig) pollRange(ctx context.Context, core *control.Core) {
	t := time.NewTicker(rangePeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d, err := r.ranger.Read()
			if err != nil {
				if !errors.Is(err, vl53l1x.ErrNotReady) {
					log.Printf("range read failed: %v", err)
				}
				continue
			}
			core.RecordRange(d)
		}
	}
}

func (r *sensorRig) pollFlow(ctx context.Context, core *control.Core) {
	t := time.NewTicker(flowPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			dx, dy, err := r.flow.ReadMotion()
			if err != nil {
				log.Printf("flow read failed: %v", err)
				continue
			}
			core.RecordFlow(float64(dx), float64(dy))
		}
	}
}

func (r *sensorRig) Close() {
	if r == nil {
		return
	}
	if r.flowDev != nil {
		_ = r.flowDev.Close()
		r.flowDev = nil
	}
	if r.bus != nil {
		_ = r.bus.Close()
		r.bus = nil
	}
}
