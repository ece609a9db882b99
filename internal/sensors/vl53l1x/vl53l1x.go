package vl53l1x

import (
	"errors"
	"fmt"
	"time"

	"flightcore/internal/i2c"
)

var sleep = time.Sleep

// Minimal VL53L1X driver.
//
// Focus: probe + continuous ranging for the downward-facing z ranger.
// The register map is paged behind 16-bit indices.

const (
	addrDefault = 0x29

	regModelID        = 0x010F
	modelIDVal        = 0xEA
	regSoftReset      = 0x0000
	regSystemStart    = 0x0087
	regInterruptClear = 0x0086
	regDataReady      = 0x0031 // GPIO__TIO_HV_STATUS
	regRangeStatus    = 0x0089
	regRangeMM        = 0x0096 // final crosstalk-corrected range, mm

	modeRangingBackToBack = 0x40

	// Raw range status meaning "range complete, no error".
	rangeStatusOK = 9
)

// ErrNotReady is returned by Read when no fresh sample is available yet.
var ErrNotReady = errors.New("vl53l1x: sample not ready")

type regIO interface {
	ReadReg16(reg uint16, dst []byte) error
	WriteReg16(reg uint16, value byte) error
}

type Device struct {
	dev regIO
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("vl53l1x: dev is nil")
	}
	return newWithIO(dev)
}

func newWithIO(dev regIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("vl53l1x: dev is nil")
	}
	d := &Device{dev: dev}

	var id [1]byte
	if err := d.dev.ReadReg16(regModelID, id[:]); err != nil {
		return nil, fmt.Errorf("vl53l1x: model id read failed: %w", err)
	}
	if id[0] != modelIDVal {
		return nil, fmt.Errorf("vl53l1x: model id=0x%02X want 0x%02X", id[0], modelIDVal)
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) init() error {
	if err := d.dev.WriteReg16(regSoftReset, 0x00); err != nil {
		return fmt.Errorf("vl53l1x: reset failed: %w", err)
	}
	if err := d.dev.WriteReg16(regSoftReset, 0x01); err != nil {
		return fmt.Errorf("vl53l1x: reset release failed: %w", err)
	}
	sleep(2 * time.Millisecond)

	// Back-to-back continuous ranging; the tick loop polls for samples.
	if err := d.dev.WriteReg16(regSystemStart, modeRangingBackToBack); err != nil {
		return fmt.Errorf("vl53l1x: start ranging failed: %w", err)
	}
	return nil
}

// Read returns the latest range in meters, or ErrNotReady when the current
// measurement has not completed.
func (d *Device) Read() (float64, error) {
	var ready [1]byte
	if err := d.dev.ReadReg16(regDataReady, ready[:]); err != nil {
		return 0, fmt.Errorf("vl53l1x: data ready read failed: %w", err)
	}
	if ready[0]&0x01 == 0 {
		return 0, ErrNotReady
	}

	var status [1]byte
	if err := d.dev.ReadReg16(regRangeStatus, status[:]); err != nil {
		return 0, fmt.Errorf("vl53l1x: status read failed: %w", err)
	}
	if status[0]&0x1F != rangeStatusOK {
		return 0, fmt.Errorf("vl53l1x: range status %d", status[0]&0x1F)
	}

	var raw [2]byte
	if err := d.dev.ReadReg16(regRangeMM, raw[:]); err != nil {
		return 0, fmt.Errorf("vl53l1x: range read failed: %w", err)
	}
	if err := d.dev.WriteReg16(regInterruptClear, 0x01); err != nil {
		return 0, fmt.Errorf("vl53l1x: interrupt clear failed: %w", err)
	}

	mm := uint16(raw[0])<<8 | uint16(raw[1])
	return float64(mm) / 1000.0, nil
}
