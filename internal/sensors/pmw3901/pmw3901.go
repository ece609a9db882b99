package pmw3901

import (
	"fmt"
	"time"
)

var sleep = time.Sleep

// Minimal PMW3901 optical-flow driver (SPI).
//
// Focus: probe + motion reads. Reads are plain register transfers rather
// than the burst mode; at flow-deck sample rates that is plenty.

const (
	regProductID    = 0x00
	productIDVal    = 0x49
	regInvProductID = 0x5F
	invProductIDVal = 0xB6

	regMotion    = 0x02
	regDeltaXLow = 0x03
	regDeltaXHi  = 0x04
	regDeltaYLow = 0x05
	regDeltaYHi  = 0x06

	regPowerUpReset = 0x3A
	powerUpResetVal = 0x5A

	writeFlag = 0x80
)

// xfer is the full-duplex transfer the SPI layer provides.
type xfer interface {
	Transfer(w, r []byte) error
}

type Device struct {
	dev xfer
}

// New probes and resets the sensor on the given SPI device.
func New(dev xfer) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("pmw3901: dev is nil")
	}
	d := &Device{dev: dev}

	if err := d.writeReg(regPowerUpReset, powerUpResetVal); err != nil {
		return nil, fmt.Errorf("pmw3901: reset failed: %w", err)
	}
	sleep(5 * time.Millisecond)

	id, err := d.readReg(regProductID)
	if err != nil {
		return nil, fmt.Errorf("pmw3901: product id read failed: %w", err)
	}
	inv, err := d.readReg(regInvProductID)
	if err != nil {
		return nil, fmt.Errorf("pmw3901: inverse product id read failed: %w", err)
	}
	if id != productIDVal || inv != invProductIDVal {
		return nil, fmt.Errorf("pmw3901: product id=0x%02X/0x%02X want 0x%02X/0x%02X",
			id, inv, productIDVal, invProductIDVal)
	}

	// One throwaway motion read clears stale deltas from before the reset.
	if _, _, err := d.ReadMotion(); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadMotion returns the accumulated pixel deltas since the previous read.
func (d *Device) ReadMotion() (dx, dy int16, err error) {
	if _, err = d.readReg(regMotion); err != nil {
		return 0, 0, fmt.Errorf("pmw3901: motion read failed: %w", err)
	}

	var b [4]byte
	for i, reg := range []byte{regDeltaXLow, regDeltaXHi, regDeltaYLow, regDeltaYHi} {
		if b[i], err = d.readReg(reg); err != nil {
			return 0, 0, fmt.Errorf("pmw3901: delta read failed: %w", err)
		}
	}
	dx = int16(uint16(b[1])<<8 | uint16(b[0]))
	dy = int16(uint16(b[3])<<8 | uint16(b[2]))
	return dx, dy, nil
}

func (d *Device) readReg(reg byte) (byte, error) {
	w := []byte{reg &^ writeFlag, 0}
	r := make([]byte, 2)
	if err := d.dev.Transfer(w, r); err != nil {
		return 0, err
	}
	return r[1], nil
}

func (d *Device) writeReg(reg, value byte) error {
	w := []byte{reg | writeFlag, value}
	r := make([]byte, 2)
	return d.dev.Transfer(w, r)
}
