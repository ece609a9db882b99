//go:build linux

// Package spi is a thin Linux SPI layer over /dev/spidev*.
//
// Only full-duplex single-segment transfers are implemented; that is all the
// optical-flow sensor needs.
package spi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	ioctlWrMode     = 0x40016b01
	ioctlWrMaxSpeed = 0x40046b04
	ioctlMessage1   = 0x40206b00
)

type xfer struct {
	txBuf       uint64
	rxBuf       uint64
	len         uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	pad         uint32
}

// Dev is an opened SPI device node.
type Dev struct {
	f       *os.File
	path    string
	speedHz uint32
}

// Open opens a spidev node and configures its mode and clock.
func Open(path string, mode byte, speedHz uint32) (*Dev, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	d := &Dev{f: f, path: path, speedHz: speedHz}

	if err := d.ioctl(ioctlWrMode, uintptr(unsafe.Pointer(&mode))); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("spi: set mode: %w", err)
	}
	if err := d.ioctl(ioctlWrMaxSpeed, uintptr(unsafe.Pointer(&speedHz))); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("spi: set speed: %w", err)
	}
	return d, nil
}

func (d *Dev) Close() error {
	if d == nil || d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// Transfer clocks w out while reading the same number of bytes into r.
// w and r must be the same length.
func (d *Dev) Transfer(w, r []byte) error {
	if d == nil || d.f == nil {
		return errors.New("spi device is nil")
	}
	if len(w) != len(r) {
		return fmt.Errorf("spi: transfer length mismatch (%d vs %d)", len(w), len(r))
	}
	if len(w) == 0 {
		return nil
	}

	x := xfer{
		txBuf:   uint64(uintptr(unsafe.Pointer(&w[0]))),
		rxBuf:   uint64(uintptr(unsafe.Pointer(&r[0]))),
		len:     uint32(len(w)),
		speedHz: d.speedHz,
	}
	return d.ioctl(ioctlMessage1, uintptr(unsafe.Pointer(&x)))
}

func (d *Dev) ioctl(req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}
