package bmi088

import (
	"fmt"
	"time"

	"flightcore/internal/i2c"
)

var sleep = time.Sleep

// Minimal BMI088 driver.
//
// The BMI088 is two independent I2C devices: a gyro and an accelerometer.
// Focus: probe + raw rate/accel reads at control rate.

const (
	gyroAddrDefault  = 0x69
	accelAddrDefault = 0x18

	// Gyro registers.
	regGyroChipID    = 0x00
	gyroChipIDVal    = 0x0F
	regGyroRateXLow  = 0x02 // contiguous X/Y/Z low/high block
	regGyroRange     = 0x0F
	regGyroBandwidth = 0x10

	gyroRange2000dps = 0x00
	gyroBW532Hz      = 0x00

	// Accel registers.
	regAccelChipID  = 0x00
	accelChipIDVal  = 0x1E
	regAccelXLow    = 0x12 // contiguous X/Y/Z low/high block
	regAccelRange   = 0x41
	regAccelPwrConf = 0x7C
	regAccelPwrCtrl = 0x7D

	accelRange6g    = 0x01
	accelPwrActive  = 0x00
	accelPwrEnable  = 0x04

	gyroScaleDps = 2000.0 / 32767.0
	accelScaleG  = 6.0 / 32768.0
)

// Sample is one synchronous IMU reading.
type Sample struct {
	Time time.Time
	// Gyro in deg/s.
	Gx, Gy, Gz float64
	// Accel in G.
	Ax, Ay, Az float64
}

type regIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

type Device struct {
	gyro  regIO
	accel regIO
}

func DefaultGyroAddress() uint16  { return gyroAddrDefault }
func DefaultAccelAddress() uint16 { return accelAddrDefault }

func New(gyro, accel *i2c.Dev) (*Device, error) {
	if gyro == nil || accel == nil {
		return nil, fmt.Errorf("bmi088: dev is nil")
	}
	return newWithIO(gyro, accel)
}

func newWithIO(gyro, accel regIO) (*Device, error) {
	if gyro == nil || accel == nil {
		return nil, fmt.Errorf("bmi088: dev is nil")
	}
	d := &Device{gyro: gyro, accel: accel}

	id, err := d.gyro.ReadRegU8(regGyroChipID)
	if err != nil {
		return nil, fmt.Errorf("bmi088: gyro chip id read failed: %w", err)
	}
	if id != gyroChipIDVal {
		return nil, fmt.Errorf("bmi088: gyro chip id=0x%02X want 0x%02X", id, gyroChipIDVal)
	}

	id, err = d.accel.ReadRegU8(regAccelChipID)
	if err != nil {
		return nil, fmt.Errorf("bmi088: accel chip id read failed: %w", err)
	}
	if id != accelChipIDVal {
		return nil, fmt.Errorf("bmi088: accel chip id=0x%02X want 0x%02X", id, accelChipIDVal)
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) init() error {
	if err := d.gyro.WriteReg(regGyroRange, gyroRange2000dps); err != nil {
		return fmt.Errorf("bmi088: gyro range config failed: %w", err)
	}
	if err := d.gyro.WriteReg(regGyroBandwidth, gyroBW532Hz); err != nil {
		return fmt.Errorf("bmi088: gyro bandwidth config failed: %w", err)
	}

	// The accelerometer powers up suspended.
	if err := d.accel.WriteReg(regAccelPwrConf, accelPwrActive); err != nil {
		return fmt.Errorf("bmi088: accel power conf failed: %w", err)
	}
	if err := d.accel.WriteReg(regAccelPwrCtrl, accelPwrEnable); err != nil {
		return fmt.Errorf("bmi088: accel power ctrl failed: %w", err)
	}
	sleep(50 * time.Millisecond)

	if err := d.accel.WriteReg(regAccelRange, accelRange6g); err != nil {
		return fmt.Errorf("bmi088: accel range config failed: %w", err)
	}
	return nil
}

// Read returns one sample from both dies.
func (d *Device) Read() (Sample, error) {
	var g [6]byte
	if err := d.gyro.ReadReg(regGyroRateXLow, g[:]); err != nil {
		return Sample{}, fmt.Errorf("bmi088: gyro read failed: %w", err)
	}
	var a [6]byte
	if err := d.accel.ReadReg(regAccelXLow, a[:]); err != nil {
		return Sample{}, fmt.Errorf("bmi088: accel read failed: %w", err)
	}

	s := Sample{
		Time: time.Now().UTC(),
		Gx:   float64(le16(g[0], g[1])) * gyroScaleDps,
		Gy:   float64(le16(g[2], g[3])) * gyroScaleDps,
		Gz:   float64(le16(g[4], g[5])) * gyroScaleDps,
		Ax:   float64(le16(a[0], a[1])) * accelScaleG,
		Ay:   float64(le16(a[2], a[3])) * accelScaleG,
		Az:   float64(le16(a[4], a[5])) * accelScaleG,
	}
	return s, nil
}

func le16(lo, hi byte) int16 {
	return int16(uint16(hi)<<8 | uint16(lo))
}
