package control

import "sync"

// Measurement is the frozen view of the buffer a tick works with.
type Measurement struct {
	Range  float64 // meters, last range sample
	FlowDX float64 // pixel-rate, last optical-flow x sample
	FlowDY float64 // pixel-rate, last optical-flow y sample

	RangeCount uint32
	FlowCount  uint32
}

// Buffer holds the most recent asynchronous sensor samples.
//
// Last value wins: each ingestion call overwrites the buffered field and bumps
// that sensor's counter. No filtering, no staleness detection; a tick always
// uses whatever was recorded last, however old. The counters are diagnostics
// only and never feed control logic.
//
// Ingestion is safe from any goroutine.
type Buffer struct {
	mu sync.Mutex

	rangeM float64
	flowDX float64
	flowDY float64

	rangeCount uint32
	flowCount  uint32
}

// RecordRange stores a single-point range sample in meters.
func (b *Buffer) RecordRange(distance float64) {
	b.mu.Lock()
	b.rangeM = distance
	b.rangeCount++
	b.mu.Unlock()
}

// RecordFlow stores an optical-flow sample in pixel-rate units.
func (b *Buffer) RecordFlow(dx, dy float64) {
	b.mu.Lock()
	b.flowDX = dx
	b.flowDY = dy
	b.flowCount++
	b.mu.Unlock()
}

// sample reads and freezes the buffer for one tick.
func (b *Buffer) sample() Measurement {
	b.mu.Lock()
	m := Measurement{
		Range:      b.rangeM,
		FlowDX:     b.flowDX,
		FlowDY:     b.flowDY,
		RangeCount: b.rangeCount,
		FlowCount:  b.flowCount,
	}
	b.mu.Unlock()
	return m
}

// DistanceMeasurement is an anchor-relative distance observation (e.g. from
// an ultra-wideband positioning deck).
type DistanceMeasurement struct {
	AnchorID uint8
	Anchor   Vec3
	Distance float64
}

// PositionMeasurement is an absolute position observation (e.g. from motion
// capture).
type PositionMeasurement struct {
	Position Vec3
}

// PoseMeasurement is an absolute position plus orientation observation.
// Quat is (x, y, z, w).
type PoseMeasurement struct {
	Position Vec3
	Quat     [4]float64
}

// AuxMeasurementHandler receives the measurement kinds this core routes but
// does not consume. Integrators supply an implementation to fuse anchor,
// position, or pose observations; the estimator, controller, and mixer never
// see these.
type AuxMeasurementHandler interface {
	HandleDistance(DistanceMeasurement)
	HandlePosition(PositionMeasurement)
	HandlePose(PoseMeasurement)
}

// NopAuxHandler ignores every auxiliary measurement. It is the default.
type NopAuxHandler struct{}

func (NopAuxHandler) HandleDistance(DistanceMeasurement) {}
func (NopAuxHandler) HandlePosition(PositionMeasurement) {}
func (NopAuxHandler) HandlePose(PoseMeasurement)         {}
