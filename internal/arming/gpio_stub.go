//go:build !linux || (!arm && !arm64)

package arming

import "fmt"

// Stub implementation for non-Linux and/or non-ARM platforms.
func openLine(pin int) (lineDriver, error) {
	return nil, fmt.Errorf("arming: gpio unsupported on this platform")
}
