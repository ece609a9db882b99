// Package commander reads operator commands from a serial uplink. The line
// protocol is deliberately small: position setpoints, a stop, estimator
// selection, and a state reset.
package commander

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"go.bug.st/serial"

	"flightcore/internal/control"
)

type Config struct {
	Enable bool

	Port string
	Baud int
}

// Link owns the serial port and the latest parsed command state.
type Link struct {
	port io.ReadCloser

	mu       sync.RWMutex
	setpoint control.Setpoint
	seq      uint64

	// flags is poked directly on observer/reset commands.
	flags *control.Flags
}

func NewLink(cfg Config, flags *control.Flags) (*Link, error) {
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("commander: open %s: %w", cfg.Port, err)
	}
	return newLinkWithPort(port, flags), nil
}

func newLinkWithPort(port io.ReadCloser, flags *control.Flags) *Link {
	return &Link{port: port, flags: flags}
}

// Latest returns the most recent setpoint and a sequence number that
// increments on every accepted setpoint or stop command. A zero sequence
// means no command has arrived yet.
func (l *Link) Latest() (control.Setpoint, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.setpoint, l.seq
}

func (l *Link) Close() error {
	return l.port.Close()
}

// Run reads the uplink line by line until the context ends or the port
// closes. Malformed lines are logged and skipped.
func (l *Link) Run(ctx context.Context) error {
	scan := bufio.NewScanner(l.port)
	for scan.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := scan.Text()
		cmd, err := parseLine(line)
		if err != nil {
			log.Printf("commander: ignoring %q: %v", line, err)
			continue
		}
		l.apply(cmd)
	}
	if err := scan.Err(); err != nil {
		return fmt.Errorf("commander: read: %w", err)
	}
	return nil
}

func (l *Link) apply(cmd Command) {
	switch cmd.Kind {
	case KindSetpoint:
		l.mu.Lock()
		l.setpoint = cmd.Setpoint
		l.seq++
		l.mu.Unlock()
	case KindStop:
		l.mu.Lock()
		l.setpoint = control.Setpoint{}
		l.seq++
		l.mu.Unlock()
	case KindObserver:
		if l.flags != nil {
			l.flags.SetUseObserver(cmd.On)
		}
	case KindReset:
		if l.flags != nil {
			l.flags.RequestReset()
		}
	}
}
