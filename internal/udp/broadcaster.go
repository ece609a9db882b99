// Package udp pushes telemetry frames to a ground-side listener.
package udp

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"
)

// udpConn is the slice of *net.UDPConn the broadcaster uses; a seam for
// tests.
type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

type Broadcaster struct {
	dest     string
	interval time.Duration
	conn     udpConn
}

func NewBroadcaster(dest string, interval time.Duration) (*Broadcaster, error) {
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	}
	return newBroadcaster(dest, interval, net.ResolveUDPAddr, dial)
}

func newBroadcaster(dest string, interval time.Duration, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("udp: interval must be > 0")
	}
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Broadcaster{
		dest:     dest,
		interval: interval,
		conn:     conn,
	}, nil
}

// Run sends payload(seq) every interval until the context ends. A nil
// payload result skips that slot. Telemetry is best effort: send failures
// are logged and the loop keeps ticking.
func (b *Broadcaster) Run(ctx context.Context, payload func(seq uint64) []byte) error {
	t := time.NewTicker(b.interval)
	defer t.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			p := payload(seq)
			seq++
			if err := b.Send(p); err != nil {
				log.Printf("udp: send to %s failed: %v", b.dest, err)
			}
		}
	}
}

func (b *Broadcaster) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := b.conn.Write(payload)
	return err
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
