package udp

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	mu       sync.Mutex
	writes   [][]byte
	fails    int
	writeErr error
	closed   bool
	closeErr error
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		c.fails++
		return 0, c.writeErr
	}
	cp := append([]byte(nil), p...)
	c.writes = append(c.writes, cp)
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *fakeConn) setWriteErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func (c *fakeConn) failCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fails
}

func (c *fakeConn) write(i int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[i]
}

func waitWrites(t *testing.T, fc *fakeConn, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if fc.writeCount() >= n {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d writes (%d so far)", n, fc.writeCount())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestNewBroadcaster_DialsResolvedAddr(t *testing.T) {
	var gotNetwork string
	var gotRaddr *net.UDPAddr
	fc := &fakeConn{}

	resolve := func(network, address string) (*net.UDPAddr, error) {
		return net.ResolveUDPAddr(network, address)
	}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		gotNetwork = network
		gotRaddr = raddr
		return fc, nil
	}

	b, err := newBroadcaster("127.0.0.1:7878", time.Second, resolve, dial)
	if err != nil {
		t.Fatalf("newBroadcaster() error: %v", err)
	}
	defer b.Close()

	if gotNetwork != "udp" {
		t.Fatalf("network=%q want %q", gotNetwork, "udp")
	}
	if gotRaddr == nil || gotRaddr.Port != 7878 || !gotRaddr.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Fatalf("raddr=%v want 127.0.0.1:7878", gotRaddr)
	}
}

func TestNewBroadcaster_ResolveFailure(t *testing.T) {
	resolveErr := errors.New("nope")
	resolve := func(network, address string) (*net.UDPAddr, error) {
		return nil, resolveErr
	}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return &fakeConn{}, nil
	}

	_, err := newBroadcaster("bad:addr", time.Second, resolve, dial)
	if !errors.Is(err, resolveErr) {
		t.Fatalf("err=%v want %v", err, resolveErr)
	}
}

func TestNewBroadcaster_RejectsZeroInterval(t *testing.T) {
	_, err := NewBroadcaster("127.0.0.1:7878", 0)
	if err == nil {
		t.Fatalf("expected error for zero interval")
	}
}

func TestBroadcaster_Send_EmptyNoWrite(t *testing.T) {
	fc := &fakeConn{}
	b := &Broadcaster{dest: "x", conn: fc}

	if err := b.Send(nil); err != nil {
		t.Fatalf("Send(nil) error: %v", err)
	}
	if fc.writeCount() != 0 {
		t.Fatalf("writes=%d want 0", fc.writeCount())
	}
}

func TestBroadcaster_Run_SendsAndStops(t *testing.T) {
	fc := &fakeConn{}
	b := &Broadcaster{dest: "x", conn: fc, interval: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Run(ctx, func(seq uint64) []byte { return []byte{byte(seq)} })
	}()

	waitWrites(t, fc, 3)
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if fc.write(0)[0] != 0 || fc.write(1)[0] != 1 {
		t.Fatalf("sequence not monotonic: %v %v", fc.write(0), fc.write(1))
	}
}

func TestBroadcaster_Run_SurvivesSendFailure(t *testing.T) {
	fc := &fakeConn{writeErr: errors.New("socket gone")}
	b := &Broadcaster{dest: "x", conn: fc, interval: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Run(ctx, func(seq uint64) []byte { return []byte{byte(seq)} })
	}()

	// Let a few sends fail, then heal the socket: the loop must still be
	// ticking and delivering.
	deadline := time.After(2 * time.Second)
	for fc.failCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for failed sends (%d so far)", fc.failCount())
		case <-time.After(time.Millisecond):
		}
	}
	fc.setWriteErr(nil)
	waitWrites(t, fc, 2)
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	// The first delivered frame postdates the failed ones.
	if fc.write(0)[0] == 0 {
		t.Fatalf("first delivered seq=0; failed sends were not skipped")
	}
}
