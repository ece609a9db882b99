// Package arming watches a GPIO input wired to the physical arming switch.
// The control loop refuses to drive altitude until the switch reads high.
package arming

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var openLineFn = openLine

// lineDriver is a digital input line. Implemented by the gpiod backend on
// Linux and by fakes in tests.
type lineDriver interface {
	Value() (int, error)
	Close() error
}

type Config struct {
	Enable bool

	// Pin is BCM GPIO numbering.
	Pin int
	// PollInterval controls how often the switch is sampled.
	PollInterval time.Duration
}

type Snapshot struct {
	Enabled bool `json:"enabled"`

	LineAvailable bool `json:"line_available"`
	Armed         bool `json:"armed"`

	LastUpdateAt time.Time `json:"last_update_utc,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

type Service struct {
	cfg Config

	mu   sync.RWMutex
	snap Snapshot

	drvMu sync.Mutex
	drv   lineDriver

	wg sync.WaitGroup

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config) *Service {
	if cfg.Pin == 0 {
		cfg.Pin = 17
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	return &Service{cfg: cfg, stopCh: make(chan struct{})}
}

// Armed reports the last sampled switch state. When the service is disabled
// it always reports true so bench setups without the switch still fly.
func (s *Service) Armed() bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.snap.Enabled {
		return true
	}
	return s.snap.Armed
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})

	// Ensure the line driver is not used concurrently with Close.
	s.wg.Wait()

	s.drvMu.Lock()
	drv := s.drv
	s.drvMu.Unlock()
	if drv != nil {
		_ = drv.Close()
	}
}

func (s *Service) setState(update func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.snap)
	s.snap.LastUpdateAt = time.Now().UTC()
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("arming: service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}

	s.setState(func(sn *Snapshot) {
		sn.Enabled = true
	})

	drv, err := openLineFn(s.cfg.Pin)
	if err != nil {
		s.setState(func(sn *Snapshot) { sn.LastError = err.Error() })
		return err
	}
	s.drvMu.Lock()
	s.drv = drv
	s.drvMu.Unlock()

	s.setState(func(sn *Snapshot) {
		sn.LineAvailable = true
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLoop(ctx, drv)
	}()

	// Ensure resources are released if the runtime context is canceled.
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return nil
}

func (s *Service) runLoop(ctx context.Context, drv lineDriver) {
	t := time.NewTicker(s.cfg.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-t.C:
			v, err := drv.Value()
			if err != nil {
				// Fail safe: a broken switch reads disarmed.
				s.setState(func(sn *Snapshot) {
					sn.Armed = false
					sn.LastError = fmt.Sprintf("arming: read line failed: %v", err)
				})
				continue
			}
			s.setState(func(sn *Snapshot) {
				sn.Armed = v != 0
				sn.LastError = ""
			})
		}
	}
}
