//go:build unix

package procstate

import (
	"fmt"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

type unixSignals struct {
	mu      sync.Mutex
	current Disposition
}

func newOSSignals() *unixSignals {
	s := &unixSignals{current: DefaultDisposition}
	if signal.Ignored(unix.SIGCHLD) {
		s.current = IgnoreDisposition
	}
	return s
}

func (s *unixSignals) Supported() bool { return true }

func (s *unixSignals) Swap(d Disposition) (Disposition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch d.Kind {
	case KindDefault:
		signal.Reset(unix.SIGCHLD)
	case KindIgnore:
		signal.Ignore(unix.SIGCHLD)
	case KindNotify:
		if d.C == nil {
			return s.current, fmt.Errorf("notify disposition requires a channel")
		}
		signal.Reset(unix.SIGCHLD)
		signal.Notify(d.C, unix.SIGCHLD)
	default:
		return s.current, fmt.Errorf("unknown disposition kind %d", d.Kind)
	}

	prev := s.current
	s.current = d
	return prev, nil
}
