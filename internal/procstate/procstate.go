// Package procstate saves and restores the process-wide state that reactor
// tests disturb: the child-termination (SIGCHLD) signal disposition and the
// table of child processes awaiting reaping.
//
// Both are genuinely process-global, so they are reached through an explicitly
// passed Env rather than touched directly. Tests of the Guard itself inject
// fakes; real runs use OS().
package procstate

import (
	"fmt"
	"os"
	"sync"

	"github.com/Quidge/reactortest/internal/process"
)

// DispositionKind is the way a signal is currently handled.
type DispositionKind int

const (
	// KindDefault is the platform default action.
	KindDefault DispositionKind = iota

	// KindIgnore discards the signal.
	KindIgnore

	// KindNotify relays the signal to a channel.
	KindNotify
)

func (k DispositionKind) String() string {
	switch k {
	case KindDefault:
		return "default"
	case KindIgnore:
		return "ignore"
	case KindNotify:
		return "notify"
	default:
		return "unknown"
	}
}

// Disposition is a complete description of how the child-termination signal
// is handled. Dispositions are comparable with ==.
type Disposition struct {
	Kind DispositionKind
	C    chan<- os.Signal
}

// DefaultDisposition restores the platform default action.
var DefaultDisposition = Disposition{Kind: KindDefault}

// IgnoreDisposition discards the signal.
var IgnoreDisposition = Disposition{Kind: KindIgnore}

// NotifyDisposition relays the signal to c.
func NotifyDisposition(c chan<- os.Signal) Disposition {
	return Disposition{Kind: KindNotify, C: c}
}

func (d Disposition) String() string {
	if d.Kind == KindNotify {
		return fmt.Sprintf("notify(%p)", d.C)
	}
	return d.Kind.String()
}

// Signals controls the child-termination signal disposition.
type Signals interface {
	// Supported reports whether the platform has a child-termination signal.
	Supported() bool

	// Swap installs d and returns the disposition it replaced.
	Swap(d Disposition) (Disposition, error)
}

// Processes is the child-process bookkeeping a Guard drains after each test.
type Processes interface {
	// Pending describes the process handlers still awaiting reaping.
	Pending() []string

	// ReapAll attempts to collect every terminated child.
	ReapAll()
}

// Env bundles the process-wide state a Guard saves and restores. A nil field
// disables the corresponding step.
type Env struct {
	Signals   Signals
	Processes Processes
}

var osSignals = sync.OnceValue(func() Signals { return newOSSignals() })

// OSSignals returns the process's real signal controller. Every component that
// installs a child-termination handler must go through it so the Guard can see
// and undo the change.
func OSSignals() Signals {
	return osSignals()
}

// OS returns the real process environment: the OS signal controller and the
// default child-process reaper.
func OS() Env {
	return Env{Signals: OSSignals(), Processes: process.Default}
}
