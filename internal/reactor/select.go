package reactor

import "github.com/Quidge/reactortest/internal/backend"

func init() {
	backend.Register(backend.SelectReactor, func() (backend.Handle, error) {
		return NewSelectReactor()
	})
}

// SelectReactor keeps its watch set in user space, as a select(2) reactor
// rebuilding its fd sets on every iteration would.
type SelectReactor struct {
	*base
}

// NewSelectReactor returns a SelectReactor with its waker watched.
func NewSelectReactor() (*SelectReactor, error) {
	b, err := newBase("select", nil)
	if err != nil {
		return nil, err
	}
	return &SelectReactor{base: b}, nil
}
