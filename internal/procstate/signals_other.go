//go:build !unix

package procstate

// There is no child-termination signal outside unix.
type noSignals struct{}

func newOSSignals() noSignals { return noSignals{} }

func (noSignals) Supported() bool { return false }

func (noSignals) Swap(Disposition) (Disposition, error) {
	return DefaultDisposition, nil
}
