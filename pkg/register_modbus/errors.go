package register_modbus

import (
	"errors"
	"fmt"
)

// error kinds. A *DeviceError unwraps to its kind and to its cause, so callers
// discriminate with errors.Is(err, ErrRead) and still reach the underlying error.
var (
	ErrConfig     = errors.New("config error")
	ErrConnection = errors.New("connection error")
	ErrRead       = errors.New("read error")
	ErrDecode     = errors.New("decode error")
)

type DeviceError struct {
	Kind    error
	Metric  Metric
	Address uint16
	Err     error
}

// Read and decode errors always refer to a register, so their address is
// printed even when it is 0.
func (e *DeviceError) Error() string {
	switch {
	case e.Metric != "":
		return fmt.Sprintf("%s: %s (address %d): %v", e.Kind, e.Metric, e.Address, e.Err)
	case e.Kind == ErrRead || e.Kind == ErrDecode:
		return fmt.Sprintf("%s: address %d: %v", e.Kind, e.Address, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *DeviceError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func configError(format string, args ...any) error {
	return &DeviceError{Kind: ErrConfig, Err: fmt.Errorf(format, args...)}
}

func connectionError(err error) error {
	return &DeviceError{Kind: ErrConnection, Err: err}
}

func readError(address uint16, err error) error {
	return &DeviceError{Kind: ErrRead, Address: address, Err: err}
}

// WithMetric returns a copy of err annotated with the metric being processed.
// Errors that are not a *DeviceError are returned unchanged.
func WithMetric(err error, metric Metric, address uint16) error {
	var de *DeviceError
	if !errors.As(err, &de) {
		return err
	}
	return &DeviceError{
		Kind:    de.Kind,
		Metric:  metric,
		Address: address,
		Err:     de.Err,
	}
}
