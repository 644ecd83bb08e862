package port

import (
	"context"

	"github.com/berfenger/solarpoll/internal/core/domain"
)

type DeviceReader interface {
	// RunCycle performs one full poll of the device. On failure the last
	// published reading is left untouched. ctx is checked between requests and
	// before publishing, never during one.
	RunCycle(ctx context.Context) (domain.Reading, error)
	LastReading() domain.Reading
	State() domain.CycleState
	Close() error
}
