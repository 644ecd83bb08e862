package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/berfenger/solarpoll/internal/core/domain"
	"github.com/berfenger/solarpoll/internal/core/port"
	rm "github.com/berfenger/solarpoll/pkg/register_modbus"

	"go.uber.org/zap"
)

// DeviceReaderService runs poll cycles against one device. It owns the
// transport for its whole lifetime.
type DeviceReaderService struct {
	transport rm.Transport
	registers rm.RegisterMap
	decoder   rm.Decoder
	logger    *zap.Logger

	// cycleMu serialises cycles, mu guards the published state
	cycleMu sync.Mutex
	mu      sync.RWMutex
	state   domain.CycleState
	last    domain.Reading
	lastErr error
}

func NewDeviceReaderService(transport rm.Transport, registers rm.RegisterMap, decoder rm.Decoder, logger *zap.Logger) *DeviceReaderService {
	return &DeviceReaderService{
		transport: transport,
		registers: registers,
		decoder:   decoder,
		logger:    logger.With(zap.String("service", "device_reader")),
		state:     domain.CycleStateIdle,
	}
}

func (s *DeviceReaderService) RunCycle(ctx context.Context) (domain.Reading, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if err := ctx.Err(); err != nil {
		return s.LastReading(), err
	}

	// connecting
	s.setState(domain.CycleStateConnecting)
	if !s.transport.IsConnected() {
		if err := s.transport.Connect(); err != nil {
			return s.fail(err)
		}
	}

	// reading
	s.setState(domain.CycleStateReading)
	raw := make(RawValues, len(s.registers))
	for _, metric := range s.registers.Configured() {
		if err := ctx.Err(); err != nil {
			s.closeTransport()
			return s.fail(fmt.Errorf("cycle aborted before %s: %w", metric, err))
		}
		desc := s.registers[metric]
		words, err := s.transport.ReadBlock(desc.Address, desc.WordCount)
		if err != nil {
			s.closeTransport()
			return s.fail(rm.WithMetric(err, metric, desc.Address))
		}
		value, err := s.decoder.Decode(desc, words)
		if err != nil {
			s.closeTransport()
			return s.fail(rm.WithMetric(err, metric, desc.Address))
		}
		raw[metric] = value
	}

	// deriving
	s.setState(domain.CycleStateDeriving)
	s.mu.Lock()
	// a caller that gave up on this cycle already reported it as failed
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		s.closeTransport()
		return s.fail(fmt.Errorf("cycle aborted before publishing: %w", err))
	}
	reading := DerivePowerFlow(s.last, raw)
	s.last = reading
	s.lastErr = nil
	s.state = domain.CycleStateDone
	s.mu.Unlock()

	s.dump(reading)
	return reading, nil
}

func (s *DeviceReaderService) LastReading() domain.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *DeviceReaderService) State() domain.CycleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastError is the error of the most recent cycle, nil if it succeeded.
func (s *DeviceReaderService) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *DeviceReaderService) Close() error {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	s.setState(domain.CycleStateIdle)
	return s.transport.Close()
}

func (s *DeviceReaderService) setState(state domain.CycleState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *DeviceReaderService) fail(err error) (domain.Reading, error) {
	s.logger.Error("device cycle failed", zap.Error(err))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.CycleStateError
	s.lastErr = err
	return s.last, err
}

func (s *DeviceReaderService) closeTransport() {
	if err := s.transport.Close(); err != nil {
		s.logger.Warn("close transport", zap.Error(err))
	}
}

func (s *DeviceReaderService) dump(r domain.Reading) {
	if !s.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	s.logger.Debug("absolute values",
		zap.Float64("total_produced_kwh", r.TotalEnergyProducedKWh),
		zap.Float64("total_consumed_kwh", r.TotalEnergyConsumedKWh),
		zap.Float64("total_fed_in_kwh", r.TotalEnergyFedInKWh))
	s.logger.Debug("momentary values",
		zap.Float64("production_kw", r.CurrentPowerProducedKW),
		zap.Float64("feed_in_kw", r.CurrentPowerFedInKW),
		zap.Float64("grid_kw", r.CurrentPowerConsumedFromGridKW),
		zap.Float64("pv_consumption_kw", r.CurrentPowerConsumedFromPVKW),
		zap.Float64("total_consumption_kw", r.CurrentPowerConsumedTotalKW))
}

// ensure interface compliance
var _ port.DeviceReader = (*DeviceReaderService)(nil)
