package register_modbus

import (
	"time"

	"go.uber.org/zap"
)

const (
	ConnectionTypeTCP = "tcp"
	ConnectionTypeRTU = "rtu"
)

// ConnectSettleDelay is waited after a successful open before the first request.
// Serial lines in particular need the turnaround time.
const ConnectSettleDelay = 100 * time.Millisecond

// Transport is a connection to one device able to read raw register blocks.
// Implementations do not reconnect on their own: on a failed read the caller
// closes the transport and connects again on its next cycle.
type Transport interface {
	// Connect opens the connection. It is a no-op when already connected.
	Connect() error
	IsConnected() bool
	// ReadBlock reads wordCount holding registers starting at the register
	// offset address, returning the words as they came off the wire.
	ReadBlock(address uint16, wordCount uint16) ([]uint16, error)
	Close() error
}

type NetworkEndpoint struct {
	Host string
	Port uint
}

type SerialEndpoint struct {
	DevicePath string
	BaudRate   uint
	Parity     string
	StopBits   uint
	DataBits   uint
}

// ConnectionConfig selects exactly one transport variant, Network or Serial.
type ConnectionConfig struct {
	Network *NetworkEndpoint
	Serial  *SerialEndpoint
	UnitId  uint8
	Timeout time.Duration
}

func (c ConnectionConfig) Type() string {
	if c.Serial != nil {
		return ConnectionTypeRTU
	}
	return ConnectionTypeTCP
}

func NewTransport(cfg ConnectionConfig, logger *zap.Logger, instrumentation *ModbusInstrument) (Transport, error) {
	switch {
	case cfg.Network != nil && cfg.Serial != nil:
		return nil, configError("both network and serial connection configured")
	case cfg.Network != nil:
		return NewTCPTransport(*cfg.Network, cfg.UnitId, cfg.Timeout, logger, instrumentation)
	case cfg.Serial != nil:
		return NewRTUTransport(*cfg.Serial, cfg.UnitId, cfg.Timeout, logger, instrumentation)
	default:
		return nil, configError("no connection configured")
	}
}
