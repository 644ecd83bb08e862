package register_modbus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goburrow/modbus"
	"go.uber.org/zap"
)

type RTUTransport struct {
	handler    *modbus.RTUClientHandler
	client     modbus.Client
	instrument []ModbusInstrument
	logger     *zap.Logger
	connected  bool
}

func NewRTUTransport(endpoint SerialEndpoint, unitId uint8, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (*RTUTransport, error) {
	if endpoint.DevicePath == "" {
		return nil, configError("rtu device path required")
	}
	parity, err := parseParity(endpoint.Parity)
	if err != nil {
		return nil, err
	}
	if endpoint.BaudRate == 0 {
		return nil, configError("rtu baud rate required")
	}
	if endpoint.DataBits < 5 || endpoint.DataBits > 8 {
		return nil, configError("rtu data bits %d out of range", endpoint.DataBits)
	}
	if endpoint.StopBits != 1 && endpoint.StopBits != 2 {
		return nil, configError("rtu stop bits %d out of range", endpoint.StopBits)
	}

	logger = logger.With(zap.String("transport", ConnectionTypeRTU), zap.String("device", endpoint.DevicePath), zap.Uint8("unit", unitId))

	handler := modbus.NewRTUClientHandler(endpoint.DevicePath)
	handler.BaudRate = int(endpoint.BaudRate)
	handler.DataBits = int(endpoint.DataBits)
	handler.Parity = parity
	handler.StopBits = int(endpoint.StopBits)
	handler.SlaveId = unitId
	handler.Timeout = timeout
	if logger.Core().Enabled(zap.DebugLevel) {
		handler.Logger = zap.NewStdLog(logger)
	}

	return &RTUTransport{
		handler:    handler,
		instrument: buildInstruments(logger, instrumentation),
		logger:     logger,
	}, nil
}

func (t *RTUTransport) Connect() error {
	if t.connected {
		return nil
	}
	defer RecordTimer("Connect", t.instrument)()
	if err := t.handler.Connect(); err != nil {
		return connectionError(fmt.Errorf("open %s: %w", t.handler.Address, err))
	}
	time.Sleep(ConnectSettleDelay)
	t.client = modbus.NewClient(t.handler)
	t.connected = true
	t.logger.Info("modbus connected")
	return nil
}

func (t *RTUTransport) IsConnected() bool {
	return t.connected
}

func (t *RTUTransport) ReadBlock(address uint16, wordCount uint16) ([]uint16, error) {
	if !t.connected {
		return nil, readError(address, errors.New("not connected"))
	}
	defer RecordTimer("ReadBlock", t.instrument)()
	data, err := t.client.ReadHoldingRegisters(address, wordCount)
	if err != nil {
		return nil, readError(address, err)
	}
	if len(data) != 2*int(wordCount) {
		return nil, &DeviceError{
			Kind:    ErrDecode,
			Address: address,
			Err:     fmt.Errorf("got %d bytes, expected %d", len(data), 2*int(wordCount)),
		}
	}
	return unpackRegisters(data), nil
}

func (t *RTUTransport) Close() error {
	if !t.connected {
		return nil
	}
	t.connected = false
	t.client = nil
	t.logger.Info("modbus disconnected")
	return t.handler.Close()
}

func parseParity(p string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(p)) {
	case "N", "NONE":
		return "N", nil
	case "E", "EVEN":
		return "E", nil
	case "O", "ODD":
		return "O", nil
	default:
		return "", configError("invalid parity %q", p)
	}
}

// unpackRegisters splits a wire payload into big-endian words.
func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}

// ensure interface compliance
var _ Transport = (*RTUTransport)(nil)
