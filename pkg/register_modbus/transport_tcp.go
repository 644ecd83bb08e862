package register_modbus

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

type TCPTransport struct {
	client     *modbus.ModbusClient
	url        string
	instrument []ModbusInstrument
	logger     *zap.Logger
	connected  bool
}

func NewTCPTransport(endpoint NetworkEndpoint, unitId uint8, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (*TCPTransport, error) {
	if endpoint.Host == "" {
		return nil, configError("tcp host required")
	}
	if endpoint.Port == 0 || endpoint.Port > 65535 {
		return nil, configError("tcp port %d out of range", endpoint.Port)
	}
	url := fmt.Sprintf("tcp://%s", net.JoinHostPort(endpoint.Host, strconv.Itoa(int(endpoint.Port))))
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     url,
		Timeout: timeout,
	})
	if err != nil {
		return nil, configError("create modbus tcp client: %w", err)
	}
	if err := client.SetUnitId(unitId); err != nil {
		return nil, configError("set unit id: %w", err)
	}
	logger = logger.With(zap.String("transport", ConnectionTypeTCP), zap.String("url", url), zap.Uint8("unit", unitId))
	return &TCPTransport{
		client:     client,
		url:        url,
		instrument: buildInstruments(logger, instrumentation),
		logger:     logger,
	}, nil
}

func (t *TCPTransport) Connect() error {
	if t.connected {
		return nil
	}
	defer RecordTimer("Connect", t.instrument)()
	if err := t.client.Open(); err != nil {
		return connectionError(fmt.Errorf("open %s: %w", t.url, err))
	}
	time.Sleep(ConnectSettleDelay)
	t.connected = true
	t.logger.Info("modbus connected")
	return nil
}

func (t *TCPTransport) IsConnected() bool {
	return t.connected
}

func (t *TCPTransport) ReadBlock(address uint16, wordCount uint16) ([]uint16, error) {
	if !t.connected {
		return nil, readError(address, errors.New("not connected"))
	}
	defer RecordTimer("ReadBlock", t.instrument)()
	words, err := t.client.ReadRegisters(address, wordCount, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, readError(address, err)
	}
	return words, nil
}

func (t *TCPTransport) Close() error {
	if !t.connected {
		return nil
	}
	t.connected = false
	t.logger.Info("modbus disconnected")
	return t.client.Close()
}

// ensure interface compliance
var _ Transport = (*TCPTransport)(nil)
