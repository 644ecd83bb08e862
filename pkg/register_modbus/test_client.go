package register_modbus

import (
	"errors"
	"sync"
)

// TestTransport is an in-memory register bank standing in for a device.
type TestTransport struct {
	mu           sync.Mutex
	registers    map[uint16]uint16
	connectErr   error
	failures     map[uint16]error
	connected    bool
	connectCalls int
	closeCalls   int
	reads        []uint16
}

var errIllegalAddress = errors.New("illegal data address")

func CreateTestTransport(registers map[uint16]uint16) *TestTransport {
	bank := make(map[uint16]uint16, len(registers))
	for k, v := range registers {
		bank[k] = v
	}
	return &TestTransport{
		registers: bank,
		failures:  make(map[uint16]error),
	}
}

// CreateTestInverterTransport returns a bank loaded with the reference inverter
// registers: 12.345 kWh produced, 6.789 consumed, 4.321 fed in, 5 kW PV,
// 1.2 kW grid import and no direct feed-in.
func CreateTestInverterTransport() *TestTransport {
	return CreateTestTransport(map[uint16]uint16{
		3000: 0, 3001: 12345,
		3004: 0, 3005: 6789,
		3008: 0, 3009: 4321,
		3012: 5000,
		3014: 1200,
		3016: 0,
	})
}

func (t *TestTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectCalls++
	if t.connected {
		return nil
	}
	if t.connectErr != nil {
		return connectionError(t.connectErr)
	}
	t.connected = true
	return nil
}

func (t *TestTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *TestTransport) ReadBlock(address uint16, wordCount uint16) ([]uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reads = append(t.reads, address)
	if !t.connected {
		return nil, readError(address, errors.New("not connected"))
	}
	if err, ok := t.failures[address]; ok {
		return nil, readError(address, err)
	}
	words := make([]uint16, wordCount)
	for i := uint16(0); i < wordCount; i++ {
		v, ok := t.registers[address+i]
		if !ok {
			return nil, readError(address, errIllegalAddress)
		}
		words[i] = v
	}
	return words, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeCalls++
	t.connected = false
	return nil
}

// SetValue stores value at the register described by desc, laid out the way
// decoder expects to find it.
func (t *TestTransport) SetValue(decoder Decoder, desc RegisterDescriptor, value float64) error {
	words, err := decoder.Encode(desc, value)
	if err != nil {
		return err
	}
	t.SetWords(desc.Address, words...)
	return nil
}

func (t *TestTransport) SetWords(address uint16, words ...uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, w := range words {
		t.registers[address+uint16(i)] = w
	}
}

// FailConnect makes every following Connect fail with err. nil clears it.
func (t *TestTransport) FailConnect(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectErr = err
}

// FailRead makes reads at address fail with err. nil clears it.
func (t *TestTransport) FailRead(address uint16, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.failures, address)
		return
	}
	t.failures[address] = err
}

func (t *TestTransport) ConnectCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectCalls
}

func (t *TestTransport) CloseCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCalls
}

// Reads returns the addresses of every ReadBlock call so far.
func (t *TestTransport) Reads() []uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]uint16, len(t.reads))
	copy(out, t.reads)
	return out
}

// ensure interface compliance
var _ Transport = (*TestTransport)(nil)
