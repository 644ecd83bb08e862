package config

import (
	"strings"
	"testing"
	"time"

	rm "github.com/berfenger/solarpoll/pkg/register_modbus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tcpConfig() ModbusConfig {
	return ModbusConfig{
		ConnectionType: "tcp",
		Host:           "192.168.1.100",
		Port:           502,
		UnitId:         1,
		TimeoutSeconds: 3,
		ByteOrder:      "big",
		WordOrder:      "big",
	}
}

func TestToDeviceTCPDefaults(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	settings, err := tcpConfig().ToDevice()
	require.NoError(err)
	require.NotNil(settings.Connection.Network)
	assert.Nil(settings.Connection.Serial)
	assert.Equal("192.168.1.100", settings.Connection.Network.Host)
	assert.Equal(uint8(1), settings.Connection.UnitId)
	assert.Equal(3*time.Second, settings.Connection.Timeout)
	assert.Equal(rm.EndianConfig{}, settings.Endian)
	assert.Equal(rm.DefaultRegisterMap(), settings.Registers)
	assert.Equal("192.168.1.100:502", settings.Endpoint())
}

func TestToDeviceRTU(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cfg := tcpConfig()
	cfg.ConnectionType = "RTU"
	cfg.DevicePath = "/dev/ttyUSB0"
	cfg.BaudRate = 9600
	cfg.Parity = "N"
	cfg.StopBits = 1
	cfg.DataBits = 8
	cfg.ByteOrder = "little"

	settings, err := cfg.ToDevice()
	require.NoError(err)
	require.NotNil(settings.Connection.Serial)
	assert.Nil(settings.Connection.Network)
	assert.Equal(uint(9600), settings.Connection.Serial.BaudRate)
	assert.Equal(rm.LittleEndian, settings.Endian.ByteOrder)
	assert.Equal(rm.BigEndian, settings.Endian.WordOrder)
	assert.Equal("/dev/ttyUSB0", settings.Endpoint())
}

func TestToDeviceRegisterMap(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	milli := 0.001
	cfg := tcpConfig()
	cfg.RegisterMap = map[string]RegisterConfig{
		"current_power_produced": {Address: 3012, Length: 1, Type: "uint16", Scale: &milli},
		"total_energy_produced":  {Address: 40000, Length: 2, Type: "float32"},
		"battery_soc":            {Address: 1, Length: 1, Type: "uint16"},
	}

	settings, err := cfg.ToDevice()
	require.NoError(err)
	assert.Len(settings.Registers, 2)
	assert.Equal(rm.RegisterDescriptor{Address: 3012, WordCount: 1, Type: rm.Uint16, Scale: 0.001},
		settings.Registers[rm.MetricCurrentPowerProduced])
	assert.Equal(1.0, settings.Registers[rm.MetricTotalEnergyProduced].Scale)
	assert.Equal([]string{"battery_soc"}, settings.UnknownRegisters)
}

func TestRegisterScaleFromYAML(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(v.ReadConfig(strings.NewReader(`
connection_type: tcp
host: 192.168.1.100
port: 502
unit_id: 1
timeout_seconds: 3
byte_order: big
word_order: big
register_map:
  total_energy_produced:
    address: 3000
    length: 2
    type: uint32
  current_power_produced:
    address: 3012
    length: 1
    type: uint16
    scale: 0
`)))

	var cfg ModbusConfig
	require.NoError(v.Unmarshal(&cfg))
	assert.Nil(cfg.RegisterMap["total_energy_produced"].Scale)
	require.NotNil(cfg.RegisterMap["current_power_produced"].Scale)

	settings, err := cfg.ToDevice()
	require.NoError(err)
	assert.Equal(1.0, settings.Registers[rm.MetricTotalEnergyProduced].Scale)
	assert.Equal(0.0, settings.Registers[rm.MetricCurrentPowerProduced].Scale)
}

func TestToDeviceErrors(t *testing.T) {
	assert := assert.New(t)

	for name, mutate := range map[string]func(*ModbusConfig){
		"connection type": func(c *ModbusConfig) { c.ConnectionType = "udp" },
		"byte order":      func(c *ModbusConfig) { c.ByteOrder = "middle" },
		"word order":      func(c *ModbusConfig) { c.WordOrder = "" },
		"unit id":         func(c *ModbusConfig) { c.UnitId = 256 },
		"timeout":         func(c *ModbusConfig) { c.TimeoutSeconds = 0 },
		"host":            func(c *ModbusConfig) { c.Host = "" },
		"rtu path":        func(c *ModbusConfig) { c.ConnectionType = "rtu" },
		"length mismatch": func(c *ModbusConfig) {
			c.RegisterMap = map[string]RegisterConfig{
				"total_energy_produced": {Address: 3000, Length: 1, Type: "uint32"},
			}
		},
		"value type": func(c *ModbusConfig) {
			c.RegisterMap = map[string]RegisterConfig{
				"total_energy_produced": {Address: 3000, Length: 4, Type: "float64"},
			}
		},
	} {
		cfg := tcpConfig()
		mutate(&cfg)
		_, err := cfg.ToDevice()
		assert.ErrorIs(err, rm.ErrConfig, name)
	}
}

func TestConfigValidate(t *testing.T) {
	assert := assert.New(t)

	cfg := Config{Modbus: tcpConfig(), Poll: PollConfig{IntervalSeconds: 60}}
	assert.NoError(cfg.Validate())

	cfg.MQTT.Enabled = true
	assert.Error(cfg.Validate())
	cfg.MQTT.Host = "localhost"
	assert.NoError(cfg.Validate())

	cfg.Poll.IntervalSeconds = 0
	assert.Error(cfg.Validate())
}

func TestCheckMQTTTopic(t *testing.T) {
	assert := assert.New(t)

	topic, err := CheckMQTTTopic("SolarPoll")
	assert.NoError(err)
	assert.Equal("solarpoll", topic)

	_, err = CheckMQTTTopic("solar/poll")
	assert.Error(err)
}
