package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	rm "github.com/berfenger/solarpoll/pkg/register_modbus"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Modbus   ModbusConfig `mapstructure:"modbus"`
	Poll     PollConfig   `mapstructure:"poll"`
	MQTT     MQTTConfig   `mapstructure:"mqtt"`
	Port     uint         `mapstructure:"port"`
	HttpLog  bool         `mapstructure:"http_log"`
}

type ModbusConfig struct {
	ConnectionType string                    `mapstructure:"connection_type"`
	Host           string                    `mapstructure:"host"`
	Port           uint                      `mapstructure:"port"`
	DevicePath     string                    `mapstructure:"device_path"`
	BaudRate       uint                      `mapstructure:"baud_rate"`
	Parity         string                    `mapstructure:"parity"`
	StopBits       uint                      `mapstructure:"stop_bits"`
	DataBits       uint                      `mapstructure:"data_bits"`
	UnitId         uint                      `mapstructure:"unit_id"`
	TimeoutSeconds float64                   `mapstructure:"timeout_seconds"`
	ByteOrder      string                    `mapstructure:"byte_order"`
	WordOrder      string                    `mapstructure:"word_order"`
	RegisterMap    map[string]RegisterConfig `mapstructure:"register_map"`
}

type RegisterConfig struct {
	Address int      `mapstructure:"address"`
	Length  int      `mapstructure:"length"`
	Type    string   `mapstructure:"type"`
	Scale   *float64 `mapstructure:"scale"`
}

type PollConfig struct {
	IntervalSeconds uint `mapstructure:"interval_seconds"`
}

type MQTTConfig struct {
	Enabled           bool
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// DeviceSettings is the typed device configuration, ready for the transport
// and the decoder.
type DeviceSettings struct {
	Connection rm.ConnectionConfig
	Endian     rm.EndianConfig
	Registers  rm.RegisterMap
	// register map keys that are not known metrics, ignored
	UnknownRegisters []string
}

// Endpoint identifies the device in logs and discovery ids.
func (d DeviceSettings) Endpoint() string {
	if d.Connection.Serial != nil {
		return d.Connection.Serial.DevicePath
	}
	if d.Connection.Network != nil {
		return net.JoinHostPort(d.Connection.Network.Host, strconv.Itoa(int(d.Connection.Network.Port)))
	}
	return ""
}

// ToDevice validates the modbus section and converts it into typed settings.
// An empty register map selects the reference inverter map.
func (c ModbusConfig) ToDevice() (*DeviceSettings, error) {
	var settings DeviceSettings

	if c.UnitId > 255 {
		return nil, fmt.Errorf("%w: unit_id %d out of range", rm.ErrConfig, c.UnitId)
	}
	if c.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("%w: timeout_seconds must be > 0", rm.ErrConfig)
	}
	settings.Connection.UnitId = uint8(c.UnitId)
	settings.Connection.Timeout = time.Duration(c.TimeoutSeconds * float64(time.Second))

	switch strings.ToLower(strings.TrimSpace(c.ConnectionType)) {
	case rm.ConnectionTypeTCP:
		if c.Host == "" {
			return nil, fmt.Errorf("%w: modbus.host required for tcp", rm.ErrConfig)
		}
		if c.Port == 0 || c.Port > 65535 {
			return nil, fmt.Errorf("%w: modbus.port %d out of range", rm.ErrConfig, c.Port)
		}
		settings.Connection.Network = &rm.NetworkEndpoint{Host: c.Host, Port: c.Port}
	case rm.ConnectionTypeRTU:
		if c.DevicePath == "" {
			return nil, fmt.Errorf("%w: modbus.device_path required for rtu", rm.ErrConfig)
		}
		settings.Connection.Serial = &rm.SerialEndpoint{
			DevicePath: c.DevicePath,
			BaudRate:   c.BaudRate,
			Parity:     c.Parity,
			StopBits:   c.StopBits,
			DataBits:   c.DataBits,
		}
	default:
		return nil, fmt.Errorf("%w: unsupported connection type %q", rm.ErrConfig, c.ConnectionType)
	}

	byteOrder, err := rm.ParseEndianness(c.ByteOrder)
	if err != nil {
		return nil, fmt.Errorf("byte_order: %w", err)
	}
	wordOrder, err := rm.ParseEndianness(c.WordOrder)
	if err != nil {
		return nil, fmt.Errorf("word_order: %w", err)
	}
	settings.Endian = rm.EndianConfig{ByteOrder: byteOrder, WordOrder: wordOrder}

	if len(c.RegisterMap) == 0 {
		settings.Registers = rm.DefaultRegisterMap()
		return &settings, nil
	}

	settings.Registers = make(rm.RegisterMap, len(c.RegisterMap))
	for name, reg := range c.RegisterMap {
		metric, ok := rm.ParseMetric(strings.ToLower(name))
		if !ok {
			settings.UnknownRegisters = append(settings.UnknownRegisters, name)
			continue
		}
		desc, err := rm.NewRegisterDescriptor(reg.Address, reg.Length, reg.Type, reg.Scale)
		if err != nil {
			return nil, fmt.Errorf("register_map.%s: %w", name, err)
		}
		settings.Registers[metric] = desc
	}
	sort.Strings(settings.UnknownRegisters)

	return &settings, nil
}

func (c Config) Validate() error {
	if c.Poll.IntervalSeconds < 1 {
		return errors.New("config param poll.interval_seconds should be >= 1")
	}
	if _, err := c.Modbus.ToDevice(); err != nil {
		return err
	}
	if c.MQTT.Enabled {
		if c.MQTT.Host == "" {
			return errors.New("config param mqtt.host required when mqtt is enabled")
		}
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
