package util

import (
	"github.com/berfenger/solarpoll/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Modbus: config.ModbusConfig{
			ConnectionType: "tcp",
			Host:           "-.-.-.-",
			Port:           502,
			UnitId:         1,
			TimeoutSeconds: 1,
			ByteOrder:      "big",
			WordOrder:      "big",
		},
		Poll: config.PollConfig{
			IntervalSeconds: 60,
		},
		MQTT: config.MQTTConfig{
			Enabled:           true,
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "solarpoll",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		Port: 8080,
	}
}
