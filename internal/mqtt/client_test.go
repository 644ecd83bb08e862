package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/berfenger/solarpoll/internal/core/domain"
	"github.com/berfenger/solarpoll/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestButtonCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/button/poll_now/press"
	r := buttonCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal("poll_now", matches[0][1], "button extract")
}

func TestButtonCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	r := buttonCommandExtractor("loremTopic")

	assert.Empty(r.FindAllStringSubmatch("loremTopic/sensor/poll_now/state", 1), "no matches")
	assert.Empty(r.FindAllStringSubmatch("otherTopic/button/poll_now/press", 1), "no matches")
}

func TestParseCommandTopic(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cfg := util.LoadTestConfig()
	client := CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)

	cmd, err := client.ParseCommandTopic(client.ButtonCommandTopic(domain.BUTTON_ID_POLL_NOW), MQTT_PAYLOAD_PRESS)
	require.NoError(err)
	assert.Equal(domain.BUTTON_ID_POLL_NOW, cmd.Command)
	assert.Equal(MQTT_PAYLOAD_PRESS, cmd.Payload)

	_, err = client.ParseCommandTopic("solarpoll/sensor/poll_now/state", "")
	assert.Error(err)
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	client := CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)

	assert.Equal("solarpoll/bridge/state", client.BridgeStateTopic())
	assert.Equal("solarpoll/sensor/current_power_produced/state", client.SensorStateTopic(domain.SENSOR_ID_CURRENT_POWER_PRODUCED))
	assert.Equal("solarpoll/reading", client.ReadingTopic())
	assert.Equal("solarpoll/button/poll_now/press", client.ButtonCommandTopic(domain.BUTTON_ID_POLL_NOW))
}

func TestHADiscoveryMessages(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := util.LoadTestConfig()
	client := CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)

	dev := domain.EnergyDevice("localhost:502", 1)
	sensors := domain.ReadingSensors(dev)
	require.Len(sensors, 8)

	msg := GenericSensorToHADiscoveryMessage(client, sensors[0])
	assert.Equal("solarpoll/sensor/total_energy_produced/state", msg.StateTopic)
	assert.Equal("kWh", msg.UnitOfMeasurement)
	assert.Equal(domain.STATE_CLASS_TOTAL_INCREASING, msg.StateClass)
	assert.Equal([]string{dev.Id}, msg.Device.Id)
	assert.Equal("homeassistant/sensor/"+dev.Id+"/total_energy_produced/config", client.HADiscoverySensorTopic(sensors[0]))

	bridge := domain.BridgeSensors(domain.BridgeDevice(cfg.MQTT.BaseTopic))[0]
	msg = GenericSensorToHADiscoveryMessage(client, bridge)
	assert.Equal(client.BridgeStateTopic(), msg.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Equal(MQTT_PAYLOAD_OFFLINE, msg.PayloadOff)

	button := domain.DeviceButtons(dev)[0]
	msg = GenericButtonToHADiscoveryMessage(client, button)
	assert.Equal(client.ButtonCommandTopic(domain.BUTTON_ID_POLL_NOW), msg.CommandTopic)
	payload, err := json.Marshal(msg)
	require.NoError(err)
	assert.NotContains(string(payload), "state_topic")
	assert.Contains(string(payload), `"payload_press":"press"`)
}
