package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE                 = "bridge"
	SENSOR_ID_TOTAL_ENERGY_PRODUCED        = "total_energy_produced"
	SENSOR_ID_TOTAL_ENERGY_CONSUMED        = "total_energy_consumed"
	SENSOR_ID_TOTAL_ENERGY_FED_IN          = "total_energy_fed_in"
	SENSOR_ID_CURRENT_POWER_PRODUCED       = "current_power_produced"
	SENSOR_ID_CURRENT_POWER_CONSUMED_GRID  = "current_power_consumed_grid"
	SENSOR_ID_CURRENT_POWER_FED_IN         = "current_power_fed_in"
	SENSOR_ID_CURRENT_POWER_CONSUMED_PV    = "current_power_consumed_pv"
	SENSOR_ID_CURRENT_POWER_CONSUMED_TOTAL = "current_power_consumed_total"
	BUTTON_ID_POLL_NOW                     = "poll_now"
	STATE_CLASS_MEASUREMENT                = "measurement"
	STATE_CLASS_TOTAL_INCREASING           = "total_increasing"
	DEVICE_CLASS_ENERGY                    = "energy"
	DEVICE_CLASS_POWER                     = "power"
	DEVICE_CLASS_CONNECTIVITY              = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC                = "diagnostic"
	SENSOR_TYPE_SENSOR                     = "sensor"
	SENSOR_TYPE_BINARY                     = "binary_sensor"
	UNIT_KWH                               = "kWh"
	UNIT_KW                                = "kW"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("solarpoll_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "Solarpoll",
		Model:        "Solarpoll",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Solarpoll %s", md5HashShort(baseTopic)),
	}
}

// EnergyDevice describes the polled device. endpoint is the host:port or the
// serial device path, it only feeds the identifier.
func EnergyDevice(endpoint string, unitId uint8) Device {
	key := fmt.Sprintf("%s#%d", endpoint, unitId)
	return Device{
		Id:           fmt.Sprintf("solarpoll_device_%s", md5HashShort(key)),
		Manufacturer: "Modbus",
		Model:        "Energy meter",
		Name:         fmt.Sprintf("Energy device %s", md5HashShort(key)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:         bridgeDevice,
			Id:             SENSOR_ID_BRIDGE_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Connection state",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

// ReadingSensors returns one sensor per Reading field. Only the first one
// carries the full device description.
func ReadingSensors(device Device) []GenericSensor {
	sensors := []GenericSensor{
		energySensor(device, SENSOR_ID_TOTAL_ENERGY_PRODUCED, "Total energy produced"),
		energySensor(device, SENSOR_ID_TOTAL_ENERGY_CONSUMED, "Total energy consumed"),
		energySensor(device, SENSOR_ID_TOTAL_ENERGY_FED_IN, "Total energy fed in"),
		powerSensor(device, SENSOR_ID_CURRENT_POWER_PRODUCED, "PV power", "mdi:solar-power"),
		powerSensor(device, SENSOR_ID_CURRENT_POWER_CONSUMED_GRID, "Grid import power", "mdi:transmission-tower-import"),
		powerSensor(device, SENSOR_ID_CURRENT_POWER_FED_IN, "Grid feed-in power", "mdi:transmission-tower-export"),
		powerSensor(device, SENSOR_ID_CURRENT_POWER_CONSUMED_PV, "PV self-consumption", ""),
		powerSensor(device, SENSOR_ID_CURRENT_POWER_CONSUMED_TOTAL, "House power", "mdi:home-lightning-bolt"),
	}
	for i := range sensors {
		if i > 0 {
			sensors[i].Device = IdDevice(device)
		}
	}
	return sensors
}

func DeviceButtons(device Device) []GenericButton {
	return []GenericButton{
		{
			Device:   IdDevice(device),
			Id:       BUTTON_ID_POLL_NOW,
			Name:     "Poll now",
			UniqueId: uniqueId(device.Id, BUTTON_ID_POLL_NOW),
			Icon:     "mdi:refresh",
		},
	}
}

func energySensor(device Device, id, name string) GenericSensor {
	return GenericSensor{
		Device:            device,
		Id:                id,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              name,
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: UNIT_KWH,
		UniqueId:          uniqueId(device.Id, id),
	}
}

func powerSensor(device Device, id, name, icon string) GenericSensor {
	return GenericSensor{
		Device:            device,
		Id:                id,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              name,
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: UNIT_KW,
		UniqueId:          uniqueId(device.Id, id),
		Icon:              icon,
	}
}

func uniqueId(deviceId, sensorId string) string {
	return fmt.Sprintf("%s_%s", deviceId, sensorId)
}

func md5HashShort(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])[:8]
}
