package events

import (
	. "github.com/berfenger/solarpoll/internal/core/domain"
)

func ReadingToUpdateEvents(r Reading) []any {
	var events []any

	// Absolute values
	events = append(events, floatEvent(SENSOR_ID_TOTAL_ENERGY_PRODUCED, r.TotalEnergyProducedKWh, 3))
	events = append(events, floatEvent(SENSOR_ID_TOTAL_ENERGY_CONSUMED, r.TotalEnergyConsumedKWh, 3))
	events = append(events, floatEvent(SENSOR_ID_TOTAL_ENERGY_FED_IN, r.TotalEnergyFedInKWh, 3))

	// Momentary values
	events = append(events, floatEvent(SENSOR_ID_CURRENT_POWER_PRODUCED, r.CurrentPowerProducedKW, 3))
	events = append(events, floatEvent(SENSOR_ID_CURRENT_POWER_CONSUMED_GRID, r.CurrentPowerConsumedFromGridKW, 3))
	events = append(events, floatEvent(SENSOR_ID_CURRENT_POWER_FED_IN, r.CurrentPowerFedInKW, 3))
	events = append(events, floatEvent(SENSOR_ID_CURRENT_POWER_CONSUMED_PV, r.CurrentPowerConsumedFromPVKW, 3))
	events = append(events, floatEvent(SENSOR_ID_CURRENT_POWER_CONSUMED_TOTAL, r.CurrentPowerConsumedTotalKW, 3))

	return events
}

func floatEvent(id string, value float64, decimals uint) FloatSensorUpdateEvent {
	return FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: id,
		},
		Value:    value,
		Decimals: decimals,
	}
}
