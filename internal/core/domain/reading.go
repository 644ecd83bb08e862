package domain

// Reading is one consistent snapshot of the device. Energy totals are in kWh,
// momentary power values in kW.
type Reading struct {
	TotalEnergyProducedKWh         float64 `json:"total_energy_produced_kwh"`
	TotalEnergyConsumedKWh         float64 `json:"total_energy_consumed_kwh"`
	TotalEnergyFedInKWh            float64 `json:"total_energy_fed_in_kwh"`
	CurrentPowerProducedKW         float64 `json:"current_power_produced_kw"`
	CurrentPowerConsumedFromGridKW float64 `json:"current_power_consumed_from_grid_kw"`
	CurrentPowerFedInKW            float64 `json:"current_power_fed_in_kw"`
	CurrentPowerConsumedFromPVKW   float64 `json:"current_power_consumed_from_pv_kw"`
	CurrentPowerConsumedTotalKW    float64 `json:"current_power_consumed_total_kw"`
}

type CycleState string

const (
	CycleStateIdle       CycleState = "idle"
	CycleStateConnecting CycleState = "connecting"
	CycleStateReading    CycleState = "reading"
	CycleStateDeriving   CycleState = "deriving"
	CycleStateDone       CycleState = "done"
	CycleStateError      CycleState = "error"
)
