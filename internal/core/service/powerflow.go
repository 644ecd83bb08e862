package service

import (
	"math"

	"github.com/berfenger/solarpoll/internal/core/domain"
	rm "github.com/berfenger/solarpoll/pkg/register_modbus"
)

// RawValues holds the decoded values of one cycle, keyed by metric. Metrics
// that are not configured are absent.
type RawValues map[rm.Metric]float64

// DerivePowerFlow builds the next reading from the previous one and the raw
// values read this cycle. Metrics absent from raw keep their previous value.
//
// Rules apply in a fixed order: grid sign correction, PV self-consumption,
// total consumption. A negative grid reading is feed-in and takes precedence
// over the feed-in register.
func DerivePowerFlow(prev domain.Reading, raw RawValues) domain.Reading {
	r := prev

	if v, ok := raw[rm.MetricTotalEnergyProduced]; ok {
		r.TotalEnergyProducedKWh = v
	}
	if v, ok := raw[rm.MetricTotalEnergyConsumed]; ok {
		r.TotalEnergyConsumedKWh = v
	}
	if v, ok := raw[rm.MetricTotalEnergyFedIn]; ok {
		r.TotalEnergyFedInKWh = v
	}
	if v, ok := raw[rm.MetricCurrentPowerProduced]; ok {
		r.CurrentPowerProducedKW = v
	}

	grid, hasGrid := raw[rm.MetricCurrentPowerConsumedGrid]
	fedIn, hasFedIn := raw[rm.MetricCurrentPowerFedIn]
	switch {
	case hasGrid && grid < 0:
		r.CurrentPowerConsumedFromGridKW = 0
		r.CurrentPowerFedInKW = -grid
	case hasGrid:
		r.CurrentPowerConsumedFromGridKW = grid
		if hasFedIn {
			r.CurrentPowerFedInKW = fedIn
		} else {
			// importing, so nothing is exported
			r.CurrentPowerFedInKW = 0
		}
	case hasFedIn:
		r.CurrentPowerFedInKW = fedIn
	}

	r.CurrentPowerConsumedFromPVKW = math.Max(0, r.CurrentPowerProducedKW-r.CurrentPowerFedInKW)
	r.CurrentPowerConsumedTotalKW = r.CurrentPowerConsumedFromGridKW + r.CurrentPowerConsumedFromPVKW

	return r
}
