package register_modbus

import (
	"fmt"
	"math"
	"strings"
)

type ValueType uint8

const (
	Uint16 ValueType = iota + 1
	Int16
	Uint32
	Int32
	Float32
)

const (
	ValueTypeUint16Str  = "uint16"
	ValueTypeInt16Str   = "int16"
	ValueTypeUint32Str  = "uint32"
	ValueTypeInt32Str   = "int32"
	ValueTypeFloat32Str = "float32"
)

func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ValueTypeUint16Str:
		return Uint16, nil
	case ValueTypeInt16Str:
		return Int16, nil
	case ValueTypeUint32Str:
		return Uint32, nil
	case ValueTypeInt32Str:
		return Int32, nil
	case ValueTypeFloat32Str:
		return Float32, nil
	default:
		return 0, configError("unsupported value type %q", s)
	}
}

func (t ValueType) String() string {
	switch t {
	case Uint16:
		return ValueTypeUint16Str
	case Int16:
		return ValueTypeInt16Str
	case Uint32:
		return ValueTypeUint32Str
	case Int32:
		return ValueTypeInt32Str
	case Float32:
		return ValueTypeFloat32Str
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Words is the natural register width of the type, 0 for an unknown type.
func (t ValueType) Words() uint16 {
	switch t {
	case Uint16, Int16:
		return 1
	case Uint32, Int32, Float32:
		return 2
	default:
		return 0
	}
}

type RegisterDescriptor struct {
	Address   uint16
	WordCount uint16
	Type      ValueType
	Scale     float64
}

// NewRegisterDescriptor validates a register declaration as it comes from
// configuration. A nil scale was not given and becomes 1.0.
func NewRegisterDescriptor(address int, length int, valueType string, scale *float64) (RegisterDescriptor, error) {
	if address < 0 || address > math.MaxUint16 {
		return RegisterDescriptor{}, configError("register address %d out of range", address)
	}
	vt, err := ParseValueType(valueType)
	if err != nil {
		return RegisterDescriptor{}, err
	}
	if length != int(vt.Words()) {
		return RegisterDescriptor{}, configError("register %d: length %d does not match type %s (%d words)",
			address, length, vt, vt.Words())
	}
	factor := 1.0
	if scale != nil {
		factor = *scale
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return RegisterDescriptor{}, configError("register %d: invalid scale %v", address, factor)
	}
	return RegisterDescriptor{
		Address:   uint16(address),
		WordCount: uint16(length),
		Type:      vt,
		Scale:     factor,
	}, nil
}

func (d RegisterDescriptor) Validate() error {
	if d.Type.Words() == 0 {
		return configError("register %d: unsupported value type %s", d.Address, d.Type)
	}
	if d.WordCount != d.Type.Words() {
		return configError("register %d: length %d does not match type %s (%d words)",
			d.Address, d.WordCount, d.Type, d.Type.Words())
	}
	return nil
}

type Metric string

const (
	MetricTotalEnergyProduced      Metric = "total_energy_produced"
	MetricTotalEnergyConsumed      Metric = "total_energy_consumed"
	MetricTotalEnergyFedIn         Metric = "total_energy_fed_in"
	MetricCurrentPowerProduced     Metric = "current_power_produced"
	MetricCurrentPowerConsumedGrid Metric = "current_power_consumed_grid"
	MetricCurrentPowerFedIn        Metric = "current_power_fed_in"
)

// KnownMetrics is the fixed key set, in read order.
var KnownMetrics = []Metric{
	MetricTotalEnergyProduced,
	MetricTotalEnergyConsumed,
	MetricTotalEnergyFedIn,
	MetricCurrentPowerProduced,
	MetricCurrentPowerConsumedGrid,
	MetricCurrentPowerFedIn,
}

func ParseMetric(name string) (Metric, bool) {
	for _, m := range KnownMetrics {
		if string(m) == name {
			return m, true
		}
	}
	return "", false
}

// RegisterMap maps a metric to its register. A missing key means the metric is
// not configured and is skipped.
type RegisterMap map[Metric]RegisterDescriptor

func (m RegisterMap) Validate() error {
	for metric, desc := range m {
		if _, ok := ParseMetric(string(metric)); !ok {
			return configError("unknown metric %q", metric)
		}
		if err := desc.Validate(); err != nil {
			return WithMetric(err, metric, desc.Address)
		}
	}
	return nil
}

// Configured returns the configured metrics in read order.
func (m RegisterMap) Configured() []Metric {
	var metrics []Metric
	for _, metric := range KnownMetrics {
		if _, ok := m[metric]; ok {
			metrics = append(metrics, metric)
		}
	}
	return metrics
}

// DefaultRegisterMap is the map of the reference inverter model, used when the
// configuration does not declare one.
func DefaultRegisterMap() RegisterMap {
	return RegisterMap{
		MetricTotalEnergyProduced:      {Address: 3000, WordCount: 2, Type: Uint32, Scale: 0.001},
		MetricTotalEnergyConsumed:      {Address: 3004, WordCount: 2, Type: Uint32, Scale: 0.001},
		MetricTotalEnergyFedIn:         {Address: 3008, WordCount: 2, Type: Uint32, Scale: 0.001},
		MetricCurrentPowerProduced:     {Address: 3012, WordCount: 1, Type: Uint16, Scale: 0.001},
		MetricCurrentPowerConsumedGrid: {Address: 3014, WordCount: 1, Type: Int16, Scale: 0.001},
		MetricCurrentPowerFedIn:        {Address: 3016, WordCount: 1, Type: Uint16, Scale: 0.001},
	}
}
