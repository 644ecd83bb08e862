package register_modbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValueType(t *testing.T) {
	assert := assert.New(t)

	for _, tc := range []struct {
		in   string
		want ValueType
	}{
		{"uint16", Uint16},
		{"int16", Int16},
		{"UINT32", Uint32},
		{" int32 ", Int32},
		{"float32", Float32},
	} {
		vt, err := ParseValueType(tc.in)
		assert.NoError(err, tc.in)
		assert.Equal(tc.want, vt, tc.in)
	}

	_, err := ParseValueType("float64")
	assert.True(errors.Is(err, ErrConfig))
}

func TestNewRegisterDescriptor(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	milli, zero, one := 0.001, 0.0, 1.0

	desc, err := NewRegisterDescriptor(3000, 2, "uint32", &milli)
	require.NoError(err)
	assert.Equal(RegisterDescriptor{Address: 3000, WordCount: 2, Type: Uint32, Scale: 0.001}, desc)

	// missing scale defaults, an explicit zero is kept
	desc, err = NewRegisterDescriptor(3012, 1, "uint16", nil)
	require.NoError(err)
	assert.Equal(1.0, desc.Scale)
	desc, err = NewRegisterDescriptor(3012, 1, "uint16", &zero)
	require.NoError(err)
	assert.Equal(0.0, desc.Scale)

	_, err = NewRegisterDescriptor(3000, 1, "uint32", &one)
	assert.ErrorIs(err, ErrConfig)

	_, err = NewRegisterDescriptor(3000, 2, "int16", &one)
	assert.ErrorIs(err, ErrConfig)

	_, err = NewRegisterDescriptor(70000, 1, "uint16", &one)
	assert.ErrorIs(err, ErrConfig)

	_, err = NewRegisterDescriptor(-1, 1, "uint16", &one)
	assert.ErrorIs(err, ErrConfig)

	_, err = NewRegisterDescriptor(3000, 1, "string", &one)
	assert.ErrorIs(err, ErrConfig)
}

func TestRegisterMapConfigured(t *testing.T) {
	assert := assert.New(t)

	m := RegisterMap{
		MetricCurrentPowerFedIn:    {Address: 3016, WordCount: 1, Type: Uint16, Scale: 1},
		MetricTotalEnergyProduced:  {Address: 3000, WordCount: 2, Type: Uint32, Scale: 1},
		MetricCurrentPowerProduced: {Address: 3012, WordCount: 1, Type: Uint16, Scale: 1},
	}
	assert.NoError(m.Validate())
	assert.Equal([]Metric{MetricTotalEnergyProduced, MetricCurrentPowerProduced, MetricCurrentPowerFedIn}, m.Configured())

	assert.Empty(RegisterMap{}.Configured())
}

func TestRegisterMapValidate(t *testing.T) {
	assert := assert.New(t)

	m := RegisterMap{
		MetricTotalEnergyProduced: {Address: 3000, WordCount: 1, Type: Uint32, Scale: 1},
	}
	err := m.Validate()
	assert.ErrorIs(err, ErrConfig)
	var de *DeviceError
	if assert.ErrorAs(err, &de) {
		assert.Equal(MetricTotalEnergyProduced, de.Metric)
	}

	assert.ErrorIs(RegisterMap{"battery_soc": {Address: 1, WordCount: 1, Type: Uint16, Scale: 1}}.Validate(), ErrConfig)
	assert.NoError(DefaultRegisterMap().Validate())
	assert.Len(DefaultRegisterMap().Configured(), len(KnownMetrics))
}

func TestDeviceErrorUnwrap(t *testing.T) {
	assert := assert.New(t)

	cause := errors.New("timeout")
	err := WithMetric(readError(3004, cause), MetricTotalEnergyConsumed, 3004)
	assert.ErrorIs(err, ErrRead)
	assert.ErrorIs(err, cause)
	assert.NotErrorIs(err, ErrConnection)
	assert.Contains(err.Error(), "total_energy_consumed")

	plain := errors.New("plain")
	assert.Equal(plain, WithMetric(plain, MetricTotalEnergyConsumed, 1))
}
