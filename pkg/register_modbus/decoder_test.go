package register_modbus

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEndian = []EndianConfig{
	{ByteOrder: BigEndian, WordOrder: BigEndian},
	{ByteOrder: BigEndian, WordOrder: LittleEndian},
	{ByteOrder: LittleEndian, WordOrder: BigEndian},
	{ByteOrder: LittleEndian, WordOrder: LittleEndian},
}

func TestParseEndianness(t *testing.T) {
	assert := assert.New(t)

	e, err := ParseEndianness("big")
	assert.NoError(err)
	assert.Equal(BigEndian, e)
	e, err = ParseEndianness("Little")
	assert.NoError(err)
	assert.Equal(LittleEndian, e)
	_, err = ParseEndianness("middle")
	assert.ErrorIs(err, ErrConfig)
}

func TestDecodeLayouts(t *testing.T) {
	assert := assert.New(t)

	u32 := RegisterDescriptor{Address: 1, WordCount: 2, Type: Uint32, Scale: 1}
	words := []uint16{0x0001, 0x0002}

	for _, tc := range []struct {
		endian EndianConfig
		want   float64
	}{
		{EndianConfig{BigEndian, BigEndian}, 0x00010002},
		{EndianConfig{BigEndian, LittleEndian}, 0x00020001},
		{EndianConfig{LittleEndian, BigEndian}, 0x01000200},
		{EndianConfig{LittleEndian, LittleEndian}, 0x02000100},
	} {
		v, err := NewDecoder(tc.endian).Decode(u32, words)
		assert.NoError(err)
		assert.Equal(tc.want, v, "%+v", tc.endian)
	}
}

func TestDecodeTypes(t *testing.T) {
	assert := assert.New(t)
	dec := NewDecoder(EndianConfig{})

	v, err := dec.Decode(RegisterDescriptor{WordCount: 1, Type: Int16, Scale: 1}, []uint16{0xFFFF})
	assert.NoError(err)
	assert.Equal(-1.0, v)

	v, err = dec.Decode(RegisterDescriptor{WordCount: 1, Type: Uint16, Scale: 1}, []uint16{0xFFFF})
	assert.NoError(err)
	assert.Equal(65535.0, v)

	v, err = dec.Decode(RegisterDescriptor{WordCount: 2, Type: Int32, Scale: 1}, []uint16{0xFFFF, 0xFFFE})
	assert.NoError(err)
	assert.Equal(-2.0, v)

	v, err = dec.Decode(RegisterDescriptor{WordCount: 2, Type: Float32, Scale: 1}, []uint16{0x3F80, 0x0000})
	assert.NoError(err)
	assert.Equal(1.0, v)

	v, err = dec.Decode(RegisterDescriptor{WordCount: 2, Type: Float32, Scale: 2}, []uint16{0xC2F7, 0x0000})
	assert.NoError(err)
	assert.Equal(-247.0, v)
}

func TestDecodeScale(t *testing.T) {
	assert := assert.New(t)
	dec := NewDecoder(EndianConfig{})

	pv := DefaultRegisterMap()[MetricCurrentPowerProduced]
	v, err := dec.Decode(pv, []uint16{5000})
	assert.NoError(err)
	assert.InDelta(5.0, v, 1e-9)

	// scale applies to the assembled value, not per word
	total := DefaultRegisterMap()[MetricTotalEnergyProduced]
	v, err = dec.Decode(total, []uint16{0x0001, 0x0000})
	assert.NoError(err)
	assert.InDelta(65.536, v, 1e-9)

	grid := DefaultRegisterMap()[MetricCurrentPowerConsumedGrid]
	v, err = dec.Decode(grid, []uint16{uint16(0x10000 - 1500)})
	assert.NoError(err)
	assert.InDelta(-1.5, v, 1e-9)
}

func TestDecodeLengthMismatch(t *testing.T) {
	assert := assert.New(t)
	dec := NewDecoder(EndianConfig{})

	_, err := dec.Decode(RegisterDescriptor{Address: 3000, WordCount: 2, Type: Uint32, Scale: 1}, []uint16{1})
	assert.ErrorIs(err, ErrDecode)

	_, err = dec.Decode(RegisterDescriptor{Address: 3012, WordCount: 1, Type: Uint16, Scale: 1}, nil)
	assert.ErrorIs(err, ErrDecode)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	values := []struct {
		desc  RegisterDescriptor
		value float64
	}{
		{RegisterDescriptor{WordCount: 1, Type: Uint16, Scale: 0.001}, 5.0},
		{RegisterDescriptor{WordCount: 1, Type: Int16, Scale: 0.001}, -1.2},
		{RegisterDescriptor{WordCount: 2, Type: Uint32, Scale: 0.001}, 12345.678},
		{RegisterDescriptor{WordCount: 2, Type: Int32, Scale: 1}, -123456},
		{RegisterDescriptor{WordCount: 2, Type: Float32, Scale: 1}, 230.5},
	}

	for _, endian := range allEndian {
		dec := NewDecoder(endian)
		for _, tc := range values {
			words, err := dec.Encode(tc.desc, tc.value)
			require.NoError(err)
			require.Len(words, int(tc.desc.WordCount))
			v, err := dec.Decode(tc.desc, words)
			require.NoError(err)
			assert.InDelta(tc.value, v, 1e-6, "%s %+v", tc.desc.Type, endian)
		}
	}
}

func TestEncodeOutOfRange(t *testing.T) {
	assert := assert.New(t)
	dec := NewDecoder(EndianConfig{})

	_, err := dec.Encode(RegisterDescriptor{WordCount: 1, Type: Uint16, Scale: 1}, -1)
	assert.ErrorIs(err, ErrConfig)
	_, err = dec.Encode(RegisterDescriptor{WordCount: 1, Type: Int16, Scale: 1}, math.MaxInt16+1)
	assert.ErrorIs(err, ErrConfig)
}
