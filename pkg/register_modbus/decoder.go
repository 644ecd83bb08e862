package register_modbus

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
)

type Endianness uint8

const (
	BigEndian Endianness = iota
	LittleEndian
)

const (
	EndiannessBigStr    = "big"
	EndiannessLittleStr = "little"
)

func ParseEndianness(s string) (Endianness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case EndiannessBigStr:
		return BigEndian, nil
	case EndiannessLittleStr:
		return LittleEndian, nil
	default:
		return BigEndian, configError("invalid endian order %q", s)
	}
}

func (e Endianness) String() string {
	if e == LittleEndian {
		return EndiannessLittleStr
	}
	return EndiannessBigStr
}

// EndianConfig describes how a device lays out multi-byte values.
// ByteOrder applies to the two bytes inside each register, WordOrder to the two
// registers of a 32-bit value. The zero value is big/big.
type EndianConfig struct {
	ByteOrder Endianness
	WordOrder Endianness
}

type Decoder struct {
	endian EndianConfig
}

func NewDecoder(endian EndianConfig) Decoder {
	return Decoder{endian: endian}
}

// Decode turns the raw words of one register into its scaled physical value.
// Scale is applied to the fully assembled value, never to single words.
func (d Decoder) Decode(desc RegisterDescriptor, words []uint16) (float64, error) {
	if err := desc.Validate(); err != nil {
		return 0, err
	}
	if len(words) != int(desc.WordCount) {
		return 0, &DeviceError{
			Kind:    ErrDecode,
			Address: desc.Address,
			Err:     fmt.Errorf("got %d words, expected %d", len(words), desc.WordCount),
		}
	}

	raw := d.assemble(words)

	var value float64
	switch desc.Type {
	case Uint16:
		value = float64(uint16(raw))
	case Int16:
		value = float64(int16(uint16(raw)))
	case Uint32:
		value = float64(raw)
	case Int32:
		value = float64(int32(raw))
	case Float32:
		value = float64(math.Float32frombits(raw))
	default:
		return 0, configError("register %d: unsupported value type %s", desc.Address, desc.Type)
	}
	return value * desc.Scale, nil
}

// assemble builds a big-endian normalised integer: word order first, then byte
// order inside each word.
func (d Decoder) assemble(words []uint16) uint32 {
	ordered := words
	if len(words) == 2 && d.endian.WordOrder == LittleEndian {
		ordered = []uint16{words[1], words[0]}
	}
	var raw uint32
	for _, w := range ordered {
		if d.endian.ByteOrder == LittleEndian {
			w = bits.ReverseBytes16(w)
		}
		raw = raw<<16 | uint32(w)
	}
	return raw
}

// Encode is the inverse of Decode: it lays out a physical value the way the
// device would store it.
func (d Decoder) Encode(desc RegisterDescriptor, value float64) ([]uint16, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Scale == 0 {
		return nil, configError("cannot encode with a zero scale")
	}
	scaled := value / desc.Scale

	var raw uint32
	switch desc.Type {
	case Uint16:
		v := math.Round(scaled)
		if v < 0 || v > math.MaxUint16 {
			return nil, configError("value %v out of range for %s", value, desc.Type)
		}
		raw = uint32(v)
	case Int16:
		v := math.Round(scaled)
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, configError("value %v out of range for %s", value, desc.Type)
		}
		raw = uint32(uint16(int16(v)))
	case Uint32:
		v := math.Round(scaled)
		if v < 0 || v > math.MaxUint32 {
			return nil, configError("value %v out of range for %s", value, desc.Type)
		}
		raw = uint32(v)
	case Int32:
		v := math.Round(scaled)
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, configError("value %v out of range for %s", value, desc.Type)
		}
		raw = uint32(int32(v))
	case Float32:
		raw = math.Float32bits(float32(scaled))
	}

	if desc.WordCount == 1 {
		return []uint16{d.swapBytes(uint16(raw))}, nil
	}
	hi := d.swapBytes(uint16(raw >> 16))
	lo := d.swapBytes(uint16(raw))
	if d.endian.WordOrder == LittleEndian {
		return []uint16{lo, hi}, nil
	}
	return []uint16{hi, lo}, nil
}

func (d Decoder) swapBytes(w uint16) uint16 {
	if d.endian.ByteOrder == LittleEndian {
		return bits.ReverseBytes16(w)
	}
	return w
}
