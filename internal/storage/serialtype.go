package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/hustledb/hustle/internal/hustleerr"
)

// SerialField is one field's decoded wire-format description (spec §6.3):
// a fixed byte width and endianness, or a variable-length string/blob
// length, or one of the two zero-byte integer sentinels.
type SerialField struct {
	FixedWidth   int  // 0..8 native bytes on the wire, big-endian
	IsFloat      bool // 8-byte big-endian IEEE-754 double
	IsString     bool
	IsBlob       bool
	VarLen       int  // byte length on the wire for string/blob codes
	SentinelZero bool // code 8: integer 0, consumes no wire bytes
	SentinelOne  bool // code 9: integer 1, consumes no wire bytes
	IsNull       bool // code 0
}

// DecodeSerialTypes decodes a run of varint-tagged serial-type codes
// (spec §6.3), one per field, from the front of buf, returning the
// decoded descriptions. This does not consume the field payload bytes —
// callers pair each SerialField with the corresponding payload slice
// separately (see DecodeRecord).
func DecodeSerialTypes(buf []byte, numFields int) ([]SerialField, int, error) {
	out := make([]SerialField, numFields)
	pos := 0
	for i := 0; i < numFields; i++ {
		code, n := binary.Uvarint(buf[pos:])
		if n <= 0 {
			return nil, 0, fmt.Errorf("%w: malformed serial-type varint at field %d", hustleerr.ErrSchema, i)
		}
		pos += n
		sf, err := decodeSerialCode(code)
		if err != nil {
			return nil, 0, err
		}
		out[i] = sf
	}
	return out, pos, nil
}

func decodeSerialCode(code uint64) (SerialField, error) {
	switch code {
	case 0:
		return SerialField{IsNull: true}, nil
	case 1:
		return SerialField{FixedWidth: 1}, nil
	case 2:
		return SerialField{FixedWidth: 2}, nil
	case 3:
		return SerialField{FixedWidth: 3}, nil
	case 4:
		return SerialField{FixedWidth: 4}, nil
	case 5:
		return SerialField{FixedWidth: 6}, nil
	case 6:
		return SerialField{FixedWidth: 8}, nil
	case 7:
		return SerialField{FixedWidth: 8, IsFloat: true}, nil
	case 8:
		return SerialField{SentinelZero: true}, nil
	case 9:
		return SerialField{SentinelOne: true}, nil
	default:
		if code >= 12 && code%2 == 0 {
			return SerialField{IsBlob: true, VarLen: int((code - 12) / 2)}, nil
		}
		if code >= 13 && code%2 == 1 {
			return SerialField{IsString: true, VarLen: int((code - 13) / 2)}, nil
		}
		return SerialField{}, fmt.Errorf("%w: unrecognized serial-type code %d", hustleerr.ErrSchema, code)
	}
}

// DecodeRecord decodes a full wire record — a run of serial-type codes
// followed by the concatenated field payloads — into the native-endian
// FieldEntry values Block.InsertRecord expects. The wire format is
// big-endian for fixed-width integers/floats (spec §6.3) and is
// byte-reversed here into the block's little-endian native storage;
// narrower-than-native integers are zero-extended after the reversal.
func DecodeRecord(buf []byte, nativeWidths []int, isVarWidth []bool) ([]FieldEntry, error) {
	numFields := len(nativeWidths)
	serials, pos, err := DecodeSerialTypes(buf, numFields)
	if err != nil {
		return nil, err
	}

	out := make([]FieldEntry, numFields)
	for i, sf := range serials {
		switch {
		case sf.IsNull:
			out[i] = FieldEntry{Raw: make([]byte, nativeWidths[i])}
		case sf.SentinelZero:
			out[i] = FieldEntry{Raw: encodeLittleEndianInt(0, nativeWidths[i])}
		case sf.SentinelOne:
			out[i] = FieldEntry{Raw: encodeLittleEndianInt(1, nativeWidths[i])}
		case sf.IsString:
			v := buf[pos : pos+sf.VarLen]
			pos += sf.VarLen
			cp := make([]byte, len(v))
			copy(cp, v)
			out[i] = FieldEntry{Raw: cp}
		case sf.IsBlob:
			v := buf[pos : pos+sf.VarLen]
			pos += sf.VarLen
			if !isVarWidth[i] {
				// Fixed-size binary column: copy as-is, no byte reversal.
				cp := make([]byte, len(v))
				copy(cp, v)
				out[i] = FieldEntry{Raw: cp}
			} else {
				cp := make([]byte, len(v))
				copy(cp, v)
				out[i] = FieldEntry{Raw: cp}
			}
		default:
			wireWidth := sf.FixedWidth
			wire := buf[pos : pos+wireWidth]
			pos += wireWidth
			reversed := reverseBytes(wire)
			out[i] = FieldEntry{Raw: zeroExtendLE(reversed, nativeWidths[i])}
		}
	}
	return out, nil
}

func reverseBytes(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[len(in)-1-i] = b
	}
	return out
}

func zeroExtendLE(littleEndian []byte, width int) []byte {
	if len(littleEndian) >= width {
		return littleEndian[:width]
	}
	out := make([]byte, width)
	copy(out, littleEndian)
	return out
}

func encodeLittleEndianInt(v int64, width int) []byte {
	out := make([]byte, width)
	for i := 0; i < width && i < 8; i++ {
		out[i] = byte(v >> (8 * uint(i)))
	}
	return out
}
