package packets

import (
	"encoding/binary"
	"errors"
	"io"
)

// Errors returned while decoding the wire format.
var (
	ErrMalformedVBI   = errors.New("packets: malformed variable byte integer")
	ErrVBITooLarge    = errors.New("packets: variable byte integer exceeds 4 bytes")
	ErrBufferTooShort = errors.New("packets: buffer too short")
)

// EncodeVBI encodes n as an MQTT variable byte integer (used for the fixed
// header's remaining length). n must be in [0, 268435455].
func EncodeVBI(n int) []byte {
	var out []byte
	for {
		b := byte(n % 128)
		n /= 128
		if n > 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			break
		}
	}
	return out
}

// DecodeVBI decodes a variable byte integer from r.
func DecodeVBI(r io.Reader) (int, error) {
	var value, multiplier int
	buf := make([]byte, 1)
	for i := 0; i < 4; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, err
		}
		b := buf[0]
		value += int(b&0x7F) * pow128(multiplier)
		if b&0x80 == 0 {
			return value, nil
		}
		multiplier++
	}
	return 0, ErrVBITooLarge
}

func pow128(n int) int {
	r := 1
	for i := 0; i < n; i++ {
		r *= 128
	}
	return r
}

// EncodeUint16 encodes n big-endian, as used for packet identifiers and
// keep-alive.
func EncodeUint16(n uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, n)
	return b
}

// DecodeUint16 decodes a big-endian uint16.
func DecodeUint16(r io.Reader) (uint16, error) {
	b := make([]byte, 2)
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// DecodeByte reads a single byte.
func DecodeByte(r io.Reader) (byte, error) {
	b := make([]byte, 1)
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, err
	}
	return b[0], nil
}

// EncodeString encodes a UTF-8 string with a 2-byte length prefix.
func EncodeString(s string) []byte {
	return EncodeBytes([]byte(s))
}

// DecodeString decodes a length-prefixed UTF-8 string. io.EOF is returned
// when the reader is exhausted before the length prefix, used by packets
// with a trailing repeated-field payload (SUBSCRIBE, UNSUBSCRIBE) to detect
// the end of the list.
func DecodeString(r io.Reader) (string, error) {
	b, err := DecodeBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EncodeBytes encodes a byte slice with a 2-byte length prefix.
func EncodeBytes(b []byte) []byte {
	out := EncodeUint16(uint16(len(b)))
	return append(out, b...)
}

// DecodeBytes decodes a length-prefixed byte slice.
func DecodeBytes(r io.Reader) ([]byte, error) {
	n, err := DecodeUint16(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
