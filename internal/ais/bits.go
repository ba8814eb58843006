package ais

import (
	"fmt"
	"strings"
)

// bitField is the raw AIS bitstream recovered from a 6-bit armored payload.
type bitField struct {
	bits []byte
	n    int // number of valid bits
}

// unarmor converts a payload string into a bitstream, 6 bits per character.
// Characters '0'..'W' map to 0..39 and '`'..'w' map to 40..63; anything else
// is a decode error. fillBits padding at the tail is discarded.
func unarmor(payload string, fillBits int) (*bitField, error) {
	f := &bitField{
		bits: make([]byte, (len(payload)*6+7)/8),
		n:    len(payload)*6 - fillBits,
	}
	for i := 0; i < len(payload); i++ {
		ch := payload[i]
		var val byte
		switch {
		case ch >= '0' && ch <= 'W':
			val = ch - '0'
		case ch >= '`' && ch <= 'w':
			val = ch - '`' + 40
		default:
			return nil, fmt.Errorf("%w: character %q in payload", ErrMalformedPayload, ch)
		}
		for b := 0; b < 6; b++ {
			if val&(1<<(5-b)) != 0 {
				pos := i*6 + b
				f.bits[pos>>3] |= 0x80 >> (pos & 7)
			}
		}
	}
	return f, nil
}

// uint extracts an unsigned big-endian field of width bits starting at start.
func (f *bitField) uint(start, width int) uint32 {
	var v uint32
	for k := start; k < start+width; k++ {
		v <<= 1
		if f.bits[k>>3]&(0x80>>(k&7)) != 0 {
			v |= 1
		}
	}
	return v
}

// int extracts a two's-complement signed field.
func (f *bitField) int(start, width int) int32 {
	v := int32(f.uint(start, width))
	v <<= 32 - width
	v >>= 32 - width
	return v
}

// str extracts a 6-bit ASCII string field. Trailing '@' padding and spaces
// are stripped, per the usual on-air encoding.
func (f *bitField) str(start, width int) string {
	var b strings.Builder
	for k := start; k+6 <= start+width; k += 6 {
		ch := f.uint(k, 6)
		if ch < 32 {
			ch += 64
		}
		b.WriteByte(byte(ch))
	}
	return strings.TrimRight(b.String(), "@ ")
}

// lon decodes a 28-bit longitude in 1/600000 minutes. The sentinel
// 181*600000 decodes to 181.0 and is left to the position validator.
func (f *bitField) lon(start int) float64 {
	return float64(f.int(start, 28)) / 600000.0
}

// lat decodes a 27-bit latitude; the no-fix sentinel decodes to 91.0.
func (f *bitField) lat(start int) float64 {
	return float64(f.int(start, 27)) / 600000.0
}

// speed decodes a 10-bit speed over ground in deciknots; 1023 means not
// available and yields nil.
func (f *bitField) speed(start int) *float64 {
	n := f.uint(start, 10)
	if n == 1023 {
		return nil
	}
	v := float64(n) * 0.1
	return &v
}

// course decodes a 12-bit course over ground in decidegrees; 3600 means not
// available.
func (f *bitField) course(start int) *float64 {
	n := f.uint(start, 12)
	if n >= 3600 {
		return nil
	}
	v := float64(n) * 0.1
	return &v
}

// heading decodes a 9-bit true heading in degrees; 511 means not available.
func (f *bitField) heading(start int) *int {
	n := int(f.uint(start, 9))
	if n == 511 {
		return nil
	}
	return &n
}

// turnRate decodes the 8-bit rate-of-turn field of class A reports; -128
// means not available. The raw value's sign carries the turn direction, the
// magnitude is 4.733*sqrt(deg/min) encoded, which we leave to consumers.
func (f *bitField) turnRate(start int) *int {
	n := int(f.int(start, 8))
	if n == -128 {
		return nil
	}
	return &n
}
