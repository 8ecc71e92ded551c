/*
DESCRIPTION
  bitreader.go provides a bit reader implementation that reads H.264 Annex B
  byte streams, transparently skipping emulation prevention bytes, and that
  can search for NAL unit start codes.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bits provides a bit reader implementation that reads MSB first from
// an H.264 Annex B byte buffer.
package bits

import (
	mbits "math/bits"

	"github.com/pkg/errors"
)

// Errors returned by the BitReader.
var (
	ErrOutOfBounds  = errors.New("read past end of buffer")
	ErrNoStartCode  = errors.New("no NAL unit start code found")
	ErrBadReadCount = errors.New("bad number of bits for read")
)

// Emulation prevention byte value, see section 7.4.1 of ITU-T H.264.
const emulationPreventionByte = 0x03

// BitReader is a cursor over a borrowed byte buffer. Bits are read MSB first
// and emulation prevention bytes, i.e. a 0x03 following two or more zero
// bytes, are not seen by the reader.
//
// A BitReader is a value type; copying it gives an independent cursor over
// the same, read-only, buffer.
type BitReader struct {
	buf   []byte
	pos   int // Index of the byte currently being read.
	bit   int // Next bit to read in the current byte, 7 is the MSB.
	zeros int // Consecutive zero bytes consumed.
	eaten int // Bits read since the last counter reset.
}

// NewBitReader returns a new BitReader positioned at the MSB of the first
// byte of buf.
func NewBitReader(buf []byte) *BitReader {
	br := &BitReader{}
	br.Attach(buf)
	return br
}

// Attach resets the BitReader to the start of buf.
func (br *BitReader) Attach(buf []byte) {
	*br = BitReader{buf: buf, bit: 7}
}

// ReadBit reads a single bit and returns it in the least-significant bit of
// a uint64.
func (br *BitReader) ReadBit() (uint64, error) {
	if br.pos >= len(br.buf) {
		return 0, ErrOutOfBounds
	}
	b := uint64(br.buf[br.pos]>>uint(br.bit)) & 1
	if br.bit > 0 {
		br.bit--
	} else {
		br.bit = 7
		br.consumeByte()
	}
	br.eaten++
	return b, nil
}

// consumeByte moves past the current byte, keeping count of consecutive zero
// bytes. If two or more zero bytes have been seen and the next byte is an
// emulation prevention byte, it is skipped.
func (br *BitReader) consumeByte() {
	c := br.buf[br.pos]
	br.pos++
	if c == 0 {
		br.zeros++
	} else {
		br.zeros = 0
	}
	if br.zeros >= 2 && br.pos < len(br.buf) && br.buf[br.pos] == emulationPreventionByte {
		br.pos++
		br.zeros = 0
	}
}

// ReadBits reads n bits from the source and returns them the least-significant
// part of a uint64.
// For example, with a source as []byte{0x8f,0xe3} (1000 1111, 1110 0011), we
// would get the following results for consequtive reads with n values:
// n = 4, res = 0x8 (1000)
// n = 2, res = 0x3 (0011)
// n = 4, res = 0xf (1111)
// n = 6, res = 0x23 (0010 0011)
func (br *BitReader) ReadBits(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, errors.Wrapf(ErrBadReadCount, "n: %d", n)
	}
	var r uint64
	for i := 0; i < n; i++ {
		b, err := br.ReadBit()
		if err != nil {
			return 0, err
		}
		r = r<<1 | b
	}
	return r, nil
}

// NavigateToNALUnit scans forward through the raw bytes of the buffer for the
// start code prefix 0x000001. A partially read byte is skipped first. On
// success the reader is positioned at the first bit of the byte following the
// start code and the number of bytes scanned, including the start code, is
// returned. If the buffer is exhausted first, ErrNoStartCode is returned.
func (br *BitReader) NavigateToNALUnit() (int, error) {
	if !br.ByteAligned() {
		br.pos++
	}
	start := br.pos

	window := [3]int{-1, -1, -1}
	for window[0] != 0 || window[1] != 0 || window[2] != 1 {
		if br.pos >= len(br.buf) {
			br.pos = len(br.buf)
			br.bit = 7
			return 0, ErrNoStartCode
		}
		window[0], window[1], window[2] = window[1], window[2], int(br.buf[br.pos])
		br.pos++
	}

	br.bit = 7
	br.zeros = 0
	return br.pos - start, nil
}

// ResetBitCounter zeroes the count of bits read.
func (br *BitReader) ResetBitCounter() {
	br.eaten = 0
}

// BitsEaten returns the number of bits read since the BitReader was attached
// or since the last call to ResetBitCounter. Emulation prevention bytes are
// not counted.
func (br *BitReader) BitsEaten() int {
	return br.eaten
}

// ByteAligned returns true if the reader position is at the start of a byte,
// and false otherwise.
func (br *BitReader) ByteAligned() bool {
	return br.bit == 7
}

// Off returns the current offset from the starting bit of the current byte.
func (br *BitReader) Off() int {
	return 7 - br.bit
}

// Offset returns the index in the buffer of the byte currently being read.
func (br *BitReader) Offset() int {
	return br.pos
}

// MoreRBSPData returns true if there is more data in the buffer before the
// RBSP stop bit, i.e. the last set bit of the buffer, as described by
// more_rbsp_data() in section 7.2 of ITU-T H.264.
func (br *BitReader) MoreRBSPData() bool {
	last := len(br.buf) - 1
	for last >= 0 && br.buf[last] == 0 {
		last--
	}
	if last < 0 || br.pos > last {
		return false
	}
	stop := last*8 + 7 - mbits.TrailingZeros8(br.buf[last])
	cur := br.pos*8 + br.Off()
	return cur < stop
}
