/*
NAME
  parse.go

DESCRIPTION
  parse.go provides parsing processes for syntax elements of different
  descriptors specified in 7.2 of ITU-T H.264.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
  mrmod <mcmoranbjr@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264dec

import (
	"github.com/ausocean/vdpva/codec/h264/h264dec/bits"
	"github.com/pkg/errors"
)

// maxLeadingZeros is the largest prefix length of an Exp-Golomb code that can
// be represented; longer prefixes only occur in corrupt streams.
const maxLeadingZeros = 31

// ErrExpGolombOverflow is returned when an Exp-Golomb code has more leading
// zeros than can be represented.
var ErrExpGolombOverflow = errors.New("exp-golomb code too long")

// fieldReader provides methods for reading bool and int fields from a
// bits.BitReader with a sticky error that may be checked after a series of
// parsing read calls.
type fieldReader struct {
	e  error
	br *bits.BitReader
}

// newFieldReader returns a new fieldReader.
func newFieldReader(br *bits.BitReader) *fieldReader {
	return &fieldReader{br: br}
}

// readBits returns the result of reading n bits from br. If we have an error
// already, we do not continue with the read.
func (r *fieldReader) readBits(n int) uint64 {
	if r.e != nil {
		return 0
	}
	var b uint64
	b, r.e = r.br.ReadBits(n)
	return b
}

// readFlag reads a single bit and returns true if it is set.
func (r *fieldReader) readFlag() bool {
	return r.readBits(1) == 1
}

// readUe parses a syntax element of ue(v) descriptor, i.e. an unsigned integer
// Exp-Golomb-coded element using method as specified in section 9.1 of ITU-T
// H.264 and return as an int. The read does not happen if the fieldReader
// has a non-nil error.
func (r *fieldReader) readUe() int {
	if r.e != nil {
		return 0
	}
	var i uint64
	i, r.e = readUe(r.br)
	return int(i)
}

// readTe parses a syntax element of te(v) descriptor i.e, truncated
// Exp-Golomb-coded syntax element using method as specified in section 9.1
// and returns as an int. The read does not happen if the fieldReader
// has a non-nil error.
func (r *fieldReader) readTe(x uint) int {
	if r.e != nil {
		return 0
	}
	var i int64
	i, r.e = readTe(r.br, x)
	return int(i)
}

// readSe parses a syntax element with descriptor se(v), i.e. a signed integer
// Exp-Golomb-coded syntax element, using the method described in sections
// 9.1 and 9.1.1 and returns as int. The read does not happen if the fieldReader
// has a non-nil error.
func (r *fieldReader) readSe() int {
	if r.e != nil {
		return 0
	}
	var i int
	i, r.e = readSe(r.br)
	return i
}

// wrap annotates the sticky error, if any, with msg.
func (r *fieldReader) wrap(msg string) {
	if r.e != nil {
		r.e = errors.Wrap(r.e, msg)
	}
}

// err returns the fieldReader's error e.
func (r *fieldReader) err() error {
	return r.e
}

// leadingZeros counts zero bits up to and including the first set bit,
// returning the number of zeros.
func leadingZeros(r *bits.BitReader) (int, error) {
	var n int
	for {
		b, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if b == 1 {
			return n, nil
		}
		n++
		if n > maxLeadingZeros {
			return 0, ErrExpGolombOverflow
		}
	}
}

// readUe parses a syntax element of ue(v) descriptor, i.e. an unsigned integer
// Exp-Golomb-coded element using method as specified in section 9.1 of ITU-T H.264.
func readUe(r *bits.BitReader) (uint64, error) {
	nZeros, err := leadingZeros(r)
	if err != nil {
		return 0, err
	}
	if nZeros == 0 {
		return 0, nil
	}
	rem, err := r.ReadBits(nZeros)
	if err != nil {
		return 0, err
	}
	return (1 << uint(nZeros)) - 1 + rem, nil
}

// readTe parses a syntax element of te(v) descriptor i.e, truncated
// Exp-Golomb-coded syntax element using method as specified in section 9.1
// Rec. ITU-T H.264 (04/2017).
func readTe(r *bits.BitReader, x uint) (int64, error) {
	if x > 1 {
		ue, err := readUe(r)
		return int64(ue), err
	}

	if x == 1 {
		b, err := r.ReadBits(1)
		if err != nil {
			return 0, errors.Wrap(err, "could not read bit")
		}
		if b == 0 {
			return 1, nil
		}
		return 0, nil
	}

	return 0, errReadTeBadX
}

var errReadTeBadX = errors.New("x must be more than or equal to 1")

// readSe parses a syntax element with descriptor se(v), i.e. a signed integer
// Exp-Golomb-coded syntax element, using the method described in sections
// 9.1 and 9.1.1 in Rec. ITU-T H.264 (04/2017). Odd code values map to
// negative integers.
func readSe(r *bits.BitReader) (int, error) {
	nZeros, err := leadingZeros(r)
	if err != nil {
		return 0, errors.Wrap(err, "error reading se(v) prefix")
	}
	if nZeros == 0 {
		return 0, nil
	}
	rem, err := r.ReadBits(nZeros)
	if err != nil {
		return 0, errors.Wrap(err, "error reading se(v) suffix")
	}
	v := int(1<<uint(nZeros) + rem)
	if v&1 == 1 {
		return -(v / 2), nil
	}
	return v / 2, nil
}
