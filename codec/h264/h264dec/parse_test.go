/*
DESCRIPTION
  parse_test.go provides testing for the Exp-Golomb parsing functions and the
  fieldReader found in parse.go.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264dec

import (
	"errors"
	"testing"

	"github.com/ausocean/vdpva/codec/h264/h264dec/bits"
)

// expGolombVector holds ue(v) codes 0 to 7 followed by two further zero codes.
var expGolombVector = []byte{0xa6, 0x42, 0x98, 0xe2, 0x3f}

func TestReadUe(t *testing.T) {
	want := []uint64{0, 1, 2, 3, 4, 5, 6, 7, 0, 0}
	br := bits.NewBitReader(expGolombVector)
	for i, w := range want {
		got, err := readUe(br)
		if err != nil {
			t.Fatalf("did not expect error: %v from readUe for read %d", err, i)
		}
		if got != w {
			t.Errorf("did not get expected result for read %d\nGot: %v\nWant: %v\n", i, got, w)
		}
	}
}

func TestReadSe(t *testing.T) {
	want := []int{0, 1, -1, 2, -2, 3, -3, 4, 0, 0}
	br := bits.NewBitReader(expGolombVector)
	for i, w := range want {
		got, err := readSe(br)
		if err != nil {
			t.Fatalf("did not expect error: %v from readSe for read %d", err, i)
		}
		if got != w {
			t.Errorf("did not get expected result for read %d\nGot: %v\nWant: %v\n", i, got, w)
		}
	}
}

func TestReadUeLarge(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{in: "0000 0000 1000 0000 0", want: 255},
		{in: "0000 0000 0100 0000 0000", want: 511},
		{in: "0001 111", want: 14},
	}

	for i, test := range tests {
		b, err := binToSlice(test.in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := readUe(bits.NewBitReader(b))
		if err != nil {
			t.Fatalf("did not expect error: %v from readUe for test %d", err, i)
		}
		if got != test.want {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, got, test.want)
		}
	}
}

func TestReadUeErrors(t *testing.T) {
	// Truncated code.
	_, err := readUe(bits.NewBitReader([]byte{0x00}))
	if !errors.Is(err, bits.ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got: %v", err)
	}

	// 32 leading zeros cannot be represented.
	_, err = readUe(bits.NewBitReader([]byte{0x00, 0x00, 0x00, 0x00, 0x80}))
	if !errors.Is(err, ErrExpGolombOverflow) {
		t.Errorf("expected ErrExpGolombOverflow, got: %v", err)
	}
}

func TestReadTe(t *testing.T) {
	tests := []struct {
		in   []byte
		x    uint
		want int64
		err  error
	}{
		{[]byte{0x30}, 1, 1, nil},
		{[]byte{0x80}, 1, 0, nil},
		{[]byte{0x30}, 6, 5, nil},
		{[]byte{0x30}, 0, 0, errReadTeBadX},
	}

	for i, test := range tests {
		got, err := readTe(bits.NewBitReader(test.in), test.x)
		if err != test.err {
			t.Fatalf("did not get expected error for test %d\nGot: %v\nWant: %v\n", i, err, test.err)
		}
		if got != test.want {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, got, test.want)
		}
	}
}

// TestFieldReaderStickyError checks that once a read fails, later reads do
// nothing and the first error is kept.
func TestFieldReaderStickyError(t *testing.T) {
	r := newFieldReader(bits.NewBitReader([]byte{0xff}))
	if got := r.readBits(8); got != 0xff {
		t.Errorf("unexpected first read\nGot: %#x\nWant: 0xff\n", got)
	}
	r.readUe()
	r.wrap("could not read thing")
	first := r.err()
	if !errors.Is(first, bits.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got: %v", first)
	}
	if got := r.readSe(); got != 0 {
		t.Errorf("expected zero from read after error, got: %d", got)
	}
	if r.err() != first {
		t.Errorf("sticky error changed\nGot: %v\nWant: %v\n", r.err(), first)
	}
}
