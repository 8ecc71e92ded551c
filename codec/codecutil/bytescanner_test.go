/*
NAME
  bytescanner_test.go

DESCRIPTION
  bytescanner_test.go provides testing for the ByteScanner in bytescanner.go.

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sizes are the read buffer sizes each test is run with.
var sizes = []int{1, 2, 8, 1 << 10}

func TestScannerReadByte(t *testing.T) {
	data := []byte("Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.")

	for _, size := range sizes {
		r := NewByteScanner(bytes.NewReader(data), make([]byte, size))
		var got []byte
		for {
			b, err := r.ReadByte()
			if err != nil {
				break
			}
			got = append(got, b)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("unexpected result for buffer size %d:\ngot :%q\nwant:%q", size, got, data)
		}
	}
}

func TestScannerScanUntilStartCode(t *testing.T) {
	data := []byte{
		0xff, 0x00, 0x00, 0x00, 0x01, // Leading garbage, four byte start code.
		0x67, 0x42, 0x00, 0x00, 0x03, 0x01, // Emulation prevention is not a start code.
		0x00, 0x00, 0x01,
		0x65, 0x88, 0x00, // Trailing zeros are kept at end of stream.
	}
	want := [][]byte{
		{0xff},
		{0x67, 0x42, 0x00, 0x00, 0x03, 0x01},
		{0x65, 0x88, 0x00},
	}

	for _, size := range sizes {
		r := NewByteScanner(bytes.NewReader(data), make([]byte, size))
		var got [][]byte
		for {
			buf, err := r.ScanUntilStartCode(nil)
			got = append(got, buf)
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("unexpected error for buffer size %d: %v", size, err)
			}
		}
		if !cmp.Equal(got, want) {
			t.Errorf("unexpected result for buffer size %d:\ngot :%#v\nwant:%#v", size, got, want)
		}
	}
}
