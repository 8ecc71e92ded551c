/*
DESCRIPTION
  nalunit_test.go provides testing for NAL unit header parsing found in
  nalunit.go.

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

func TestNewNALUnitHeader(t *testing.T) {
	tests := []struct {
		in      byte
		want    NALUnitHeader
		wantVCL bool
		wantIDR bool
		err     error
	}{
		{in: 0x65, want: NALUnitHeader{RefIdc: 3, Type: NALTypeIDR}, wantVCL: true, wantIDR: true},
		{in: 0x41, want: NALUnitHeader{RefIdc: 2, Type: NALTypeNonIDR}, wantVCL: true},
		{in: 0x01, want: NALUnitHeader{Type: NALTypeNonIDR}, wantVCL: true},
		{in: 0x67, want: NALUnitHeader{RefIdc: 3, Type: NALTypeSPS}},
		{in: 0x06, want: NALUnitHeader{Type: NALTypeSEI}},
		{in: 0x6e, want: NALUnitHeader{RefIdc: 3, Type: NALTypePrefix}, err: ErrUnsupported},
		{in: 0x74, want: NALUnitHeader{RefIdc: 3, Type: NALTypeSliceLayerExtRBSP}, err: ErrUnsupported},
		{in: 0x85, want: NALUnitHeader{ForbiddenZeroBit: 1, Type: NALTypeIDR}, wantVCL: true, wantIDR: true},
	}

	for i, test := range tests {
		got, err := NewNALUnitHeader(bits.NewBitReader([]byte{test.in}))
		if !errors.Is(err, test.err) {
			t.Fatalf("did not get expected error for test %d\nGot: %v\nWant: %v\n", i, err, test.err)
		}
		if *got != test.want {
			t.Errorf("did not get expected result for test %d\nGot: %+v\nWant: %+v\n", i, *got, test.want)
		}
		if got.IsVCL() != test.wantVCL || got.IsIDR() != test.wantIDR {
			t.Errorf("did not get expected classification for test %d\nGot: %v, %v\nWant: %v, %v\n", i, got.IsVCL(), got.IsIDR(), test.wantVCL, test.wantIDR)
		}
	}
}

func TestNewNALUnitHeaderEmpty(t *testing.T) {
	_, err := NewNALUnitHeader(bits.NewBitReader(nil))
	if !errors.Is(err, bits.ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got: %v", err)
	}
}

func TestNALTypeName(t *testing.T) {
	tests := []struct {
		in   uint8
		want string
	}{
		{NALTypeIDR, "IDR slice"},
		{NALTypePPS, "PPS"},
		{30, "type 30"},
	}
	for i, test := range tests {
		if got := NALTypeName(test.in); got != test.want {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, got, test.want)
		}
	}
}
