/*
DESCRIPTION
  nalunit.go provides NAL unit type constants and parsing of the NAL unit
  header.

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
	"fmt"

	"github.com/pkg/errors"

	"github.com/ausocean/vdpva/codec/h264/h264dec/bits"
)

// NAL unit types, as defined by table 7-1 in ITU-T H.264.
const (
	NALTypeUnspecified         = 0
	NALTypeNonIDR              = 1
	NALTypeSliceDataPartitionA = 2
	NALTypeSliceDataPartitionB = 3
	NALTypeSliceDataPartitionC = 4
	NALTypeIDR                 = 5
	NALTypeSEI                 = 6
	NALTypeSPS                 = 7
	NALTypePPS                 = 8
	NALTypeAccessUnitDelimiter = 9
	NALTypeEndOfSequence       = 10
	NALTypeEndOfStream         = 11
	NALTypeFillerData          = 12
	NALTypeSPSExtension        = 13
	NALTypePrefix              = 14
	NALTypeSubsetSPS           = 15
	NALTypeDepthParameterSet   = 16
	NALTypeAuxiliarySlice      = 19
	NALTypeSliceLayerExtRBSP   = 20
	NALTypeSliceLayerExtRBSP2  = 21
)

// ErrUnsupported is returned for syntactically legal bitstream features that
// are not handled, for example MVC NAL unit headers or long-term reference
// list modification.
var ErrUnsupported = errors.New("unsupported bitstream feature")

// NALUnitHeader describes the header of a NAL unit as defined by the first
// three syntax elements of section 7.3.1 in ITU-T H.264.
type NALUnitHeader struct {
	// forbidden_zero_bit should always be 0.
	ForbiddenZeroBit uint8

	// nal_ref_idc not equal to 0 specifies that the content of the NAL unit
	// contains a sequence parameter set, a sequence parameter set extension, a
	// subset sequence parameter set, a picture parameter set, a slice of a
	// reference picture, a slice data partition of a reference picture, or a
	// prefix NAL unit preceding a slice of a reference picture.
	RefIdc uint8

	// nal_unit_type specifies the type of RBSP data structure contained in the
	// NAL unit as specified in Table 7-1.
	Type uint8
}

// NewNALUnitHeader parses a NAL unit header from br. Units with an MVC, SVC or
// 3D-AVC header extension (types 14 and 20) give ErrUnsupported.
func NewNALUnitHeader(br *bits.BitReader) (*NALUnitHeader, error) {
	r := newFieldReader(br)
	n := &NALUnitHeader{
		ForbiddenZeroBit: uint8(r.readBits(1)),
		RefIdc:           uint8(r.readBits(2)),
		Type:             uint8(r.readBits(5)),
	}
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read NAL unit header")
	}

	if n.Type == NALTypePrefix || n.Type == NALTypeSliceLayerExtRBSP {
		return n, errors.Wrapf(ErrUnsupported, "NAL unit type %d", n.Type)
	}
	return n, nil
}

// IsVCL returns true if the NAL unit type carries slice data of a primary
// coded picture.
func (n *NALUnitHeader) IsVCL() bool {
	return n.Type >= NALTypeNonIDR && n.Type <= NALTypeIDR
}

// IsIDR returns true if the NAL unit is a slice of an IDR picture.
func (n *NALUnitHeader) IsIDR() bool {
	return n.Type == NALTypeIDR
}

var nalTypeNames = map[uint8]string{
	NALTypeNonIDR:              "non-IDR slice",
	NALTypeSliceDataPartitionA: "partition A",
	NALTypeSliceDataPartitionB: "partition B",
	NALTypeSliceDataPartitionC: "partition C",
	NALTypeIDR:                 "IDR slice",
	NALTypeSEI:                 "SEI",
	NALTypeSPS:                 "SPS",
	NALTypePPS:                 "PPS",
	NALTypeAccessUnitDelimiter: "AUD",
	NALTypeEndOfSequence:       "end of sequence",
	NALTypeEndOfStream:         "end of stream",
	NALTypeFillerData:          "filler",
	NALTypeSPSExtension:        "SPS extension",
	NALTypePrefix:              "prefix",
	NALTypeSubsetSPS:           "subset SPS",
	NALTypeDepthParameterSet:   "depth parameter set",
	NALTypeAuxiliarySlice:      "auxiliary slice",
	NALTypeSliceLayerExtRBSP:   "slice extension",
	NALTypeSliceLayerExtRBSP2:  "3D-AVC slice extension",
}

// NALTypeName returns a readable name for the NAL unit type t.
func NALTypeName(t uint8) string {
	if s, ok := nalTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type %d", t)
}
