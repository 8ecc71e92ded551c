/*
DESCRIPTION
  pps.go provides parsing of picture parameter sets.

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
	mbits "math/bits"

	"github.com/pkg/errors"

	"github.com/ausocean/vdpva/codec/h264/h264dec/bits"
)

// ErrMissingSPS is returned when a picture parameter set refers to a sequence
// parameter set that has not been seen.
var ErrMissingSPS = errors.New("referenced SPS not found")

// PPS describes a picture parameter set as defined by section 7.3.2.2 in the
// specifications. ScalingMatrix holds the matrix in effect for pictures using
// this PPS, which is inherited from the SPS unless the PPS carries its own.
type PPS struct {
	ID, SPSID                         int
	EntropyCodingMode                 bool
	BottomFieldPicOrderInFramePresent bool
	NumSliceGroupsMinus1              int
	SliceGroupMapType                 int
	RunLengthMinus1                   []int
	TopLeft                           []int
	BottomRight                       []int
	SliceGroupChangeDirection         bool
	SliceGroupChangeRateMinus1        int
	PicSizeInMapUnitsMinus1           int
	SliceGroupID                      []int
	NumRefIdxL0DefaultActiveMinus1    int
	NumRefIdxL1DefaultActiveMinus1    int
	WeightedPred                      bool
	WeightedBipred                    int
	PicInitQpMinus26                  int
	PicInitQsMinus26                  int
	ChromaQpIndexOffset               int
	DeblockingFilterControlPresent    bool
	ConstrainedIntraPred              bool
	RedundantPicCntPresent            bool
	Transform8x8Mode                  bool
	PicScalingMatrixPresent           bool
	SecondChromaQpIndexOffset         int
	ScalingMatrix                     ScalingMatrix
}

// NewPPS parses a picture parameter set raw byte sequence from br following
// the syntax structure specified in section 7.3.2.2, and returns as a new PPS.
// br must be positioned after the NAL unit header. The referenced SPS is
// looked up in spss.
func NewPPS(br *bits.BitReader, spss map[int]*SPS) (*PPS, error) {
	pps := &PPS{}
	r := newFieldReader(br)

	pps.ID = r.readUe()
	pps.SPSID = r.readUe()
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read PPS IDs")
	}
	sps, ok := spss[pps.SPSID]
	if !ok {
		return nil, errors.Wrapf(ErrMissingSPS, "seq_parameter_set_id %d", pps.SPSID)
	}

	pps.EntropyCodingMode = r.readFlag()
	pps.BottomFieldPicOrderInFramePresent = r.readFlag()
	pps.NumSliceGroupsMinus1 = r.readUe()
	if pps.NumSliceGroupsMinus1 > 7 && r.err() == nil {
		return nil, errors.Errorf("invalid num_slice_groups_minus1: %d", pps.NumSliceGroupsMinus1)
	}

	if pps.NumSliceGroupsMinus1 > 0 {
		pps.SliceGroupMapType = r.readUe()
		switch {
		case pps.SliceGroupMapType == 0:
			for i := 0; i <= pps.NumSliceGroupsMinus1; i++ {
				pps.RunLengthMinus1 = append(pps.RunLengthMinus1, r.readUe())
			}
		case pps.SliceGroupMapType == 2:
			for i := 0; i < pps.NumSliceGroupsMinus1; i++ {
				pps.TopLeft = append(pps.TopLeft, r.readUe())
				pps.BottomRight = append(pps.BottomRight, r.readUe())
			}
		case pps.SliceGroupMapType > 2 && pps.SliceGroupMapType < 6:
			pps.SliceGroupChangeDirection = r.readFlag()
			pps.SliceGroupChangeRateMinus1 = r.readUe()
		case pps.SliceGroupMapType == 6:
			pps.PicSizeInMapUnitsMinus1 = r.readUe()
			n := mbits.Len(uint(pps.NumSliceGroupsMinus1))
			for i := 0; i <= pps.PicSizeInMapUnitsMinus1 && r.err() == nil; i++ {
				pps.SliceGroupID = append(pps.SliceGroupID, int(r.readBits(n)))
			}
		}
	}

	pps.NumRefIdxL0DefaultActiveMinus1 = r.readUe()
	pps.NumRefIdxL1DefaultActiveMinus1 = r.readUe()
	pps.WeightedPred = r.readFlag()
	pps.WeightedBipred = int(r.readBits(2))
	pps.PicInitQpMinus26 = r.readSe()
	pps.PicInitQsMinus26 = r.readSe()
	pps.ChromaQpIndexOffset = r.readSe()
	pps.DeblockingFilterControlPresent = r.readFlag()
	pps.ConstrainedIntraPred = r.readFlag()
	pps.RedundantPicCntPresent = r.readFlag()
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read PPS fields")
	}
	if pps.NumRefIdxL0DefaultActiveMinus1 >= MaxListEntries || pps.NumRefIdxL1DefaultActiveMinus1 >= MaxListEntries {
		return nil, errors.New("default active reference count out of range")
	}

	pps.ScalingMatrix = sps.ScalingMatrix
	pps.SecondChromaQpIndexOffset = pps.ChromaQpIndexOffset
	if !br.MoreRBSPData() {
		return pps, nil
	}

	pps.Transform8x8Mode = r.readFlag()
	pps.PicScalingMatrixPresent = r.readFlag()
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read transform_8x8_mode_flag")
	}
	if pps.PicScalingMatrixPresent {
		n := 6
		if pps.Transform8x8Mode {
			n += 2
			if sps.ChromaFormatIDC == chroma444 {
				n += 4
			}
		}
		fallback := sps.ScalingMatrix
		if !sps.SeqScalingMatrixPresentFlag {
			// Fall-back rule A applies when the SPS has no matrix.
			err := parseScalingMatrix(br, &pps.ScalingMatrix, n, nil)
			if err != nil {
				return nil, errors.Wrap(err, "could not parse PPS scaling matrix")
			}
		} else {
			err := parseScalingMatrix(br, &pps.ScalingMatrix, n, &fallback)
			if err != nil {
				return nil, errors.Wrap(err, "could not parse PPS scaling matrix")
			}
		}
	}
	pps.SecondChromaQpIndexOffset = r.readSe()
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read second_chroma_qp_index_offset")
	}
	return pps, nil
}
