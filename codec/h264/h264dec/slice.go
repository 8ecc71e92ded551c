/*
DESCRIPTION
  slice.go provides parsing functionality for slice headers, producing the
  slice parameters required by a hardware decoder.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
  Bruce McMoran <mcmoranbjr@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264dec

import (
	"github.com/pkg/errors"

	"github.com/ausocean/vdpva/codec/h264/h264dec/bits"
)

// Slice header parsing errors.
var (
	ErrNotSlice           = errors.New("NAL unit is not a coded slice")
	ErrInvalidSliceHeader = errors.New("invalid slice header")
)

// RefPicListModification provides elements of a ref_pic_list_modification syntax
// (defined in 7.3.3.1 of specifications).
type RefPicListModification struct {
	RefPicListModificationFlag [2]bool
	Modifications              [2][]PicNumModification
}

// PicNumModification is a single modification_of_pic_nums_idc command and
// its argument.
type PicNumModification struct {
	ModificationOfPicNumsIDC int
	AbsDiffPicNumMinus1      int
	LongTermPicNum           int
}

// NewRefPicListModification parses elements of a ref_pic_list_modification
// following the syntax structure defined in section 7.3.3.1, and returns as
// a new RefPicListModification.
func NewRefPicListModification(br *bits.BitReader, sliceType int) (*RefPicListModification, error) {
	m := &RefPicListModification{}
	r := newFieldReader(br)

	for list := 0; list < 2; list++ {
		if list == 0 && (sliceType == SliceTypeI || sliceType == SliceTypeSI) {
			continue
		}
		if list == 1 && sliceType != SliceTypeB {
			continue
		}

		m.RefPicListModificationFlag[list] = r.readFlag()
		if !m.RefPicListModificationFlag[list] {
			continue
		}
		for {
			var pm PicNumModification
			pm.ModificationOfPicNumsIDC = r.readUe()
			switch pm.ModificationOfPicNumsIDC {
			case 0, 1:
				pm.AbsDiffPicNumMinus1 = r.readUe()
			case 2:
				pm.LongTermPicNum = r.readUe()
			case 3:
			default:
				if r.err() == nil {
					return nil, errors.Wrapf(ErrInvalidSliceHeader, "modification_of_pic_nums_idc: %d", pm.ModificationOfPicNumsIDC)
				}
			}
			if r.err() != nil {
				return nil, errors.Wrap(r.err(), "could not read modification of pic nums")
			}
			m.Modifications[list] = append(m.Modifications[list], pm)
			if pm.ModificationOfPicNumsIDC == 3 {
				break
			}
		}
	}
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read ref_pic_list_modification_flag")
	}
	return m, nil
}

// PredWeightTable provides elements of a pred_weight_table syntax structure
// as defined in section 7.3.3.2 of the specifications. Tables not present in
// the bitstream hold the default weights.
//
// Unlike the syntax elements of the same name, the LumaWeightLXFlag and
// ChromaWeightLXFlag fields are true if any weight of the list differs from
// the default weight.
type PredWeightTable struct {
	LumaLog2WeightDenom   int
	ChromaLog2WeightDenom int
	LumaWeightL0Flag      bool
	LumaWeightL0          [MaxListEntries]int
	LumaOffsetL0          [MaxListEntries]int
	ChromaWeightL0Flag    bool
	ChromaWeightL0        [MaxListEntries][2]int
	ChromaOffsetL0        [MaxListEntries][2]int
	LumaWeightL1Flag      bool
	LumaWeightL1          [MaxListEntries]int
	LumaOffsetL1          [MaxListEntries]int
	ChromaWeightL1Flag    bool
	ChromaWeightL1        [MaxListEntries][2]int
	ChromaOffsetL1        [MaxListEntries][2]int
}

// fillDefaults sets the weights of the active entries of both lists to their
// default values given the current weight denominators.
func (p *PredWeightTable) fillDefaults(nL0, nL1 int) {
	luma := 1 << uint(p.LumaLog2WeightDenom)
	chroma := 1 << uint(p.ChromaLog2WeightDenom)
	for k := 0; k < nL0; k++ {
		p.LumaWeightL0[k], p.LumaOffsetL0[k] = luma, 0
		p.ChromaWeightL0[k] = [2]int{chroma, chroma}
		p.ChromaOffsetL0[k] = [2]int{}
	}
	for k := 0; k < nL1; k++ {
		p.LumaWeightL1[k], p.LumaOffsetL1[k] = luma, 0
		p.ChromaWeightL1[k] = [2]int{chroma, chroma}
		p.ChromaOffsetL1[k] = [2]int{}
	}
}

// defaultPredWeightTable returns the table used when no pred_weight_table is
// present in the slice header.
func defaultPredWeightTable(h *SliceHeader) PredWeightTable {
	var p PredWeightTable
	p.fillDefaults(h.NumRefIdxL0ActiveMinus1+1, h.NumRefIdxL1ActiveMinus1+1)
	return p
}

// NewPredWeightTable parses elements of a pred_weight_table following the
// syntax structure defined in section 7.3.3.2, and returns as a new
// PredWeightTable.
func NewPredWeightTable(br *bits.BitReader, h *SliceHeader, chromaArrayType int) (*PredWeightTable, error) {
	p := &PredWeightTable{}
	r := newFieldReader(br)

	p.LumaLog2WeightDenom = r.readUe()
	if chromaArrayType != 0 {
		p.ChromaLog2WeightDenom = r.readUe()
	}
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read weight denominators")
	}
	if p.LumaLog2WeightDenom > 7 || p.ChromaLog2WeightDenom > 7 {
		return nil, errors.Wrap(ErrInvalidSliceHeader, "weight denominator out of range")
	}

	nL0, nL1 := h.NumRefIdxL0ActiveMinus1+1, 0
	if h.SliceType == SliceTypeB {
		nL1 = h.NumRefIdxL1ActiveMinus1 + 1
	}
	p.fillDefaults(nL0, nL1)

	defLuma := 1 << uint(p.LumaLog2WeightDenom)
	defChroma := 1 << uint(p.ChromaLog2WeightDenom)

	for i := 0; i < nL0; i++ {
		if r.readFlag() {
			p.LumaWeightL0[i] = r.readSe()
			p.LumaOffsetL0[i] = r.readSe()
			if p.LumaWeightL0[i] != defLuma {
				p.LumaWeightL0Flag = true
			}
		}
		if chromaArrayType != 0 && r.readFlag() {
			for j := 0; j < 2; j++ {
				p.ChromaWeightL0[i][j] = r.readSe()
				p.ChromaOffsetL0[i][j] = r.readSe()
				if p.ChromaWeightL0[i][j] != defChroma {
					p.ChromaWeightL0Flag = true
				}
			}
		}
	}
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read list 0 weights")
	}

	for i := 0; i < nL1; i++ {
		if r.readFlag() {
			p.LumaWeightL1[i] = r.readSe()
			p.LumaOffsetL1[i] = r.readSe()
			if p.LumaWeightL1[i] != defLuma {
				p.LumaWeightL1Flag = true
			}
		}
		if chromaArrayType != 0 && r.readFlag() {
			for j := 0; j < 2; j++ {
				p.ChromaWeightL1[i][j] = r.readSe()
				p.ChromaOffsetL1[i][j] = r.readSe()
				if p.ChromaWeightL1[i][j] != defChroma {
					p.ChromaWeightL1Flag = true
				}
			}
		}
	}
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read list 1 weights")
	}
	return p, nil
}

// DecRefPicMarking provides elements of a dec_ref_pic_marking syntax structure
// as defined in section 7.3.3.3 of the specifications. Memory management
// control operations are recorded but not acted upon; reference picture
// marking is left to the owner of the decoded picture buffer.
type DecRefPicMarking struct {
	NoOutputOfPriorPicsFlag       bool
	LongTermReferenceFlag         bool
	AdaptiveRefPicMarkingModeFlag bool
	Elements                      []DRPMElement
}

// DRPMElement is a single memory management control operation and its
// arguments.
type DRPMElement struct {
	MemoryManagementControlOperation int
	DifferenceOfPicNumsMinus1        int
	LongTermPicNum                   int
	LongTermFrameIdx                 int
	MaxLongTermFrameIdxPlus1         int
}

// NewDecRefPicMarking parses elements of a dec_ref_pic_marking following the
// syntax structure defined in section 7.3.3.3, and returns as a new
// DecRefPicMarking.
func NewDecRefPicMarking(br *bits.BitReader, idrPic bool) (*DecRefPicMarking, error) {
	d := &DecRefPicMarking{}
	r := newFieldReader(br)
	if idrPic {
		d.NoOutputOfPriorPicsFlag = r.readFlag()
		d.LongTermReferenceFlag = r.readFlag()
		if r.err() != nil {
			return nil, errors.Wrap(r.err(), "could not read IDR marking flags")
		}
		return d, nil
	}

	d.AdaptiveRefPicMarkingModeFlag = r.readFlag()
	if !d.AdaptiveRefPicMarkingModeFlag {
		if r.err() != nil {
			return nil, errors.Wrap(r.err(), "could not read AdaptiveRefPicMarkingModeFlag")
		}
		return d, nil
	}

	for {
		var e DRPMElement
		e.MemoryManagementControlOperation = r.readUe()
		op := e.MemoryManagementControlOperation
		if op > 6 && r.err() == nil {
			return nil, errors.Wrapf(ErrInvalidSliceHeader, "memory_management_control_operation: %d", op)
		}
		if op == 1 || op == 3 {
			e.DifferenceOfPicNumsMinus1 = r.readUe()
		}
		if op == 2 {
			e.LongTermPicNum = r.readUe()
		}
		if op == 3 || op == 6 {
			e.LongTermFrameIdx = r.readUe()
		}
		if op == 4 {
			e.MaxLongTermFrameIdxPlus1 = r.readUe()
		}
		if r.err() != nil {
			return nil, errors.Wrap(r.err(), "could not read memory management control operation")
		}
		d.Elements = append(d.Elements, e)
		if op == 0 {
			return d, nil
		}
	}
}

// SliceHeader holds the syntax elements of a slice header as defined in
// section 7.3.3. Elements absent from the bitstream hold their inferred
// values.
type SliceHeader struct {
	NALUnit                 NALUnitHeader
	FirstMbInSlice          int
	SliceType               int
	PPSID                   int
	ColorPlaneID            int
	FrameNum                int
	FieldPic                bool
	BottomField             bool
	IDRPicID                int
	PicOrderCntLsb          int
	DeltaPicOrderCntBottom  int
	DeltaPicOrderCnt        [2]int
	RedundantPicCnt         int
	DirectSpatialMvPred     bool
	NumRefIdxActiveOverride bool
	NumRefIdxL0ActiveMinus1 int
	NumRefIdxL1ActiveMinus1 int
	RefPicListModification  RefPicListModification
	PredWeightTable         PredWeightTable
	DecRefPicMarking        DecRefPicMarking
	CabacInit               int
	SliceQpDelta            int
	SpForSwitch             bool
	SliceQsDelta            int
	DisableDeblockingFilter int
	SliceAlphaC0OffsetDiv2  int
	SliceBetaOffsetDiv2     int
}

// SliceParameters holds a parsed slice header along with the reference
// picture lists for the slice and the offset in bits, from the start of the
// NAL unit header, of the slice data.
type SliceParameters struct {
	SliceHeader
	RefPicList0 []ReferencePicture
	RefPicList1 []ReferencePicture
	BitOffset   int
}

// ParseSliceHeader parses a slice header from br, which must be positioned at
// the first bit of a NAL unit header with its bit counter reset. The picture
// parameters, the reference frames available to the picture and the limit on
// the number of references considered (zero for no limit other than 16) are
// used to interpret the header and to build the reference picture lists.
//
// Bitstream features that are not handled give an error satisfying
// errors.Is(err, ErrUnsupported). NAL units other than coded slices give
// ErrNotSlice.
func ParseSliceHeader(br *bits.BitReader, pic *PictureInfo, refs []ReferencePicture, maxRefs int) (*SliceParameters, error) {
	nal, err := NewNALUnitHeader(br)
	if err != nil {
		return nil, err
	}
	switch nal.Type {
	case NALTypeNonIDR, NALTypeIDR:
	case NALTypeSliceDataPartitionA, NALTypeSliceDataPartitionB, NALTypeSliceDataPartitionC:
		return nil, errors.Wrap(ErrUnsupported, "slice data partitioning")
	default:
		return nil, errors.Wrapf(ErrNotSlice, "NAL unit type %d", nal.Type)
	}

	h := SliceHeader{NALUnit: *nal}
	r := newFieldReader(br)

	h.FirstMbInSlice = r.readUe()
	h.SliceType = r.readUe()
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read slice type")
	}
	if h.SliceType > 9 {
		return nil, errors.Wrapf(ErrInvalidSliceHeader, "slice_type: %d", h.SliceType)
	}
	if h.SliceType > 4 {
		h.SliceType -= 5
	}

	// The slice type is now known, so we can build the initial lists.
	l0, l1, err := buildRefPicLists(h.SliceType, pic, refs, maxRefs)
	if err != nil {
		return nil, errors.Wrap(err, "could not build reference picture lists")
	}

	h.PPSID = r.readUe()
	if pic.SeparateColourPlane {
		h.ColorPlaneID = int(r.readBits(2))
	}
	h.FrameNum = int(r.readBits(pic.Log2MaxFrameNumMinus4 + 4))
	if !pic.FrameMbsOnly {
		h.FieldPic = r.readFlag()
		if h.FieldPic {
			h.BottomField = r.readFlag()
		}
	}
	if nal.IsIDR() {
		h.IDRPicID = r.readUe()
	}
	if pic.PicOrderCntType == 0 {
		h.PicOrderCntLsb = int(r.readBits(pic.Log2MaxPicOrderCntLSBMinus4 + 4))
		if pic.PicOrderPresent && !h.FieldPic {
			h.DeltaPicOrderCntBottom = r.readSe()
		}
	}
	if pic.PicOrderCntType == 1 && !pic.DeltaPicOrderAlwaysZero {
		h.DeltaPicOrderCnt[0] = r.readSe()
		if pic.PicOrderPresent && !h.FieldPic {
			h.DeltaPicOrderCnt[1] = r.readSe()
		}
	}
	if pic.RedundantPicCntPresent {
		h.RedundantPicCnt = r.readUe()
	}
	if h.SliceType == SliceTypeB {
		h.DirectSpatialMvPred = r.readFlag()
	}
	if isInter(h.SliceType) {
		h.NumRefIdxL0ActiveMinus1 = pic.NumRefIdxL0DefaultActiveMinus1
		if h.SliceType == SliceTypeB {
			h.NumRefIdxL1ActiveMinus1 = pic.NumRefIdxL1DefaultActiveMinus1
		}
		h.NumRefIdxActiveOverride = r.readFlag()
		if h.NumRefIdxActiveOverride {
			h.NumRefIdxL0ActiveMinus1 = r.readUe()
			if h.SliceType == SliceTypeB {
				h.NumRefIdxL1ActiveMinus1 = r.readUe()
			}
		}
	}
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read slice header fields")
	}
	if h.NumRefIdxL0ActiveMinus1 >= MaxListEntries || h.NumRefIdxL1ActiveMinus1 >= MaxListEntries {
		return nil, errors.Wrapf(ErrInvalidSliceHeader, "num_ref_idx_active_minus1: %d, %d", h.NumRefIdxL0ActiveMinus1, h.NumRefIdxL1ActiveMinus1)
	}
	if h.FieldPic && isInter(h.SliceType) {
		return nil, errors.Wrap(ErrUnsupported, "reference lists for field pictures")
	}

	if isInter(h.SliceType) {
		l0 = truncateList(l0, h.NumRefIdxL0ActiveMinus1+1)
	}
	if h.SliceType == SliceTypeB {
		l1 = truncateList(l1, h.NumRefIdxL1ActiveMinus1+1)
	}

	m, err := NewRefPicListModification(br, h.SliceType)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse RefPicListModification")
	}
	h.RefPicListModification = *m
	if m.RefPicListModificationFlag[1] {
		return nil, errors.Wrap(ErrUnsupported, "list 1 modification")
	}
	if m.RefPicListModificationFlag[0] {
		l0, err = modifyRefPicList0(l0, h.NumRefIdxL0ActiveMinus1, m.Modifications[0], h.FrameNum, pic.MaxPicNum(h.FieldPic), candidates(refs, maxRefs))
		if err != nil {
			return nil, errors.Wrap(err, "could not modify list 0")
		}
	}

	if (pic.WeightedPred && (h.SliceType == SliceTypeP || h.SliceType == SliceTypeSP)) ||
		(pic.WeightedBipredIDC == 1 && h.SliceType == SliceTypeB) {
		p, err := NewPredWeightTable(br, &h, pic.ChromaArrayType())
		if err != nil {
			return nil, errors.Wrap(err, "could not parse PredWeightTable")
		}
		h.PredWeightTable = *p
	} else {
		h.PredWeightTable = defaultPredWeightTable(&h)
	}

	if nal.RefIdc != 0 {
		d, err := NewDecRefPicMarking(br, nal.IsIDR())
		if err != nil {
			return nil, errors.Wrap(err, "could not parse DecRefPicMarking")
		}
		h.DecRefPicMarking = *d
	}

	if pic.EntropyCodingMode && h.SliceType != SliceTypeI && h.SliceType != SliceTypeSI {
		h.CabacInit = r.readUe()
	}
	h.SliceQpDelta = r.readSe()
	if h.SliceType == SliceTypeSP || h.SliceType == SliceTypeSI {
		if h.SliceType == SliceTypeSP {
			h.SpForSwitch = r.readFlag()
		}
		h.SliceQsDelta = r.readSe()
	}
	if pic.DeblockingFilterControlPresent {
		h.DisableDeblockingFilter = r.readUe()
		if h.DisableDeblockingFilter != 1 {
			h.SliceAlphaC0OffsetDiv2 = r.readSe()
			h.SliceBetaOffsetDiv2 = r.readSe()
		}
	}
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read slice qp and deblocking fields")
	}

	// slice_group_change_cycle has a length we cannot know without the
	// picture size in map units.
	if pic.NumSliceGroupsMinus1 > 0 && pic.SliceGroupMapType >= 3 && pic.SliceGroupMapType <= 5 {
		return nil, errors.Wrapf(ErrUnsupported, "slice group map type %d", pic.SliceGroupMapType)
	}

	return &SliceParameters{
		SliceHeader: h,
		RefPicList0: l0,
		RefPicList1: l1,
		BitOffset:   br.BitsEaten(),
	}, nil
}

// isInter returns true for slice types that use reference picture lists.
func isInter(sliceType int) bool {
	return sliceType == SliceTypeP || sliceType == SliceTypeSP || sliceType == SliceTypeB
}

// PeekPPSID returns the pic_parameter_set_id of the slice whose NAL unit
// header br is positioned at. br is passed by value and so is not advanced.
func PeekPPSID(br bits.BitReader) (int, error) {
	nal, err := NewNALUnitHeader(&br)
	if err != nil {
		return 0, err
	}
	if !nal.IsVCL() {
		return 0, errors.Wrapf(ErrNotSlice, "NAL unit type %d", nal.Type)
	}
	r := newFieldReader(&br)
	r.readUe() // first_mb_in_slice
	r.readUe() // slice_type
	id := r.readUe()
	if r.err() != nil {
		return 0, errors.Wrap(r.err(), "could not read pic_parameter_set_id")
	}
	return id, nil
}
