/*
DESCRIPTION
  poc.go provides derivation of picture order counts following section 8.2.1
  of the specifications.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264dec

import "github.com/pkg/errors"

// POCState carries the values from previously decoded pictures that picture
// order count derivation depends upon. The zero value is ready for use and
// describes a stream that starts with an IDR picture.
type POCState struct {
	prevPicOrderCntMsb int
	prevPicOrderCntLsb int
	prevFrameNumOffset int
	prevFrameNum       int
	prevMMCO5          bool
	prevBottomField    bool
	prevTopPOC         int
}

// hasMMCO5 returns true if the marking contains a memory_management_control_operation
// equal to 5, i.e. all references are dropped after the picture is decoded.
func hasMMCO5(d *DecRefPicMarking) bool {
	for _, e := range d.Elements {
		if e.MemoryManagementControlOperation == 5 {
			return true
		}
	}
	return false
}

// Compute returns TopFieldOrderCnt and BottomFieldOrderCnt for the picture
// whose first slice header is h, and updates s for the next picture. For a
// field picture only the count of the coded field is meaningful.
func (s *POCState) Compute(sps *SPS, h *SliceHeader) (top, bottom int, err error) {
	idr := h.NALUnit.IsIDR()
	ref := h.NALUnit.RefIdc != 0
	mmco5 := hasMMCO5(&h.DecRefPicMarking)

	switch sps.PicOrderCountType {
	case 0:
		top, bottom = s.type0(sps, h, idr)
	case 1:
		top, bottom = s.type1(sps, h, idr, ref)
	case 2:
		top, bottom = s.type2(sps, h, idr, ref)
	default:
		return 0, 0, errors.Errorf("invalid pic_order_cnt_type: %d", sps.PicOrderCountType)
	}

	// Following 8.2.1, a picture with memory_management_control_operation 5
	// has its counts reset relative to itself once decoded.
	tempTop := top
	if mmco5 {
		temp := top
		if !h.FieldPic && bottom < top {
			temp = bottom
		}
		if h.FieldPic && h.BottomField {
			temp = bottom
		}
		tempTop = top - temp
	}

	if ref {
		s.prevMMCO5 = mmco5
		s.prevBottomField = h.FieldPic && h.BottomField
		s.prevTopPOC = tempTop
	}
	return top, bottom, nil
}

// type0 follows section 8.2.1.1.
func (s *POCState) type0(sps *SPS, h *SliceHeader, idr bool) (top, bottom int) {
	maxLsb := 1 << uint(sps.Log2MaxPicOrderCntLSBMinus4+4)

	prevMsb, prevLsb := s.prevPicOrderCntMsb, s.prevPicOrderCntLsb
	switch {
	case idr:
		prevMsb, prevLsb = 0, 0
	case s.prevMMCO5 && !s.prevBottomField:
		prevMsb, prevLsb = 0, s.prevTopPOC
	case s.prevMMCO5:
		prevMsb, prevLsb = 0, 0
	}

	lsb := h.PicOrderCntLsb
	msb := prevMsb
	switch {
	case lsb < prevLsb && prevLsb-lsb >= maxLsb/2:
		msb = prevMsb + maxLsb
	case lsb > prevLsb && lsb-prevLsb > maxLsb/2:
		msb = prevMsb - maxLsb
	}

	switch {
	case !h.FieldPic:
		top = msb + lsb
		bottom = top + h.DeltaPicOrderCntBottom
	case h.BottomField:
		bottom = msb + lsb
	default:
		top = msb + lsb
	}

	if h.NALUnit.RefIdc != 0 {
		s.prevPicOrderCntMsb, s.prevPicOrderCntLsb = msb, lsb
		if hasMMCO5(&h.DecRefPicMarking) {
			s.prevPicOrderCntMsb, s.prevPicOrderCntLsb = 0, 0
		}
	}
	return top, bottom
}

// frameNumOffset derives FrameNumOffset as in equations 8-6 and 8-11, and
// records the frame number state for the next picture.
func (s *POCState) frameNumOffset(sps *SPS, h *SliceHeader, idr bool) int {
	maxFrameNum := 1 << uint(sps.Log2MaxFrameNumMinus4+4)
	prevOffset := s.prevFrameNumOffset
	if s.prevMMCO5 {
		prevOffset = 0
	}

	var off int
	switch {
	case idr:
		off = 0
	case s.prevFrameNum > h.FrameNum:
		off = prevOffset + maxFrameNum
	default:
		off = prevOffset
	}

	s.prevFrameNum, s.prevFrameNumOffset = h.FrameNum, off
	if hasMMCO5(&h.DecRefPicMarking) {
		s.prevFrameNum, s.prevFrameNumOffset = 0, 0
	}
	return off
}

// type1 follows section 8.2.1.2.
func (s *POCState) type1(sps *SPS, h *SliceHeader, idr, ref bool) (top, bottom int) {
	off := s.frameNumOffset(sps, h, idr)
	n := len(sps.OffsetForRefFrameList)

	var absFrameNum int
	if n != 0 {
		absFrameNum = off + h.FrameNum
	}
	if !ref && absFrameNum > 0 {
		absFrameNum--
	}

	var expectedDeltaPerCycle int
	for _, o := range sps.OffsetForRefFrameList {
		expectedDeltaPerCycle += o
	}

	var expected int
	if absFrameNum > 0 {
		cycleCnt := (absFrameNum - 1) / n
		inCycle := (absFrameNum - 1) % n
		expected = cycleCnt * expectedDeltaPerCycle
		for i := 0; i <= inCycle; i++ {
			expected += sps.OffsetForRefFrameList[i]
		}
	}
	if !ref {
		expected += sps.OffsetForNonRefPic
	}

	switch {
	case !h.FieldPic:
		top = expected + h.DeltaPicOrderCnt[0]
		bottom = top + sps.OffsetForTopToBottomField + h.DeltaPicOrderCnt[1]
	case h.BottomField:
		bottom = expected + sps.OffsetForTopToBottomField + h.DeltaPicOrderCnt[0]
	default:
		top = expected + h.DeltaPicOrderCnt[0]
	}
	return top, bottom
}

// type2 follows section 8.2.1.3.
func (s *POCState) type2(sps *SPS, h *SliceHeader, idr, ref bool) (top, bottom int) {
	off := s.frameNumOffset(sps, h, idr)

	var temp int
	switch {
	case idr:
		temp = 0
	case !ref:
		temp = 2*(off+h.FrameNum) - 1
	default:
		temp = 2 * (off + h.FrameNum)
	}

	switch {
	case !h.FieldPic:
		top, bottom = temp, temp
	case h.BottomField:
		bottom = temp
	default:
		top = temp
	}
	return top, bottom
}
