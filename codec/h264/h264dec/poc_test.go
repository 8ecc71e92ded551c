/*
DESCRIPTION
  poc_test.go provides testing for picture order count derivation found in
  poc.go.

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

import "testing"

// pocPic describes a picture for picture order count tests.
type pocPic struct {
	idr     bool
	ref     bool
	mmco5   bool
	frame   int
	lsb     int
	delta   int
	wantTop int
	wantBot int
}

func (p pocPic) header() *SliceHeader {
	h := &SliceHeader{FrameNum: p.frame, PicOrderCntLsb: p.lsb, DeltaPicOrderCntBottom: p.delta}
	h.NALUnit.Type = NALTypeNonIDR
	if p.idr {
		h.NALUnit.Type = NALTypeIDR
	}
	if p.ref {
		h.NALUnit.RefIdc = 1
	}
	if p.mmco5 {
		h.DecRefPicMarking.Elements = []DRPMElement{{MemoryManagementControlOperation: 5}, {}}
	}
	return h
}

func TestPOCState(t *testing.T) {
	tests := []struct {
		name string
		sps  SPS
		pics []pocPic
	}{
		{
			name: "type 0 with wrap",
			sps:  SPS{PicOrderCountType: 0},
			pics: []pocPic{
				{idr: true, ref: true, lsb: 0, delta: 1, wantTop: 0, wantBot: 1},
				{ref: true, frame: 1, lsb: 4, wantTop: 4, wantBot: 4},
				{ref: true, frame: 2, lsb: 8, wantTop: 8, wantBot: 8},
				{ref: true, frame: 3, lsb: 12, wantTop: 12, wantBot: 12},
				{ref: true, frame: 4, lsb: 0, wantTop: 16, wantBot: 16},
				{frame: 5, lsb: 14, wantTop: 14, wantBot: 14},
			},
		},
		{
			name: "type 0 after memory management reset",
			sps:  SPS{PicOrderCountType: 0},
			pics: []pocPic{
				{idr: true, ref: true},
				{ref: true, mmco5: true, frame: 1, lsb: 6, wantTop: 6, wantBot: 6},
				{ref: true, frame: 1, lsb: 2, wantTop: 2, wantBot: 2},
			},
		},
		{
			name: "type 1",
			sps:  SPS{PicOrderCountType: 1, OffsetForRefFrameList: []int{2}, OffsetForNonRefPic: -1},
			pics: []pocPic{
				{idr: true, ref: true, wantTop: 0, wantBot: 0},
				{ref: true, frame: 1, wantTop: 2, wantBot: 2},
				{frame: 2, wantTop: 1, wantBot: 1},
				{ref: true, frame: 2, wantTop: 4, wantBot: 4},
			},
		},
		{
			name: "type 2 with frame_num wrap",
			sps:  SPS{PicOrderCountType: 2},
			pics: []pocPic{
				{idr: true, ref: true, wantTop: 0, wantBot: 0},
				{ref: true, frame: 1, wantTop: 2, wantBot: 2},
				{frame: 2, wantTop: 3, wantBot: 3},
				{ref: true, frame: 2, wantTop: 4, wantBot: 4},
				{ref: true, frame: 0, wantTop: 32, wantBot: 32},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var s POCState
			for i, p := range test.pics {
				top, bot, err := s.Compute(&test.sps, p.header())
				if err != nil {
					t.Fatalf("unexpected error for picture %d: %v", i, err)
				}
				if top != p.wantTop || bot != p.wantBot {
					t.Errorf("did not get expected result for picture %d\nGot: %d, %d\nWant: %d, %d\n", i, top, bot, p.wantTop, p.wantBot)
				}
			}
		})
	}
}

func TestPOCStateBadType(t *testing.T) {
	var s POCState
	_, _, err := s.Compute(&SPS{PicOrderCountType: 3}, &SliceHeader{})
	if err == nil {
		t.Error("expected error for pic_order_cnt_type 3")
	}
}
