/*
DESCRIPTION
  dpb_test.go provides testing for the decoded picture buffer in dpb.go.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"testing"

	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ausocean/vdpva/codec/h264/h264dec"
)

// destroyed records the handles given to Destroy.
type destroyed []uint32

func (d *destroyed) Destroy(handle uint32) error {
	*d = append(*d, handle)
	return nil
}

// markOp describes a picture to be marked.
type markOp struct {
	handle   uint32
	frameNum int
	idr      bool
	ref      bool
	mmcos    []h264dec.DRPMElement
}

func (op markOp) apply(b *dpb) {
	pic := &h264dec.PictureInfo{FrameNum: op.frameNum, IsReference: op.ref}
	h := &h264dec.SliceHeader{NALUnit: h264dec.NALUnitHeader{Type: h264dec.NALTypeNonIDR}, FrameNum: op.frameNum}
	if op.idr {
		h.NALUnit.Type = h264dec.NALTypeIDR
	}
	if op.ref {
		h.NALUnit.RefIdc = 1
	}
	if op.mmcos != nil {
		h.DecRefPicMarking = h264dec.DecRefPicMarking{AdaptiveRefPicMarkingModeFlag: true, Elements: op.mmcos}
	}
	b.mark(op.handle, pic, h)
}

func TestDPBMark(t *testing.T) {
	tests := []struct {
		name          string
		max           int
		ops           []markOp
		wantFrames    []int
		wantDestroyed []uint32
	}{
		{
			name: "sliding window",
			max:  2,
			ops: []markOp{
				{handle: 1, frameNum: 0, idr: true, ref: true},
				{handle: 2, frameNum: 1, ref: true},
				{handle: 3, frameNum: 2, ref: true},
			},
			wantFrames:    []int{1, 2},
			wantDestroyed: []uint32{1},
		},
		{
			name: "non-reference destroyed",
			max:  2,
			ops: []markOp{
				{handle: 1, frameNum: 0, idr: true, ref: true},
				{handle: 2, frameNum: 1},
			},
			wantFrames:    []int{0},
			wantDestroyed: []uint32{2},
		},
		{
			name: "IDR flushes",
			max:  4,
			ops: []markOp{
				{handle: 1, frameNum: 0, idr: true, ref: true},
				{handle: 2, frameNum: 1, ref: true},
				{handle: 3, frameNum: 0, idr: true, ref: true},
			},
			wantFrames:    []int{0},
			wantDestroyed: []uint32{1, 2},
		},
		{
			name: "frame_num wrap",
			max:  2,
			ops: []markOp{
				{handle: 1, frameNum: 14, ref: true},
				{handle: 2, frameNum: 15, ref: true},
				{handle: 3, frameNum: 0, ref: true},
			},
			wantFrames:    []int{15, 0},
			wantDestroyed: []uint32{1},
		},
		{
			name: "unmark short-term",
			max:  4,
			ops: []markOp{
				{handle: 1, frameNum: 0, idr: true, ref: true},
				{handle: 2, frameNum: 1, ref: true},
				{handle: 3, frameNum: 2, ref: true},
				{
					handle:   4,
					frameNum: 3,
					ref:      true,
					mmcos:    []h264dec.DRPMElement{{MemoryManagementControlOperation: 1, DifferenceOfPicNumsMinus1: 1}, {}},
				},
			},
			wantFrames:    []int{0, 2, 3},
			wantDestroyed: []uint32{2},
		},
		{
			name: "operation 5",
			max:  4,
			ops: []markOp{
				{handle: 1, frameNum: 0, idr: true, ref: true},
				{handle: 2, frameNum: 1, ref: true},
				{
					handle:   3,
					frameNum: 2,
					ref:      true,
					mmcos:    []h264dec.DRPMElement{{MemoryManagementControlOperation: 5}, {}},
				},
			},
			wantFrames:    []int{0},
			wantDestroyed: []uint32{1, 2},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var d destroyed
			b := newDPB((*logging.TestLogger)(t), &d)
			b.setMax(test.max)
			for _, op := range test.ops {
				op.apply(b)
			}

			var got []int
			for _, f := range b.refs() {
				got = append(got, f.FrameIdx)
			}
			if diff := cmp.Diff(test.wantFrames, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("did not get expected frames (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(test.wantDestroyed, []uint32(d), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("did not get expected destroyed surfaces (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDPBFlush(t *testing.T) {
	var d destroyed
	b := newDPB((*logging.TestLogger)(t), &d)
	b.setMax(0)
	if b.max != 1 {
		t.Errorf("did not get expected max\nGot: %v\nWant: 1\n", b.max)
	}
	markOp{handle: 7, frameNum: 0, idr: true, ref: true}.apply(b)
	b.flush()
	if b.size() != 0 {
		t.Errorf("expected empty buffer after flush, got %d frames", b.size())
	}
	if !cmp.Equal([]uint32(d), []uint32{7}) {
		t.Errorf("did not get expected destroyed surfaces\nGot: %v\nWant: [7]\n", d)
	}
}
