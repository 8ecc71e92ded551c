/*
DESCRIPTION
  dpb.go provides a decoded picture buffer that performs reference picture
  marking for the pictures vadump renders.

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
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/vdpva/codec/h264/h264dec"
)

// destroyer destroys surfaces by handle.
type destroyer interface {
	Destroy(handle uint32) error
}

// dpb holds the reference pictures of a stream. Pictures leaving the buffer
// have their surfaces destroyed.
type dpb struct {
	log    logging.Logger
	surf   destroyer
	max    int
	frames []h264dec.ReferencePicture
}

func newDPB(log logging.Logger, surf destroyer) *dpb {
	return &dpb{log: log, surf: surf, max: 1}
}

// setMax sets the number of reference frames the buffer may hold.
func (b *dpb) setMax(n int) {
	if n < 1 {
		n = 1
	}
	b.max = n
}

// refs returns a copy of the reference frames in the buffer.
func (b *dpb) refs() []h264dec.ReferencePicture {
	return append([]h264dec.ReferencePicture(nil), b.frames...)
}

func (b *dpb) size() int { return len(b.frames) }

// flush removes all frames from the buffer.
func (b *dpb) flush() {
	for _, f := range b.frames {
		b.destroy(f.Surface)
	}
	b.frames = b.frames[:0]
}

func (b *dpb) destroy(handle uint32) {
	err := b.surf.Destroy(handle)
	if err != nil {
		b.log.Warning("could not destroy surface", "handle", handle, "error", err.Error())
	}
}

// remove removes the frame at index i.
func (b *dpb) remove(i int) {
	b.destroy(b.frames[i].Surface)
	b.frames = append(b.frames[:i], b.frames[i+1:]...)
}

// frameNumWrap returns FrameNumWrap as derived in section 8.2.4.1 of the
// specifications.
func frameNumWrap(frameNum, curFrameNum, maxFrameNum int) int {
	if frameNum > curFrameNum {
		return frameNum - maxFrameNum
	}
	return frameNum
}

// mark performs reference picture marking following section 8.2.5 for a
// decoded picture held in the surface with the given handle. Non-reference
// pictures are destroyed.
func (b *dpb) mark(handle uint32, pic *h264dec.PictureInfo, h *h264dec.SliceHeader) {
	if !pic.IsReference {
		b.destroy(handle)
		return
	}

	cur := h264dec.ReferencePicture{
		Surface:   handle,
		FrameIdx:  pic.FrameNum,
		TopPOC:    pic.CurrPic.TopPOC,
		BottomPOC: pic.CurrPic.BottomPOC,
		Kind:      h264dec.ShortTerm,
	}

	m := &h.DecRefPicMarking
	switch {
	case h.NALUnit.IsIDR():
		b.flush()
		if m.LongTermReferenceFlag {
			cur.Kind = h264dec.LongTerm
			cur.FrameIdx = 0
		}
	case m.AdaptiveRefPicMarkingModeFlag:
		if b.adaptive(m, pic) {
			// The picture is treated as having frame_num 0.
			cur.FrameIdx = 0
		}
	default:
		b.slidingWindow(pic)
	}

	for i, f := range b.frames {
		if f.Kind == h264dec.ShortTerm && f.FrameIdx == cur.FrameIdx && cur.Kind == h264dec.ShortTerm {
			b.log.Warning("duplicate frame_num in buffer, replacing", "frame_num", cur.FrameIdx)
			b.remove(i)
			break
		}
	}
	b.frames = append(b.frames, cur)
}

// slidingWindow follows section 8.2.5.3.
func (b *dpb) slidingWindow(pic *h264dec.PictureInfo) {
	for len(b.frames) >= b.max {
		oldest, wrap := -1, 0
		for i, f := range b.frames {
			if f.Kind != h264dec.ShortTerm {
				continue
			}
			w := frameNumWrap(f.FrameIdx, pic.FrameNum, pic.MaxFrameNum())
			if oldest == -1 || w < wrap {
				oldest, wrap = i, w
			}
		}
		if oldest == -1 {
			b.log.Warning("buffer full of long-term frames")
			return
		}
		b.remove(oldest)
	}
}

// adaptive follows section 8.2.5.4 for the operations that remove frames,
// and returns true if all frames were removed by operation 5. Operations
// creating long-term frames are not supported and are skipped.
func (b *dpb) adaptive(m *h264dec.DecRefPicMarking, pic *h264dec.PictureInfo) (mmco5 bool) {
	for _, e := range m.Elements {
		switch e.MemoryManagementControlOperation {
		case 0:
			return mmco5
		case 1:
			picNumX := pic.FrameNum - (e.DifferenceOfPicNumsMinus1 + 1)
			for i, f := range b.frames {
				if f.Kind == h264dec.ShortTerm && frameNumWrap(f.FrameIdx, pic.FrameNum, pic.MaxFrameNum()) == picNumX {
					b.remove(i)
					break
				}
			}
		case 2:
			for i, f := range b.frames {
				if f.Kind == h264dec.LongTerm && f.FrameIdx == e.LongTermPicNum {
					b.remove(i)
					break
				}
			}
		case 5:
			b.flush()
			mmco5 = true
		default:
			b.log.Warning("unsupported memory management control operation", "op", e.MemoryManagementControlOperation)
		}
	}
	return mmco5
}
