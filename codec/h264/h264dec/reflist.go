/*
DESCRIPTION
  reflist.go provides construction of the initial reference picture lists
  for P, SP and B slices of frames, and the modification of list 0.

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
	"sort"

	"github.com/pkg/errors"
)

// ErrMissingReference is returned when a list modification names a picture
// that is not among the available reference frames.
var ErrMissingReference = errors.New("referenced picture not found")

// candidates returns the valid references among the first maxRefs entries of
// refs. maxRefs is clamped to MaxReferenceFrames, and zero means no limit
// other than that.
func candidates(refs []ReferencePicture, maxRefs int) []ReferencePicture {
	if maxRefs <= 0 || maxRefs > MaxReferenceFrames {
		maxRefs = MaxReferenceFrames
	}
	if len(refs) > maxRefs {
		refs = refs[:maxRefs]
	}
	var c []ReferencePicture
	for _, r := range refs {
		if r.Kind == NotReference {
			continue
		}
		c = append(c, r)
	}
	return c
}

// selectRefs returns the entries of refs satisfying keep, stably sorted by
// less.
func selectRefs(refs []ReferencePicture, keep func(ReferencePicture) bool, less func(a, b ReferencePicture) bool) []ReferencePicture {
	var s []ReferencePicture
	for _, r := range refs {
		if keep(r) {
			s = append(s, r)
		}
	}
	sort.SliceStable(s, func(i, j int) bool { return less(s[i], s[j]) })
	return s
}

var (
	byFrameIdxDesc = func(a, b ReferencePicture) bool { return a.FrameIdx > b.FrameIdx }
	byFrameIdxAsc  = func(a, b ReferencePicture) bool { return a.FrameIdx < b.FrameIdx }
	byPOCDesc      = func(a, b ReferencePicture) bool { return a.TopPOC > b.TopPOC }
	byPOCAsc       = func(a, b ReferencePicture) bool { return a.TopPOC < b.TopPOC }
)

// buildRefPicLists returns the initial reference picture lists for a slice of
// the given type following sections 8.2.4.2.1 and 8.2.4.2.3. Lists for I and
// SI slices are empty. The lists are not truncated to the active number of
// entries.
func buildRefPicLists(sliceType int, pic *PictureInfo, refs []ReferencePicture, maxRefs int) (l0, l1 []ReferencePicture, err error) {
	if !isInter(sliceType) {
		return nil, nil, nil
	}
	if pic.FieldPic {
		return nil, nil, errors.Wrap(ErrUnsupported, "reference lists for field pictures")
	}

	c := candidates(refs, maxRefs)
	long := selectRefs(c, ReferencePicture.IsLongTerm, byFrameIdxAsc)

	if sliceType != SliceTypeB {
		l0 = selectRefs(c, ReferencePicture.IsShortTerm, byFrameIdxDesc)
		return append(l0, long...), nil, nil
	}

	cur := pic.CurrPic.TopPOC
	before := selectRefs(c, func(r ReferencePicture) bool { return r.IsShortTerm() && r.TopPOC < cur }, byPOCDesc)
	after := selectRefs(c, func(r ReferencePicture) bool { return r.IsShortTerm() && r.TopPOC >= cur }, byPOCAsc)

	l0 = append(append(append([]ReferencePicture{}, before...), after...), long...)
	l1 = append(append(append([]ReferencePicture{}, after...), before...), long...)

	// See 8.2.4.2.3; when list 1 has more than one entry and is identical to
	// list 0, its first two entries are swapped.
	if len(l1) > 1 && sameList(l0, l1) {
		l1[0], l1[1] = l1[1], l1[0]
	}
	return l0, l1, nil
}

func sameList(a, b []ReferencePicture) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// truncateList returns the first n entries of l, or all of l if it is
// shorter.
func truncateList(l []ReferencePicture, n int) []ReferencePicture {
	if len(l) > n {
		return l[:n]
	}
	return l
}

// modifyRefPicList0 applies the short-term modification commands mods to
// list 0 following section 8.2.4.3.1. numActiveMinus1 is
// num_ref_idx_l0_active_minus1, frameNum the frame_num of the current slice
// and cands the reference frames available to the picture. Entries of the
// returned list beyond the last valid picture are dropped.
func modifyRefPicList0(l0 []ReferencePicture, numActiveMinus1 int, mods []PicNumModification, frameNum, maxPicNum int, cands []ReferencePicture) ([]ReferencePicture, error) {
	n := numActiveMinus1
	l := make([]ReferencePicture, n+2)
	for i := range l {
		l[i] = invalidPicture
	}
	copy(l, l0)

	picNum := frameNum
	refIdx := 0
	for _, m := range mods {
		switch m.ModificationOfPicNumsIDC {
		case 0:
			picNum -= m.AbsDiffPicNumMinus1 + 1
		case 1:
			picNum += m.AbsDiffPicNumMinus1 + 1
		case 2:
			return nil, errors.Wrap(ErrUnsupported, "long-term list modification")
		case 3:
			return trimList(l[:n+1]), nil
		default:
			return nil, errors.Wrapf(ErrInvalidSliceHeader, "modification_of_pic_nums_idc: %d", m.ModificationOfPicNumsIDC)
		}
		picNum &= maxPicNum - 1

		target, ok := findShortTerm(cands, picNum)
		if !ok {
			return nil, errors.Wrapf(ErrMissingReference, "short-term picture number %d", picNum)
		}
		if refIdx > n {
			return nil, errors.Wrap(ErrInvalidSliceHeader, "too many list modifications")
		}

		for k := n + 1; k > refIdx; k-- {
			l[k] = l[k-1]
		}
		l[refIdx] = target
		refIdx++

		j := refIdx
		for k := refIdx; k <= n+1; k++ {
			if !(l[k].IsShortTerm() && l[k].FrameIdx == picNum) {
				l[j] = l[k]
				j++
			}
		}
	}
	return trimList(l[:n+1]), nil
}

// findShortTerm returns the short-term reference in refs with FrameIdx
// equal to picNum.
func findShortTerm(refs []ReferencePicture, picNum int) (ReferencePicture, bool) {
	for _, r := range refs {
		if r.IsShortTerm() && r.FrameIdx == picNum {
			return r, true
		}
	}
	return ReferencePicture{}, false
}

// trimList drops trailing entries that do not refer to a picture.
func trimList(l []ReferencePicture) []ReferencePicture {
	for len(l) > 0 && l[len(l)-1].Kind == NotReference {
		l = l[:len(l)-1]
	}
	return l
}
