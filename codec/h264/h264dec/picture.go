/*
DESCRIPTION
  picture.go provides the picture level parameters and reference picture
  descriptors that drive slice header parsing and reference picture list
  construction.

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

// Slice types as defined by table 7-6 in specifications. Slice type values
// 5 to 9 are normalised to these when parsed.
const (
	SliceTypeP  = 0
	SliceTypeB  = 1
	SliceTypeI  = 2
	SliceTypeSP = 3
	SliceTypeSI = 4
)

// SliceTypeName returns the name of a slice type as used in table 7-6.
func SliceTypeName(t int) string {
	switch t % 5 {
	case SliceTypeP:
		return "P"
	case SliceTypeB:
		return "B"
	case SliceTypeI:
		return "I"
	case SliceTypeSP:
		return "SP"
	default:
		return "SI"
	}
}

// Chroma formats as defined in section 6.2, tab 6-1.
const (
	chromaMonochrome = iota
	chroma420
	chroma422
	chroma444
)

// Limits on reference pictures.
const (
	// MaxReferenceFrames is the largest number of reference frames the
	// decoded picture buffer may hold.
	MaxReferenceFrames = 16

	// MaxListEntries is the largest number of entries in a reference picture
	// list.
	MaxListEntries = 32
)

// InvalidSurface is the surface value of a ReferencePicture that has no
// backing surface.
const InvalidSurface = ^uint32(0)

// RefKind says whether a picture is used for short or long-term reference.
type RefKind uint8

// Reference kinds. The zero RefKind describes a picture that is not used for
// reference.
const (
	NotReference RefKind = iota
	ShortTerm
	LongTerm
)

// FieldValidity says which fields of a reference frame may be referenced.
type FieldValidity uint8

const (
	FullFrame FieldValidity = iota
	TopOnly
	BottomOnly
)

// ReferencePicture describes a decoded picture that may be used for
// inter prediction. The decoded picture buffer that these come from is kept
// by the caller.
type ReferencePicture struct {
	Surface   uint32 // Opaque handle of the surface holding the picture.
	FrameIdx  int    // frame_num for short-term, LongTermFrameIdx for long-term.
	TopPOC    int
	BottomPOC int
	Kind      RefKind
	Field     FieldValidity
}

// IsShortTerm returns true if p is a short-term reference.
func (p ReferencePicture) IsShortTerm() bool { return p.Kind == ShortTerm }

// IsLongTerm returns true if p is a long-term reference.
func (p ReferencePicture) IsLongTerm() bool { return p.Kind == LongTerm }

// invalidPicture fills unused reference list entries.
var invalidPicture = ReferencePicture{Surface: InvalidSurface}

// ScalingMatrix holds the 4x4 and 8x8 scaling lists of a picture. These are
// passed through to the hardware decoder untouched.
type ScalingMatrix struct {
	List4x4 [6][16]uint8
	List8x8 [2][64]uint8
}

// PictureInfo holds the sequence and picture parameter set fields that are
// not carried in each slice header, along with the state of the picture being
// decoded. It is supplied by the caller for each picture.
type PictureInfo struct {
	// Sequence parameter set fields.
	ProfileIDC                  int
	LevelIDC                    int
	ChromaFormatIDC             int
	SeparateColourPlane         bool
	BitDepthLumaMinus8          int
	BitDepthChromaMinus8        int
	Log2MaxFrameNumMinus4       int
	PicOrderCntType             int
	Log2MaxPicOrderCntLSBMinus4 int
	DeltaPicOrderAlwaysZero     bool
	NumRefFrames                int
	GapsInFrameNumAllowed       bool
	PicWidthInMbsMinus1         int
	PicHeightInMbsMinus1        int
	FrameMbsOnly                bool
	MbAdaptiveFrameField        bool
	Direct8x8Inference          bool

	// Picture parameter set fields.
	EntropyCodingMode              bool
	PicOrderPresent                bool // bottom_field_pic_order_in_frame_present_flag.
	NumSliceGroupsMinus1           int
	SliceGroupMapType              int
	SliceGroupChangeRateMinus1     int
	NumRefIdxL0DefaultActiveMinus1 int
	NumRefIdxL1DefaultActiveMinus1 int
	WeightedPred                   bool
	WeightedBipredIDC              int
	PicInitQPMinus26               int
	PicInitQSMinus26               int
	ChromaQPIndexOffset            int
	SecondChromaQPIndexOffset      int
	DeblockingFilterControlPresent bool
	ConstrainedIntraPred           bool
	RedundantPicCntPresent         bool
	Transform8x8Mode               bool
	ScalingMatrix                  ScalingMatrix

	// Current picture.
	CurrPic     ReferencePicture
	FrameNum    int
	FieldPic    bool
	BottomField bool
	IsReference bool

	// ReferenceFrames is the decoded picture buffer view for this picture.
	ReferenceFrames []ReferencePicture
}

// ChromaArrayType returns the value of ChromaArrayType as derived in section
// 7.4.2.1.1.
func (p *PictureInfo) ChromaArrayType() int {
	if p.SeparateColourPlane {
		return 0
	}
	return p.ChromaFormatIDC
}

// MaxFrameNum returns MaxFrameNum as given by equation 7-10.
func (p *PictureInfo) MaxFrameNum() int {
	return 1 << uint(p.Log2MaxFrameNumMinus4+4)
}

// MaxPicNum returns MaxPicNum as defined in section 7.4.3, i.e. MaxFrameNum
// for frames and twice that for fields. field is the field_pic_flag of the
// slice being decoded.
func (p *PictureInfo) MaxPicNum(field bool) int {
	if field {
		return 2 * p.MaxFrameNum()
	}
	return p.MaxFrameNum()
}

// MaxPicOrderCntLsb returns MaxPicOrderCntLsb as given by equation 7-11.
func (p *PictureInfo) MaxPicOrderCntLsb() int {
	return 1 << uint(p.Log2MaxPicOrderCntLSBMinus4+4)
}

// NewPictureInfo returns a PictureInfo holding the sequence and picture level
// fields of sps and pps. The current picture fields are left for the caller.
func NewPictureInfo(sps *SPS, pps *PPS) *PictureInfo {
	return &PictureInfo{
		ProfileIDC:                  sps.ProfileIDC,
		LevelIDC:                    sps.LevelIDC,
		ChromaFormatIDC:             sps.ChromaFormatIDC,
		SeparateColourPlane:         sps.SeparateColorPlaneFlag,
		BitDepthLumaMinus8:          sps.BitDepthLumaMinus8,
		BitDepthChromaMinus8:        sps.BitDepthChromaMinus8,
		Log2MaxFrameNumMinus4:       sps.Log2MaxFrameNumMinus4,
		PicOrderCntType:             sps.PicOrderCountType,
		Log2MaxPicOrderCntLSBMinus4: sps.Log2MaxPicOrderCntLSBMinus4,
		DeltaPicOrderAlwaysZero:     sps.DeltaPicOrderAlwaysZeroFlag,
		NumRefFrames:                sps.MaxNumRefFrames,
		GapsInFrameNumAllowed:       sps.GapsInFrameNumValueAllowed,
		PicWidthInMbsMinus1:         sps.PicWidthInMBSMinus1,
		PicHeightInMbsMinus1:        sps.PicHeightInMapUnitsMinus1,
		FrameMbsOnly:                sps.FrameMBSOnlyFlag,
		MbAdaptiveFrameField:        sps.MBAdaptiveFrameFieldFlag,
		Direct8x8Inference:          sps.Direct8x8InferenceFlag,

		EntropyCodingMode:              pps.EntropyCodingMode,
		PicOrderPresent:                pps.BottomFieldPicOrderInFramePresent,
		NumSliceGroupsMinus1:           pps.NumSliceGroupsMinus1,
		SliceGroupMapType:              pps.SliceGroupMapType,
		SliceGroupChangeRateMinus1:     pps.SliceGroupChangeRateMinus1,
		NumRefIdxL0DefaultActiveMinus1: pps.NumRefIdxL0DefaultActiveMinus1,
		NumRefIdxL1DefaultActiveMinus1: pps.NumRefIdxL1DefaultActiveMinus1,
		WeightedPred:                   pps.WeightedPred,
		WeightedBipredIDC:              pps.WeightedBipred,
		PicInitQPMinus26:               pps.PicInitQpMinus26,
		PicInitQSMinus26:               pps.PicInitQsMinus26,
		ChromaQPIndexOffset:            pps.ChromaQpIndexOffset,
		SecondChromaQPIndexOffset:      pps.SecondChromaQpIndexOffset,
		DeblockingFilterControlPresent: pps.DeblockingFilterControlPresent,
		ConstrainedIntraPred:           pps.ConstrainedIntraPred,
		RedundantPicCntPresent:         pps.RedundantPicCntPresent,
		Transform8x8Mode:               pps.Transform8x8Mode,
		ScalingMatrix:                  pps.ScalingMatrix,

		CurrPic: invalidPicture,
	}
}
