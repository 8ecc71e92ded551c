/*
DESCRIPTION
  sps.go provides parsing of sequence parameter sets, including scaling
  matrices and video usability information.

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
	"github.com/pkg/errors"

	"github.com/ausocean/vdpva/codec/h264/h264dec/bits"
)

// Default scaling lists from tables 7-3 and 7-4, in the order they are coded.
var (
	default4x4Intra = [16]uint8{6, 13, 13, 20, 20, 20, 28, 28, 28, 28, 32, 32, 32, 37, 37, 42}
	default4x4Inter = [16]uint8{10, 14, 14, 20, 20, 20, 24, 24, 24, 24, 27, 27, 27, 30, 30, 34}
	default8x8Intra = [64]uint8{
		6, 10, 10, 13, 11, 13, 16, 16, 16, 16, 18, 18, 18, 18, 18, 23,
		23, 23, 23, 23, 23, 25, 25, 25, 25, 25, 25, 25, 27, 27, 27, 27,
		27, 27, 27, 27, 29, 29, 29, 29, 29, 29, 29, 31, 31, 31, 31, 31,
		31, 33, 33, 33, 33, 33, 36, 36, 36, 36, 38, 38, 38, 40, 40, 42,
	}
	default8x8Inter = [64]uint8{
		9, 13, 13, 15, 13, 15, 17, 17, 17, 17, 19, 19, 19, 19, 19, 21,
		21, 21, 21, 21, 21, 22, 22, 22, 22, 22, 22, 22, 24, 24, 24, 24,
		24, 24, 24, 24, 25, 25, 25, 25, 25, 25, 25, 27, 27, 27, 27, 27,
		27, 28, 28, 28, 28, 28, 30, 30, 30, 30, 32, 32, 32, 33, 33, 35,
	}
)

// flatScalingMatrix returns the Flat_4x4_16 and Flat_8x8_16 lists.
func flatScalingMatrix() ScalingMatrix {
	var m ScalingMatrix
	for i := range m.List4x4 {
		for j := range m.List4x4[i] {
			m.List4x4[i][j] = 16
		}
	}
	for i := range m.List8x8 {
		for j := range m.List8x8[i] {
			m.List8x8[i][j] = 16
		}
	}
	return m
}

// highProfiles are the profile_idc values for which the SPS carries chroma
// format, bit depth and scaling matrix fields.
var highProfiles = map[int]bool{
	100: true, 110: true, 122: true, 244: true, 44: true, 83: true, 86: true,
	118: true, 128: true, 138: true, 139: true, 134: true, 135: true,
}

// SPS describes a sequence parameter set as defined by section 7.3.2.1.1 in
// the specifications. For semantics see section 7.4.2.1.
type SPS struct {
	ProfileIDC                      int
	Constraint                      [6]bool // constraint_set0_flag to constraint_set5_flag.
	LevelIDC                        int
	SPSID                           int
	ChromaFormatIDC                 int
	SeparateColorPlaneFlag          bool
	BitDepthLumaMinus8              int
	BitDepthChromaMinus8            int
	QPPrimeYZeroTransformBypassFlag bool
	SeqScalingMatrixPresentFlag     bool
	ScalingMatrix                   ScalingMatrix
	Log2MaxFrameNumMinus4           int
	PicOrderCountType               int
	Log2MaxPicOrderCntLSBMinus4     int
	DeltaPicOrderAlwaysZeroFlag     bool
	OffsetForNonRefPic              int
	OffsetForTopToBottomField       int
	OffsetForRefFrameList           []int
	MaxNumRefFrames                 int
	GapsInFrameNumValueAllowed      bool
	PicWidthInMBSMinus1             int
	PicHeightInMapUnitsMinus1       int
	FrameMBSOnlyFlag                bool
	MBAdaptiveFrameFieldFlag        bool
	Direct8x8InferenceFlag          bool
	FrameCroppingFlag               bool
	FrameCropLeftOffset             int
	FrameCropRightOffset            int
	FrameCropTopOffset              int
	FrameCropBottomOffset           int
	VUIParametersPresentFlag        bool
	VUIParameters                   *VUIParameters
}

// NewSPS parses a sequence parameter set raw byte sequence from br following
// the syntax structure specified in section 7.3.2.1.1, and returns as a new
// SPS. br must be positioned after the NAL unit header.
func NewSPS(br *bits.BitReader) (*SPS, error) {
	sps := &SPS{ChromaFormatIDC: chroma420, ScalingMatrix: flatScalingMatrix()}
	r := newFieldReader(br)

	sps.ProfileIDC = int(r.readBits(8))
	for i := range sps.Constraint {
		sps.Constraint[i] = r.readFlag()
	}
	r.readBits(2) // reserved_zero_2bits
	sps.LevelIDC = int(r.readBits(8))
	sps.SPSID = r.readUe()
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read SPS header")
	}
	if sps.SPSID > 31 {
		return nil, errors.Errorf("invalid seq_parameter_set_id: %d", sps.SPSID)
	}

	if highProfiles[sps.ProfileIDC] {
		sps.ChromaFormatIDC = r.readUe()
		if sps.ChromaFormatIDC == chroma444 {
			sps.SeparateColorPlaneFlag = r.readFlag()
		}
		sps.BitDepthLumaMinus8 = r.readUe()
		sps.BitDepthChromaMinus8 = r.readUe()
		sps.QPPrimeYZeroTransformBypassFlag = r.readFlag()
		sps.SeqScalingMatrixPresentFlag = r.readFlag()
		if r.err() != nil {
			return nil, errors.Wrap(r.err(), "could not read high profile fields")
		}
		if sps.SeqScalingMatrixPresentFlag {
			n := 8
			if sps.ChromaFormatIDC == chroma444 {
				n = 12
			}
			err := parseScalingMatrix(br, &sps.ScalingMatrix, n, nil)
			if err != nil {
				return nil, errors.Wrap(err, "could not parse SPS scaling matrix")
			}
		}
	}

	sps.Log2MaxFrameNumMinus4 = r.readUe()
	sps.PicOrderCountType = r.readUe()
	switch sps.PicOrderCountType {
	case 0:
		sps.Log2MaxPicOrderCntLSBMinus4 = r.readUe()
	case 1:
		sps.DeltaPicOrderAlwaysZeroFlag = r.readFlag()
		sps.OffsetForNonRefPic = r.readSe()
		sps.OffsetForTopToBottomField = r.readSe()
		n := r.readUe()
		if n > 255 {
			return nil, errors.Errorf("invalid num_ref_frames_in_pic_order_cnt_cycle: %d", n)
		}
		for i := 0; i < n; i++ {
			sps.OffsetForRefFrameList = append(sps.OffsetForRefFrameList, r.readSe())
		}
	case 2:
	default:
		if r.err() == nil {
			return nil, errors.Errorf("invalid pic_order_cnt_type: %d", sps.PicOrderCountType)
		}
	}
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read picture order count fields")
	}
	if sps.Log2MaxFrameNumMinus4 > 12 || sps.Log2MaxPicOrderCntLSBMinus4 > 12 {
		return nil, errors.New("log2 max frame num or pic order count out of range")
	}

	sps.MaxNumRefFrames = r.readUe()
	sps.GapsInFrameNumValueAllowed = r.readFlag()
	sps.PicWidthInMBSMinus1 = r.readUe()
	sps.PicHeightInMapUnitsMinus1 = r.readUe()
	sps.FrameMBSOnlyFlag = r.readFlag()
	if !sps.FrameMBSOnlyFlag {
		sps.MBAdaptiveFrameFieldFlag = r.readFlag()
	}
	sps.Direct8x8InferenceFlag = r.readFlag()
	sps.FrameCroppingFlag = r.readFlag()
	if sps.FrameCroppingFlag {
		sps.FrameCropLeftOffset = r.readUe()
		sps.FrameCropRightOffset = r.readUe()
		sps.FrameCropTopOffset = r.readUe()
		sps.FrameCropBottomOffset = r.readUe()
	}
	sps.VUIParametersPresentFlag = r.readFlag()
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read frame fields")
	}
	if sps.MaxNumRefFrames > MaxReferenceFrames {
		return nil, errors.Errorf("invalid max_num_ref_frames: %d", sps.MaxNumRefFrames)
	}

	if sps.VUIParametersPresentFlag {
		var err error
		sps.VUIParameters, err = NewVUIParameters(br)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse VUI parameters")
		}
	}
	return sps, nil
}

// Width returns the width of the coded frame in luma samples.
func (s *SPS) Width() int { return (s.PicWidthInMBSMinus1 + 1) * 16 }

// Height returns the height of the coded frame in luma samples.
func (s *SPS) Height() int {
	h := (s.PicHeightInMapUnitsMinus1 + 1) * 16
	if !s.FrameMBSOnlyFlag {
		h *= 2
	}
	return h
}

// DPBSize returns the number of frames the decoded picture buffer must hold,
// using max_dec_frame_buffering when present.
func (s *SPS) DPBSize() int {
	n := s.MaxNumRefFrames
	if s.VUIParameters != nil && s.VUIParameters.BitstreamRestrictionFlag {
		if m := s.VUIParameters.MaxDecFrameBuffering; m > n && m <= MaxReferenceFrames {
			n = m
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

// parseScalingMatrix parses n scaling list present flags and any present
// lists into m. Absent lists are inferred using fall-back rule A of table 7-2
// when fallback is nil, and rule B with fallback as the sequence level
// matrix otherwise.
func parseScalingMatrix(br *bits.BitReader, m *ScalingMatrix, n int, fallback *ScalingMatrix) error {
	var l8 [6][64]uint8
	for i := 0; i < n; i++ {
		present, err := br.ReadBits(1)
		if err != nil {
			return errors.Wrap(err, "could not read scaling list present flag")
		}
		if i < 6 {
			def := default4x4Intra
			if i >= 3 {
				def = default4x4Inter
			}
			if present == 1 {
				useDefault, err := scalingList(br, m.List4x4[i][:])
				if err != nil {
					return errors.Wrapf(err, "could not parse 4x4 scaling list %d", i)
				}
				if useDefault {
					m.List4x4[i] = def
				}
				continue
			}
			switch {
			case i == 0 || i == 3:
				if fallback == nil {
					m.List4x4[i] = def
				} else {
					m.List4x4[i] = fallback.List4x4[i]
				}
			default:
				m.List4x4[i] = m.List4x4[i-1]
			}
			continue
		}

		j := i - 6
		def := default8x8Intra
		if j%2 == 1 {
			def = default8x8Inter
		}
		if present == 1 {
			useDefault, err := scalingList(br, l8[j][:])
			if err != nil {
				return errors.Wrapf(err, "could not parse 8x8 scaling list %d", j)
			}
			if useDefault {
				l8[j] = def
			}
		} else {
			switch {
			case j < 2 && fallback == nil:
				l8[j] = def
			case j < 2:
				l8[j] = fallback.List8x8[j]
			default:
				l8[j] = l8[j-2]
			}
		}
		if j < 2 {
			m.List8x8[j] = l8[j]
		}
	}
	return nil
}

// scalingList parses a scaling_list syntax structure as defined in section
// 7.3.2.1.1.1 into list, returning useDefaultScalingMatrixFlag.
func scalingList(br *bits.BitReader, list []uint8) (bool, error) {
	lastScale, nextScale := 8, 8
	for i := range list {
		if nextScale != 0 {
			delta, err := readSe(br)
			if err != nil {
				return false, errors.Wrap(err, "could not parse delta_scale")
			}
			nextScale = (lastScale + delta + 256) % 256
			if i == 0 && nextScale == 0 {
				return true, nil
			}
		}
		if nextScale != 0 {
			list[i] = uint8(nextScale)
		} else {
			list[i] = uint8(lastScale)
		}
		lastScale = int(list[i])
	}
	return false, nil
}

// extendedSAR is the aspect_ratio_idc value for which an explicit sample
// aspect ratio follows, see table E-1.
const extendedSAR = 255

// VUIParameters describes video usability information as defined by section
// E.1.1 in the specifications. Semantics for fields are defined in section
// E.2.1.
type VUIParameters struct {
	AspectRatioInfoPresentFlag         bool
	AspectRatioIDC                     uint8
	SARWidth                           uint32
	SARHeight                          uint32
	OverscanInfoPresentFlag            bool
	OverscanAppropriateFlag            bool
	VideoSignalTypePresentFlag         bool
	VideoFormat                        uint8
	VideoFullRangeFlag                 bool
	ColorDescriptionPresentFlag        bool
	ColorPrimaries                     uint8
	TransferCharacteristics            uint8
	MatrixCoefficients                 uint8
	ChromaLocInfoPresentFlag           bool
	ChromaSampleLocTypeTopField        int
	ChromaSampleLocTypeBottomField     int
	TimingInfoPresentFlag              bool
	NumUnitsInTick                     uint32
	TimeScale                          uint32
	FixedFrameRateFlag                 bool
	NALHRDParameters                   *HRDParameters
	VCLHRDParameters                   *HRDParameters
	LowDelayHRDFlag                    bool
	PicStructPresentFlag               bool
	BitstreamRestrictionFlag           bool
	MotionVectorsOverPicBoundariesFlag bool
	MaxBytesPerPicDenom                int
	MaxBitsPerMBDenom                  int
	Log2MaxMVLengthHorizontal          int
	Log2MaxMVLengthVertical            int
	MaxNumReorderFrames                int
	MaxDecFrameBuffering               int
}

// NewVUIParameters parses video usability information parameters from br
// following the syntax structure specified in section E.1.1, and returns as a
// new VUIParameters.
func NewVUIParameters(br *bits.BitReader) (*VUIParameters, error) {
	p := &VUIParameters{}
	r := newFieldReader(br)

	p.AspectRatioInfoPresentFlag = r.readFlag()
	if p.AspectRatioInfoPresentFlag {
		p.AspectRatioIDC = uint8(r.readBits(8))
		if p.AspectRatioIDC == extendedSAR {
			p.SARWidth = uint32(r.readBits(16))
			p.SARHeight = uint32(r.readBits(16))
		}
	}

	p.OverscanInfoPresentFlag = r.readFlag()
	if p.OverscanInfoPresentFlag {
		p.OverscanAppropriateFlag = r.readFlag()
	}

	p.VideoSignalTypePresentFlag = r.readFlag()
	if p.VideoSignalTypePresentFlag {
		p.VideoFormat = uint8(r.readBits(3))
		p.VideoFullRangeFlag = r.readFlag()
		p.ColorDescriptionPresentFlag = r.readFlag()
		if p.ColorDescriptionPresentFlag {
			p.ColorPrimaries = uint8(r.readBits(8))
			p.TransferCharacteristics = uint8(r.readBits(8))
			p.MatrixCoefficients = uint8(r.readBits(8))
		}
	}

	p.ChromaLocInfoPresentFlag = r.readFlag()
	if p.ChromaLocInfoPresentFlag {
		p.ChromaSampleLocTypeTopField = r.readUe()
		p.ChromaSampleLocTypeBottomField = r.readUe()
	}

	p.TimingInfoPresentFlag = r.readFlag()
	if p.TimingInfoPresentFlag {
		p.NumUnitsInTick = uint32(r.readBits(32))
		p.TimeScale = uint32(r.readBits(32))
		p.FixedFrameRateFlag = r.readFlag()
	}
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read VUI fields")
	}

	var err error
	if r.readFlag() {
		p.NALHRDParameters, err = NewHRDParameters(br)
		if err != nil {
			return nil, errors.Wrap(err, "could not get NAL HRD parameters")
		}
	}
	if r.readFlag() {
		p.VCLHRDParameters, err = NewHRDParameters(br)
		if err != nil {
			return nil, errors.Wrap(err, "could not get VCL HRD parameters")
		}
	}
	if p.NALHRDParameters != nil || p.VCLHRDParameters != nil {
		p.LowDelayHRDFlag = r.readFlag()
	}

	p.PicStructPresentFlag = r.readFlag()
	p.BitstreamRestrictionFlag = r.readFlag()
	if p.BitstreamRestrictionFlag {
		p.MotionVectorsOverPicBoundariesFlag = r.readFlag()
		p.MaxBytesPerPicDenom = r.readUe()
		p.MaxBitsPerMBDenom = r.readUe()
		p.Log2MaxMVLengthHorizontal = r.readUe()
		p.Log2MaxMVLengthVertical = r.readUe()
		p.MaxNumReorderFrames = r.readUe()
		p.MaxDecFrameBuffering = r.readUe()
	}
	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read bitstream restriction fields")
	}
	return p, nil
}

// HRDParameters describes hypothetical reference decoder parameters as defined
// by section E.1.2 in the specifications.
type HRDParameters struct {
	CPBCntMinus1                    int
	BitRateScale                    uint8
	CPBSizeScale                    uint8
	BitRateValueMinus1              []int
	CPBSizeValueMinus1              []int
	CBRFlag                         []bool
	InitialCPBRemovalDelayLenMinus1 uint8
	CPBRemovalDelayLenMinus1        uint8
	DPBOutputDelayLenMinus1         uint8
	TimeOffsetLen                   uint8
}

// NewHRDParameters parses hypothetical reference decoder parameter from br
// following the syntax structure specified in section E.1.2, and returns as a
// new HRDParameters.
func NewHRDParameters(br *bits.BitReader) (*HRDParameters, error) {
	h := &HRDParameters{}
	r := newFieldReader(br)

	h.CPBCntMinus1 = r.readUe()
	if h.CPBCntMinus1 > 31 && r.err() == nil {
		return nil, errors.Errorf("invalid cpb_cnt_minus1: %d", h.CPBCntMinus1)
	}
	h.BitRateScale = uint8(r.readBits(4))
	h.CPBSizeScale = uint8(r.readBits(4))

	for i := 0; i <= h.CPBCntMinus1 && r.err() == nil; i++ {
		h.BitRateValueMinus1 = append(h.BitRateValueMinus1, r.readUe())
		h.CPBSizeValueMinus1 = append(h.CPBSizeValueMinus1, r.readUe())
		h.CBRFlag = append(h.CBRFlag, r.readFlag())
	}

	h.InitialCPBRemovalDelayLenMinus1 = uint8(r.readBits(5))
	h.CPBRemovalDelayLenMinus1 = uint8(r.readBits(5))
	h.DPBOutputDelayLenMinus1 = uint8(r.readBits(5))
	h.TimeOffsetLen = uint8(r.readBits(5))

	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not read HRD parameters")
	}
	return h, nil
}
