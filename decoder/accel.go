/*
DESCRIPTION
  accel.go provides the Accelerator interface through which a decoder drives
  hardware, and Recorder, an Accelerator that records and logs what it is
  given.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package decoder

import (
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/vdpva/codec/h264/h264dec"
	"github.com/ausocean/vdpva/decoder/config"
)

// ErrProfileNotSupported is returned by an Accelerator that cannot decode a
// profile.
var ErrProfileNotSupported = errors.New("profile not supported by accelerator")

// Accelerator is a hardware decoder accepting per-picture and per-slice
// parameter records. Calls for one picture are bracketed by BeginPicture and
// EndPicture.
type Accelerator interface {
	// Profiles returns the profiles the hardware can decode.
	Profiles() []config.Profile

	// CreateConfig selects the profile to decode with, returning
	// ErrProfileNotSupported if it cannot be used.
	CreateConfig(p config.Profile) error

	// CreateContext creates a decode context for pictures of the given
	// dimensions and returns the handles of n render targets.
	CreateContext(width, height, n int) ([]uint32, error)

	BeginPicture(target uint32) error
	RenderPicture(pic *h264dec.PictureInfo) error
	RenderSlice(sp *h264dec.SliceParameters, data []byte) error
	EndPicture() error

	// Destroy frees the context and config.
	Destroy() error
}

// Slice is a slice as given to an Accelerator.
type Slice struct {
	Params h264dec.SliceParameters
	Data   []byte
}

// Picture is a picture as given to an Accelerator.
type Picture struct {
	Target uint32
	Info   h264dec.PictureInfo
	Slices []Slice
}

// Recorder is an Accelerator that keeps each picture it is given and logs the
// calls made to it. It stands in for hardware when inspecting the records a
// decoder produces.
type Recorder struct {
	log      logging.Logger
	profiles []config.Profile
	profile  config.Profile
	targets  int

	cur      *Picture
	Pictures []Picture // Pictures ended since the last call to Reset.
}

// NewRecorder returns a new Recorder supporting the given profiles, or all
// H.264 profiles if none are given.
func NewRecorder(log logging.Logger, profiles ...config.Profile) *Recorder {
	if len(profiles) == 0 {
		profiles = []config.Profile{
			config.ProfileH264ConstrainedBaseline,
			config.ProfileH264Baseline,
			config.ProfileH264Main,
			config.ProfileH264High,
		}
	}
	return &Recorder{log: log, profiles: profiles}
}

// Profiles implements Accelerator.
func (r *Recorder) Profiles() []config.Profile { return r.profiles }

// CreateConfig implements Accelerator.
func (r *Recorder) CreateConfig(p config.Profile) error {
	for _, s := range r.profiles {
		if s == p {
			r.profile = p
			r.log.Debug("created config", "profile", p.String())
			return nil
		}
	}
	return errors.Wrap(ErrProfileNotSupported, p.String())
}

// CreateContext implements Accelerator. Render target handles start at 1.
func (r *Recorder) CreateContext(width, height, n int) ([]uint32, error) {
	if r.profile == config.ProfileNone {
		return nil, errors.New("no config created")
	}
	t := make([]uint32, n)
	for i := range t {
		t[i] = uint32(r.targets + i + 1)
	}
	r.targets += n
	r.log.Debug("created context", "width", width, "height", height, "targets", n)
	return t, nil
}

// BeginPicture implements Accelerator.
func (r *Recorder) BeginPicture(target uint32) error {
	if r.cur != nil {
		return errors.New("picture already begun")
	}
	r.cur = &Picture{Target: target}
	return nil
}

// RenderPicture implements Accelerator.
func (r *Recorder) RenderPicture(pic *h264dec.PictureInfo) error {
	if r.cur == nil {
		return errors.New("no picture begun")
	}
	r.cur.Info = *pic
	r.cur.Info.ReferenceFrames = append([]h264dec.ReferencePicture(nil), pic.ReferenceFrames...)
	return nil
}

// RenderSlice implements Accelerator.
func (r *Recorder) RenderSlice(sp *h264dec.SliceParameters, data []byte) error {
	if r.cur == nil {
		return errors.New("no picture begun")
	}
	r.cur.Slices = append(r.cur.Slices, Slice{Params: *sp, Data: append([]byte(nil), data...)})
	r.log.Debug("slice",
		"target", r.cur.Target,
		"type", h264dec.SliceTypeName(sp.SliceType),
		"frame_num", sp.FrameNum,
		"bytes", len(data),
		"bit_offset", sp.BitOffset,
		"l0", len(sp.RefPicList0),
		"l1", len(sp.RefPicList1),
	)
	return nil
}

// EndPicture implements Accelerator.
func (r *Recorder) EndPicture() error {
	if r.cur == nil {
		return errors.New("no picture begun")
	}
	r.Pictures = append(r.Pictures, *r.cur)
	r.cur = nil
	return nil
}

// Reset discards the recorded pictures.
func (r *Recorder) Reset() { r.Pictures = r.Pictures[:0] }

// Destroy implements Accelerator.
func (r *Recorder) Destroy() error {
	r.profile = config.ProfileNone
	r.cur = nil
	return nil
}
