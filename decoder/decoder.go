/*
DESCRIPTION
  decoder.go provides Decoder, which renders H.264 pictures through a hardware
  Accelerator. For each picture the bitstream is walked NAL unit by NAL unit,
  slice headers are parsed and the resulting slice parameter records are
  handed to the accelerator along with the slice data.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package decoder provides an H.264 decoder that parses slice headers and
// manages decode surfaces, leaving macroblock decoding to an Accelerator.
package decoder

import (
	"bytes"
	"sync"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/vdpva/codec/h264/h264dec"
	"github.com/ausocean/vdpva/codec/h264/h264dec/bits"
	"github.com/ausocean/vdpva/decoder/config"
)

// Errors returned by New and Render.
var (
	ErrInvalidProfile = errors.New("invalid decoder profile")
	ErrInvalidSize    = errors.New("invalid picture dimensions")
	ErrNoSlices       = errors.New("no slices in bitstream")
	ErrSurfaceInUse   = errors.New("surface bound to another decoder")
)

// Decoder limits reported by QueryCapabilities.
const (
	maxLevel       = 51
	maxMacroblocks = 16384
	maxWidth       = 2048
	maxHeight      = 2048
)

// fallback gives the order in which H.264 profiles are tried. A requested
// profile may be decoded with any profile that follows it.
var fallback = []config.Profile{
	config.ProfileH264ConstrainedBaseline,
	config.ProfileH264Baseline,
	config.ProfileH264Main,
	config.ProfileH264High,
}

// fallbackFrom returns the profiles that may be used to decode p, in order
// of preference.
func fallbackFrom(p config.Profile) []config.Profile {
	for i, f := range fallback {
		if f == p {
			return fallback[i:]
		}
	}
	return nil
}

// Capabilities describes the limits of decoding with a profile.
type Capabilities struct {
	Supported      bool
	MaxLevel       int
	MaxMacroblocks int
	MaxWidth       int
	MaxHeight      int
}

// QueryCapabilities returns the capabilities of decoding profile p with the
// accelerator a.
func QueryCapabilities(a Accelerator, p config.Profile) Capabilities {
	var supported bool
	for _, f := range fallbackFrom(p) {
		for _, s := range a.Profiles() {
			if f == s {
				supported = true
			}
		}
	}
	if !supported {
		return Capabilities{}
	}
	return Capabilities{
		Supported:      true,
		MaxLevel:       maxLevel,
		MaxMacroblocks: maxMacroblocks,
		MaxWidth:       maxWidth,
		MaxHeight:      maxHeight,
	}
}

// Decoder renders pictures into video surfaces. Each decoder holds a pool of
// hardware surface slots to which target and reference surfaces are bound.
// A Decoder is safe for concurrent use.
type Decoder struct {
	mu       sync.Mutex
	log      logging.Logger
	accel    Accelerator
	resolver SurfaceResolver
	profile  config.Profile // Requested profile.
	hw       config.Profile // Profile used by the accelerator.
	width    int
	height   int
	maxRefs  int
	pool     *SurfacePool
}

// New returns a new Decoder using the profile, dimensions, reference limit and
// pool size given by c. The first profile at or after c.Profile in the order
// constrained baseline, baseline, main, high that the accelerator accepts is
// used. Reference frame handles given to Render are resolved with r.
func New(c config.Config, a Accelerator, r SurfaceResolver) (*Decoder, error) {
	err := c.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if !c.Profile.IsH264() {
		return nil, errors.Wrap(ErrInvalidProfile, c.Profile.String())
	}
	if c.Width == 0 || c.Height == 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "%dx%d", c.Width, c.Height)
	}

	d := &Decoder{
		log:      c.Logger,
		accel:    a,
		resolver: r,
		profile:  c.Profile,
		width:    int(c.Width),
		height:   int(c.Height),
		maxRefs:  int(c.MaxReferences),
		pool:     NewSurfacePool(int(c.PoolSize), int(c.Width), int(c.Height)),
	}

	for _, p := range fallbackFrom(c.Profile) {
		err = a.CreateConfig(p)
		if err == nil {
			d.hw = p
			break
		}
		if !errors.Is(err, ErrProfileNotSupported) {
			return nil, errors.Wrap(err, "could not create config")
		}
		d.log.Debug("profile not supported, trying next", "profile", p.String())
	}
	if d.hw == config.ProfileNone {
		return nil, errors.Wrapf(ErrInvalidProfile, "no accelerator support for %s", c.Profile)
	}
	if d.hw != d.profile {
		d.log.Info("using fallback profile", "requested", d.profile.String(), "using", d.hw.String())
	}

	targets, err := a.CreateContext(d.width, d.height, d.pool.Size())
	if err != nil {
		return nil, errors.Wrap(err, "could not create context")
	}
	err = d.pool.setTargets(targets)
	if err != nil {
		return nil, err
	}

	d.log.Info("created decoder", "profile", d.hw.String(), "width", d.width, "height", d.height, "slots", d.pool.Size())
	return d, nil
}

// Parameters returns the profile requested when the decoder was created and
// the picture dimensions.
func (d *Decoder) Parameters() (profile config.Profile, width, height int) {
	return d.profile, d.width, d.height
}

// Render decodes a picture into target. info describes the picture; its
// ReferenceFrames hold surface handles that are resolved with the decoder's
// SurfaceResolver, and entries with InvalidSurface or no reference kind are
// unused. The bitstream may be given in several chunks, which are joined.
//
// NAL units other than coded slices are skipped. Errors from slice header
// parsing are returned after the picture is ended; slices before the error
// will have been submitted.
func (d *Decoder) Render(target *VideoSurface, info *h264dec.PictureInfo, bufs ...[]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data := bytes.Join(bufs, nil)

	pic := *info
	slot, err := d.bind(target)
	if err != nil {
		return errors.Wrap(err, "could not bind target surface")
	}
	pic.CurrPic = currentPicture(info, d.pool.Target(slot))

	pic.ReferenceFrames = make([]h264dec.ReferencePicture, 0, len(info.ReferenceFrames))
	for _, ref := range info.ReferenceFrames {
		if ref.Surface == h264dec.InvalidSurface || ref.Kind == h264dec.NotReference {
			pic.ReferenceFrames = append(pic.ReferenceFrames, h264dec.ReferencePicture{Surface: h264dec.InvalidSurface})
			continue
		}
		s, err := d.resolver.Resolve(ref.Surface)
		if err != nil {
			return errors.Wrap(err, "could not resolve reference surface")
		}
		slot, err := d.bind(s)
		if err != nil {
			return errors.Wrap(err, "could not bind reference surface")
		}
		ref.Surface = d.pool.Target(slot)
		pic.ReferenceFrames = append(pic.ReferenceFrames, ref)
	}

	err = d.accel.BeginPicture(pic.CurrPic.Surface)
	if err != nil {
		return errors.Wrap(err, "could not begin picture")
	}
	err = d.accel.RenderPicture(&pic)
	if err != nil {
		err = errors.Wrap(err, "could not render picture parameters")
	}

	var n int
	if err == nil {
		n, err = d.renderSlices(&pic, data)
	}

	endErr := d.accel.EndPicture()
	if err != nil {
		return err
	}
	if endErr != nil {
		return errors.Wrap(endErr, "could not end picture")
	}
	d.log.Debug("rendered picture", "surface", target.Handle, "frame_num", info.FrameNum, "slices", n)
	return nil
}

// currentPicture returns the description of the picture being decoded into
// the render target t.
func currentPicture(info *h264dec.PictureInfo, t uint32) h264dec.ReferencePicture {
	p := h264dec.ReferencePicture{
		Surface:   t,
		FrameIdx:  info.FrameNum,
		TopPOC:    info.CurrPic.TopPOC,
		BottomPOC: info.CurrPic.BottomPOC,
	}
	if info.IsReference {
		p.Kind = h264dec.ShortTerm
	}
	switch {
	case info.FieldPic && info.BottomField:
		p.Field = h264dec.BottomOnly
	case info.FieldPic:
		p.Field = h264dec.TopOnly
	}
	return p
}

// renderSlices parses the header of each slice NAL unit in data and gives
// the slice to the accelerator. The number of slices rendered is returned.
func (d *Decoder) renderSlices(pic *h264dec.PictureInfo, data []byte) (int, error) {
	br := bits.NewBitReader(data)
	var n int
	for {
		_, err := br.NavigateToNALUnit()
		if errors.Is(err, bits.ErrNoStartCode) {
			break
		}
		if err != nil {
			return n, errors.Wrap(err, "could not find NAL unit")
		}

		start := br.Offset()
		end := nalEnd(data, start)

		c := *br
		c.ResetBitCounter()
		sp, err := h264dec.ParseSliceHeader(&c, pic, pic.ReferenceFrames, d.maxRefs)
		if errors.Is(err, h264dec.ErrNotSlice) {
			continue
		}
		if err != nil {
			return n, errors.Wrapf(err, "could not parse slice header at byte %d", start)
		}

		err = d.accel.RenderSlice(sp, data[start:end])
		if err != nil {
			return n, errors.Wrap(err, "could not render slice")
		}
		n++
	}
	if n == 0 {
		return 0, ErrNoSlices
	}
	return n, nil
}

// nalEnd returns the index following the last byte of the NAL unit starting
// at start, i.e. the start of the next start code, less any zero bytes
// preceding it, or the end of data.
func nalEnd(data []byte, start int) int {
	i := bytes.Index(data[start:], []byte{0x00, 0x00, 0x01})
	if i < 0 {
		return len(data)
	}
	end := start + i
	for end > start && data[end-1] == 0x00 {
		end--
	}
	return end
}

// bind binds s to a slot. The decoder lock must be held.
func (d *Decoder) bind(s *VideoSurface) (int, error) {
	if slot, ok := d.pool.Slot(s); ok {
		return slot, nil
	}
	if !s.claim(d) {
		return -1, errors.Wrapf(ErrSurfaceInUse, "surface %d", s.Handle)
	}
	slot, err := d.pool.BindOrGet(s)
	if err != nil {
		s.setDecoder(nil)
		return -1, errors.Wrapf(err, "surface %d", s.Handle)
	}
	d.log.Debug("bound surface", "surface", s.Handle, "slot", slot, "free", d.pool.Free())
	return slot, nil
}

// Release releases the slot held by s, if any.
func (d *Decoder) Release(s *VideoSurface) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pool.Slot(s); !ok {
		return
	}
	d.pool.Release(s)
	s.setDecoder(nil)
	d.log.Debug("released surface", "surface", s.Handle, "free", d.pool.Free())
}

// Free returns the number of unbound surface slots.
func (d *Decoder) Free() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pool.Free()
}

// Destroy releases all bound surfaces and destroys the accelerator context.
func (d *Decoder) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for s := range d.pool.bound {
		d.pool.Release(s)
		s.setDecoder(nil)
	}
	err := d.accel.Destroy()
	if err != nil {
		return errors.Wrap(err, "could not destroy accelerator")
	}
	d.log.Info("destroyed decoder")
	return nil
}
