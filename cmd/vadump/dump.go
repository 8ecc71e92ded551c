/*
DESCRIPTION
  dump.go provides the dumper, which renders each access unit of an H.264
  stream through a decoder backed by a recording accelerator and writes the
  per-picture and per-slice records to an output.

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
	"bytes"
	"fmt"
	"io"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/vdpva/codec/h264"
	"github.com/ausocean/vdpva/codec/h264/h264dec"
	"github.com/ausocean/vdpva/codec/h264/h264dec/bits"
	"github.com/ausocean/vdpva/decoder"
	"github.com/ausocean/vdpva/decoder/config"
)

// startCode separates the NAL units of an access unit as written by the
// lexer.
var startCode = []byte{0x00, 0x00, 0x01}

// dumper is an io.Writer receiving access units. Each access unit holding a
// coded picture is rendered and its records written to out.
type dumper struct {
	cfg config.Config
	log logging.Logger
	out io.Writer

	spss map[int]*h264dec.SPS
	ppss map[int]*h264dec.PPS
	poc  h264dec.POCState

	table *decoder.SurfaceTable
	rec   *decoder.Recorder
	dec   *decoder.Decoder
	dpb   *dpb
	stats *sliceStats

	pictures int
	width    int
	height   int
}

func newDumper(c config.Config, out io.Writer) *dumper {
	t := decoder.NewSurfaceTable()
	return &dumper{
		cfg:   c,
		log:   c.Logger,
		out:   out,
		spss:  make(map[int]*h264dec.SPS),
		ppss:  make(map[int]*h264dec.PPS),
		table: t,
		rec:   decoder.NewRecorder(c.Logger),
		dpb:   newDPB(c.Logger, t),
		stats: newSliceStats(),
	}
}

// Write implements io.Writer. Parameter sets in au are stored and the
// picture, if any, is rendered. Errors with the stream are logged and the
// access unit is skipped; only errors writing the output are returned.
func (d *dumper) Write(au []byte) (int, error) {
	var first []byte
	for _, nal := range bytes.Split(au, startCode) {
		if len(nal) == 0 {
			continue
		}
		switch int(nal[0] & 0x1f) {
		case h264dec.NALTypeSPS:
			sps, err := h264dec.NewSPS(bits.NewBitReader(nal[1:]))
			if err != nil {
				d.log.Warning("could not parse SPS", "error", err.Error())
				continue
			}
			d.spss[sps.SPSID] = sps
			d.log.Debug("got SPS", "id", sps.SPSID, "profile_idc", sps.ProfileIDC, "width", sps.Width(), "height", sps.Height())
		case h264dec.NALTypePPS:
			pps, err := h264dec.NewPPS(bits.NewBitReader(nal[1:]), d.spss)
			if err != nil {
				d.log.Warning("could not parse PPS", "error", err.Error())
				continue
			}
			d.ppss[pps.ID] = pps
			d.log.Debug("got PPS", "id", pps.ID, "sps_id", pps.SPSID)
		case h264dec.NALTypeNonIDR, h264dec.NALTypeIDR:
			if first == nil {
				first = nal
			}
		}
	}
	if first == nil {
		return len(au), nil
	}

	err := d.picture(first, au)
	var werr *writeError
	if errors.As(err, &werr) {
		return 0, werr.err
	}
	if err != nil {
		d.log.Error("could not render picture", "picture", d.pictures, "error", err.Error())
	}
	d.pictures++
	return len(au), nil
}

// writeError wraps an error writing to the output.
type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }

// picture renders the access unit au whose first slice is nal.
func (d *dumper) picture(nal, au []byte) error {
	br := bits.NewBitReader(nal)
	ppsID, err := h264dec.PeekPPSID(*br)
	if err != nil {
		return errors.Wrap(err, "could not read PPS ID")
	}
	pps, ok := d.ppss[ppsID]
	if !ok {
		return errors.Errorf("no PPS with ID %d", ppsID)
	}
	sps, ok := d.spss[pps.SPSID]
	if !ok {
		return errors.Wrapf(h264dec.ErrMissingSPS, "seq_parameter_set_id %d", pps.SPSID)
	}

	err = d.ensureDecoder(sps)
	if err != nil {
		return err
	}
	d.dpb.setMax(sps.MaxNumRefFrames)

	info := h264dec.NewPictureInfo(sps, pps)
	if int(nal[0]&0x1f) != h264dec.NALTypeIDR {
		info.ReferenceFrames = d.dpb.refs()
	}

	sp, err := h264dec.ParseSliceHeader(br, info, info.ReferenceFrames, int(d.cfg.MaxReferences))
	if err != nil {
		return errors.Wrap(err, "could not parse first slice header")
	}
	top, bottom, err := d.poc.Compute(sps, &sp.SliceHeader)
	if err != nil {
		return errors.Wrap(err, "could not compute picture order count")
	}
	info.FrameNum = sp.FrameNum
	info.FieldPic = sp.FieldPic
	info.BottomField = sp.BottomField
	info.IsReference = sp.NALUnit.RefIdc != 0
	info.CurrPic.TopPOC = top
	info.CurrPic.BottomPOC = bottom

	target := d.table.Create(d.width, d.height)
	err = d.dec.Render(target, info, au)
	if err != nil {
		d.table.Destroy(target.Handle)
		d.rec.Reset()
		return errors.Wrap(err, "could not render")
	}
	d.dpb.mark(target.Handle, info, &sp.SliceHeader)

	for _, p := range d.rec.Pictures {
		err = d.writePicture(target.Handle, &p)
		if err != nil {
			return &writeError{err}
		}
	}
	d.rec.Reset()
	return nil
}

// ensureDecoder creates the decoder if it has not yet been created. Unset
// dimensions and profile are taken from sps.
func (d *dumper) ensureDecoder(sps *h264dec.SPS) error {
	if d.dec != nil {
		if sps.Width() != d.width || sps.Height() != d.height {
			d.log.Warning("SPS dimensions differ from decoder", "sps", fmt.Sprintf("%dx%d", sps.Width(), sps.Height()), "decoder", fmt.Sprintf("%dx%d", d.width, d.height))
		}
		return nil
	}

	c := d.cfg
	if c.Width == 0 || c.Height == 0 {
		c.Width, c.Height = uint(sps.Width()), uint(sps.Height())
	}
	if c.Profile == config.ProfileNone {
		c.Profile = config.ProfileForIDC(sps.ProfileIDC, sps.Constraint[1])
	}
	if sps.DPBSize()+1 > int(c.PoolSize) {
		d.log.Warning("pool may be too small for stream", "dpb_size", sps.DPBSize(), "pool_size", c.PoolSize)
	}

	dec, err := decoder.New(c, d.rec, d.table)
	if err != nil {
		return errors.Wrap(err, "could not create decoder")
	}
	d.dec = dec
	d.width, d.height = int(c.Width), int(c.Height)
	return nil
}

// writePicture writes the records for a rendered picture held in the surface
// with the given handle.
func (d *dumper) writePicture(handle uint32, p *decoder.Picture) error {
	var refs int
	for _, r := range p.Info.ReferenceFrames {
		if r.Surface != h264dec.InvalidSurface {
			refs++
		}
	}
	_, err := fmt.Fprintf(d.out, "picture %d: surface=%d target=%d frame_num=%d poc=%d/%d ref=%t refs=%d\n",
		d.pictures, handle, p.Target, p.Info.FrameNum, p.Info.CurrPic.TopPOC, p.Info.CurrPic.BottomPOC, p.Info.IsReference, refs)
	if err != nil {
		return err
	}
	for i, s := range p.Slices {
		typ := h264dec.SliceTypeName(s.Params.SliceType)
		d.stats.add(typ, len(s.Data))
		_, err = fmt.Fprintf(d.out, "  slice %d: type=%s first_mb=%d bytes=%d bit_offset=%d l0=%v l1=%v\n",
			i, typ, s.Params.FirstMbInSlice, len(s.Data), s.Params.BitOffset, surfaces(s.Params.RefPicList0), surfaces(s.Params.RefPicList1))
		if err != nil {
			return err
		}
	}
	return nil
}

// surfaces returns the surfaces of the entries of a reference picture list.
func surfaces(l []h264dec.ReferencePicture) []uint32 {
	s := make([]uint32, 0, len(l))
	for _, p := range l {
		s = append(s, p.Surface)
	}
	return s
}

// close releases the decoder and its surfaces and writes the slice
// statistics.
func (d *dumper) close() error {
	d.dpb.flush()
	if d.dec != nil {
		err := d.dec.Destroy()
		if err != nil {
			return err
		}
	}
	return d.stats.report(d.out)
}

// dump decodes the input described by c, writing records to out.
func dump(c config.Config, out io.Writer) error {
	src, err := openSource(&c)
	if err != nil {
		return err
	}
	d := newDumper(c, out)
	err = h264.Lex(d, src, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		d.close()
		return errors.Wrap(err, "could not lex input")
	}
	c.Logger.Info("dumped input", "path", c.InputPath, "pictures", d.pictures)
	return d.close()
}
