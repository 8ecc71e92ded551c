/*
NAME
  payload.go

DESCRIPTION
  payload.go provides functionality for extracting the H.264 elementary stream
  carried by MPEG-TS.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"github.com/Comcast/gots/packet"
	"github.com/Comcast/gots/pes"
	"github.com/pkg/errors"
)

// Extract extracts the H.264 media and PTS of each PES packet in the MPEG-TS
// clip given by p, and returns as a Clip. The PMT PID and video PID are
// learnt from the PAT and PMT in the clip; video packets seen before them are
// dropped, as is data preceding the first payload unit start. The MPEG-TS must
// contain only complete packets. The resultant data is a copy of the original.
func Extract(p []byte) (*Clip, error) {
	l := len(p)
	if l%PacketSize != 0 {
		return nil, ErrInvalidLen
	}

	var (
		clip     = &Clip{backing: make([]byte, 0, l)}
		pmtPID   = -1 // Unknown until a PAT is seen.
		videoPID = -1 // Unknown until a PMT is seen.
		started  bool // True once the first PES header has been seen.
		pkt      packet.Packet
	)

	for i := 0; i < l; i += PacketSize {
		copy(pkt[:], p[i:i+PacketSize])
		pid := pkt.PID()

		switch {
		case pid == PatPid:
			v, err := PMTPID(pkt[:])
			if err != nil {
				return nil, errors.Wrapf(err, "bad PAT at packet %d", i/PacketSize)
			}
			pmtPID = int(v)
		case pid == pmtPID:
			v, err := VideoPID(pkt[:])
			if err != nil {
				return nil, errors.Wrapf(err, "bad PMT at packet %d", i/PacketSize)
			}
			videoPID = int(v)
		case pid == videoPID:
			payload, err := pkt.Payload()
			if err != nil {
				continue // Adaptation field only.
			}

			if pkt.PayloadUnitStartIndicator() {
				hdr, err := pes.NewPESHeader(payload)
				if err != nil {
					return nil, errors.Wrapf(err, "could not parse PES at packet %d", i/PacketSize)
				}
				clip.closeFrame()
				clip.frames = append(clip.frames, Frame{PTS: hdr.PTS(), ID: hdr.StreamId(), idx: len(clip.backing)})
				clip.backing = append(clip.backing, hdr.Data()...)
				started = true
				continue
			}
			if started {
				clip.backing = append(clip.backing, payload...)
			}
		}
	}

	if videoPID == -1 {
		return nil, ErrNoVideo
	}
	clip.closeFrame()
	return clip, nil
}

// Frame describes one PES packet of media.
type Frame struct {
	Media []byte // Contents of the PES packet.
	PTS   uint64 // Presentation timestamp.
	ID    uint8  // PES stream ID.
	idx   int    // Index in the backing slice.
}

// Clip provides the media frames of an MPEG-TS clip. Frame media shares one
// backing slice, so Bytes gives the whole elementary stream without copying.
type Clip struct {
	frames  []Frame
	backing []byte
}

// closeFrame gives the most recent frame the media appended since it began.
func (c *Clip) closeFrame() {
	if len(c.frames) == 0 {
		return
	}
	f := &c.frames[len(c.frames)-1]
	f.Media = c.backing[f.idx:len(c.backing):len(c.backing)]
}

// Frames returns the frames of the clip.
func (c *Clip) Frames() []Frame {
	return c.frames
}

// Bytes returns the concatenated media of all frames.
func (c *Clip) Bytes() []byte {
	if c.backing == nil {
		return nil
	}
	return c.backing[:len(c.backing):len(c.backing)]
}

// Errors used by TrimToPTSRange.
var (
	errPTSRange      = errors.New("PTS interval invalid")
	errPTSLowerBound = errors.New("PTS 'from' cannot be found")
)

// TrimToPTSRange returns the sub Clip holding the frames with PTS in the
// interval [from, to). NB: data is not copied.
func (c *Clip) TrimToPTSRange(from, to uint64) (*Clip, error) {
	if to <= from {
		return nil, errPTSRange
	}

	start := -1
	end := len(c.frames)
	for i, f := range c.frames {
		if start == -1 && f.PTS >= from && f.PTS < to {
			start = i
		}
		if start != -1 && f.PTS >= to {
			end = i
			break
		}
	}
	if start == -1 {
		return nil, errPTSLowerBound
	}

	frames := c.frames[start:end]
	last := frames[len(frames)-1]
	off := frames[0].idx
	sub := &Clip{
		frames:  make([]Frame, len(frames)),
		backing: c.backing[off : last.idx+len(last.Media)],
	}
	for i, f := range frames {
		f.idx -= off
		sub.frames[i] = f
	}
	return sub, nil
}
