/*
NAME
  mpegts.go

DESCRIPTION
  mpegts.go provides MPEG-TS packet and program specific information helpers
  used to locate the H.264 elementary stream of a transport stream.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package mts provides MPEG-TS (mts) demultiplexing of H.264 video.
package mts

import (
	gotspsi "github.com/Comcast/gots/psi"
	"github.com/pkg/errors"
)

const PacketSize = 188

// HeadSize is the size of an MPEG-TS packet header.
const HeadSize = 4

// PatPid is the program ID of program association table packets.
const PatPid = 0

// Consts relating to the adaptation field.
const (
	AdaptationIdx         = 4    // Index to the adaptation field (index of AFL).
	AdaptationControlIdx  = 3    // Index to octet with adaptation field control.
	AdaptationControlMask = 0x30 // Mask for the adaptation field control in octet 3.
	hasAdaptationField    = 0x20
	hasPayload            = 0x10
)

// Errors used when finding packets and programs.
var (
	ErrInvalidLen       = errors.New("MPEG-TS data not of valid length")
	ErrMultiplePrograms = errors.New("more than one program not supported")
	ErrNoPrograms       = errors.New("no programs in PAT")
	ErrNoVideo          = errors.New("no H.264 stream in PMT")
	ErrNoPayload        = errors.New("no payload")
)

// FindPid will take a clip of MPEG-TS and try to find a packet with given PID - if one
// is found, then it is returned along with its index, otherwise nil, -1 and an error is returned.
func FindPid(d []byte, pid uint16) (pkt []byte, i int, err error) {
	if len(d) < PacketSize {
		return nil, -1, ErrInvalidLen
	}
	for i = 0; i+PacketSize <= len(d); i += PacketSize {
		p := (uint16(d[i+1]&0x1f) << 8) | uint16(d[i+2])
		if p == pid {
			pkt = d[i : i+PacketSize]
			return
		}
	}
	return nil, -1, errors.Errorf("could not find packet with PID %d", pid)
}

// PID returns the packet identifier for the given packet.
func PID(p []byte) (uint16, error) {
	if len(p) < PacketSize {
		return 0, errors.New("packet length less than 188")
	}
	return uint16(p[1]&0x1f)<<8 | uint16(p[2]), nil
}

// Programs returns a map of program numbers and corresponding PMT PIDs for a
// given MPEG-TS PAT packet. The network PID (program number 0) is left out.
func Programs(p []byte) (map[uint16]uint16, error) {
	pat, err := gotspsi.NewPAT(p)
	if err != nil {
		return nil, err
	}
	m := make(map[uint16]uint16)
	for k, v := range pat.ProgramMap() {
		if k == 0 {
			continue
		}
		m[uint16(k)] = uint16(v)
	}
	return m, nil
}

// PMTPID returns the PMT PID of the single program described by the PAT
// packet p.
func PMTPID(p []byte) (uint16, error) {
	m, err := Programs(p)
	if err != nil {
		return 0, errors.Wrap(err, "could not get programs from PAT")
	}
	switch len(m) {
	case 0:
		return 0, ErrNoPrograms
	case 1:
	default:
		return 0, ErrMultiplePrograms
	}
	for _, pid := range m {
		return pid, nil
	}
	panic("unreachable")
}

// Streams returns elementary streams defined in a given MPEG-TS PMT packet.
func Streams(p []byte) ([]gotspsi.PmtElementaryStream, error) {
	payload, err := Payload(p)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get packet payload")
	}
	pmt, err := gotspsi.NewPMT(payload)
	if err != nil {
		return nil, err
	}
	return pmt.ElementaryStreams(), nil
}

// VideoPID returns the PID of the first H.264 elementary stream described by
// the PMT packet p.
func VideoPID(p []byte) (uint16, error) {
	s, err := Streams(p)
	if err != nil {
		return 0, errors.Wrap(err, "could not get streams from PMT")
	}
	for _, es := range s {
		if es.StreamType() == gotspsi.PmtStreamTypeMpeg4Video {
			return uint16(es.ElementaryPid()), nil
		}
	}
	return 0, ErrNoVideo
}

// Payload returns the payload of an MPEG-TS packet p.
// NB: this is not a copy of the payload in the interests of performance.
func Payload(p []byte) ([]byte, error) {
	if len(p) < PacketSize {
		return nil, ErrInvalidLen
	}
	if p[AdaptationControlIdx]&hasPayload == 0 {
		return nil, ErrNoPayload
	}

	off := HeadSize
	if p[AdaptationControlIdx]&hasAdaptationField != 0 {
		off = HeadSize + 1 + int(p[AdaptationIdx])
	}
	if off >= PacketSize {
		return nil, ErrNoPayload
	}
	return p[off:PacketSize], nil
}
