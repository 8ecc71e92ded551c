/*
NAME
  mpegts_test.go

DESCRIPTION
  mpegts_test.go contains testing for functionality found in mpegts.go, and
  helpers for writing MPEG-TS used by the tests of this package.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"bytes"
	"errors"
	"testing"
)

// PIDs used by the test streams.
const (
	testPMTPID   = 0x1000
	testVideoPID = 0x100
	testAudioPID = 0x101
)

// Stream types used in test PMTs.
const (
	streamTypeH264 = 0x1b
	streamTypeAAC  = 0x0f
)

// crc32MPEG returns the MPEG-2 CRC used by PSI sections.
func crc32MPEG(d []byte) uint32 {
	crc := uint32(0xffffffff)
	for _, b := range d {
		crc ^= uint32(b) << 24
		for i := 0; i < 8; i++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04c11db7
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// tsPacket returns an MPEG-TS packet holding data. Short data is padded with
// adaptation field stuffing so that the payload is exactly data.
func tsPacket(pid uint16, pusi bool, cc byte, data []byte) []byte {
	p := make([]byte, PacketSize)
	p[0] = 0x47
	p[1] = byte(pid>>8) & 0x1f
	if pusi {
		p[1] |= 0x40
	}
	p[2] = byte(pid)
	p[3] = hasPayload | cc&0x0f

	off := HeadSize
	if stuff := PacketSize - HeadSize - len(data); stuff > 0 {
		p[3] |= hasAdaptationField
		p[AdaptationIdx] = byte(stuff - 1)
		if stuff > 1 {
			p[AdaptationIdx+1] = 0x00
			for i := AdaptationIdx + 2; i < HeadSize+stuff; i++ {
				p[i] = 0xff
			}
		}
		off += stuff
	}
	copy(p[off:], data)
	return p
}

// psiPacket returns a packet carrying the PSI section s, with CRC appended
// and the remainder of the packet stuffed.
func psiPacket(pid uint16, s []byte) []byte {
	crc := crc32MPEG(s)
	sec := append([]byte{0x00}, s...) // Pointer field.
	sec = append(sec, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	for len(sec) < PacketSize-HeadSize {
		sec = append(sec, 0xff)
	}
	return tsPacket(pid, true, 0, sec)
}

// patPacket returns a PAT listing one program per PMT PID given.
func patPacket(pmtPIDs ...uint16) []byte {
	l := 5 + 4*len(pmtPIDs) + 4
	s := []byte{0x00, 0xb0 | byte(l>>8), byte(l), 0x00, 0x01, 0xc1, 0x00, 0x00}
	for i, pid := range pmtPIDs {
		s = append(s, 0x00, byte(i+1), 0xe0|byte(pid>>8), byte(pid))
	}
	return psiPacket(PatPid, s)
}

// pmtPacket returns a PMT for program 1 with the given PID to stream type
// pairs.
func pmtPacket(pid uint16, streams ...[2]uint16) []byte {
	l := 9 + 5*len(streams) + 4
	s := []byte{0x02, 0xb0 | byte(l>>8), byte(l), 0x00, 0x01, 0xc1, 0x00, 0x00, 0xe0 | byte(testVideoPID>>8), byte(testVideoPID & 0xff), 0xf0, 0x00}
	for _, st := range streams {
		s = append(s, byte(st[1]), 0xe0|byte(st[0]>>8), byte(st[0]), 0xf0, 0x00)
	}
	return psiPacket(pid, s)
}

// pesPackets returns the MPEG-TS packets carrying data as a PES packet with
// the given PTS.
func pesPackets(pid uint16, pts uint64, data []byte) []byte {
	pes := []byte{
		0x00, 0x00, 0x01, 0xe0, // Start code and stream ID.
		0x00, 0x00, // PES packet length, unbounded for video.
		0x80, 0x80, 0x05, // PTS only, header data length 5.
		0x21 | byte(pts>>29)&0x0e,
		byte(pts >> 22),
		byte(pts>>14)&0xfe | 1,
		byte(pts >> 7),
		byte(pts<<1)&0xfe | 1,
	}
	pes = append(pes, data...)

	var out []byte
	for cc := byte(0); len(pes) > 0; cc++ {
		n := PacketSize - HeadSize
		if n > len(pes) {
			n = len(pes)
		}
		out = append(out, tsPacket(pid, cc == 0, cc, pes[:n])...)
		pes = pes[n:]
	}
	return out
}

// videoPSI returns a PAT and PMT describing one H.264 stream and one AAC
// stream.
func videoPSI() []byte {
	return append(patPacket(testPMTPID), pmtPacket(testPMTPID, [2]uint16{testVideoPID, streamTypeH264}, [2]uint16{testAudioPID, streamTypeAAC})...)
}

func TestFindPid(t *testing.T) {
	clip := append(videoPSI(), pesPackets(testVideoPID, 0, []byte{1, 2, 3})...)

	tests := []struct {
		pid     uint16
		wantIdx int
		wantErr bool
	}{
		{pid: PatPid, wantIdx: 0},
		{pid: testPMTPID, wantIdx: PacketSize},
		{pid: testVideoPID, wantIdx: 2 * PacketSize},
		{pid: testAudioPID, wantIdx: -1, wantErr: true},
	}

	for i, test := range tests {
		pkt, idx, err := FindPid(clip, test.pid)
		if (err != nil) != test.wantErr {
			t.Errorf("did not get expected error for test %d\nGot: %v\nWant error: %v\n", i, err, test.wantErr)
			continue
		}
		if idx != test.wantIdx {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, idx, test.wantIdx)
		}
		if err == nil {
			pid, _ := PID(pkt)
			if pid != test.pid {
				t.Errorf("packet has unexpected PID for test %d\nGot: %v\nWant: %v\n", i, pid, test.pid)
			}
		}
	}

	if _, _, err := FindPid(clip[:10], PatPid); !errors.Is(err, ErrInvalidLen) {
		t.Errorf("expected ErrInvalidLen, got: %v", err)
	}
}

func TestPayload(t *testing.T) {
	tests := []struct {
		data []byte
	}{
		{data: []byte{0xaa}},
		{data: bytes.Repeat([]byte{0xbb}, PacketSize-HeadSize-1)},
		{data: bytes.Repeat([]byte{0xcc}, PacketSize-HeadSize-2)},
		{data: bytes.Repeat([]byte{0xdd}, PacketSize-HeadSize)},
	}

	for i, test := range tests {
		got, err := Payload(tsPacket(testVideoPID, false, 0, test.data))
		if err != nil {
			t.Fatalf("unexpected error %v for test %d", err, i)
		}
		if !bytes.Equal(got, test.data) {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, got, test.data)
		}
	}

	p := tsPacket(testVideoPID, false, 0, nil)
	p[AdaptationControlIdx] &^= hasPayload
	if _, err := Payload(p); !errors.Is(err, ErrNoPayload) {
		t.Errorf("expected ErrNoPayload, got: %v", err)
	}
}

func TestPMTPID(t *testing.T) {
	tests := []struct {
		pat  []byte
		want uint16
		err  error
	}{
		{pat: patPacket(testPMTPID), want: testPMTPID},
		{pat: patPacket(), err: ErrNoPrograms},
		{pat: patPacket(testPMTPID, testPMTPID+1), err: ErrMultiplePrograms},
	}

	for i, test := range tests {
		got, err := PMTPID(test.pat)
		if !errors.Is(err, test.err) {
			t.Errorf("did not get expected error for test %d\nGot: %v\nWant: %v\n", i, err, test.err)
			continue
		}
		if got != test.want {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, got, test.want)
		}
	}
}

func TestVideoPID(t *testing.T) {
	tests := []struct {
		pmt  []byte
		want uint16
		err  error
	}{
		{
			pmt:  pmtPacket(testPMTPID, [2]uint16{testAudioPID, streamTypeAAC}, [2]uint16{testVideoPID, streamTypeH264}),
			want: testVideoPID,
		},
		{
			pmt: pmtPacket(testPMTPID, [2]uint16{testAudioPID, streamTypeAAC}),
			err: ErrNoVideo,
		},
	}

	for i, test := range tests {
		got, err := VideoPID(test.pmt)
		if !errors.Is(err, test.err) {
			t.Errorf("did not get expected error for test %d\nGot: %v\nWant: %v\n", i, err, test.err)
			continue
		}
		if got != test.want {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, got, test.want)
		}
	}
}
