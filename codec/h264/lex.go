/*
NAME
  lex.go

DESCRIPTION
  lex.go provides a lexer to lex h264 bytestream into access units.

AUTHOR
  Dan Kortschak <dan@ausocean.org>
  Saxon Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package h264 provides a h264 bytestream lexer that splits a stream into
// access units.
package h264

import (
	"io"
	"time"

	"github.com/ausocean/vdpva/codec/codecutil"
	"github.com/ausocean/vdpva/codec/h264/h264dec"
)

var noDelay = make(chan time.Time)

func init() {
	close(noDelay)
}

// startCode is the prefix written before each NAL unit of an access unit.
var startCode = [...]byte{0x00, 0x00, 0x01}

// Lex lexes H.264 NAL units read from src into access units, each of which is
// written to dst in a single call with successive writes being performed not
// earlier than the specified delay. Each NAL unit of an access unit is
// preceded by a three byte start code. Lex returns io.EOF once src is
// exhausted and the final access unit has been written.
func Lex(dst io.Writer, src io.Reader, delay time.Duration) error {
	var tick <-chan time.Time
	if delay == 0 {
		tick = noDelay
	} else {
		ticker := time.NewTicker(delay)
		defer ticker.Stop()
		tick = ticker.C
	}

	c := codecutil.NewByteScanner(src, make([]byte, 4<<10)) // Standard file buffer size.

	// Anything before the first start code is not a NAL unit.
	_, err := c.ScanUntilStartCode(nil)
	if err != nil {
		return err
	}

	var (
		au     []byte
		nal    []byte
		hasVCL bool
	)
	for {
		nal, err = c.ScanUntilStartCode(nal[:0])
		if err != nil && err != io.EOF {
			return err
		}

		if len(nal) != 0 {
			if hasVCL && startsAccessUnit(nal) {
				<-tick
				_, werr := dst.Write(au)
				if werr != nil {
					return werr
				}
				au = nil
				hasVCL = false
			}
			au = append(au, startCode[:]...)
			au = append(au, nal...)
			if t := nal[0] & 0x1f; t == h264dec.NALTypeNonIDR || t == h264dec.NALTypeIDR {
				hasVCL = true
			}
		}

		if err == io.EOF {
			if len(au) != 0 {
				<-tick
				_, werr := dst.Write(au)
				if werr != nil {
					return werr
				}
			}
			return io.EOF
		}
	}
}

// startsAccessUnit returns true if the NAL unit n can only be the first of
// an access unit when it follows a coded slice, using the conditions of
// section 7.4.1.2.3. Slices are taken to start a new picture when
// first_mb_in_slice is zero.
func startsAccessUnit(n []byte) bool {
	switch n[0] & 0x1f {
	case h264dec.NALTypeSEI, h264dec.NALTypeSPS, h264dec.NALTypePPS, h264dec.NALTypeAccessUnitDelimiter,
		h264dec.NALTypePrefix, h264dec.NALTypeSubsetSPS, h264dec.NALTypeDepthParameterSet, 17, 18:
		return true
	case h264dec.NALTypeNonIDR, h264dec.NALTypeIDR:
		// A first_mb_in_slice of zero is coded as a single set bit.
		return len(n) > 1 && n[1]&0x80 != 0
	default:
		return false
	}
}
