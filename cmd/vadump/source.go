/*
DESCRIPTION
  source.go provides reading of the H.264 elementary stream to be dumped from
  an Annex B or MPEG-TS file.

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

package main

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ausocean/vdpva/container/mts"
	"github.com/ausocean/vdpva/decoder/config"
)

// openSource returns a reader of the H.264 byte stream at c.InputPath.
func openSource(c *config.Config) (io.Reader, error) {
	b, err := os.ReadFile(c.InputPath)
	if err != nil {
		return nil, errors.Wrap(err, "could not read input")
	}
	return elementaryStream(c, b)
}

// elementaryStream returns a reader of the H.264 byte stream carried by b.
// MPEG-TS input is demultiplexed and restricted to the configured PTS range.
func elementaryStream(c *config.Config, b []byte) (io.Reader, error) {
	switch c.Input {
	case config.InputAnnexB:
		return bytes.NewReader(b), nil
	case config.InputMPEGTS:
		clip, err := mts.Extract(b)
		if err != nil {
			return nil, errors.Wrap(err, "could not extract video from MPEG-TS")
		}
		c.Logger.Debug("extracted video", "frames", len(clip.Frames()))
		if c.EndPTS != 0 {
			clip, err = clip.TrimToPTSRange(c.StartPTS, c.EndPTS)
			if err != nil {
				return nil, errors.Wrap(err, "could not trim to PTS range")
			}
			c.Logger.Debug("trimmed to PTS range", "start", c.StartPTS, "end", c.EndPTS, "frames", len(clip.Frames()))
		}
		return bytes.NewReader(clip.Bytes()), nil
	default:
		return nil, errors.Errorf("unknown input type: %d", c.Input)
	}
}
