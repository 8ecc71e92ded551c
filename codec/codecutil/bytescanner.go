/*
NAME
  bytescanner.go

DESCRIPTION
  bytescanner.go provides a buffered byte scanner for splitting byte streams
  on delimiters and start code prefixes.

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package codecutil provides byte-level scanning utilities for codecs.
package codecutil

import "io"

// ByteScanner is a byte scanner.
type ByteScanner struct {
	buf []byte
	off int

	// r is the source of data for the scanner.
	r io.Reader
}

// NewByteScanner returns a scanner initialised with an io.Reader and a read buffer.
func NewByteScanner(r io.Reader, buf []byte) *ByteScanner {
	return &ByteScanner{r: r, buf: buf[:0]}
}

// ScanUntilStartCode appends bytes from the underlying io.Reader to dst until
// a start code prefix, 0x000001, has been read. The start code and any zero
// bytes immediately preceding it are not included in the result. If the
// reader is exhausted first, the bytes read are returned with io.EOF.
func (c *ByteScanner) ScanUntilStartCode(dst []byte) ([]byte, error) {
	var zeros int
	for {
		b, err := c.ReadByte()
		if err != nil {
			return dst, err
		}
		if b == 0x01 && zeros >= 2 {
			return dst[:len(dst)-zeros], nil
		}
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
		dst = append(dst, b)
	}
}

// ReadByte reads and returns the next byte from the scanner.
func (c *ByteScanner) ReadByte() (byte, error) {
	if c.off >= len(c.buf) {
		err := c.reload()
		if err != nil {
			return 0, err
		}
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// reload re-fills the scanner's buffer.
func (c *ByteScanner) reload() error {
	n, err := c.r.Read(c.buf[:cap(c.buf)])
	c.buf = c.buf[:n]
	if err != nil {
		if err != io.EOF {
			return err
		}
		if n == 0 {
			return io.EOF
		}
	}
	c.off = 0
	return nil
}
