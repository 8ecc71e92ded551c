/*
DESCRIPTION
  surface.go provides VideoSurface, the client side handle of a decoded
  picture, and SurfaceTable, which resolves client handles to surfaces.

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
	"sync"

	"github.com/pkg/errors"
)

// ErrUnknownSurface is returned when a handle does not resolve to a surface.
var ErrUnknownSurface = errors.New("unknown video surface")

// SurfaceResolver turns the surface handles held in reference frame lists
// into video surfaces.
type SurfaceResolver interface {
	Resolve(handle uint32) (*VideoSurface, error)
}

// VideoSurface is a client video surface. While a decoder renders into it,
// or uses it for reference, the surface is bound to one of the decoder's
// hardware slots.
type VideoSurface struct {
	Handle        uint32
	Width, Height int

	mu  sync.Mutex
	dec *Decoder // Decoder holding a slot for the surface, if any.
}

// NewVideoSurface returns a new unbound surface.
func NewVideoSurface(handle uint32, width, height int) *VideoSurface {
	return &VideoSurface{Handle: handle, Width: width, Height: height}
}

func (s *VideoSurface) setDecoder(d *Decoder) {
	s.mu.Lock()
	s.dec = d
	s.mu.Unlock()
}

// claim records d as the decoder holding a slot for the surface. It returns
// false if another decoder already holds one.
func (s *VideoSurface) claim(d *Decoder) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dec != nil && s.dec != d {
		return false
	}
	s.dec = d
	return true
}

func (s *VideoSurface) decoder() *Decoder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dec
}

// Destroy releases the decoder slot held by the surface, if any.
func (s *VideoSurface) Destroy() {
	if d := s.decoder(); d != nil {
		d.Release(s)
	}
}

// SurfaceTable is a SurfaceResolver holding the surfaces created by a
// client. It is safe for concurrent use.
type SurfaceTable struct {
	mu   sync.Mutex
	next uint32
	m    map[uint32]*VideoSurface
}

// NewSurfaceTable returns an empty SurfaceTable.
func NewSurfaceTable() *SurfaceTable {
	return &SurfaceTable{next: 1, m: make(map[uint32]*VideoSurface)}
}

// Create adds a new surface of the given dimensions to the table.
func (t *SurfaceTable) Create(width, height int) *VideoSurface {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := NewVideoSurface(t.next, width, height)
	t.m[s.Handle] = s
	t.next++
	return s
}

// Resolve implements SurfaceResolver.
func (t *SurfaceTable) Resolve(handle uint32) (*VideoSurface, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.m[handle]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSurface, "handle %d", handle)
	}
	return s, nil
}

// Destroy destroys the surface with the given handle and removes it from the
// table.
func (t *SurfaceTable) Destroy(handle uint32) error {
	t.mu.Lock()
	s, ok := t.m[handle]
	delete(t.m, handle)
	t.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrUnknownSurface, "handle %d", handle)
	}
	s.Destroy()
	return nil
}

// Len returns the number of surfaces in the table.
func (t *SurfaceTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}
