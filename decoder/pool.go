/*
DESCRIPTION
  pool.go provides SurfacePool, the fixed set of hardware decode surface slots
  owned by a decoder, and the binding of video surfaces to those slots.

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

import "github.com/pkg/errors"

// ErrResourcesExhausted is returned when a surface cannot be bound because
// every slot of the pool is in use.
var ErrResourcesExhausted = errors.New("no free decode surface slots")

// SurfacePool maps video surfaces to a fixed number of hardware decode
// surface slots. Slots not bound to a surface are kept on a free list.
//
// SurfacePool does no locking of its own; the owning Decoder's lock must be
// held for every call.
type SurfacePool struct {
	width, height int
	targets       []uint32 // Hardware render target of each slot.
	free          []int
	bound         map[*VideoSurface]int
}

// NewSurfacePool returns a pool of size slots for surfaces of the given
// dimensions, with all slots free. Until targets are assigned by the
// accelerator, the render target of a slot is its index.
func NewSurfacePool(size, width, height int) *SurfacePool {
	p := &SurfacePool{
		width:   width,
		height:  height,
		targets: make([]uint32, size),
		free:    make([]int, size),
		bound:   make(map[*VideoSurface]int),
	}
	for i := range p.free {
		p.free[i] = i
		p.targets[i] = uint32(i)
	}
	return p
}

// setTargets assigns the hardware render targets of the slots.
func (p *SurfacePool) setTargets(t []uint32) error {
	if len(t) != len(p.targets) {
		return errors.Errorf("got %d render targets for %d slots", len(t), len(p.targets))
	}
	copy(p.targets, t)
	return nil
}

// BindOrGet returns the slot bound to s, binding the slot at the back of the
// free list if s has none. ErrResourcesExhausted is returned if no slot is
// free.
func (p *SurfacePool) BindOrGet(s *VideoSurface) (int, error) {
	if slot, ok := p.bound[s]; ok {
		return slot, nil
	}
	if len(p.free) == 0 {
		return -1, ErrResourcesExhausted
	}
	slot := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.bound[s] = slot
	return slot, nil
}

// Release returns the slot bound to s to the free list. Release of a surface
// that is not bound does nothing.
func (p *SurfacePool) Release(s *VideoSurface) {
	slot, ok := p.bound[s]
	if !ok {
		return
	}
	delete(p.bound, s)
	p.free = append(p.free, slot)
}

// Slot returns the slot bound to s, if any.
func (p *SurfacePool) Slot(s *VideoSurface) (int, bool) {
	slot, ok := p.bound[s]
	return slot, ok
}

// Target returns the hardware render target of slot.
func (p *SurfacePool) Target(slot int) uint32 { return p.targets[slot] }

// Size returns the number of slots in the pool.
func (p *SurfacePool) Size() int { return len(p.targets) }

// Free returns the number of unbound slots.
func (p *SurfacePool) Free() int { return len(p.free) }

// Bound returns the number of bound slots.
func (p *SurfacePool) Bound() int { return len(p.bound) }
