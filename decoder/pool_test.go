/*
DESCRIPTION
  pool_test.go provides testing for the SurfacePool found in pool.go.

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
	"errors"
	"math/rand"
	"testing"
)

// TestSurfacePoolInvariant checks that free and bound slots always account
// for the whole pool, and that no slot is bound to two surfaces, over a
// random sequence of binds and releases.
func TestSurfacePoolInvariant(t *testing.T) {
	const (
		size     = 5
		surfaces = 8
		ops      = 1000
	)

	rng := rand.New(rand.NewSource(1))
	p := NewSurfacePool(size, 320, 240)
	s := make([]*VideoSurface, surfaces)
	for i := range s {
		s[i] = NewVideoSurface(uint32(i+1), 320, 240)
	}

	for i := 0; i < ops; i++ {
		v := s[rng.Intn(surfaces)]
		if rng.Intn(2) == 0 {
			prev, wasBound := p.Slot(v)
			slot, err := p.BindOrGet(v)
			switch {
			case errors.Is(err, ErrResourcesExhausted):
				if p.Free() != 0 {
					t.Fatalf("exhausted with %d free slots at op %d", p.Free(), i)
				}
			case err != nil:
				t.Fatalf("unexpected error at op %d: %v", i, err)
			case wasBound && slot != prev:
				t.Fatalf("rebinding changed slot at op %d\nGot: %d\nWant: %d\n", i, slot, prev)
			}
		} else {
			p.Release(v)
		}

		if p.Free()+p.Bound() != size {
			t.Fatalf("slots not accounted for at op %d\nGot: %d free, %d bound\nWant total: %d\n", i, p.Free(), p.Bound(), size)
		}
		seen := make(map[int]bool)
		for _, v := range s {
			slot, ok := p.Slot(v)
			if !ok {
				continue
			}
			if seen[slot] {
				t.Fatalf("slot %d bound twice at op %d", slot, i)
			}
			seen[slot] = true
		}
	}
}

func TestSurfacePoolExhaustion(t *testing.T) {
	const size = 4
	p := NewSurfacePool(size, 320, 240)

	var s []*VideoSurface
	for i := 0; i <= size; i++ {
		s = append(s, NewVideoSurface(uint32(i+1), 320, 240))
	}
	for i := 0; i < size; i++ {
		_, err := p.BindOrGet(s[i])
		if err != nil {
			t.Fatalf("unexpected error binding surface %d: %v", i, err)
		}
	}

	_, err := p.BindOrGet(s[size])
	if !errors.Is(err, ErrResourcesExhausted) {
		t.Fatalf("expected ErrResourcesExhausted, got: %v", err)
	}

	// Surfaces already bound keep their slots.
	_, err = p.BindOrGet(s[0])
	if err != nil {
		t.Errorf("unexpected error for bound surface: %v", err)
	}

	p.Release(s[1])
	_, err = p.BindOrGet(s[size])
	if err != nil {
		t.Errorf("unexpected error after release: %v", err)
	}
}

func TestSurfacePoolRelease(t *testing.T) {
	p := NewSurfacePool(2, 320, 240)
	a := NewVideoSurface(1, 320, 240)
	b := NewVideoSurface(2, 320, 240)

	// Release of an unbound surface does nothing.
	p.Release(a)
	if p.Free() != 2 {
		t.Fatalf("did not get expected free count\nGot: %d\nWant: 2\n", p.Free())
	}

	slotA, _ := p.BindOrGet(a)
	if slotA != 1 {
		t.Errorf("expected slot from back of free list\nGot: %d\nWant: 1\n", slotA)
	}
	p.Release(a)
	slotB, _ := p.BindOrGet(b)
	if slotB != slotA {
		t.Errorf("expected released slot to be reused\nGot: %d\nWant: %d\n", slotB, slotA)
	}
	if _, ok := p.Slot(a); ok {
		t.Error("released surface still bound")
	}
}
