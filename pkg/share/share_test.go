package share

import (
	"sync"
	"testing"
)

func TestShareKeepsLatestValue(t *testing.T) {
	s := New[float64]("heading")
	if s.Written() {
		t.Fatalf("new share should not be written")
	}
	if v := s.Get(); v != 0 {
		t.Fatalf("unwritten share returned %v, expected zero value", v)
	}

	s.Put(1.5)
	s.Put(2.5)
	if v := s.Get(); v != 2.5 {
		t.Fatalf("Get returned %v, expected 2.5", v)
	}
	// Reads are not destructive.
	if v := s.Get(); v != 2.5 {
		t.Fatalf("second Get returned %v, expected 2.5", v)
	}
	if !s.Written() {
		t.Fatalf("share should be written after Put")
	}
}

func TestNewWith(t *testing.T) {
	s := NewWith("distance", 999.0)
	if !s.Written() || s.Get() != 999 {
		t.Fatalf("NewWith share = %v (written %v), expected 999", s.Get(), s.Written())
	}
}

func TestFlagIdempotentPut(t *testing.T) {
	f := NewFlag("finish")
	if f.IsRaised() || !f.IsClear() {
		t.Fatalf("new flag should be clear")
	}

	f.Put()
	f.Put()
	f.Clear()
	if f.IsRaised() {
		t.Fatalf("put; put; clear left the flag raised")
	}

	for i := 0; i < 5; i++ {
		f.Put()
	}
	if !f.IsRaised() {
		t.Fatalf("flag should be raised after put")
	}
	// Queries have no side effects.
	if !f.IsRaised() || f.IsClear() {
		t.Fatalf("querying the flag changed it")
	}
}

func TestGuardedConcurrentWriters(t *testing.T) {
	var g Guarded[int]
	if _, at := g.Load(); !at.IsZero() {
		t.Fatalf("unwritten guarded cell has a write time")
	}

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				g.Put(v)
				_ = g.Get()
			}
		}(i)
	}
	wg.Wait()

	v, at := g.Load()
	if v < 1 || v > 8 {
		t.Fatalf("guarded value %d was never written", v)
	}
	if at.IsZero() {
		t.Fatalf("guarded cell has no write time after Put")
	}
}
