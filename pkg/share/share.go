// Package share holds the cells that periodic tasks use to hand data to each
// other.
//
// Share and Flag are not synchronised. They are only safe because every task
// body runs to completion on the scheduler goroutine before the next one
// starts. Anything written from another goroutine (an edge-capture loop, a
// button handler) must go through a Guarded cell instead.
package share

import (
	"sync"
	"time"
)

// Share holds the most recent value put by its producer.
type Share[T any] struct {
	name    string
	value   T
	written bool
}

func New[T any](name string) *Share[T] {
	return &Share[T]{name: name}
}

// NewWith returns a Share that already holds v, as if its producer had put it.
func NewWith[T any](name string, v T) *Share[T] {
	return &Share[T]{name: name, value: v, written: true}
}

func (s *Share[T]) Put(v T) {
	s.value = v
	s.written = true
}

// Get returns the last value put, or the zero value if nothing has been put yet.
func (s *Share[T]) Get() T {
	return s.value
}

// Written reports whether Put has ever been called.
func (s *Share[T]) Written() bool {
	return s.written
}

func (s *Share[T]) Name() string {
	return s.name
}

// Flag is a one-bit latch used for edge-triggered requests between tasks.
// Raising an already raised flag is a no-op.
type Flag struct {
	name   string
	raised bool
}

func NewFlag(name string) *Flag {
	return &Flag{name: name}
}

func (f *Flag) Put() {
	f.raised = true
}

func (f *Flag) Clear() {
	f.raised = false
}

func (f *Flag) IsRaised() bool {
	return f.raised
}

func (f *Flag) IsClear() bool {
	return !f.raised
}

func (f *Flag) Name() string {
	return f.name
}

// Guarded is a latest-value cell that may be written from any goroutine.
type Guarded[T any] struct {
	lock      sync.Mutex
	value     T
	updatedAt time.Time
}

func (g *Guarded[T]) Put(v T) {
	g.lock.Lock()
	g.value = v
	g.updatedAt = time.Now()
	g.lock.Unlock()
}

func (g *Guarded[T]) Get() T {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.value
}

// Load returns the value along with the time it was written. The time is
// zero if nothing has been written yet.
func (g *Guarded[T]) Load() (T, time.Time) {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.value, g.updatedAt
}
