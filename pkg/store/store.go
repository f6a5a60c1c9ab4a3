// Package store provides handles that lend access to a long-lived value.
//
// Services that hold stable collections take a [Storage] instead of reaching
// for package-level state, so tests can pass an [Owned] value and programs
// that share a collection between goroutines can pass a [Locked] one.
package store

import "sync"

// Storage lends its value to a callback. The pointer must not be retained
// after the callback returns.
type Storage[T any] interface {
	// WithBorrow calls fn with the value for reading.
	WithBorrow(fn func(*T))

	// WithBorrowMut calls fn with the value for writing.
	WithBorrowMut(fn func(*T))
}

// Owned holds a value with no synchronization. It is for single-goroutine
// use.
type Owned[T any] struct {
	value T
}

// NewOwned returns storage holding value.
func NewOwned[T any](value T) *Owned[T] {
	return &Owned[T]{value: value}
}

// WithBorrow implements [Storage].
func (o *Owned[T]) WithBorrow(fn func(*T)) {
	fn(&o.value)
}

// WithBorrowMut implements [Storage].
func (o *Owned[T]) WithBorrowMut(fn func(*T)) {
	fn(&o.value)
}

// Locked guards a value with a [sync.RWMutex]. Readers share the lock;
// writers hold it exclusively.
//
// Collections in this module mutate their in-memory state on some reads (the
// cached map refreshes recency on Get). Borrow such values with
// WithBorrowMut.
type Locked[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewLocked returns storage holding value.
func NewLocked[T any](value T) *Locked[T] {
	return &Locked[T]{value: value}
}

// WithBorrow implements [Storage].
func (l *Locked[T]) WithBorrow(fn func(*T)) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fn(&l.value)
}

// WithBorrowMut implements [Storage].
func (l *Locked[T]) WithBorrowMut(fn func(*T)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn(&l.value)
}

// Read borrows the value of s and returns fn's result.
func Read[T, R any](s Storage[T], fn func(*T) R) R {
	var r R

	s.WithBorrow(func(v *T) {
		r = fn(v)
	})

	return r
}

// Update mutably borrows the value of s and returns fn's result.
func Update[T, R any](s Storage[T], fn func(*T) R) R {
	var r R

	s.WithBorrowMut(func(v *T) {
		r = fn(v)
	})

	return r
}

var (
	_ Storage[int] = (*Owned[int])(nil)
	_ Storage[int] = (*Locked[int])(nil)
)
