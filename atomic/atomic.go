// Package atomic wraps the standard library's lock-free primitives in
// generic, type-safe holders. Value is the shared interior-mutable
// cell the session store, the TLS context swap, and the cached Date
// header are built on; MapTyped backs every concurrently-mutated map
// in the repository.
package atomic

import (
	"sync"
	"sync/atomic"
)

// Value is a typed atomic cell. Load on a never-stored Value returns
// the zero value of T.
type Value[T any] interface {
	Load() T
	Store(val T)
	Swap(new T) (old T)
}

// NewValue returns an empty Value.
func NewValue[T any]() Value[T] {
	return &val[T]{}
}

// box wraps T so atomic.Value always sees one concrete type, and so
// interface-typed and nil-able values can be stored.
type box[T any] struct {
	v T
}

type val[T any] struct {
	av atomic.Value
}

func (o *val[T]) Load() T {
	if b, ok := o.av.Load().(box[T]); ok {
		return b.v
	}
	var zero T
	return zero
}

func (o *val[T]) Store(v T) {
	o.av.Store(box[T]{v: v})
}

func (o *val[T]) Swap(n T) T {
	if b, ok := o.av.Swap(box[T]{v: n}).(box[T]); ok {
		return b.v
	}
	var zero T
	return zero
}

// MapTyped is a typed view over a concurrent map.
type MapTyped[K comparable, V any] interface {
	Load(key K) (value V, ok bool)
	Store(key K, value V)
	Delete(key K)
	LoadAndDelete(key K) (value V, loaded bool)
	Range(f func(key K, value V) bool)
}

// NewMapTyped returns an empty MapTyped.
func NewMapTyped[K comparable, V any]() MapTyped[K, V] {
	return &mt[K, V]{}
}

type mt[K comparable, V any] struct {
	m sync.Map
}

func (o *mt[K, V]) cast(in any, ok bool) (V, bool) {
	if !ok {
		var zero V
		return zero, false
	}
	v, valid := in.(V)
	return v, valid
}

func (o *mt[K, V]) Load(key K) (V, bool) {
	return o.cast(o.m.Load(key))
}

func (o *mt[K, V]) Store(key K, value V) {
	o.m.Store(key, value)
}

func (o *mt[K, V]) Delete(key K) {
	o.m.Delete(key)
}

func (o *mt[K, V]) LoadAndDelete(key K) (V, bool) {
	return o.cast(o.m.LoadAndDelete(key))
}

func (o *mt[K, V]) Range(f func(key K, value V) bool) {
	o.m.Range(func(k, v any) bool {
		key, okK := k.(K)
		value, okV := v.(V)
		if !okK || !okV {
			return true
		}
		return f(key, value)
	})
}
