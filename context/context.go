// Package context carries a component's runtime context together with
// a small typed-key metadata bag. The acceptor hangs its serve loop
// off the bag's context and keeps its name/bindable metadata in it, so
// a caller can rebuild or inspect the component without reaching into
// its fields.
package context

import (
	"context"

	libatomic "github.com/openbmc-project/bmcweb-core/atomic"
)

// FuncContext supplies the base context; nil means context.Background.
type FuncContext func() context.Context

// Config is a context.Context plus a concurrent key/value bag.
type Config[T comparable] interface {
	context.Context

	// Store sets key. A nil value deletes it.
	Store(key T, val interface{})
	// Load returns the value stored at key.
	Load(key T) (val interface{}, ok bool)
	// Delete removes key.
	Delete(key T)
	// Walk visits every entry until fct returns false.
	Walk(fct func(key T, val interface{}) bool)

	// GetContext returns the live base context.
	GetContext() context.Context
	// SetContext replaces the base context provider.
	SetContext(ctx FuncContext)
}

// NewConfig builds an empty Config over ctx.
func NewConfig[T comparable](ctx FuncContext) Config[T] {
	if ctx == nil {
		ctx = context.Background
	}
	c := &config[T]{
		m: libatomic.NewMapTyped[T, interface{}](),
	}
	c.x.Store(ctx)
	c.Context = ctx()
	return c
}

type config[T comparable] struct {
	context.Context
	x libatomic.Value[FuncContext]
	m libatomic.MapTyped[T, interface{}]
}

func (c *config[T]) Store(key T, val interface{}) {
	if val == nil {
		c.m.Delete(key)
		return
	}
	c.m.Store(key, val)
}

func (c *config[T]) Load(key T) (interface{}, bool) {
	return c.m.Load(key)
}

func (c *config[T]) Delete(key T) {
	c.m.Delete(key)
}

func (c *config[T]) Walk(fct func(key T, val interface{}) bool) {
	if fct == nil {
		return
	}
	c.m.Range(fct)
}

func (c *config[T]) GetContext() context.Context {
	if fct := c.x.Load(); fct != nil {
		if ctx := fct(); ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

func (c *config[T]) SetContext(ctx FuncContext) {
	if ctx == nil {
		ctx = context.Background
	}
	c.x.Store(ctx)
	c.Context = ctx()
}
