package lib

import "sync"

type IModel interface {
	ID() string
}

// Collection is a typed wrapper around sync.Map keyed by the item ID
type Collection[T IModel] struct {
	items sync.Map
}

func NewCollection[T IModel]() *Collection[T] {
	return &Collection[T]{}
}

func (c *Collection[T]) Load(id string) (item T, ok bool) {
	if val, ok := c.items.Load(id); ok {
		return val.(T), true
	}
	return item, false
}

func (c *Collection[T]) Store(item T) {
	c.items.Store(item.ID(), item)
}

func (c *Collection[T]) Delete(id string) {
	c.items.Delete(id)
}

func (c *Collection[T]) Range(f func(item T) bool) {
	c.items.Range(func(_, value any) bool {
		return f(value.(T))
	})
}

func (c *Collection[T]) Len() int {
	count := 0
	c.items.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
