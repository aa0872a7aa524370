package observe

import "sync"

// Hub fans state snapshots out to subscribers in registration order.
// Subscribers run synchronously on the publishing goroutine, outside any
// lock held by the hub, so they may call back into the publisher.
type Hub[T any] struct {
	mu    sync.Mutex
	next  int
	order []int
	funcs map[int]func(T)
}

// Subscribe registers fn and returns a func that removes it.
func (h *Hub[T]) Subscribe(fn func(T)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.funcs == nil {
		h.funcs = map[int]func(T){}
	}
	id := h.next
	h.next++
	h.funcs[id] = fn
	h.order = append(h.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.funcs, id)
			for i, v := range h.order {
				if v == id {
					h.order = append(h.order[:i], h.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers v to every current subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	funcs := make([]func(T), 0, len(h.order))
	for _, id := range h.order {
		funcs = append(funcs, h.funcs[id])
	}
	h.mu.Unlock()

	for _, fn := range funcs {
		fn(v)
	}
}

// Len reports the number of subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.order)
}
