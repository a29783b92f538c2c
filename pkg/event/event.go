// Package event provides typed, synchronous event emitters with removable
// subscription handles.
//
// Every call to Emitter.On returns a Subscription. Owners that register
// several handlers collect the handles in a Group and release them together
// on teardown, so registration and removal always come in matched pairs:
//
//	var subs event.Group
//	subs.Add(sys.OnNode(v.onStructure))
//	subs.Add(sel.OnActiveGraph(v.onActiveGraph))
//	...
//	subs.Release() // on unmount
//
// Emitters are not safe for concurrent use. They are meant to be driven from
// a single UI goroutine, where every handler runs to completion before the
// next event is processed.
package event

type handler[T any] struct {
	id uint32
	fn func(T)
}

// Emitter dispatches values of type T to registered handlers in
// registration order.
type Emitter[T any] struct {
	handlers []handler[T]
	nextID   uint32
}

// On registers fn and returns a handle that removes it again.
func (e *Emitter[T]) On(fn func(T)) Subscription {
	if fn == nil {
		return Subscription{}
	}
	e.nextID++
	id := e.nextID
	e.handlers = append(e.handlers, handler[T]{id: id, fn: fn})
	return Subscription{remove: func() { e.remove(id) }}
}

// Emit calls every handler registered at the time of the call. Handlers
// added during dispatch are not called for this value; handlers removed
// during dispatch are skipped if they have not run yet.
func (e *Emitter[T]) Emit(v T) {
	if len(e.handlers) == 0 {
		return
	}
	snapshot := make([]handler[T], len(e.handlers))
	copy(snapshot, e.handlers)
	for _, h := range snapshot {
		if !e.has(h.id) {
			continue
		}
		h.fn(v)
	}
}

// Len returns the number of live handlers.
func (e *Emitter[T]) Len() int {
	return len(e.handlers)
}

func (e *Emitter[T]) has(id uint32) bool {
	for i := range e.handlers {
		if e.handlers[i].id == id {
			return true
		}
	}
	return false
}

func (e *Emitter[T]) remove(id uint32) {
	for i := range e.handlers {
		if e.handlers[i].id == id {
			copy(e.handlers[i:], e.handlers[i+1:])
			e.handlers[len(e.handlers)-1] = handler[T]{}
			e.handlers = e.handlers[:len(e.handlers)-1]
			return
		}
	}
}

// Subscription is a handle to a registered handler.
// The zero value is valid and Remove on it does nothing.
type Subscription struct {
	remove func()
}

// Remove unregisters the handler. Calling Remove more than once is harmless.
func (s *Subscription) Remove() {
	if s.remove == nil {
		return
	}
	fn := s.remove
	s.remove = nil
	fn()
}

// Active reports whether the handle still refers to a registered handler.
func (s Subscription) Active() bool {
	return s.remove != nil
}

// Group owns a set of subscriptions that are released together.
type Group struct {
	subs []Subscription
}

// Add takes ownership of s.
func (g *Group) Add(s Subscription) {
	if !s.Active() {
		return
	}
	g.subs = append(g.subs, s)
}

// Release removes every owned subscription and empties the group.
// Handles are removed in reverse order of acquisition.
func (g *Group) Release() {
	for i := len(g.subs) - 1; i >= 0; i-- {
		g.subs[i].Remove()
	}
	g.subs = nil
}

// Len returns the number of subscriptions currently owned.
func (g *Group) Len() int {
	return len(g.subs)
}
