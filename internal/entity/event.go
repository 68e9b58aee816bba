package entity

// Listener is a handle on a single event subscription. Closing it removes
// the subscription; Close is idempotent, and no callback fires after
// Close returns, even when Close is called during dispatch.
type Listener struct {
	detach func()
}

// Close releases the subscription.
func (l *Listener) Close() {
	if l.detach != nil {
		l.detach()
		l.detach = nil
	}
}

// signal is a minimal synchronous event: an ordered list of subscribers
// invoked depth-first on fire. Subscribers may add or remove listeners
// (including themselves) during dispatch: listeners removed mid-dispatch
// are skipped, listeners added mid-dispatch fire on the next event.
type signal[T any] struct {
	nextID  int
	entries []signalEntry[T]
}

type signalEntry[T any] struct {
	id int
	fn T
}

func (s *signal[T]) listen(fn T) *Listener {
	s.nextID++
	id := s.nextID
	s.entries = append(s.entries, signalEntry[T]{id: id, fn: fn})
	return &Listener{detach: func() { s.remove(id) }}
}

func (s *signal[T]) remove(id int) {
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

func (s *signal[T]) find(id int) (T, bool) {
	for _, e := range s.entries {
		if e.id == id {
			return e.fn, true
		}
	}
	var zero T
	return zero, false
}

// fire invokes every subscriber present both when dispatch starts and at
// the moment its turn comes.
func (s *signal[T]) fire(invoke func(T)) {
	if len(s.entries) == 0 {
		return
	}
	ids := make([]int, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.id
	}
	for _, id := range ids {
		if fn, ok := s.find(id); ok {
			invoke(fn)
		}
	}
}

func (s *signal[T]) clear() {
	s.entries = nil
}
