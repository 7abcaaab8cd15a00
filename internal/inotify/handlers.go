package inotify

// Handler is the single contract the dispatcher invokes. The returned error
// is the handler's own business: dispatch continues to later matches no
// matter what a handler reports.
type Handler func(Event) error

type binding struct {
	wd   int
	mask uint32
	fn   Handler
}

// handlerTable holds (wd, mask) bindings in insertion order, which is also
// dispatch order among bindings matching the same event.
type handlerTable struct {
	bindings []binding
}

// attach appends a binding. An existing binding with the identical (wd, mask)
// pair is dropped first, so the replacement takes the newest slot.
func (t *handlerTable) attach(wd int, mask uint32, fn Handler) {
	t.detach(wd, mask)
	t.bindings = append(t.bindings, binding{wd: wd, mask: mask, fn: fn})
}

// detach removes the binding with an exact (wd, mask) match.
func (t *handlerTable) detach(wd int, mask uint32) bool {
	for i, b := range t.bindings {
		if b.wd == wd && b.mask == mask {
			t.bindings = append(t.bindings[:i], t.bindings[i+1:]...)
			return true
		}
	}
	return false
}

// detachAll removes every binding for wd.
func (t *handlerTable) detachAll(wd int) bool {
	found := false
	kept := t.bindings[:0]
	for _, b := range t.bindings {
		if b.wd == wd {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	t.bindings = kept
	return found
}

// dispatch fires every binding whose descriptor matches e and whose mask
// overlaps e's mask, in insertion order. Handler outcomes are ignored.
func (t *handlerTable) dispatch(e Event) {
	for _, b := range t.bindings {
		if b.wd == e.Wd && b.mask&e.Mask != 0 {
			b.fn(e)
		}
	}
}
