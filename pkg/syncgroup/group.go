package syncgroup

import "sync"

// Group joins asynchronous units into one completion. The zero value is not
// usable; call New.
type Group struct {
	mu         sync.Mutex
	count      int
	err        error
	completion func(error)
	closed     bool
}

// New creates a group with one outstanding unit, the caller's own.
func New() *Group {
	return &Group{count: 1}
}

// Incr announces one more outstanding unit. Call it once, immediately before
// launching the unit.
func (g *Group) Incr() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.count <= 0 {
		panic("syncgroup: Incr after group completed")
	}
	g.count++
}

// Decr reports completion of one unit. The first non-nil err reported to the
// group is kept; later errors are discarded.
func (g *Group) Decr(err error) {
	if fire := g.decr(err); fire != nil {
		fire()
	}
}

// Close registers completion and finishes the caller's own unit. completion
// runs exactly once, after the last unit completed, with the first recorded
// error or nil.
func (g *Group) Close(completion func(error)) {
	if completion == nil {
		panic("syncgroup: nil completion")
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		panic("syncgroup: Close called twice")
	}
	g.closed = true
	g.completion = completion
	g.mu.Unlock()

	g.Decr(nil)
}

// Go launches fn as an additional unit on its own goroutine and reports its
// result with Decr.
func (g *Group) Go(fn func() error) {
	g.Incr()
	go func() {
		g.Decr(fn())
	}()
}

// Pending returns the number of outstanding units.
func (g *Group) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// decr performs the decrement and zero check under the lock. It returns the
// call that fires the completion when this decrement finished the group; at
// most one caller ever receives it.
func (g *Group) decr(err error) func() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.count <= 0 {
		panic("syncgroup: Decr without outstanding unit")
	}
	if g.err == nil {
		g.err = err
	}
	g.count--
	if g.count > 0 {
		return nil
	}
	if g.completion == nil {
		// The caller's own unit is only released by Close, which sets the
		// completion first. Reaching zero without one means Decr outnumbered Incr.
		panic("syncgroup: group completed before Close")
	}

	completion, result := g.completion, g.err
	g.completion = nil
	return func() { completion(result) }
}
