// Package syncgroup joins a number of concurrently completing asynchronous
// operations, not known in advance, into a single completion.
//
// A Group starts with one outstanding unit representing the caller. Each
// additional unit is announced with Incr immediately before it is launched,
// and reports back with Decr when it completes. The caller finishes its own
// unit with Close, which also registers the completion:
//
//	g := syncgroup.New()
//	for _, c := range conns {
//		g.Incr()
//		c.Shutdown(nil, g.Decr)
//	}
//	g.Close(func(err error) {
//		// runs once, after every unit completed
//	})
//
// Only the first error reported is delivered; later errors are discarded.
//
// Misuse (unbalanced Decr, Incr after the group finished, registering a
// second completion) is a programming error and panics.
package syncgroup
