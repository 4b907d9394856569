// Package connection binds a port to a remote device as an active session.
//
// # Lifecycle
//
//	CONSTRUCTED ──Start──▶ ACTIVE ──Shutdown / remote close──▶ CLOSING ──▶ CLOSED
//	     │                                                                   ▲
//	     └──────────────── port closed before start-up ──────────────────────┘
//
// A connection becomes ACTIVE when its port reports start-up. It moves to
// CLOSING when shutdown is initiated locally or the port reports a close,
// and to CLOSED, which is terminal, once the port has gone away.
//
// # Protocol Selection
//
// Connection constructors are registered per protocol identifier in a
// Factories table. Selection follows the same convention as port
// selection: the lowest priority value among factories that accept the
// port wins.
//
// A Connection carries an optional principal for later authorization. It
// is not checked here.
//
// This package performs no reconnection: callers own retries.
package connection
