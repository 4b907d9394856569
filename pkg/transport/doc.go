// Package transport provides concrete ports for medkit stacks.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │  FramePort
//	├────────────────────────────────┤
//	│      TLS (optional)            │
//	├────────────────────────────────┤
//	│           TCP                  │  StreamPort
//	└────────────────────────────────┘
//
// StreamPort is the base of a stack. It dials asynchronously on Start and
// delivers received bytes in whatever chunks the socket returns. FramePort
// sits above it and turns that byte stream into whole frames.
//
// # Reachability
//
// A Prober periodically dials the address of each registered port factory
// and updates its reachability flag. Port selection reads the flag; it
// never probes on its own.
package transport
