// Package port provides the composable port abstraction used to build
// layered protocol stacks, and the per-device registry of port factories
// used to pick a network path.
//
// # Stacks
//
// A stack is a chain of ports. Each layer is a Port to the layer above it
// and owns a child Port below it:
//
//	┌────────────────────────────────┐
//	│   connection (Delegate)        │
//	├────────────────────────────────┤
//	│   framing layer (Layer)        │
//	├────────────────────────────────┤
//	│   stream port (TCP)            │
//	└────────────────────────────────┘
//
// Start and Shutdown propagate down to the base, which performs the real
// I/O and signals back up through the Delegate chain. Delegates are
// non-owning: a port never keeps its delegate alive past teardown.
//
// # Factories and NetPorts
//
// A Factory describes one candidate path to a device: a priority (lower is
// preferred) and a reachability flag maintained by an external prober.
// NetPorts holds the factories known for one device and selects the most
// preferred reachable one.
package port
