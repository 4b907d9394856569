// Package device provides the device-side proxy: one Proxy per remote
// device, holding the candidate ports to reach it and the connection
// currently open to it.
//
// # Ports and Reachability
//
// A proxy keeps its port factories in a port.NetPorts. A device is
// reachable when any of its factories is. Adding or removing a port always
// emits PortAdded or PortRemoved; ReachabilityChanged is emitted only when
// the aggregate actually flips. Reachability flags themselves are written by
// an external prober, which then calls NotifyReachabilityChanged.
//
// # Opening
//
// Open selects the reachable factory with the lowest priority value,
// instantiates its port, picks a connection protocol from the proxy's
// connection.Factories and starts the connection. There is no retry. Close
// shuts the connection down together with the connections of all child
// proxies and reports once, with the first error seen.
//
// # Registry
//
// A Cache indexes live proxies by identifier without keeping them alive.
// Proxies are removed when destroyed or collected.
package device
