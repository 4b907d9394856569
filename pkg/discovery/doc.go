// Package discovery finds medkit devices on the local network via mDNS and
// turns them into port factories on device proxies.
//
// Devices advertise the _medkit._tcp service with TXT records:
//
//	id     device identifier (required)
//	proto  connection protocol identifier (optional)
//	prio   port priority, lower is preferred (optional, default 0)
//	name   human-readable device name (optional)
//
// A Binder consumes browse events. For every advertised endpoint it adds a
// reachable TCP port factory to the device's proxy, creating the proxy if
// needed, and removes the factory again when the service goes away.
package discovery
