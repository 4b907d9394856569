package discovery

import (
	"errors"
	"net"
	"strconv"
)

// Service type constants for mDNS.
const (
	// ServiceType is the medkit service type.
	ServiceType = "_medkit._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default medkit port.
	DefaultPort = 7400
)

// TXT record keys.
const (
	TXTKeyDeviceID = "id"
	TXTKeyProtocol = "proto"
	TXTKeyPriority = "prio"
	TXTKeyName     = "name"
)

// Discovery errors.
var (
	ErrMissingRequired = errors.New("missing required TXT field")
	ErrInvalidPriority = errors.New("invalid priority")
)

// DeviceInfo is the information a device publishes in its TXT records.
type DeviceInfo struct {
	DeviceID string
	Protocol string
	Priority int
	Name     string
}

// Service is a discovered medkit service instance.
type Service struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string
	DeviceInfo
}

// Endpoints returns host:port pairs for every known address, falling back
// to the host name when no address was resolved.
func (s *Service) Endpoints() []string {
	port := strconv.Itoa(int(s.Port))
	if len(s.Addresses) == 0 {
		if s.Host == "" {
			return nil
		}
		return []string{net.JoinHostPort(s.Host, port)}
	}
	out := make([]string, 0, len(s.Addresses))
	for _, addr := range s.Addresses {
		out = append(out, net.JoinHostPort(addr, port))
	}
	return out
}
