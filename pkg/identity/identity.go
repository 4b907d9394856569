// Package identity defines the identities and credential kinds that make up
// a principal.
package identity

import (
	"errors"
	"fmt"

	"github.com/medkit-core/medkit-go/pkg/wire"
)

// ErrUnknownType indicates an unrecognised identity or credentials type string.
var ErrUnknownType = errors.New("unknown type")

// Type separates identity namespaces so names of different kinds of
// principal cannot collide.
type Type uint8

const (
	// TypeDevice identifies a device.
	TypeDevice Type = iota
	// TypeOrganization identifies an organization, such as a certificate authority.
	TypeOrganization
	// TypeUser identifies a person.
	TypeUser
)

// String returns the canonical type name.
func (t Type) String() string {
	switch t {
	case TypeDevice:
		return "Device"
	case TypeOrganization:
		return "Organization"
	case TypeUser:
		return "User"
	default:
		return "Unknown"
	}
}

// ParseType parses a canonical type name.
func ParseType(s string) (Type, error) {
	switch s {
	case "Device":
		return TypeDevice, nil
	case "Organization":
		return TypeOrganization, nil
	case "User":
		return TypeUser, nil
	default:
		return 0, fmt.Errorf("%w: identity %q", ErrUnknownType, s)
	}
}

// Identity names a principal within a type namespace. Identities are values;
// changing one means constructing a new one.
type Identity struct {
	Name string
	Type Type
}

// New creates an identity.
func New(name string, t Type) Identity {
	return Identity{Name: name, Type: t}
}

// String returns "Type/name".
func (id Identity) String() string {
	return id.Type.String() + "/" + id.Name
}

// Equal reports whether two identities have the same name and type.
func (id Identity) Equal(other Identity) bool {
	return id.Name == other.Name && id.Type == other.Type
}

// profile is the stable key layout of an identity.
type profile struct {
	Name string `cbor:"name"`
	Type string `cbor:"type"`
}

// Profile returns the identity as a key/value profile.
func (id Identity) Profile() wire.Profile {
	return wire.Profile{
		wire.KeyName: id.Name,
		wire.KeyType: id.Type.String(),
	}
}

// FromProfile reconstructs an identity from a profile.
func FromProfile(p wire.Profile) (Identity, error) {
	name, err := p.String(wire.KeyName)
	if err != nil {
		return Identity{}, err
	}
	typ, err := p.String(wire.KeyType)
	if err != nil {
		return Identity{}, err
	}
	t, err := ParseType(typ)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Name: name, Type: t}, nil
}

// MarshalCBOR encodes the identity with its profile keys.
func (id Identity) MarshalCBOR() ([]byte, error) {
	return wire.Marshal(profile{Name: id.Name, Type: id.Type.String()})
}

// UnmarshalCBOR decodes an identity encoded with its profile keys.
func (id *Identity) UnmarshalCBOR(data []byte) error {
	var p profile
	if err := wire.Unmarshal(data, &p); err != nil {
		return err
	}
	t, err := ParseType(p.Type)
	if err != nil {
		return err
	}
	*id = Identity{Name: p.Name, Type: t}
	return nil
}
