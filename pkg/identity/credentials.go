package identity

import "fmt"

// CredentialsType is the kind of credential a principal authenticates with.
type CredentialsType uint8

const (
	// CredentialsNull means no credential.
	CredentialsNull CredentialsType = iota
	// CredentialsPublicKey means a public/private key pair.
	CredentialsPublicKey
	// CredentialsSharedSecret means a pre-shared secret.
	CredentialsSharedSecret
)

// String returns the canonical name.
func (c CredentialsType) String() string {
	switch c {
	case CredentialsNull:
		return "Null"
	case CredentialsPublicKey:
		return "Public Key"
	case CredentialsSharedSecret:
		return "Shared Secret"
	default:
		return "Unknown"
	}
}

// ParseCredentialsType parses a canonical credentials name.
func ParseCredentialsType(s string) (CredentialsType, error) {
	switch s {
	case "Null":
		return CredentialsNull, nil
	case "Public Key":
		return CredentialsPublicKey, nil
	case "Shared Secret":
		return CredentialsSharedSecret, nil
	default:
		return 0, fmt.Errorf("%w: credentials %q", ErrUnknownType, s)
	}
}

// Principal is an identity together with the kind of credential it
// presents. Connections carry it for later authorization; nothing here
// validates it.
type Principal struct {
	Identity    Identity
	Credentials CredentialsType
}

// String returns a human-readable description.
func (p Principal) String() string {
	return fmt.Sprintf("%s (%s)", p.Identity, p.Credentials)
}
