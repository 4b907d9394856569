package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Profile keys shared by the types that persist themselves as profiles.
const (
	KeyName         = "name"
	KeyType         = "type"
	KeyTimeModified = "timeModified"
	KeyValue        = "value"
)

// Profile errors.
var (
	// ErrMissingKey indicates a required profile key is absent.
	ErrMissingKey = errors.New("missing profile key")

	// ErrKeyType indicates a profile key holds a value of the wrong type.
	ErrKeyType = errors.New("profile key has wrong type")
)

// RawValue is an encoded value whose decoding is deferred.
type RawValue = cbor.RawMessage

// Profile is the generic key/value form of a structured value.
type Profile map[string]any

// ToProfile converts a value with cbor string-key tags into a Profile.
func ToProfile(v any) (Profile, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// FromProfile fills v from a Profile.
func FromProfile(p Profile, v any) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	return Unmarshal(data, v)
}

// String returns the string stored under key.
func (p Profile) String(key string) (string, error) {
	raw, ok := p[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T", ErrKeyType, key, raw)
	}
	return s, nil
}

// EncodeValue encodes v into a RawValue.
func EncodeValue(v any) (RawValue, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return RawValue(data), nil
}

// DecodeValue decodes a RawValue into v.
func DecodeValue(raw RawValue, v any) error {
	return Unmarshal(raw, v)
}
