package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkit-core/medkit-go/pkg/identity"
	"github.com/medkit-core/medkit-go/pkg/wire"
)

var allTypes = []identity.Type{identity.TypeDevice, identity.TypeOrganization, identity.TypeUser}

func TestIdentityProfileRoundTrip(t *testing.T) {
	names := []string{"pump-1", "", "Ünïcode name", "a/b/c", "x"}

	for _, typ := range allTypes {
		for _, name := range names {
			id := identity.New(name, typ)

			back, err := identity.FromProfile(id.Profile())
			require.NoError(t, err)
			assert.True(t, id.Equal(back), "%v != %v", id, back)
		}
	}
}

func TestIdentityCBORRoundTrip(t *testing.T) {
	for _, typ := range allTypes {
		id := identity.New("hospital-ca", typ)

		data, err := wire.Marshal(id)
		require.NoError(t, err)

		var back identity.Identity
		require.NoError(t, wire.Unmarshal(data, &back))
		assert.Equal(t, id, back)

		// Stable keys are visible in the generic form.
		var p wire.Profile
		require.NoError(t, wire.Unmarshal(data, &p))
		assert.Equal(t, "hospital-ca", p[wire.KeyName])
		assert.Equal(t, typ.String(), p[wire.KeyType])
	}
}

func TestIdentityFromProfileErrors(t *testing.T) {
	_, err := identity.FromProfile(wire.Profile{wire.KeyType: "Device"})
	assert.ErrorIs(t, err, wire.ErrMissingKey)

	_, err = identity.FromProfile(wire.Profile{wire.KeyName: "n", wire.KeyType: "Robot"})
	assert.ErrorIs(t, err, identity.ErrUnknownType)
}

func TestIdentityString(t *testing.T) {
	assert.Equal(t, "User/alice", identity.New("alice", identity.TypeUser).String())
}

func TestTypeParse(t *testing.T) {
	for _, typ := range allTypes {
		got, err := identity.ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
}

func TestCredentialsTypeParse(t *testing.T) {
	tests := []struct {
		in   string
		want identity.CredentialsType
	}{
		{"Null", identity.CredentialsNull},
		{"Public Key", identity.CredentialsPublicKey},
		{"Shared Secret", identity.CredentialsSharedSecret},
	}
	for _, tt := range tests {
		got, err := identity.ParseCredentialsType(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.in, got.String())
	}

	_, err := identity.ParseCredentialsType("PublicKey")
	assert.ErrorIs(t, err, identity.ErrUnknownType)
}

func TestPrincipalString(t *testing.T) {
	p := identity.Principal{
		Identity:    identity.New("controller", identity.TypeDevice),
		Credentials: identity.CredentialsSharedSecret,
	}
	assert.Equal(t, "Device/controller (Shared Secret)", p.String())
}
