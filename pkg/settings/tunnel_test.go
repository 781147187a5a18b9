package settings

import (
	"encoding/json"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvweerd/wgtunnel/pkg/stateful"
	"github.com/bvweerd/wgtunnel/pkg/wgkey"
)

func exampleConfig() TunnelConfig {
	return TunnelConfig{
		Enabled:             true,
		PrivateKey:          "k1",
		PeerPublicKey:       "k2",
		Address:             "10.0.0.2",
		Netmask:             "255.255.255.0",
		Endpoint:            "vpn.example.com",
		Port:                51820,
		PersistentKeepalive: 25,
	}
}

func objectOf(c TunnelConfig) stateful.Object {
	root := stateful.Object{}
	Read(c, root)
	return root
}

func TestDefaults(t *testing.T) {
	d := Defaults()

	assert.False(t, d.Enabled)
	assert.Equal(t, "255.255.255.255", d.Netmask)
	assert.Equal(t, uint16(51820), d.Port)
	assert.Equal(t, uint16(25), d.PersistentKeepalive)
	assert.False(t, d.Eligible())
}

func TestEligible(t *testing.T) {
	assert.True(t, exampleConfig().Eligible())

	tests := map[string]func(*TunnelConfig){
		"disabled":           func(c *TunnelConfig) { c.Enabled = false },
		"no private key":     func(c *TunnelConfig) { c.PrivateKey = "" },
		"no peer public key": func(c *TunnelConfig) { c.PeerPublicKey = "" },
		"no endpoint":        func(c *TunnelConfig) { c.Endpoint = "" },
		"no address":         func(c *TunnelConfig) { c.Address = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := exampleConfig()
			mutate(&c)
			assert.False(t, c.Eligible())
		})
	}

	t.Run("preshared key optional", func(t *testing.T) {
		c := exampleConfig()
		c.PresharedKey = ""
		assert.True(t, c.Eligible())
	})
}

func TestUpdate(t *testing.T) {
	t.Run("EmptyObjectAppliesDefaults", func(t *testing.T) {
		c := exampleConfig()
		Update(stateful.Object{}, &c)
		assert.Equal(t, Defaults(), c)
	})

	t.Run("EndpointChangeRequiresRestart", func(t *testing.T) {
		c := exampleConfig()
		c.Endpoint = "a.example.com"

		next := c
		next.Endpoint = "b.example.com"

		assert.Equal(t, stateful.ChangedRestart, Update(objectOf(next), &c))
		assert.Equal(t, "b.example.com", c.Endpoint)
	})

	t.Run("AddressChangeRequiresRestart", func(t *testing.T) {
		c := exampleConfig()
		next := c
		next.Address = "10.0.0.3"
		assert.Equal(t, stateful.ChangedRestart, Update(objectOf(next), &c))
	})

	t.Run("EnabledChangeRequiresRestart", func(t *testing.T) {
		c := exampleConfig()
		next := c
		next.Enabled = false
		assert.Equal(t, stateful.ChangedRestart, Update(objectOf(next), &c))
	})

	t.Run("KeepaliveChangeIsLive", func(t *testing.T) {
		c := exampleConfig()
		next := c
		next.PersistentKeepalive = 30

		assert.Equal(t, stateful.Changed, Update(objectOf(next), &c))
		assert.Equal(t, uint16(30), c.PersistentKeepalive)
	})

	t.Run("SameValueIsUnchanged", func(t *testing.T) {
		c := exampleConfig()
		assert.Equal(t, stateful.Unchanged, Update(objectOf(c), &c))
	})

	t.Run("JSONNumbers", func(t *testing.T) {
		var root stateful.Object
		require.NoError(t, json.Unmarshal([]byte(`{"port": 1234, "persistent_keepalive": 0}`), &root))

		c := Defaults()
		Update(root, &c)
		assert.Equal(t, uint16(1234), c.Port)
		assert.Equal(t, uint16(0), c.PersistentKeepalive)
	})

	t.Run("OutOfRangeNumbersDefault", func(t *testing.T) {
		c := Defaults()
		Update(stateful.Object{KeyPort: float64(70000), KeyPersistentKeepalive: -1}, &c)
		assert.Equal(t, DefaultPort, c.Port)
		assert.Equal(t, DefaultKeepalive, c.PersistentKeepalive)
	})

	t.Run("MistypedFieldsDefault", func(t *testing.T) {
		c := exampleConfig()
		root := objectOf(c)
		root[KeyEnabled] = "yes"
		root[KeyEndpoint] = 42

		Update(root, &c)
		assert.False(t, c.Enabled)
		assert.Equal(t, "", c.Endpoint)
	})
}

func TestReadUpdateRoundTrip(t *testing.T) {
	c := exampleConfig()
	c.PresharedKey = "psk"

	data, err := json.Marshal(objectOf(c))
	require.NoError(t, err)

	var root stateful.Object
	require.NoError(t, json.Unmarshal(data, &root))

	got := Defaults()
	Update(root, &got)
	assert.Equal(t, c, got)
}

func TestRouteNetwork(t *testing.T) {
	c := exampleConfig()

	network, mask, err := c.RouteNetwork()
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("10.0.0.0"), network)
	assert.Equal(t, netip.MustParseAddr("255.255.255.0"), mask)

	c.Address = "vpn.local"
	_, _, err = c.RouteNetwork()
	assert.ErrorIs(t, err, ErrInvalidAddress)

	c = exampleConfig()
	c.Netmask = ""
	_, _, err = c.RouteNetwork()
	assert.ErrorIs(t, err, ErrInvalidNetmask)
}

func TestValidate(t *testing.T) {
	priv, err := wgkey.Generate()
	require.NoError(t, err)
	pub, err := priv.PublicKey()
	require.NoError(t, err)

	valid := exampleConfig()
	valid.PrivateKey = priv.String()
	valid.PeerPublicKey = pub.String()

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("DisabledSkipsChecks", func(t *testing.T) {
		assert.NoError(t, Defaults().Validate())
	})

	t.Run("MissingFields", func(t *testing.T) {
		c := TunnelConfig{Enabled: true, Netmask: DefaultNetmask}
		err := c.Validate()
		assert.ErrorIs(t, err, ErrMissingPrivateKey)
		assert.ErrorIs(t, err, ErrMissingPeerPublicKey)
		assert.ErrorIs(t, err, ErrMissingAddress)
		assert.ErrorIs(t, err, ErrMissingEndpoint)
	})

	t.Run("BadKeys", func(t *testing.T) {
		c := valid
		c.PeerPublicKey = "k2"
		c.PresharedKey = "psk"
		assert.ErrorIs(t, c.Validate(), ErrInvalidKey)
	})

	t.Run("BadNetmask", func(t *testing.T) {
		c := valid
		c.Netmask = "255.0.255.0"
		assert.ErrorIs(t, c.Validate(), ErrInvalidNetmask)
	})

	t.Run("BadAddress", func(t *testing.T) {
		c := valid
		c.Address = "fd00::2"
		assert.ErrorIs(t, c.Validate(), ErrInvalidAddress)
	})
}

func TestChangedKeys(t *testing.T) {
	a := exampleConfig()
	assert.Empty(t, ChangedKeys(a, a))

	b := a
	b.Endpoint = "other.example.com"
	b.PersistentKeepalive = 30
	assert.Equal(t, []string{KeyEndpoint, KeyPersistentKeepalive}, ChangedKeys(a, b))
}

func TestRedacted(t *testing.T) {
	c := exampleConfig()
	c.PresharedKey = "psk"

	r := c.Redacted()
	assert.NotEqual(t, c.PrivateKey, r.PrivateKey)
	assert.NotEqual(t, c.PresharedKey, r.PresharedKey)
	assert.Equal(t, c.PeerPublicKey, r.PeerPublicKey)
	assert.Equal(t, "k1", c.PrivateKey)

	assert.Empty(t, Defaults().Redacted().PrivateKey)
}
