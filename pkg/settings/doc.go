// Package settings defines the WireGuard tunnel configuration value and its
// serialized form.
//
// The persisted document is a flat JSON object:
//
//	{
//	  "enabled": true,
//	  "private_key": "...",
//	  "peer_public_key": "...",
//	  "preshared_key": "",
//	  "address": "10.0.0.2",
//	  "netmask": "255.255.255.0",
//	  "endpoint": "vpn.example.com",
//	  "port": 51820,
//	  "persistent_keepalive": 25
//	}
//
// Update replaces every field, taking the factory default for any key the
// object does not carry. A change to enabled, endpoint or address requires
// the tunnel to restart; any other change is reported as a plain change.
package settings
