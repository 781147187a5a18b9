// Package wgkey parses and derives WireGuard Curve25519 keys.
package wgkey

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/curve25519"
)

// Size is the length of a WireGuard key in bytes.
const Size = 32

// ErrInvalidKey is returned for keys that are not 32 bytes of base64.
var ErrInvalidKey = errors.New("invalid wireguard key")

// Key is a raw WireGuard key.
type Key [Size]byte

// Parse decodes a base64 key, padded or not.
func Parse(s string) (Key, error) {
	var k Key
	if s == "" {
		return k, ErrInvalidKey
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(b) != Size {
		b, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil || len(b) != Size {
			return k, ErrInvalidKey
		}
	}
	copy(k[:], b)
	return k, nil
}

// Valid reports whether s parses as a key.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// String returns the padded base64 encoding.
func (k Key) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// IsZero reports whether every byte of k is zero.
func (k Key) IsZero() bool {
	return k == Key{}
}

// PublicKey derives the public key for private key k.
func (k Key) PublicKey() (Key, error) {
	var pub Key
	out, err := curve25519.X25519(k[:], curve25519.Basepoint)
	if err != nil {
		return pub, err
	}
	copy(pub[:], out)
	return pub, nil
}

// PublicFromPrivate parses a base64 private key and returns the base64
// public key.
func PublicFromPrivate(private string) (string, error) {
	k, err := Parse(private)
	if err != nil {
		return "", err
	}
	pub, err := k.PublicKey()
	if err != nil {
		return "", err
	}
	return pub.String(), nil
}

// Generate returns a new clamped private key.
func Generate() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return k, err
	}
	k[0] &= 248
	k[31] = (k[31] & 127) | 64
	return k, nil
}
