// Package token generates opaque bearer credentials for share links.
package token

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
)

// 16 bytes -> 32 hex chars, 128 bits of entropy. Tokens are bearer
// credentials, so the source must be crypto/rand, never math/rand.
const byteLen = 16

func New() (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "read random")
	}
	return hex.EncodeToString(b), nil
}
