package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// randomHex returns n random bytes hex-encoded.
func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// RandomEmail returns a unique email with the given local-part prefix.
func RandomEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@fleet.example.com", prefix, randomHex(4))
}

// RandomLicense returns a unique driver license number.
func RandomLicense() string {
	return "DL-" + randomHex(5)
}

// RandomRegistration returns a unique vehicle registration number.
func RandomRegistration() string {
	return "REG-" + randomHex(4)
}
