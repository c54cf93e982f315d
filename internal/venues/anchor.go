package venues

import (
	"crypto/sha256"
)

// AnchorDiscriminator returns the 8-byte anchor instruction discriminator:
// the first 8 bytes of sha256("global:<name>").
func AnchorDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}

// AnchorAccountDiscriminator returns the 8-byte anchor account discriminator:
// the first 8 bytes of sha256("account:<name>").
func AnchorAccountDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("account:" + name))
	return h[:8]
}
