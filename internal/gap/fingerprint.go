package gap

import (
	"crypto/sha256"
	"fmt"
)

// Fingerprint is a stable hash over the normalized query text plus any
// explicitly detected vendor/equipment tokens. Semantically identical repeat
// queries collapse to one gap record; materially different queries do not
// collide.
func Fingerprint(normalizedText, vendor, equipment string) string {
	sum := sha256.Sum256([]byte(normalizedText + "|" + vendor + "|" + equipment))
	return fmt.Sprintf("%x", sum)
}
