package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Link computes the hash of the record at index chained onto prevHash.
func Link(prevHash string, index int64, payload []byte) string {
	return hashBytes([]byte(prevHash), []byte(fmt.Sprintf("|%d|", index)), payload)
}

func hashBytes(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
