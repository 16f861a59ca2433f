package crypto

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// GenerateReference returns an upper-case, unambiguous reference code such as
// "BT-7Q2MZK4D", suitable for printing on documents.
func GenerateReference(prefix string, n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	code := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
	return prefix + "-" + strings.ToUpper(code), nil
}
