package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateID returns a prefixed opaque identifier backed by 128 bits of
// randomness. The prefix is cosmetic namespacing only.
func GenerateID(prefix string) (string, error) {
	byt := make([]byte, 16)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	if prefix == "" {
		return hex.EncodeToString(byt), nil
	}

	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(byt)), nil
}

// GenerateCode returns an uppercase hex string of n random bytes.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateShortCode draws length characters from alphabet. Uniqueness is the
// caller's job, this only produces the candidate.
func GenerateShortCode(length int, alphabet string) (string, error) {
	code := make([]byte, length)

	if _, err := rand.Read(code); err != nil {
		return "", err
	}

	for i := 0; i < length; i++ {
		code[i] = alphabet[int(code[i])%len(alphabet)]
	}

	return string(code), nil
}
