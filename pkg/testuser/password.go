package testuser

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// PasswordLength is the number of base-36 characters in a generated password
const PasswordLength = 32

var passwordSpace = new(big.Int).Exp(big.NewInt(36), big.NewInt(PasswordLength), nil)

// GeneratePassword draws a uniform number below 36^32 from r (crypto/rand
// when nil) and renders it in base 36, zero padded to PasswordLength
func GeneratePassword(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, passwordSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	s := n.Text(36)
	if len(s) < PasswordLength {
		s = strings.Repeat("0", PasswordLength-len(s)) + s
	}
	return s, nil
}
