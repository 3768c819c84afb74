package security

import (
	"crypto/rand"
	"fmt"
)

// pnrCharset excludes 0/O, 1/I/L and vowels so codes stay readable
// over the phone and never spell anything.
var pnrCharset = []rune("BCDFGHJKMNPQRSTVWXYZ23456789")

const DefaultPNRLength = 8

// GeneratePNR returns a random confirmation code of the given length.
// Uniqueness is enforced by the orders table; callers retry on a
// duplicate-key insert.
func GeneratePNR(length int) (string, error) {
	if length <= 0 {
		length = DefaultPNRLength
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate pnr: %w", err)
	}
	code := make([]rune, length)
	for i, b := range buf {
		code[i] = pnrCharset[int(b)%len(pnrCharset)]
	}
	return string(code), nil
}
