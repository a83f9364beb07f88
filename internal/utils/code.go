package utils

import (
	"crypto/rand"
	"math/big"
)

// codeAlphabet omits 0/O and 1/I so codes survive being read off a projector.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns a random check-in code of n characters (default 6).
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		n = 6
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b), nil
}
