package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(0)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	code, err = GenerateCode(10)
	require.NoError(t, err)
	assert.Len(t, code, 10)
	for _, r := range code {
		assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected %q", r)
	}
}

func TestPassword(t *testing.T) {
	hashed, err := HashPassword("rahasia123")
	require.NoError(t, err)
	assert.NotEqual(t, "rahasia123", hashed)
	assert.True(t, CheckPassword(hashed, "rahasia123"))
	assert.False(t, CheckPassword(hashed, "salah"))
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		SHA256Hex(""))
	assert.Len(t, SHA256Hex("token"), 64)
}
