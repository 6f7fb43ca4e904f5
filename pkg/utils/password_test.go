package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.NotContains(t, hash, "secret1")
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	h1, err := HashPassword("secret1")
	require.NoError(t, err)
	h2, err := HashPassword("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)

	ok, err := VerifyPassword("secret1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordBadFormat(t *testing.T) {
	_, err := VerifyPassword("secret1", "not-a-hash")
	assert.Error(t, err)

	_, err = VerifyPassword("secret1", "$bcrypt$v=19$m=65536,t=3,p=2$abc$def")
	assert.Error(t, err)
}
