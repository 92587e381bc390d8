package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	encoded, err := HashPassword("hunter2")
	require.NoError(t, err)

	ok, err := VerifyPassword(encoded, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(encoded, "hunter3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_NeverStoresPlaintext(t *testing.T) {
	encoded, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))
	assert.NotContains(t, encoded, "correct horse")
}

func TestHashPassword_SaltsAreUnique(t *testing.T) {
	first, err := HashPassword("same-password")
	require.NoError(t, err)
	second, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPassword_MalformedCredential(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=4$not!base64$aGFzaA",
	} {
		_, err := VerifyPassword(encoded, "whatever")
		assert.Error(t, err, "credential %q", encoded)
	}
}
