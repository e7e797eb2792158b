package repository

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecretBoxKeyFormats(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}

	_, err := NewSecretBox(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)

	_, err = NewSecretBox(strings.Repeat("ab", 32))
	require.NoError(t, err)

	_, err = NewSecretBox(strings.Repeat("ab", 16))
	assert.Error(t, err)

	_, err = NewSecretBox("not a key!")
	assert.Error(t, err)
}

func TestSecretBoxRoundTrip(t *testing.T) {
	box, err := NewSecretBox(strings.Repeat("01", 32))
	require.NoError(t, err)

	sealed, err := box.Seal("hunter2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))

	again, err := box.Seal("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce should differ per seal")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestSecretBoxOpenPlaintextPassthrough(t *testing.T) {
	box, err := NewSecretBox(strings.Repeat("01", 32))
	require.NoError(t, err)

	plain, err := box.Open("legacy-secret")
	require.NoError(t, err)
	assert.Equal(t, "legacy-secret", plain)
}

func TestSecretBoxRejectsWrongKey(t *testing.T) {
	a, err := NewSecretBox(strings.Repeat("01", 32))
	require.NoError(t, err)
	b, err := NewSecretBox(strings.Repeat("02", 32))
	require.NoError(t, err)

	sealed, err := a.Seal("hunter2")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.Error(t, err)

	_, err = a.Open(sealedPrefix + "AAAA")
	assert.Error(t, err)
}
