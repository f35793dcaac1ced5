package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	key := DocumentKey("leave-1")
	token, expiresAt, err := signer.Generate(key, CapabilityWrite)
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	parsedKey, cap, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "students/leave-1", parsedKey)
	assert.Equal(t, CapabilityWrite, cap)
}

func TestSignedURLRejectsTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate(DocumentKey("leave-1"), CapabilityRead)
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token + "x")
	require.Error(t, err)
}

func TestSignedURLRejectsWrongSecret(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	other := NewSignedURLSigner("different", time.Minute)

	token, _, err := signer.Generate(DocumentKey("leave-2"), CapabilityRead)
	require.NoError(t, err)

	_, _, _, err = other.Parse(token)
	require.Error(t, err)
}

func TestSignedURLRejectsExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate(DocumentKey("leave-3"), CapabilityRead)
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token)
	require.Error(t, err)
}

func TestSignedURLUnknownCapability(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	_, _, err := signer.Generate(DocumentKey("leave-4"), Capability("x"))
	require.Error(t, err)
}
