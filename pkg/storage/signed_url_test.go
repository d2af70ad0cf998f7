package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadSignerRoundTrip(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Minute)

	token, expiresAt, err := signer.Sign("link-1", "https://files.example.com/signed.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	linkID, documentURL, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "link-1", linkID)
	assert.Equal(t, "https://files.example.com/signed.pdf", documentURL)
}

func TestDownloadSignerRejectsTampering(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Minute)

	token, _, err := signer.Sign("link-1", "https://files.example.com/signed.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "link-2"
	_, _, err = signer.Verify(strings.Join(parts, "."))
	assert.Error(t, err)
}

func TestDownloadSignerRejectsWrongSecret(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Minute)
	other := NewDownloadSigner("other", time.Minute)

	token, _, err := signer.Sign("link-1", "https://files.example.com/signed.pdf")
	require.NoError(t, err)

	_, _, err = other.Verify(token)
	assert.Error(t, err)
}

func TestDownloadSignerRejectsExpired(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Sign("link-1", "https://files.example.com/signed.pdf")
	require.NoError(t, err)

	_, _, err = signer.Verify(token)
	assert.Error(t, err)
}

func TestDownloadSignerRequiresInputs(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Minute)
	_, _, err := signer.Sign("", "https://files.example.com/signed.pdf")
	assert.Error(t, err)
	_, _, err = signer.Sign("link-1", "")
	assert.Error(t, err)
}
