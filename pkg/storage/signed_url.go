package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DownloadSigner creates and validates signed download tokens for uploaded
// documents, so staff can fetch a client submission without the raw storage
// location ever appearing in a URL.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadSigner constructs a signer with the provided secret and TTL.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &DownloadSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Sign returns a signed token referencing the link and document URL.
func (s *DownloadSigner) Sign(linkID, documentURL string) (string, time.Time, error) {
	if linkID == "" || documentURL == "" {
		return "", time.Time{}, fmt.Errorf("linkID and documentURL required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	encodedURL := base64.RawURLEncoding.EncodeToString([]byte(documentURL))
	signature := s.signature(linkID, expiresAt.Unix(), encodedURL)
	token := strings.Join([]string{linkID, strconv.FormatInt(expiresAt.Unix(), 10), encodedURL, signature}, ".")
	return token, expiresAt, nil
}

// Verify validates a token and returns the embedded link ID and document URL.
func (s *DownloadSigner) Verify(token string) (linkID, documentURL string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", fmt.Errorf("invalid token format")
	}
	linkID = parts[0]
	encodedURL := parts[2]

	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", fmt.Errorf("invalid timestamp")
	}

	expected := s.signature(linkID, expUnix, encodedURL)
	if !hmac.Equal([]byte(expected), []byte(parts[3])) {
		return "", "", fmt.Errorf("invalid token signature")
	}
	if time.Now().After(time.Unix(expUnix, 0)) {
		return "", "", fmt.Errorf("download token expired")
	}

	rawURL, err := base64.RawURLEncoding.DecodeString(encodedURL)
	if err != nil {
		return "", "", fmt.Errorf("decode document url: %w", err)
	}
	return linkID, string(rawURL), nil
}

func (s *DownloadSigner) signature(linkID string, expUnix int64, encodedURL string) string {
	payload := fmt.Sprintf("%s|%d|%s", linkID, expUnix, encodedURL)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
