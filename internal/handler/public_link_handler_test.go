package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-legal/docvault-api/internal/models"
	"github.com/meridian-legal/docvault-api/internal/service"
)

func TestPublicVerifySuccess(t *testing.T) {
	svc := newTestLinkService(newFakeLinkRepo())
	h := NewPublicLinkHandler(svc)
	link := seedLink(t, svc, "secret123", nil)

	c, w := testContext(t, http.MethodPost, "/public/document-links/"+link.UniqueToken+"/verify", gin.H{"password": "secret123"})
	c.Params = gin.Params{{Key: "token", Value: link.UniqueToken}}
	h.Verify(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accessed_at"`)
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func TestPublicVerifyWrongPassword(t *testing.T) {
	svc := newTestLinkService(newFakeLinkRepo())
	h := NewPublicLinkHandler(svc)
	link := seedLink(t, svc, "secret123", nil)

	c, w := testContext(t, http.MethodPost, "/public/document-links/"+link.UniqueToken+"/verify", gin.H{"password": "wrong"})
	c.Params = gin.Params{{Key: "token", Value: link.UniqueToken}}
	h.Verify(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_PASSWORD")
}

func TestPublicVerifyUnknownToken(t *testing.T) {
	svc := newTestLinkService(newFakeLinkRepo())
	h := NewPublicLinkHandler(svc)

	c, w := testContext(t, http.MethodPost, "/public/document-links/missing/verify", gin.H{"password": "secret123"})
	c.Params = gin.Params{{Key: "token", Value: "missing"}}
	h.Verify(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublicVerifyExpired(t *testing.T) {
	svc := newTestLinkService(newFakeLinkRepo())
	h := NewPublicLinkHandler(svc)
	past := time.Now().UTC().Add(-time.Hour)
	link := seedLink(t, svc, "secret123", &past)

	c, w := testContext(t, http.MethodPost, "/public/document-links/"+link.UniqueToken+"/verify", gin.H{"password": "secret123"})
	c.Params = gin.Params{{Key: "token", Value: link.UniqueToken}}
	h.Verify(c)

	assert.Equal(t, http.StatusGone, w.Code)
	assert.Contains(t, w.Body.String(), "LINK_EXPIRED")
}

func TestPublicVerifyMissingPassword(t *testing.T) {
	svc := newTestLinkService(newFakeLinkRepo())
	h := NewPublicLinkHandler(svc)
	link := seedLink(t, svc, "secret123", nil)

	c, w := testContext(t, http.MethodPost, "/public/document-links/"+link.UniqueToken+"/verify", gin.H{})
	c.Params = gin.Params{{Key: "token", Value: link.UniqueToken}}
	h.Verify(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicUploadCompletes(t *testing.T) {
	svc := newTestLinkService(newFakeLinkRepo())
	h := NewPublicLinkHandler(svc)
	link := seedLink(t, svc, "secret123", nil)

	c, w := testContext(t, http.MethodPost, "/public/document-links/"+link.UniqueToken+"/upload", service.UploadRequest{UploadedDocumentURL: "https://files.example.com/signed.pdf"})
	c.Params = gin.Params{{Key: "token", Value: link.UniqueToken}}
	h.Upload(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)
	assert.Contains(t, w.Body.String(), `"completed_at"`)
}

func TestPublicDownloadRedirects(t *testing.T) {
	svc := newTestLinkService(newFakeLinkRepo())
	h := NewPublicLinkHandler(svc)
	link := seedLink(t, svc, "secret123", nil)

	_, err := svc.Upload(context.Background(), service.UploadRequest{Token: link.UniqueToken, UploadedDocumentURL: "https://files.example.com/signed.pdf"})
	require.NoError(t, err)

	grant, err := svc.IssueDownloadToken(context.Background(), link.ID, "staff-1", models.RequestMeta{})
	require.NoError(t, err)

	c, w := testContext(t, http.MethodGet, "/public/downloads/"+grant.DownloadToken, nil)
	c.Params = gin.Params{{Key: "token", Value: grant.DownloadToken}}
	h.Download(c)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://files.example.com/signed.pdf", w.Header().Get("Location"))
}

func TestPublicDownloadInvalidToken(t *testing.T) {
	svc := newTestLinkService(newFakeLinkRepo())
	h := NewPublicLinkHandler(svc)

	c, w := testContext(t, http.MethodGet, "/public/downloads/garbage", nil)
	c.Params = gin.Params{{Key: "token", Value: "garbage"}}
	h.Download(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublicUploadUnknownToken(t *testing.T) {
	svc := newTestLinkService(newFakeLinkRepo())
	h := NewPublicLinkHandler(svc)

	c, w := testContext(t, http.MethodPost, "/public/document-links/missing/upload", service.UploadRequest{UploadedDocumentURL: "https://files.example.com/signed.pdf"})
	c.Params = gin.Params{{Key: "token", Value: "missing"}}
	h.Upload(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
