package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meridian-legal/docvault-api/internal/service"
	appErrors "github.com/meridian-legal/docvault-api/pkg/errors"
	"github.com/meridian-legal/docvault-api/pkg/response"
)

// PublicLinkHandler handles the unauthenticated client-facing endpoints. The
// only credentials on this channel are the link token and access password.
type PublicLinkHandler struct {
	service *service.DocumentLinkService
}

// NewPublicLinkHandler creates a new public link handler.
func NewPublicLinkHandler(svc *service.DocumentLinkService) *PublicLinkHandler {
	return &PublicLinkHandler{service: svc}
}

// Verify godoc
// @Summary Verify link access
// @Description Verify the access password for a shared document link
// @Tags Public
// @Accept json
// @Produce json
// @Param token path string true "Link token"
// @Param payload body service.VerifyLinkRequest true "Access password"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /public/document-links/{token}/verify [post]
func (h *PublicLinkHandler) Verify(c *gin.Context) {
	var req service.VerifyLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.Token = c.Param("token")
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	link, err := h.service.Verify(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}

// Upload godoc
// @Summary Record uploaded document
// @Description Record the client-submitted counterpart document and complete the link
// @Tags Public
// @Accept json
// @Produce json
// @Param token path string true "Link token"
// @Param payload body service.UploadRequest true "Uploaded document location"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/document-links/{token}/upload [post]
func (h *PublicLinkHandler) Upload(c *gin.Context) {
	var req service.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.Token = c.Param("token")
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	link, err := h.service.Upload(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Redeem download token
// @Description Redeem a signed download token and redirect to the document
// @Tags Public
// @Param token path string true "Signed download token"
// @Success 302
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/downloads/{token} [get]
func (h *PublicLinkHandler) Download(c *gin.Context) {
	documentURL, err := h.service.RedeemDownloadToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Redirect(http.StatusFound, documentURL)
}
