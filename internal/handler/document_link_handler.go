package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meridian-legal/docvault-api/internal/models"
	"github.com/meridian-legal/docvault-api/internal/service"
	appErrors "github.com/meridian-legal/docvault-api/pkg/errors"
	"github.com/meridian-legal/docvault-api/pkg/response"
)

// DocumentLinkHandler handles the staff-facing link management endpoints.
type DocumentLinkHandler struct {
	service *service.DocumentLinkService
	exports *service.ExportService
}

// NewDocumentLinkHandler creates a new document link handler.
func NewDocumentLinkHandler(svc *service.DocumentLinkService, exports *service.ExportService) *DocumentLinkHandler {
	return &DocumentLinkHandler{service: svc, exports: exports}
}

// List godoc
// @Summary List document links
// @Description List document links with status filter and pagination
// @Tags Document Links
// @Produce json
// @Param status query string false "Status filter (pending|completed|expired)"
// @Param search query string false "Search term"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /admin/document-links [get]
func (h *DocumentLinkHandler) List(c *gin.Context) {
	var filter models.LinkFilter

	if status := c.Query("status"); status != "" {
		s := models.LinkStatus(status)
		filter.Status = &s
	}
	filter.Search = c.Query("search")
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filter.Offset = offset
	}

	links, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, links, pagination)
}

// Get godoc
// @Summary Get document link
// @Tags Document Links
// @Produce json
// @Param id path string true "Link ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/document-links/{id} [get]
func (h *DocumentLinkHandler) Get(c *gin.Context) {
	link, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}

// Create godoc
// @Summary Create document link
// @Description Issue a new password-protected sharing link
// @Tags Document Links
// @Accept json
// @Produce json
// @Param payload body service.CreateLinkRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/document-links [post]
func (h *DocumentLinkHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	link, err := h.service.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, link)
}

// Update godoc
// @Summary Update document link
// @Description Update mutable fields, optionally rotating the access password
// @Tags Document Links
// @Accept json
// @Produce json
// @Param id path string true "Link ID"
// @Param payload body service.UpdateLinkRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/document-links/{id} [put]
func (h *DocumentLinkHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	link, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}

// Delete godoc
// @Summary Delete document link
// @Description Hard-delete a link; subsequent public access sees not found
// @Tags Document Links
// @Produce json
// @Param id path string true "Link ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/document-links/{id} [delete]
func (h *DocumentLinkHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

// Download godoc
// @Summary Issue download token
// @Description Issue a signed, short-lived token for the uploaded document
// @Tags Document Links
// @Produce json
// @Param id path string true "Link ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/document-links/{id}/download [get]
func (h *DocumentLinkHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	grant, err := h.service.IssueDownloadToken(c.Request.Context(), c.Param("id"), claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grant, nil)
}

// Export godoc
// @Summary Export link activity
// @Description Export link activity as CSV or PDF
// @Tags Document Links
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format (csv|pdf)"
// @Param status query string false "Status filter"
// @Success 200 {file} byte
// @Router /admin/document-links/export [get]
func (h *DocumentLinkHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}

	var status *models.LinkStatus
	if raw := c.Query("status"); raw != "" {
		s := models.LinkStatus(raw)
		status = &s
	}
	format := c.DefaultQuery("format", "csv")

	payload, contentType, err := h.exports.ActivityReport(c.Request.Context(), status, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	ext := "csv"
	if format == "pdf" {
		ext = "pdf"
	}
	filename := fmt.Sprintf("link-activity-%s.%s", time.Now().UTC().Format("20060102"), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
