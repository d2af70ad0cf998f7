package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-legal/docvault-api/internal/models"
	appErrors "github.com/meridian-legal/docvault-api/pkg/errors"
)

type documentLinkRepository interface {
	Create(ctx context.Context, link *models.DocumentLink) error
	FindByID(ctx context.Context, id string) (*models.DocumentLink, error)
	FindByToken(ctx context.Context, token string) (*models.DocumentLink, error)
	List(ctx context.Context, filter models.LinkFilter) ([]models.DocumentLink, int, error)
	Update(ctx context.Context, link *models.DocumentLink) error
	Delete(ctx context.Context, id string) error
	MarkExpired(ctx context.Context, id string, ts time.Time) error
	RecordAccess(ctx context.Context, id string, ts time.Time) error
	Complete(ctx context.Context, id, uploadedURL string, ts time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type attemptLimiter interface {
	Register(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}

type downloadSigner interface {
	Sign(linkID, documentURL string) (string, time.Time, error)
	Verify(token string) (linkID, documentURL string, err error)
}

// DocumentLinkConfig tunes hashing cost, token entropy and the verification
// attempt limiter.
type DocumentLinkConfig struct {
	BcryptCost    int
	TokenBytes    int
	RateLimit     bool
	MaxAttempts   int
	AttemptWindow time.Duration
}

// CreateLinkRequest represents the payload for creating a document link.
type CreateLinkRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	ClientName  string     `json:"client_name"`
	ClientEmail string     `json:"client_email" validate:"omitempty,email"`
	Password    string     `json:"password" validate:"required"`
	DocumentURL *string    `json:"document_url" validate:"omitempty,url"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// UpdateLinkRequest represents a partial update. Nil fields are left
// untouched; a non-nil Password rotates the stored hash.
type UpdateLinkRequest struct {
	Title          *string    `json:"title" validate:"omitempty,min=1"`
	Description    *string    `json:"description"`
	ClientName     *string    `json:"client_name"`
	ClientEmail    *string    `json:"client_email" validate:"omitempty,email"`
	Password       *string    `json:"password" validate:"omitempty,min=1"`
	DocumentURL    *string    `json:"document_url" validate:"omitempty,url"`
	ExpiresAt      *time.Time `json:"expires_at"`
	ClearExpiresAt bool       `json:"clear_expires_at"`
}

// VerifyLinkRequest carries the public access credentials.
type VerifyLinkRequest struct {
	Password  string `json:"password" validate:"required"`
	Token     string `json:"-"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// UploadRequest records the client-submitted counterpart document.
type UploadRequest struct {
	UploadedDocumentURL string `json:"uploaded_document_url" validate:"required,url"`
	Token               string `json:"-"`
	IP                  string `json:"-"`
	UserAgent           string `json:"-"`
}

// DocumentLinkService owns the document link lifecycle: issuance, password
// verification, lazy expiry, completion and the audit trail around them.
type DocumentLinkService struct {
	repo      documentLinkRepository
	attempts  attemptLimiter
	signer    downloadSigner
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	config    DocumentLinkConfig
}

// NewDocumentLinkService constructs a DocumentLinkService instance.
func NewDocumentLinkService(repo documentLinkRepository, attempts attemptLimiter, signer downloadSigner, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, config DocumentLinkConfig) *DocumentLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TokenBytes < 16 {
		config.TokenBytes = 32
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 10
	}
	if config.AttemptWindow <= 0 {
		config.AttemptWindow = 15 * time.Minute
	}
	return &DocumentLinkService{repo: repo, attempts: attempts, signer: signer, validator: validate, logger: logger, metrics: metrics, config: config}
}

// Create issues a new link: fresh token, hashed password, pending status.
func (s *DocumentLinkService) Create(ctx context.Context, req CreateLinkRequest, actorID string, meta models.RequestMeta) (*models.DocumentLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "title and password are required")
	}

	token, err := s.generateToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate link token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash access password")
	}

	link := &models.DocumentLink{
		Title:        req.Title,
		Description:  req.Description,
		ClientName:   req.ClientName,
		ClientEmail:  req.ClientEmail,
		UniqueToken:  token,
		PasswordHash: string(hash),
		DocumentURL:  req.DocumentURL,
		Status:       models.LinkStatusPending,
		ExpiresAt:    req.ExpiresAt,
	}
	if actorID != "" {
		link.CreatedBy = &actorID
	}

	if err := s.repo.Create(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document link")
	}

	s.recordEvent("created")
	s.audit(ctx, &actorID, models.AuditActionLinkCreate, link.ID, meta, map[string]interface{}{"title": link.Title, "status": link.Status})

	return link, nil
}

// Get returns a link by ID for the staff channel.
func (s *DocumentLinkService) Get(ctx context.Context, id string) (*models.DocumentLink, error) {
	link, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document link not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document link")
	}
	return link, nil
}

// List returns links with pagination metadata.
func (s *DocumentLinkService) List(ctx context.Context, filter models.LinkFilter) ([]models.DocumentLink, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", *filter.Status))
	}

	links, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list document links")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	return links, &models.Pagination{Limit: limit, Offset: offset, TotalCount: total}, nil
}

// Update applies staff edits to a link. A new password is hashed with the same
// discipline as creation; the plaintext is never stored or logged.
func (s *DocumentLinkService) Update(ctx context.Context, id string, req UpdateLinkRequest, actorID string, meta models.RequestMeta) (*models.DocumentLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	link, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		link.Title = *req.Title
	}
	if req.Description != nil {
		link.Description = *req.Description
	}
	if req.ClientName != nil {
		link.ClientName = *req.ClientName
	}
	if req.ClientEmail != nil {
		link.ClientEmail = *req.ClientEmail
	}
	if req.DocumentURL != nil {
		link.DocumentURL = req.DocumentURL
	}
	if req.ClearExpiresAt {
		link.ExpiresAt = nil
	} else if req.ExpiresAt != nil {
		link.ExpiresAt = req.ExpiresAt
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.bcryptCost())
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash access password")
		}
		link.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, link); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document link not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document link")
	}

	s.audit(ctx, &actorID, models.AuditActionLinkUpdate, link.ID, meta, map[string]interface{}{"title": link.Title, "password_rotated": req.Password != nil})

	return link, nil
}

// Delete removes a link permanently. Subsequent public access sees not found.
func (s *DocumentLinkService) Delete(ctx context.Context, id string, actorID string, meta models.RequestMeta) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document link not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document link")
	}

	s.audit(ctx, &actorID, models.AuditActionLinkDelete, id, meta, nil)
	return nil
}

// Verify performs the public access check: token lookup, lazy expiry, then
// password comparison. Expiry is checked before the password so an expired
// link never grants access even with the correct secret.
func (s *DocumentLinkService) Verify(ctx context.Context, req VerifyLinkRequest) (*models.DocumentLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "password is required")
	}

	attemptKey := fmt.Sprintf("docvault:attempts:%s:%s", req.Token, req.IP)
	if s.config.RateLimit && s.attempts != nil {
		count, err := s.attempts.Register(ctx, attemptKey, s.config.AttemptWindow)
		if err != nil {
			s.logger.Warn("attempt limiter unavailable", zap.Error(err))
		} else if count > int64(s.config.MaxAttempts) {
			return nil, appErrors.Clone(appErrors.ErrTooManyAttempts, "too many access attempts, try again later")
		}
	}

	link, err := s.repo.FindByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document link not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document link")
	}

	now := time.Now().UTC()
	if link.ExpiresAt != nil && now.After(*link.ExpiresAt) {
		if link.Status == models.LinkStatusPending {
			if err := s.repo.MarkExpired(ctx, link.ID, now); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire document link")
			}
			s.recordEvent("expired")
			s.audit(ctx, nil, models.AuditActionLinkExpire, link.ID, models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent}, nil)
		}
		return nil, appErrors.Clone(appErrors.ErrLinkExpired, "document link has expired")
	}

	if link.Status == models.LinkStatusExpired {
		return nil, appErrors.Clone(appErrors.ErrLinkExpired, "document link has expired")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(link.PasswordHash), []byte(req.Password)); err != nil {
		s.audit(ctx, nil, models.AuditActionLinkVerify, link.ID, models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent}, map[string]interface{}{"result": "invalid_password"})
		return nil, appErrors.Clone(appErrors.ErrInvalidPassword, "invalid access password")
	}

	if s.config.RateLimit && s.attempts != nil {
		if err := s.attempts.Reset(ctx, attemptKey); err != nil {
			s.logger.Warn("failed to reset attempt counter", zap.Error(err))
		}
	}

	if err := s.repo.RecordAccess(ctx, link.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record access")
	}
	link.AccessedAt = &now
	link.UpdatedAt = now

	s.recordEvent("verified")
	s.audit(ctx, nil, models.AuditActionLinkVerify, link.ID, models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent}, map[string]interface{}{"result": "success"})

	return link, nil
}

// Upload records the client-submitted document and completes the link. The
// endpoint trusts the token alone; re-uploading on a completed link replaces
// the stored document and refreshes the completion timestamp. An expired link
// cannot be completed.
func (s *DocumentLinkService) Upload(ctx context.Context, req UploadRequest) (*models.DocumentLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "uploaded_document_url is required")
	}

	link, err := s.repo.FindByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document link not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document link")
	}

	if link.Status == models.LinkStatusExpired {
		return nil, appErrors.Clone(appErrors.ErrLinkExpired, "document link has expired")
	}

	now := time.Now().UTC()
	if err := s.repo.Complete(ctx, link.ID, req.UploadedDocumentURL, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete document link")
	}

	link.Status = models.LinkStatusCompleted
	link.UploadedDocumentURL = &req.UploadedDocumentURL
	link.CompletedAt = &now
	link.UpdatedAt = now

	s.recordEvent("completed")
	s.audit(ctx, nil, models.AuditActionLinkUpload, link.ID, models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent}, map[string]interface{}{"uploaded_document_url": req.UploadedDocumentURL})

	return link, nil
}

// DownloadGrant is a short-lived token granting staff access to the uploaded
// document without exposing its storage location.
type DownloadGrant struct {
	DownloadToken string    `json:"download_token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// IssueDownloadToken issues a signed download grant for the client-submitted
// document of a completed link.
func (s *DocumentLinkService) IssueDownloadToken(ctx context.Context, id string, actorID string, meta models.RequestMeta) (*DownloadGrant, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signing is not configured")
	}

	link, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if link.UploadedDocumentURL == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no uploaded document for this link")
	}

	token, expiresAt, err := s.signer.Sign(link.ID, *link.UploadedDocumentURL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}

	s.audit(ctx, &actorID, models.AuditActionLinkDownload, link.ID, meta, nil)

	return &DownloadGrant{DownloadToken: token, ExpiresAt: expiresAt}, nil
}

// RedeemDownloadToken validates a signed download token and returns the
// stored document location. The link must still exist: deleting a link
// invalidates outstanding grants.
func (s *DocumentLinkService) RedeemDownloadToken(ctx context.Context, token string) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "download signing is not configured")
	}

	linkID, documentURL, err := s.signer.Verify(token)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	link, err := s.Get(ctx, linkID)
	if err != nil {
		return "", err
	}
	if link.UploadedDocumentURL == nil || *link.UploadedDocumentURL != documentURL {
		return "", appErrors.Clone(appErrors.ErrNotFound, "document is no longer available")
	}

	return documentURL, nil
}

func (s *DocumentLinkService) bcryptCost() int {
	cost := s.config.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

func (s *DocumentLinkService) generateToken() (string, error) {
	buf := make([]byte, s.config.TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *DocumentLinkService) recordEvent(event string) {
	if s.metrics != nil {
		s.metrics.RecordLinkEvent(event)
	}
}

func (s *DocumentLinkService) audit(ctx context.Context, actorID *string, action, linkID string, meta models.RequestMeta, payload map[string]interface{}) {
	var values []byte
	if payload != nil {
		values, _ = json.Marshal(payload)
	}
	if actorID != nil && *actorID == "" {
		actorID = nil
	}
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "document_links",
		ResourceID: &linkID,
		NewValues:  values,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
