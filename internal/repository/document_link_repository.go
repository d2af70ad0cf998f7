package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/meridian-legal/docvault-api/internal/models"
)

const linkColumns = `id, title, description, client_name, client_email, unique_token, password_hash, document_url, uploaded_document_url, status, expires_at, accessed_at, completed_at, created_by, created_at, updated_at`

// DocumentLinkRepository provides database access for document links.
type DocumentLinkRepository struct {
	db *sqlx.DB
}

// NewDocumentLinkRepository creates a new instance of DocumentLinkRepository.
func NewDocumentLinkRepository(db *sqlx.DB) *DocumentLinkRepository {
	return &DocumentLinkRepository{db: db}
}

// Create inserts a new document link.
func (r *DocumentLinkRepository) Create(ctx context.Context, link *models.DocumentLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = now

	const query = `INSERT INTO document_links (id, title, description, client_name, client_email, unique_token, password_hash, document_url, status, expires_at, created_by, created_at, updated_at) VALUES (:id, :title, :description, :client_name, :client_email, :unique_token, :password_hash, :document_url, :status, :expires_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("create document link: %w", err)
	}
	return nil
}

// FindByID returns a link by identifier.
func (r *DocumentLinkRepository) FindByID(ctx context.Context, id string) (*models.DocumentLink, error) {
	query := fmt.Sprintf(`SELECT %s FROM document_links WHERE id = $1 LIMIT 1`, linkColumns)
	var link models.DocumentLink
	if err := r.db.GetContext(ctx, &link, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document link by id: %w", err)
	}
	return &link, nil
}

// FindByToken returns a link by its unique token.
func (r *DocumentLinkRepository) FindByToken(ctx context.Context, token string) (*models.DocumentLink, error) {
	query := fmt.Sprintf(`SELECT %s FROM document_links WHERE unique_token = $1 LIMIT 1`, linkColumns)
	var link models.DocumentLink
	if err := r.db.GetContext(ctx, &link, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document link by token: %w", err)
	}
	return &link, nil
}

// List returns links based on filters with total count.
func (r *DocumentLinkRepository) List(ctx context.Context, filter models.LinkFilter) ([]models.DocumentLink, int, error) {
	baseQuery := `FROM document_links WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(client_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", linkColumns, baseQuery, limit, offset)

	var links []models.DocumentLink
	if err := r.db.SelectContext(ctx, &links, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list document links: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count document links: %w", err)
	}

	return links, total, nil
}

// Update persists staff-mutable fields. Status, token and audit timestamps are
// never touched here.
func (r *DocumentLinkRepository) Update(ctx context.Context, link *models.DocumentLink) error {
	link.UpdatedAt = time.Now().UTC()
	const query = `UPDATE document_links SET title = :title, description = :description, client_name = :client_name, client_email = :client_email, password_hash = :password_hash, document_url = :document_url, expires_at = :expires_at, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, link)
	if err != nil {
		return fmt.Errorf("update document link: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a link permanently.
func (r *DocumentLinkRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM document_links WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete document link: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkExpired flips a pending link to expired. The status guard keeps the
// transition one-way under concurrent access attempts.
func (r *DocumentLinkRepository) MarkExpired(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE document_links SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	if _, err := r.db.ExecContext(ctx, query, id, models.LinkStatusExpired, ts, models.LinkStatusPending); err != nil {
		return fmt.Errorf("mark document link expired: %w", err)
	}
	return nil
}

// RecordAccess stamps the most recent successful password verification.
func (r *DocumentLinkRepository) RecordAccess(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE document_links SET accessed_at = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("record document link access: %w", err)
	}
	return nil
}

// Complete sets the uploaded document, completion timestamp and completed
// status in a single statement so the transition is atomic.
func (r *DocumentLinkRepository) Complete(ctx context.Context, id, uploadedURL string, ts time.Time) error {
	const query = `UPDATE document_links SET uploaded_document_url = $2, status = $3, completed_at = $4, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, uploadedURL, models.LinkStatusCompleted, ts); err != nil {
		return fmt.Errorf("complete document link: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit trail entry.
func (r *DocumentLinkRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
