package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/meridian-legal/docvault-api/internal/models"
)

func newLinkRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func linkRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "description", "client_name", "client_email", "unique_token", "password_hash", "document_url", "uploaded_document_url", "status", "expires_at", "accessed_at", "completed_at", "created_by", "created_at", "updated_at"})
}

func TestDocumentLinkRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewDocumentLinkRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_links")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	link := &models.DocumentLink{
		Title:        "NDA",
		UniqueToken:  "tok-1",
		PasswordHash: "$2a$10$hash",
		Status:       models.LinkStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), link))
	require.NotEmpty(t, link.ID)
	require.False(t, link.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentLinkRepositoryFindByToken(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewDocumentLinkRepository(db)
	now := time.Now().UTC()
	rows := linkRows().
		AddRow("link-1", "NDA", "", "Acme Corp", "", "tok-1", "$2a$10$hash", nil, nil, "pending", nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description")).
		WithArgs("tok-1").
		WillReturnRows(rows)

	link, err := repo.FindByToken(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Equal(t, "link-1", link.ID)
	require.Equal(t, models.LinkStatusPending, link.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentLinkRepositoryFindByTokenNotFound(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewDocumentLinkRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByToken(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentLinkRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewDocumentLinkRepository(db)
	now := time.Now().UTC()
	rows := linkRows().
		AddRow("link-1", "NDA", "", "Acme Corp", "", "tok-1", "$2a$10$hash", nil, nil, "pending", nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description")).
		WithArgs("pending", "%acme%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("pending", "%acme%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.LinkStatusPending
	links, total, err := repo.List(context.Background(), models.LinkFilter{Status: &status, Search: "Acme"})
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentLinkRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewDocumentLinkRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_links SET title")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.DocumentLink{ID: "missing", Title: "NDA"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentLinkRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewDocumentLinkRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM document_links")).
		WithArgs("link-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "link-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM document_links")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), "missing"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentLinkRepositoryMarkExpiredGuardsPending(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewDocumentLinkRepository(db)
	ts := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_links SET status")).
		WithArgs("link-1", "expired", ts, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkExpired(context.Background(), "link-1", ts))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentLinkRepositoryComplete(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewDocumentLinkRepository(db)
	ts := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_links SET uploaded_document_url")).
		WithArgs("link-1", "https://files.example.com/signed.pdf", "completed", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Complete(context.Background(), "link-1", "https://files.example.com/signed.pdf", ts))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentLinkRepositoryRecordAccess(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewDocumentLinkRepository(db)
	ts := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_links SET accessed_at")).
		WithArgs("link-1", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordAccess(context.Background(), "link-1", ts))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentLinkRepositoryCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewDocumentLinkRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionLinkVerify, Resource: "document_links"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
