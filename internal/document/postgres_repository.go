package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nikhilbhutani/pdfsummarizer/internal/models"
)

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const documentsTable = "documents"

var documentColumns = []string{
	"id", "filename", "upload_time", "extracted_text", "object_uri", "status",
	"failed_stage", "failure_reason", "page_count", "file_size_bytes", "summary",
}

type PostgresRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *PostgresRepository) Insert(ctx context.Context, doc *models.Document) (string, error) {
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	sql, args, err := r.sb.Insert(documentsTable).
		Columns(documentColumns...).
		Values(id, doc.Filename, doc.UploadTime, doc.ExtractedText, doc.ObjectURI, doc.Status,
			doc.FailedStage, doc.FailureReason, doc.PageCount, doc.FileSizeBytes, doc.Summary).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, patch models.DocumentPatch) (int64, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return 0, ErrMalformedID
	}
	if patch.IsEmpty() {
		return 0, nil
	}

	q := r.sb.Update(documentsTable)
	if patch.ExtractedText != nil {
		q = q.Set("extracted_text", *patch.ExtractedText)
	}
	if patch.ObjectURI != nil {
		q = q.Set("object_uri", *patch.ObjectURI)
	}
	if patch.Status != nil {
		q = q.Set("status", *patch.Status)
	}
	if patch.FailedStage != nil {
		q = q.Set("failed_stage", *patch.FailedStage)
	}
	if patch.FailureReason != nil {
		q = q.Set("failure_reason", *patch.FailureReason)
	}
	if patch.PageCount != nil {
		q = q.Set("page_count", *patch.PageCount)
	}
	if patch.Summary != nil {
		q = q.Set("summary", *patch.Summary)
	}

	sql, args, err := q.Where(squirrel.Eq{"id": uid.String()}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("update document: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrMalformedID
	}

	sql, args, err := r.sb.Select(documentColumns...).
		From(documentsTable).
		Where(squirrel.Eq{"id": uid.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	doc, err := scanDocument(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]models.Document, int64, error) {
	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From(documentsTable).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	sql, args, err := r.sb.Select(documentColumns...).
		From(documentsTable).
		OrderBy("upload_time DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.Filename, &d.UploadTime, &d.ExtractedText, &d.ObjectURI, &d.Status,
		&d.FailedStage, &d.FailureReason, &d.PageCount, &d.FileSizeBytes, &d.Summary)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
