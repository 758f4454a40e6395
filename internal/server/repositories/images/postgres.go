// Package images provides the PostgreSQL-backed catalog repository. One row
// per stored image; the raw bytes live at the relay.
package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/imgvault/internal/common"
	"github.com/dmitrijs2005/imgvault/internal/dbx"
	"github.com/dmitrijs2005/imgvault/internal/server/models"
)

// PostgresRepository implements image storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const imageColumns = `id, file_id, thumb_file_id, short_code, tags, filename, size, folder, content_type, COALESCE(hash, ''), expires_at, created_at`

func scanImage(row interface{ Scan(...any) error }) (*models.Image, error) {
	var img models.Image
	err := row.Scan(
		&img.ID, &img.FileID, &img.ThumbFileID, &img.ShortCode, &img.Tags,
		&img.Filename, &img.Size, &img.Folder, &img.ContentType, &img.Hash,
		&img.ExpiresAt, &img.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// Insert stores one catalog row and returns the generated id.
func (r *PostgresRepository) Insert(ctx context.Context, img *models.Image) (int64, error) {
	query := `
		INSERT INTO images (file_id, thumb_file_id, short_code, tags, filename, size, folder, content_type, hash, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
		RETURNING id;
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		img.FileID, img.ThumbFileID, img.ShortCode, img.Tags, img.Filename,
		img.Size, img.Folder, img.ContentType, img.Hash, img.ExpiresAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert image: %w", err)
	}
	return id, nil
}

// SelectPage returns one page of rows, newest first, plus the total row
// count for the filter. Expired rows are excluded unless f.IncludeExpired.
func (r *PostgresRepository) SelectPage(ctx context.Context, f models.ListFilter, page, limit int) ([]*models.Image, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var where []string
	if !f.IncludeExpired {
		where = append(where, `(expires_at IS NULL OR expires_at > now())`)
	}
	var args []any

	if f.Search != "" {
		args = append(args, f.Search)
		n := len(args)
		where = append(where, fmt.Sprintf(`(filename ILIKE '%%' || $%d || '%%' OR tags ILIKE '%%' || $%d || '%%')`, n, n))
	}
	if f.Tag != "" {
		args = append(args, f.Tag)
		where = append(where, fmt.Sprintf(`tags ILIKE '%%' || $%d || '%%'`, len(args)))
	}
	if f.Filename != "" {
		args = append(args, f.Filename)
		where = append(where, fmt.Sprintf(`filename ILIKE '%%' || $%d || '%%'`, len(args)))
	}
	if f.Folder != "" {
		args = append(args, f.Folder)
		where = append(where, fmt.Sprintf(`folder = $%d`, len(args)))
	}

	cond := strings.Join(where, " AND ")
	if cond == "" {
		cond = "TRUE"
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM images WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count images: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM images WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		imageColumns, cond, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select images: %w", err)
	}
	defer rows.Close()

	var result []*models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// SelectByIDs returns the rows for exactly the given ids.
func (r *PostgresRepository) SelectByIDs(ctx context.Context, ids []int64) ([]*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = ANY($1) ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("select images by ids: %w", err)
	}
	defer rows.Close()

	var result []*models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByShortCode fetches one row by its unique short code.
func (r *PostgresRepository) GetByShortCode(ctx context.Context, code string) (*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE short_code = $1`
	img, err := scanImage(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get by short code: %w", err)
	}
	return img, nil
}

// DeleteByIDs removes the given rows and reports how many went away.
func (r *PostgresRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete images: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// DistinctFolders lists every folder path that currently holds at least one
// row. Virtual ancestors are derived by the service layer.
func (r *PostgresRepository) DistinctFolders(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT folder FROM images ORDER BY folder`)
	if err != nil {
		return nil, fmt.Errorf("distinct folders: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MoveToFolder rewrites the folder field of exactly the given ids.
func (r *PostgresRepository) MoveToFolder(ctx context.Context, ids []int64, target string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE images SET folder = $2 WHERE id = ANY($1)`, ids, target)
	if err != nil {
		return 0, fmt.Errorf("move images: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// CopyStmt builds the statement that duplicates row id into target under
// the provided fresh short code, preserving tags, filename, size, content
// type and digest. Callers batch these through dbx.ExecBatch so a set of
// copies lands atomically.
func CopyStmt(id int64, target, shortCode string) dbx.Stmt {
	query := `
		INSERT INTO images (file_id, thumb_file_id, short_code, tags, filename, size, folder, content_type, hash, expires_at)
		SELECT file_id, thumb_file_id, $3, tags, filename, size, $2, content_type, hash, expires_at
		FROM images WHERE id = $1;
	`
	return dbx.Stmt{Query: query, Args: []any{id, target, shortCode}}
}

// RenameFolderTree rewrites oldPath and every descendant to the equivalent
// path under newPath. Run it inside dbx.WithTx together with validation so
// a failure never leaves a half-renamed tree.
func (r *PostgresRepository) RenameFolderTree(ctx context.Context, oldPath, newPath string) (int64, error) {
	// Prefix match via left(), not LIKE: "_" is a legal folder character
	// and must not act as a wildcard.
	query := `
		UPDATE images
		SET folder = $2 || substr(folder, char_length($1) + 1)
		WHERE left(folder, char_length($1)) = $1;
	`
	res, err := r.db.ExecContext(ctx, query, oldPath, newPath)
	if err != nil {
		return 0, fmt.Errorf("rename folder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// DeleteFolderTree removes every row at path or any descendant path. The
// prefix match uses left() for the same reason as RenameFolderTree.
func (r *PostgresRepository) DeleteFolderTree(ctx context.Context, path string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE left(folder, char_length($1)) = $1`, path)
	if err != nil {
		return 0, fmt.Errorf("delete folder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Stats returns catalog-wide totals.
func (r *PostgresRepository) Stats(ctx context.Context) (*models.Stats, error) {
	query := `
		SELECT count(*), COALESCE(sum(size), 0), count(DISTINCT folder)
		FROM images
		WHERE expires_at IS NULL OR expires_at > now();
	`
	var s models.Stats
	if err := r.db.QueryRowContext(ctx, query).Scan(&s.Images, &s.Bytes, &s.Folders); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	tagQuery := `
		SELECT count(DISTINCT t)
		FROM images, unnest(string_to_array(tags, ',')) AS t
		WHERE tags <> '' AND (expires_at IS NULL OR expires_at > now());
	`
	if err := r.db.QueryRowContext(ctx, tagQuery).Scan(&s.Tags); err != nil {
		return nil, fmt.Errorf("tag stats: %w", err)
	}
	return &s, nil
}
