package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/imgvault/internal/common"
	"github.com/dmitrijs2005/imgvault/internal/dbx"
	"github.com/dmitrijs2005/imgvault/internal/logging"
	"github.com/dmitrijs2005/imgvault/internal/server/repositories/images"
)

// RepoFactory builds a repository over a plain connection or a transaction
// handle, so multi-statement folder operations run atomically.
type RepoFactory func(dbx.DBTX) images.Repository

// FolderService implements the folder lifecycle. Folders are virtual: a
// node exists exactly when some catalog row carries its path (ancestors are
// implied), so every operation is a rewrite of the folder column.
type FolderService struct {
	db    *sql.DB
	repos RepoFactory
	log   logging.Logger
}

func NewFolderService(db *sql.DB, repos RepoFactory, log logging.Logger) *FolderService {
	return &FolderService{db: db, repos: repos, log: log}
}

// List returns every folder path, including implied ancestors and the root.
func (s *FolderService) List(ctx context.Context) ([]string, error) {
	folders, err := s.repos(s.db).DistinctFolders(ctx)
	if err != nil {
		return nil, err
	}
	return expandAncestors(folders), nil
}

// Move rewrites the folder field of exactly the given ids.
func (s *FolderService) Move(ctx context.Context, ids []int64, target string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	folder, err := ValidateFolder(target)
	if err != nil {
		return 0, err
	}
	return s.repos(s.db).MoveToFolder(ctx, ids, folder)
}

// Copy duplicates each given row into target under a freshly generated
// short code. The copies are applied as one statement batch: all land or
// none do.
func (s *FolderService) Copy(ctx context.Context, ids []int64, target string) error {
	if len(ids) == 0 {
		return nil
	}
	folder, err := ValidateFolder(target)
	if err != nil {
		return err
	}

	rows, err := s.repos(s.db).SelectByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve copy sources: %w", err)
	}
	if len(rows) != len(ids) {
		return fmt.Errorf("%w: %d of %d ids", common.ErrorNotFound, len(ids)-len(rows), len(ids))
	}

	stmts := make([]dbx.Stmt, 0, len(rows))
	for _, img := range rows {
		stmts = append(stmts, images.CopyStmt(img.ID, folder, GenerateShortCode()))
	}
	if err := dbx.ExecBatch(ctx, s.db, stmts); err != nil {
		return fmt.Errorf("copy batch: %w", err)
	}
	return nil
}

// Rename moves oldPath and every descendant under newPath inside one
// transaction; any failure rolls the whole rename back.
func (s *FolderService) Rename(ctx context.Context, oldPath, newPath string) (int64, error) {
	oldNorm, err := ValidateFolder(oldPath)
	if err != nil {
		return 0, err
	}
	newNorm, err := ValidateFolder(newPath)
	if err != nil {
		return 0, err
	}
	if oldNorm == "/" {
		return 0, fmt.Errorf("%w: cannot rename the root", common.ErrInvalidFolder)
	}
	if newNorm == oldNorm || strings.HasPrefix(newNorm, oldNorm) {
		return 0, fmt.Errorf("%w: %q is inside %q", common.ErrInvalidFolder, newNorm, oldNorm)
	}

	var moved int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		moved, err = s.repos(tx).RenameFolderTree(ctx, oldNorm, newNorm)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "folder renamed", "from", oldNorm, "to", newNorm, "rows", moved)
	return moved, nil
}

// Delete removes every record at path or below inside one transaction.
func (s *FolderService) Delete(ctx context.Context, path string) (int64, error) {
	norm, err := ValidateFolder(path)
	if err != nil {
		return 0, err
	}
	if norm == "/" {
		return 0, fmt.Errorf("%w: cannot delete the root", common.ErrInvalidFolder)
	}

	var removed int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		removed, err = s.repos(tx).DeleteFolderTree(ctx, norm)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "folder deleted", "path", norm, "rows", removed)
	return removed, nil
}
