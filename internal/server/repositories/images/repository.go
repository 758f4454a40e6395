package images

import (
	"context"

	"github.com/dmitrijs2005/imgvault/internal/server/models"
)

// Repository is the catalog surface the services depend on. Implementations
// are bound to a dbx.DBTX, so the same repository code runs against a plain
// connection or inside a transaction.
type Repository interface {
	Insert(ctx context.Context, img *models.Image) (int64, error)
	SelectPage(ctx context.Context, f models.ListFilter, page, limit int) ([]*models.Image, int64, error)
	SelectByIDs(ctx context.Context, ids []int64) ([]*models.Image, error)
	GetByShortCode(ctx context.Context, code string) (*models.Image, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	DistinctFolders(ctx context.Context) ([]string, error)
	MoveToFolder(ctx context.Context, ids []int64, target string) (int64, error)
	RenameFolderTree(ctx context.Context, oldPath, newPath string) (int64, error)
	DeleteFolderTree(ctx context.Context, path string) (int64, error)
	Stats(ctx context.Context) (*models.Stats, error)
}
