package services

import (
	"context"

	"github.com/dmitrijs2005/imgvault/internal/logging"
	"github.com/dmitrijs2005/imgvault/internal/server/models"
	"github.com/dmitrijs2005/imgvault/internal/server/repositories/images"
)

// CatalogService serves the listing, batch delete and stats endpoints.
type CatalogService struct {
	repo images.Repository
	log  logging.Logger
}

func NewCatalogService(repo images.Repository, log logging.Logger) *CatalogService {
	return &CatalogService{repo: repo, log: log}
}

// History returns one page of the catalog, newest first.
func (s *CatalogService) History(ctx context.Context, f models.ListFilter, page, limit int) ([]*models.Image, int64, error) {
	return s.repo.SelectPage(ctx, f, page, limit)
}

// Delete removes catalog rows by id. Remote blobs are not purged; the
// relay keeps them until an out-of-band cleanup.
func (s *CatalogService) Delete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "records deleted", "count", n)
	return n, nil
}

// Stats returns catalog-wide totals.
func (s *CatalogService) Stats(ctx context.Context) (*models.Stats, error) {
	return s.repo.Stats(ctx)
}

// GetByShortCode resolves one record for direct access.
func (s *CatalogService) GetByShortCode(ctx context.Context, code string) (*models.Image, error) {
	return s.repo.GetByShortCode(ctx, code)
}
