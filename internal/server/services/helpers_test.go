package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrijs2005/imgvault/internal/common"
	"github.com/dmitrijs2005/imgvault/internal/logging"
	"github.com/dmitrijs2005/imgvault/internal/server/models"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeRepo is an in-memory images.Repository for service tests.
type fakeRepo struct {
	rows      map[int64]*models.Image
	nextID    int64
	insertErr []error // popped per Insert call; nil entry means success
	selectErr error
	deleteErr error

	deletedIDs []int64
	moved      map[int64]string
	renames    [][2]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[int64]*models.Image{}, moved: map[int64]string{}}
}

func (f *fakeRepo) add(img *models.Image) *models.Image {
	f.nextID++
	img.ID = f.nextID
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Unix(1700000000+img.ID, 0)
	}
	f.rows[img.ID] = img
	return img
}

func (f *fakeRepo) Insert(ctx context.Context, img *models.Image) (int64, error) {
	if len(f.insertErr) > 0 {
		err := f.insertErr[0]
		f.insertErr = f.insertErr[1:]
		if err != nil {
			return 0, err
		}
	}
	return f.add(img).ID, nil
}

func (f *fakeRepo) SelectPage(ctx context.Context, filter models.ListFilter, page, limit int) ([]*models.Image, int64, error) {
	if f.selectErr != nil {
		return nil, 0, f.selectErr
	}
	now := time.Now()
	var all []*models.Image
	for id := int64(1); id <= f.nextID; id++ {
		img, ok := f.rows[id]
		if !ok {
			continue
		}
		if !filter.IncludeExpired && img.ExpiresAt != nil && img.ExpiresAt.Before(now) {
			continue
		}
		all = append(all, img)
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, int64(len(all)), nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (f *fakeRepo) SelectByIDs(ctx context.Context, ids []int64) ([]*models.Image, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	var result []*models.Image
	for _, id := range ids {
		if img, ok := f.rows[id]; ok {
			result = append(result, img)
		}
	}
	return result, nil
}

func (f *fakeRepo) GetByShortCode(ctx context.Context, code string) (*models.Image, error) {
	for _, img := range f.rows {
		if img.ShortCode == code {
			return img, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRepo) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	var n int64
	for _, id := range ids {
		if _, ok := f.rows[id]; ok {
			delete(f.rows, id)
			f.deletedIDs = append(f.deletedIDs, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) DistinctFolders(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	for _, img := range f.rows {
		seen[img.Folder] = struct{}{}
	}
	var result []string
	for folder := range seen {
		result = append(result, folder)
	}
	return result, nil
}

func (f *fakeRepo) MoveToFolder(ctx context.Context, ids []int64, target string) (int64, error) {
	var n int64
	for _, id := range ids {
		if img, ok := f.rows[id]; ok {
			img.Folder = target
			f.moved[id] = target
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) RenameFolderTree(ctx context.Context, oldPath, newPath string) (int64, error) {
	var n int64
	for _, img := range f.rows {
		if img.Folder == oldPath || (len(img.Folder) > len(oldPath) && img.Folder[:len(oldPath)] == oldPath) {
			img.Folder = newPath + img.Folder[len(oldPath):]
			n++
		}
	}
	f.renames = append(f.renames, [2]string{oldPath, newPath})
	return n, nil
}

func (f *fakeRepo) DeleteFolderTree(ctx context.Context, path string) (int64, error) {
	var n int64
	for id, img := range f.rows {
		if img.Folder == path || (len(img.Folder) > len(path) && img.Folder[:len(path)] == path) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) Stats(ctx context.Context) (*models.Stats, error) {
	var bytes int64
	for _, img := range f.rows {
		bytes += img.Size
	}
	return &models.Stats{Images: int64(len(f.rows)), Bytes: bytes}, nil
}

// fakeRelay keeps blobs in memory keyed by generated refs.
type fakeRelay struct {
	blobs    map[string][]byte
	nextRef  int
	fetchErr map[string]error
	storeErr error
	deleted  []string
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{blobs: map[string][]byte{}, fetchErr: map[string]error{}}
}

func (f *fakeRelay) put(data []byte) string {
	f.nextRef++
	ref := "ref-" + string(rune('a'+f.nextRef-1))
	f.blobs[ref] = data
	return ref
}

func (f *fakeRelay) Store(ctx context.Context, data []byte, contentType string) (string, string, error) {
	if f.storeErr != nil {
		return "", "", f.storeErr
	}
	ref := f.put(data)
	return ref, ref + "_thumb", nil
}

func (f *fakeRelay) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err, ok := f.fetchErr[ref]; ok {
		return nil, err
	}
	data, ok := f.blobs[ref]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return data, nil
}

func (f *fakeRelay) Delete(ctx context.Context, refs ...string) error {
	f.deleted = append(f.deleted, refs...)
	return nil
}
