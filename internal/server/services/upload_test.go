package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/imgvault/internal/common"
)

func newUploadService(repo *fakeRepo, rl *fakeRelay) *UploadService {
	return NewUploadService(repo, rl, testLogger())
}

func validInput() UploadInput {
	return UploadInput{
		Data:        []byte("image bytes"),
		Filename:    "cat.png",
		ContentType: "image/png",
		Tags:        []string{"cats"},
		Folder:      "/pets/",
		Expire:      common.ExpireNever,
		Hash:        "digest1",
	}
}

func TestProcess_Success(t *testing.T) {
	repo := newFakeRepo()
	rl := newFakeRelay()

	img, err := newUploadService(repo, rl).Process(context.Background(), validInput())
	require.NoError(t, err)

	require.NotZero(t, img.ID)
	require.Len(t, img.ShortCode, shortCodeLength)
	require.Equal(t, "/pets/", img.Folder)
	require.Equal(t, "cats", img.Tags)
	require.Equal(t, "digest1", img.Hash)
	require.Nil(t, img.ExpiresAt)
	require.NotEmpty(t, img.FileID)
	require.Equal(t, img.FileID+"_thumb", img.ThumbFileID)
	require.Contains(t, rl.blobs, img.FileID)
}

func TestProcess_ExpiryPolicyProducesTimestamp(t *testing.T) {
	repo := newFakeRepo()
	rl := newFakeRelay()

	in := validInput()
	in.Expire = common.ExpireWeek

	img, err := newUploadService(repo, rl).Process(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, img.ExpiresAt)
}

func TestProcess_DefaultTagApplied(t *testing.T) {
	repo := newFakeRepo()
	rl := newFakeRelay()

	in := validInput()
	in.Tags = nil

	img, err := newUploadService(repo, rl).Process(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, common.DefaultTag, img.Tags)
}

func TestProcess_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UploadInput)
		want   error
	}{
		{"empty file", func(in *UploadInput) { in.Data = nil }, common.ErrEmptyFile},
		{"not an image", func(in *UploadInput) { in.ContentType = "text/html" }, common.ErrUnsupportedType},
		{"oversized", func(in *UploadInput) { in.Data = make([]byte, common.MaxUploadBytes+1) }, common.ErrOversized},
		{"bad expire", func(in *UploadInput) { in.Expire = "14" }, common.ErrInvalidExpire},
		{"bad folder", func(in *UploadInput) { in.Folder = "/no spaces/" }, common.ErrInvalidFolder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			rl := newFakeRelay()

			in := validInput()
			tt.mutate(&in)

			_, err := newUploadService(repo, rl).Process(context.Background(), in)
			require.ErrorIs(t, err, tt.want)
			require.Empty(t, rl.blobs, "validation must run before the relay store")
		})
	}
}

func TestProcess_RelayFailureNoCatalogRow(t *testing.T) {
	repo := newFakeRepo()
	rl := newFakeRelay()
	rl.storeErr = errors.New("relay down")

	_, err := newUploadService(repo, rl).Process(context.Background(), validInput())
	require.Error(t, err)
	require.Empty(t, repo.rows, "no orphan metadata on relay failure")
}

func TestProcess_ShortCodeCollisionRetried(t *testing.T) {
	repo := newFakeRepo()
	repo.insertErr = []error{errors.New("unique violation"), nil}
	rl := newFakeRelay()

	img, err := newUploadService(repo, rl).Process(context.Background(), validInput())
	require.NoError(t, err)
	require.NotZero(t, img.ID)
}

func TestProcess_InsertFailureCleansUpRelay(t *testing.T) {
	repo := newFakeRepo()
	unique := errors.New("unique violation")
	repo.insertErr = []error{unique, unique, unique}
	rl := newFakeRelay()

	_, err := newUploadService(repo, rl).Process(context.Background(), validInput())
	require.Error(t, err)
	require.NotEmpty(t, rl.deleted, "orphan blob should be reclaimed")
}
