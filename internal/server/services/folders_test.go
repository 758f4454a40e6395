package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/imgvault/internal/common"
	"github.com/dmitrijs2005/imgvault/internal/dbx"
	"github.com/dmitrijs2005/imgvault/internal/server/models"
	"github.com/dmitrijs2005/imgvault/internal/server/repositories/images"
)

// folderFixture wires a FolderService over a fakeRepo. The sqlmock database
// exists to drive WithTx and ExecBatch begin/exec/commit/rollback.
func folderFixture(t *testing.T) (*FolderService, *fakeRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := newFakeRepo()
	svc := NewFolderService(db, func(dbx.DBTX) images.Repository { return repo }, testLogger())
	return svc, repo, mock
}

func TestFolderList_ExpandsAncestors(t *testing.T) {
	svc, repo, _ := folderFixture(t)
	repo.add(&models.Image{Folder: "/trips/2024/rome/"})
	repo.add(&models.Image{Folder: "/pets/"})

	folders, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"/", "/pets/", "/trips/", "/trips/2024/", "/trips/2024/rome/"}, folders)
}

func TestFolderMove(t *testing.T) {
	svc, repo, _ := folderFixture(t)
	a := repo.add(&models.Image{Folder: "/"})
	b := repo.add(&models.Image{Folder: "/"})

	n, err := svc.Move(context.Background(), []int64{a.ID, b.ID}, "trips")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.Equal(t, "/trips/", repo.rows[a.ID].Folder)
	require.Equal(t, "/trips/", repo.rows[b.ID].Folder)
}

func TestFolderMove_InvalidTarget(t *testing.T) {
	svc, repo, _ := folderFixture(t)
	a := repo.add(&models.Image{Folder: "/"})

	_, err := svc.Move(context.Background(), []int64{a.ID}, "bad name")
	require.ErrorIs(t, err, common.ErrInvalidFolder)
	require.Equal(t, "/", repo.rows[a.ID].Folder)
}

func TestFolderMove_EmptyIDsIsNoop(t *testing.T) {
	svc, _, _ := folderFixture(t)
	n, err := svc.Move(context.Background(), nil, "trips")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestFolderCopy_AppliesOneAtomicBatch(t *testing.T) {
	svc, repo, mock := folderFixture(t)
	a := repo.add(&models.Image{Folder: "/", ShortCode: "orig0001"})
	b := repo.add(&models.Image{Folder: "/", ShortCode: "orig0002"})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO images").
		WithArgs(a.ID, "/trips/", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO images").
		WithArgs(b.ID, "/trips/", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.Copy(context.Background(), []int64{a.ID, b.ID}, "trips")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderCopy_MissingRowFailsBeforeTheBatch(t *testing.T) {
	svc, repo, mock := folderFixture(t)
	a := repo.add(&models.Image{Folder: "/"})

	err := svc.Copy(context.Background(), []int64{a.ID, 999}, "trips")
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet(), "no transaction may start for a missing source")
}

func TestFolderCopy_RollsBackOnStatementFailure(t *testing.T) {
	svc, repo, mock := folderFixture(t)
	a := repo.add(&models.Image{Folder: "/"})
	b := repo.add(&models.Image{Folder: "/"})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO images").
		WithArgs(a.ID, "/trips/", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO images").
		WithArgs(b.ID, "/trips/", sqlmock.AnyArg()).
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err := svc.Copy(context.Background(), []int64{a.ID, b.ID}, "trips")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRename(t *testing.T) {
	svc, repo, mock := folderFixture(t)
	repo.add(&models.Image{Folder: "/trips/"})
	repo.add(&models.Image{Folder: "/trips/rome/"})
	untouched := repo.add(&models.Image{Folder: "/pets/"})

	mock.ExpectBegin()
	mock.ExpectCommit()

	n, err := svc.Rename(context.Background(), "trips", "travel")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Equal(t, "/pets/", repo.rows[untouched.ID].Folder)
	require.Equal(t, [][2]string{{"/trips/", "/travel/"}}, repo.renames)
}

func TestFolderRename_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
	}{
		{"root", "/", "travel"},
		{"into itself", "trips", "trips/2024"},
		{"same path", "trips", "trips"},
		{"invalid old", "bad name", "travel"},
		{"invalid new", "trips", "bad name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, mock := folderFixture(t)
			_, err := svc.Rename(context.Background(), tt.old, tt.new)
			require.ErrorIs(t, err, common.ErrInvalidFolder)
			require.NoError(t, mock.ExpectationsWereMet(), "rejected before any transaction")
		})
	}
}

func TestFolderDelete(t *testing.T) {
	svc, repo, mock := folderFixture(t)
	repo.add(&models.Image{Folder: "/trips/"})
	repo.add(&models.Image{Folder: "/trips/rome/"})
	kept := repo.add(&models.Image{Folder: "/pets/"})

	mock.ExpectBegin()
	mock.ExpectCommit()

	n, err := svc.Delete(context.Background(), "trips")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, repo.rows, 1)
	require.Contains(t, repo.rows, kept.ID)
}

func TestFolderDelete_RootRejected(t *testing.T) {
	svc, _, _ := folderFixture(t)
	_, err := svc.Delete(context.Background(), "/")
	require.ErrorIs(t, err, common.ErrInvalidFolder)
}

func TestFolderRename_TxBeginFailure(t *testing.T) {
	svc, _, mock := folderFixture(t)
	mock.ExpectBegin().WillReturnError(errors.New("db gone"))

	_, err := svc.Rename(context.Background(), "trips", "travel")
	require.Error(t, err)
}
