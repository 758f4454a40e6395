package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/imgvault/internal/dbx"
	"github.com/dmitrijs2005/imgvault/internal/server/migrations"
	"github.com/dmitrijs2005/imgvault/internal/server/repositories/images"
)

type PostgresRepositoryManager struct {
	db     *sql.DB
	images images.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Images() images.Repository {
	return m.images
}

func (m *PostgresRepositoryManager) ImagesOn(tx dbx.DBTX) images.Repository {
	return images.NewPostgresRepository(tx)
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	return &PostgresRepositoryManager{db: db, images: images.NewPostgresRepository(db)}, nil
}
