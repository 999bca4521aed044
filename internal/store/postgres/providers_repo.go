package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"bookcal/backend/internal/domain"
	"bookcal/backend/internal/store"
)

type ProviderRepo struct {
	db *bun.DB
}

func NewProviderRepo(db *bun.DB) *ProviderRepo {
	return &ProviderRepo{db: db}
}

func (r *ProviderRepo) Create(ctx context.Context, p domain.Provider) (domain.Provider, error) {
	m := p
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Provider{}, store.ErrConflict
		}
		return domain.Provider{}, err
	}
	return m, nil
}

func (r *ProviderRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.Provider, error) {
	var p domain.Provider
	err := r.db.NewSelect().
		Model(&p).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Provider{}, store.ErrNotFound
		}
		return domain.Provider{}, err
	}
	return p, nil
}

func (r *ProviderRepo) FindByEmail(ctx context.Context, email string) (domain.Provider, error) {
	var p domain.Provider
	err := r.db.NewSelect().
		Model(&p).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Provider{}, store.ErrNotFound
		}
		return domain.Provider{}, err
	}
	return p, nil
}

func (r *ProviderRepo) FindBySharableID(ctx context.Context, sharableID string) (domain.Provider, error) {
	var p domain.Provider
	err := r.db.NewSelect().
		Model(&p).
		Where("sharable_id = ?", sharableID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Provider{}, store.ErrNotFound
		}
		return domain.Provider{}, err
	}
	return p, nil
}

func (r *ProviderRepo) UpdateSharableID(ctx context.Context, id uuid.UUID, sharableID string) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Provider)(nil)).
		Set("sharable_id = ?", sharableID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrConflict
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *ProviderRepo) List(ctx context.Context) ([]domain.Provider, error) {
	var rows []domain.Provider
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
