package archive

import (
	"context"

	"github.com/google/uuid"

	"iconforge/internal/domain"
	"iconforge/internal/infra"
	"iconforge/internal/sqlinline"
)

type PostgresRepository struct {
	sql infra.SQLExecutor
}

func NewPostgresRepository(sql infra.SQLExecutor) *PostgresRepository {
	return &PostgresRepository{sql: sql}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIcon(row scanner) (domain.Icon, error) {
	var icon domain.Icon
	err := row.Scan(&icon.ID, &icon.AccountKey, &icon.Prompt, &icon.StorageKey, &icon.MIME, &icon.Bytes, &icon.Favorite, &icon.CreatedAt)
	return icon, err
}

func (p *PostgresRepository) Save(ctx context.Context, icon *domain.Icon) error {
	_, err := p.sql.Exec(ctx, sqlinline.QInsertIcon,
		icon.ID, icon.AccountKey, icon.Prompt, icon.StorageKey, icon.MIME, icon.Bytes, icon.CreatedAt)
	return err
}

func (p *PostgresRepository) ListByAccount(ctx context.Context, accountKey string, limit int) ([]domain.Icon, error) {
	rows, err := p.sql.Query(ctx, sqlinline.QListIconsByAccount, accountKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	icons := make([]domain.Icon, 0)
	for rows.Next() {
		icon, err := scanIcon(rows)
		if err != nil {
			return nil, err
		}
		icons = append(icons, icon)
	}
	return icons, rows.Err()
}

func (p *PostgresRepository) Get(ctx context.Context, id, accountKey string) (*domain.Icon, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	icon, err := scanIcon(p.sql.QueryRow(ctx, sqlinline.QSelectIcon, id, accountKey))
	if infra.IsNoRows(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &icon, nil
}

func (p *PostgresRepository) Delete(ctx context.Context, id, accountKey string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	var storageKey string
	err := p.sql.QueryRow(ctx, sqlinline.QDeleteIcon, id, accountKey).Scan(&storageKey)
	if infra.IsNoRows(err) {
		return domain.ErrNotFound
	}
	return err
}

func (p *PostgresRepository) SetFavorite(ctx context.Context, id, accountKey string, favorite bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	tag, err := p.sql.Exec(ctx, sqlinline.QSetIconFavorite, id, accountKey, favorite)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.IconRepository = (*PostgresRepository)(nil)
