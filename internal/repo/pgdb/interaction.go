package pgdb

import (
	"context"

	"github.com/Egor213/JewelCRM/internal/domain"
	errorsUtils "github.com/Egor213/JewelCRM/pkg/errors"
	"github.com/Egor213/JewelCRM/pkg/postgres"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

type InteractionRepo struct {
	*postgres.Postgres
}

func NewInteractionRepo(pg *postgres.Postgres) *InteractionRepo {
	return &InteractionRepo{pg}
}

func (r *InteractionRepo) Create(ctx context.Context, i *domain.Interaction) (domain.Interaction, error) {
	sql, args, err := r.Builder.
		Insert("customer_interactions").
		Columns("customer_id", "kind", "note", "created_by").
		Values(i.CustomerID, i.Kind, i.Note, i.CreatedBy).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return domain.Interaction{}, errorsUtils.WrapPathErr(err)
	}

	created := *i
	err = r.CtxGetter.DefaultTrOrDB(ctx, r.Pool).QueryRow(ctx, sql, args...).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return domain.Interaction{}, errorsUtils.WrapPathErr(translateErr(err))
	}
	return created, nil
}

func (r *InteractionRepo) ListByCustomer(ctx context.Context, customerID int) ([]domain.Interaction, error) {
	sql, args, err := r.Builder.
		Select("id", "customer_id", "kind", "note", "created_by", "created_at").
		From("customer_interactions").
		Where(sq.Eq{"customer_id": customerID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}

	rows, err := r.CtxGetter.DefaultTrOrDB(ctx, r.Pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}
	defer rows.Close()

	interactions, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Interaction])
	if err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}
	return interactions, nil
}
