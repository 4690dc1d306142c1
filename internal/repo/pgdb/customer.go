package pgdb

import (
	"context"

	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/repo/repotypes"
	errorsUtils "github.com/Egor213/JewelCRM/pkg/errors"
	"github.com/Egor213/JewelCRM/pkg/postgres"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var customerColumns = []string{"id", "email", "full_name", "phone", "notes", "created_at"}

type CustomerRepo struct {
	*postgres.Postgres
}

func NewCustomerRepo(pg *postgres.Postgres) *CustomerRepo {
	return &CustomerRepo{pg}
}

func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) (domain.Customer, error) {
	sql, args, err := r.Builder.
		Insert("customers").
		Columns("email", "full_name", "phone", "notes").
		Values(c.Email, c.FullName, c.Phone, c.Notes).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return domain.Customer{}, errorsUtils.WrapPathErr(err)
	}

	created := *c
	err = r.CtxGetter.DefaultTrOrDB(ctx, r.Pool).QueryRow(ctx, sql, args...).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return domain.Customer{}, errorsUtils.WrapPathErr(translateErr(err))
	}
	return created, nil
}

func (r *CustomerRepo) GetByID(ctx context.Context, id int) (domain.Customer, error) {
	sql, args, err := r.Builder.
		Select(customerColumns...).
		From("customers").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Customer{}, errorsUtils.WrapPathErr(err)
	}

	rows, err := r.CtxGetter.DefaultTrOrDB(ctx, r.Pool).Query(ctx, sql, args...)
	if err != nil {
		return domain.Customer{}, errorsUtils.WrapPathErr(err)
	}

	customer, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[domain.Customer])
	if err != nil {
		return domain.Customer{}, errorsUtils.WrapPathErr(translateErr(err))
	}
	return customer, nil
}

func (r *CustomerRepo) List(ctx context.Context, filter repotypes.CustomerFilter) ([]domain.Customer, error) {
	conds, limit, offset := BuildCustomerQueryFilters(filter)

	query := r.Builder.
		Select(customerColumns...).
		From("customers").
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		Offset(offset)

	if len(conds) > 0 {
		query = query.Where(sq.And(conds))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}

	rows, err := r.CtxGetter.DefaultTrOrDB(ctx, r.Pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}
	defer rows.Close()

	customers, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Customer])
	if err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}
	return customers, nil
}

func (r *CustomerRepo) Delete(ctx context.Context, id int) (int64, error) {
	sql, args, err := r.Builder.
		Delete("customers").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, errorsUtils.WrapPathErr(err)
	}

	tag, err := r.CtxGetter.DefaultTrOrDB(ctx, r.Pool).Exec(ctx, sql, args...)
	if err != nil {
		return 0, errorsUtils.WrapPathErr(translateErr(err))
	}
	return tag.RowsAffected(), nil
}
