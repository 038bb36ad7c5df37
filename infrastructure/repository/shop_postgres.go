package repository

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/shopsight/churn-report/infrastructure/warehouse/postgres"
)

type shopRepository struct {
	conn  postgres.Queryer
	table string
}

func NewShopRepository(conn postgres.Queryer, table string) ShopRepository {
	return &shopRepository{
		conn:  conn,
		table: table,
	}
}

func (r *shopRepository) FindShopIDs(ctx context.Context, name string) ([]int64, error) {
	shopsSQL, shopsArgs, err := squirrel.
		Select("shop_id").
		From(r.table).
		Where(squirrel.Expr("LOWER(shop_name) = LOWER(?)", name)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.conn.Query(ctx, shopsSQL, shopsArgs...)
	if err != nil {
		return nil, errors.Wrap(err, "querying shop ids")
	}
	defer rows.Close()

	ids := make([]int64, 0)

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scanning shop id")
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating shop rows")
	}

	return ids, nil
}
