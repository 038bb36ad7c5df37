package repository

import (
	"context"

	bq "cloud.google.com/go/bigquery"
	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"

	"github.com/shopsight/churn-report/infrastructure/warehouse/bigquery"
)

type bigQueryShopRepository struct {
	client *bigquery.Client
	table  string
}

func NewBigQueryShopRepository(client *bigquery.Client, table string) ShopRepository {
	return &bigQueryShopRepository{
		client: client,
		table:  table,
	}
}

func (r *bigQueryShopRepository) FindShopIDs(ctx context.Context, name string) ([]int64, error) {
	shopsSQL, shopsArgs, err := squirrel.
		Select("shop_id").
		From(qualifiedTable(r.client.Dataset, r.table)).
		Where(squirrel.Expr("LOWER(shop_name) = LOWER(?)", name)).
		ToSql()
	if err != nil {
		return nil, err
	}

	query := r.client.Query(shopsSQL)
	for _, arg := range shopsArgs {
		query.Parameters = append(query.Parameters, bq.QueryParameter{Value: arg})
	}

	it, err := query.Read(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying shop ids")
	}

	ids := make([]int64, 0)

	for {
		var row struct {
			ShopID int64 `bigquery:"shop_id"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "iterating shop rows")
		}
		ids = append(ids, row.ShopID)
	}

	return ids, nil
}
