package repository

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/shopsight/churn-report/infrastructure/warehouse/postgres"
	"github.com/shopsight/churn-report/internal/domain"
)

type predictionRepository struct {
	conn  postgres.Queryer
	table string
}

func NewPredictionRepository(conn postgres.Queryer, table string) PredictionRepository {
	return &predictionRepository{
		conn:  conn,
		table: table,
	}
}

func (r *predictionRepository) ListPredictions(ctx context.Context) ([]domain.Prediction, error) {
	predictionsSQL, predictionsArgs, err := squirrel.
		Select("shop_id", "run_date", "proba_churn", "group_number").
		From(r.table).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.conn.Query(ctx, predictionsSQL, predictionsArgs...)
	if err != nil {
		return nil, errors.Wrap(err, "querying predictions")
	}
	defer rows.Close()

	predictions := make([]domain.Prediction, 0)

	for rows.Next() {
		// lib/pq scans "timestamp without time zone" with a UTC location,
		// which is exactly the zoneless-means-UTC policy this tool applies.
		var p domain.Prediction
		if err := rows.Scan(&p.ShopID, &p.RunDate, &p.ProbaChurn, &p.GroupNumber); err != nil {
			return nil, errors.Wrap(err, "scanning prediction row")
		}
		predictions = append(predictions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating prediction rows")
	}

	return predictions, nil
}
