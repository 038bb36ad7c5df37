package repository

import (
	"context"
	"fmt"
	"time"

	bq "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"

	"github.com/shopsight/churn-report/infrastructure/warehouse/bigquery"
	"github.com/shopsight/churn-report/internal/domain"
)

type bigQueryPredictionRepository struct {
	client *bigquery.Client
	table  string
}

func NewBigQueryPredictionRepository(client *bigquery.Client, table string) PredictionRepository {
	return &bigQueryPredictionRepository{
		client: client,
		table:  table,
	}
}

func (r *bigQueryPredictionRepository) ListPredictions(ctx context.Context) ([]domain.Prediction, error) {
	predictionsSQL, _, err := squirrel.
		Select("shop_id", "run_date", "proba_churn", "group_number").
		From(qualifiedTable(r.client.Dataset, r.table)).
		ToSql()
	if err != nil {
		return nil, err
	}

	it, err := r.client.Query(predictionsSQL).Read(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying predictions")
	}

	predictions := make([]domain.Prediction, 0)

	for {
		var row map[string]bq.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "iterating prediction rows")
		}

		p, err := decodePrediction(row)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}

	return predictions, nil
}

// decodePrediction materializes one warehouse row. run_date may arrive as a
// TIMESTAMP (already an instant) or as a zoneless DATETIME; zoneless values
// are interpreted as UTC instants.
func decodePrediction(row map[string]bq.Value) (domain.Prediction, error) {
	p := domain.Prediction{}

	shopID, ok := row["shop_id"].(int64)
	if !ok {
		return p, errors.Errorf("unexpected shop_id value: %v", row["shop_id"])
	}
	p.ShopID = shopID

	proba, ok := row["proba_churn"].(float64)
	if !ok {
		return p, errors.Errorf("unexpected proba_churn value: %v", row["proba_churn"])
	}
	p.ProbaChurn = proba

	group, ok := row["group_number"].(int64)
	if !ok {
		return p, errors.Errorf("unexpected group_number value: %v", row["group_number"])
	}
	p.GroupNumber = group

	switch v := row["run_date"].(type) {
	case time.Time:
		p.RunDate = v
	case civil.DateTime:
		p.RunDate = v.In(time.UTC)
	default:
		return p, errors.Errorf("unexpected run_date value: %v", row["run_date"])
	}

	return p, nil
}

func qualifiedTable(dataset, table string) string {
	return fmt.Sprintf("`%s.%s`", dataset, table)
}
