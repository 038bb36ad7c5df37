// Package repository implements read-only access to the churn-prediction
// tables, with one implementation per warehouse driver.
package repository

import (
	"context"

	"github.com/shopsight/churn-report/internal/domain"
)

type PredictionRepository interface {
	// ListPredictions retrieves the full prediction table. Filtering by shop
	// and day happens client-side, so no date predicate is pushed down.
	ListPredictions(ctx context.Context) ([]domain.Prediction, error)
}

type ShopRepository interface {
	// FindShopIDs resolves a shop name case-insensitively. Zero matches is an
	// empty slice, not an error; multiple matches are all returned.
	FindShopIDs(ctx context.Context, name string) ([]int64, error)
}
