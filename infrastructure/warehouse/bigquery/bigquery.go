// Package bigquery wraps the Google BigQuery client for the analytical
// warehouse holding the churn-prediction tables.
package bigquery

import (
	"context"

	bq "cloud.google.com/go/bigquery"
	"github.com/pkg/errors"

	"github.com/shopsight/churn-report/internal/config"
)

type Client struct {
	*bq.Client
	Dataset string
}

// NewClient initializes the warehouse client. When no project id is
// configured the client falls back to detection from ambient credentials.
func NewClient(ctx context.Context, cfg config.Warehouse) (*Client, error) {
	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = bq.DetectProjectID
	}

	client, err := bq.NewClient(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "creating bigquery client")
	}

	return &Client{Client: client, Dataset: cfg.Dataset}, nil
}
