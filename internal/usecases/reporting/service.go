// Package reporting implements the churn report: resolve a shop name, window
// the prediction table to the current civil day, count per-group threshold
// exceedances and write the per-shop artifacts.
package reporting

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/shopsight/churn-report/infrastructure/repository"
	"github.com/shopsight/churn-report/internal/domain"
	"github.com/shopsight/churn-report/internal/report"
)

type Service struct {
	shopRepo       repository.ShopRepository
	predictionRepo repository.PredictionRepository
	location       *time.Location
	now            func() time.Time
}

func NewService(
	shopRepo repository.ShopRepository,
	predictionRepo repository.PredictionRepository,
	location *time.Location,
) *Service {
	return &Service{
		shopRepo:       shopRepo,
		predictionRepo: predictionRepo,
		location:       location,
		now:            time.Now,
	}
}

// Run executes one full report. Query failures and an unresolved shop name
// are fatal for the run; per-shop artifact failures are recorded in the
// summary and never abort the remaining shops.
func (s *Service) Run(ctx context.Context, params domain.ReportParams) (*domain.RunSummary, error) {
	threshold := params.ThresholdPct / 100

	shopIDs, err := s.shopRepo.FindShopIDs(ctx, params.ShopName)
	if err != nil {
		return nil, errors.Wrap(err, "resolving shop ids")
	}
	if len(shopIDs) == 0 {
		return nil, domain.ErrShopNotFound
	}

	// The prediction table is fetched once and re-filtered per shop.
	predictions, err := s.predictionRepo.ListPredictions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetching predictions")
	}

	now := s.now()
	start, end := TodayWindow(now, s.location)

	logrus.WithFields(logrus.Fields{
		"shop_name":    params.ShopName,
		"shop_ids":     shopIDs,
		"predictions":  len(predictions),
		"window_start": start.Format(time.RFC3339),
		"window_end":   end.Format(time.RFC3339),
		"threshold":    threshold,
	}).Info("Aggregating churn predictions for today")

	summary := &domain.RunSummary{
		GeneratedAt:  now,
		ShopName:     params.ShopName,
		ThresholdPct: params.ThresholdPct,
		Threshold:    threshold,
	}

	for _, shopID := range shopIDs {
		summary.Shops = append(summary.Shops, s.reportShop(shopID, predictions, threshold, start, end, params))
	}

	if err := report.WriteManifest(filepath.Join(params.OutputDir, report.ManifestName), summary); err != nil {
		logrus.WithError(err).Warn("Could not write run manifest")
	}

	return summary, nil
}

func (s *Service) reportShop(
	shopID int64,
	predictions []domain.Prediction,
	threshold float64,
	start, end time.Time,
	params domain.ReportParams,
) domain.ShopReport {
	shopReport := domain.ShopReport{ShopID: shopID}
	shopLog := logrus.WithFields(logrus.Fields{
		"shop_name": params.ShopName,
		"shop_id":   shopID,
	})

	counts := CountAboveThreshold(predictions, shopID, threshold, start, end)
	if len(counts) == 0 {
		shopLog.Info("No churn predictions above threshold today, skipping artifacts")
		return shopReport
	}
	shopReport.Counts = counts

	title := fmt.Sprintf(
		"Churn risk today for %s (shop %d), proba > %.1f%%",
		params.ShopName, shopID, params.ThresholdPct,
	)

	png, err := report.RenderBarChart(title, "predictions above threshold", counts)
	if err != nil {
		shopLog.WithError(err).Error("Could not render churn chart")
		shopReport.WriteError = err.Error()
		return shopReport
	}

	base := artifactBase(params.ShopName, shopID)

	chartPath := filepath.Join(params.OutputDir, base+"_churn.png")
	if err := report.WriteChart(chartPath, png); err != nil {
		shopLog.WithError(err).Error("Could not write churn chart")
		shopReport.WriteError = err.Error()
		return shopReport
	}
	shopReport.ChartPath = chartPath

	csvPath := filepath.Join(params.OutputDir, base+"_churn_counts.csv")
	if err := report.WriteCounts(csvPath, counts); err != nil {
		shopLog.WithError(err).Error("Could not write churn counts")
		shopReport.WriteError = err.Error()
		return shopReport
	}
	shopReport.CSVPath = csvPath

	shopLog.WithFields(logrus.Fields{
		"groups": len(counts),
		"chart":  chartPath,
		"counts": csvPath,
	}).Info("Churn report written")

	return shopReport
}

// artifactBase builds the deterministic file-name prefix from the requested
// shop name and resolved id. Whitespace in the name becomes underscores.
func artifactBase(shopName string, shopID int64) string {
	name := strings.Join(strings.Fields(shopName), "_")
	return fmt.Sprintf("%s_%d", name, shopID)
}
