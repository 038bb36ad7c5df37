package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/shopsight/churn-report/infrastructure/repository"
	"github.com/shopsight/churn-report/infrastructure/warehouse/bigquery"
	"github.com/shopsight/churn-report/infrastructure/warehouse/postgres"
	"github.com/shopsight/churn-report/internal/config"
	"github.com/shopsight/churn-report/internal/domain"
	"github.com/shopsight/churn-report/internal/scheduler"
	"github.com/shopsight/churn-report/internal/usecases/reporting"
)

func main() {
	configureLogger()

	shopName := pflag.String("shop_name", "", "shop name to report on (case-insensitive exact match)")
	thresholdPct := pflag.Float64("threshold_pct", 0, "churn probability threshold as a percentage")
	outputDir := pflag.String("output_dir", "outputs", "directory for the chart and counts files")
	pflag.Parse()

	if *shopName == "" {
		pflag.Usage()
		logrus.Fatal("--shop_name is required")
	}
	if !pflag.CommandLine.Changed("threshold_pct") {
		pflag.Usage()
		logrus.Fatal("--threshold_pct is required")
	}

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	logLevel, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.Warnf("Invalid log level %q, using 'info'", cfg.App.LogLevel)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)

	log := logrus.WithField("run_id", uuid.New().String())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	location, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		log.WithError(err).Fatalf("Unknown report timezone %q", cfg.Report.Timezone)
	}

	shopRepo, predictionRepo, closeWarehouse := buildRepositories(ctx, cfg)
	defer closeWarehouse()

	reporter := reporting.NewService(shopRepo, predictionRepo, location)

	params := domain.ReportParams{
		ShopName:     *shopName,
		ThresholdPct: *thresholdPct,
		OutputDir:    *outputDir,
	}

	if cfg.ReportSync.Enabled {
		syncService := scheduler.NewReportSyncService(reporter, params, cfg)
		if err := syncService.Start(ctx); err != nil {
			log.WithError(err).Fatal("Could not start report scheduler")
		}
		log.Info("Report scheduler started, waiting for shutdown signal")
		<-ctx.Done()
		return
	}

	summary, err := reporter.Run(ctx, params)
	if err != nil {
		if errors.Is(err, domain.ErrShopNotFound) {
			log.WithField("shop_name", params.ShopName).Fatal("No shop matches the given name")
		}
		log.WithError(err).Fatal("Churn report failed")
	}

	log.WithFields(logrus.Fields{
		"shop_name": params.ShopName,
		"shops":     len(summary.Shops),
	}).Info("Churn report completed")
}

// configureLogger sets the timestamped log format used for all diagnostics.
func configureLogger() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

// buildRepositories wires the configured warehouse driver. Client
// initialization failures are fatal for the whole run.
func buildRepositories(
	ctx context.Context,
	cfg *config.Config,
) (repository.ShopRepository, repository.PredictionRepository, func()) {
	switch cfg.Warehouse.Driver {
	case "postgres":
		conn := pgconn(ctx, cfg.Database)
		return repository.NewShopRepository(conn, cfg.Warehouse.ShopTable),
			repository.NewPredictionRepository(conn, cfg.Warehouse.PredictionTable),
			func() { _ = conn.Close() }
	case "bigquery":
		if cfg.Warehouse.ProjectID == "" {
			logrus.Warn("GOOGLE_CLOUD_PROJECT is not set, relying on ambient credentials for project detection")
		}

		client, err := bigquery.NewClient(ctx, cfg.Warehouse)
		if err != nil {
			logrus.WithError(err).Fatal("Could not initialize the warehouse client")
		}

		return repository.NewBigQueryShopRepository(client, cfg.Warehouse.ShopTable),
			repository.NewBigQueryPredictionRepository(client, cfg.Warehouse.PredictionTable),
			func() { _ = client.Close() }
	default:
		logrus.Fatalf("Unknown warehouse driver %q", cfg.Warehouse.Driver)
		return nil, nil, nil
	}
}

// pgconn opens the Postgres warehouse mirror.
func pgconn(ctx context.Context, dbConfig config.Database) *postgres.Connection {
	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		logrus.WithError(err).Fatal("Could not connect to the warehouse database")
	}

	if err := conn.Ping(ctx); err != nil {
		logrus.WithError(err).Fatal("Could not ping the warehouse database")
	}

	return conn
}
