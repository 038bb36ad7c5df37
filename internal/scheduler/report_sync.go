// Package scheduler contains the optional cron mode that re-runs the churn
// report on a schedule instead of once per invocation.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/shopsight/churn-report/internal/config"
	"github.com/shopsight/churn-report/internal/domain"
)

type ReportSyncConfig struct {
	CronSchedule string
	Enabled      bool
}

// Reporter runs one full churn report.
type Reporter interface {
	Run(ctx context.Context, params domain.ReportParams) (*domain.RunSummary, error)
}

type ReportSyncService struct {
	scheduler          *gocron.Scheduler
	reporter           Reporter
	params             domain.ReportParams
	config             ReportSyncConfig
	syncRunning        bool
	syncMutex          sync.Mutex
	lastRunStartedAt   time.Time
	lastRunCompletedAt time.Time
}

func NewReportSyncService(
	reporter Reporter,
	params domain.ReportParams,
	cfg *config.Config,
) *ReportSyncService {
	syncConfig := ReportSyncConfig{
		CronSchedule: cfg.ReportSync.CronSchedule,
		Enabled:      cfg.ReportSync.Enabled,
	}

	logrus.WithFields(logrus.Fields{
		"cron_schedule": syncConfig.CronSchedule,
		"enabled":       syncConfig.Enabled,
	}).Info("Report scheduler configuration loaded")

	return &ReportSyncService{
		scheduler: gocron.NewScheduler(time.Local),
		reporter:  reporter,
		params:    params,
		config:    syncConfig,
	}
}

func (s *ReportSyncService) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logrus.Info("Report scheduler disabled by configuration")
		return nil
	}

	logrus.WithField("cron", s.config.CronSchedule).Info("Starting scheduled churn report")

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(func() {
		if err := s.RunOnce(ctx); err != nil {
			logrus.WithError(err).Error("Scheduled churn report failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling churn report: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Stopping report scheduler")
		s.scheduler.Stop()
	}()

	return nil
}

// RunOnce executes the report, skipping when a previous run is still going.
// In scheduled mode an unresolved shop name is logged, not fatal: the shop
// table may simply not be loaded yet for the day.
func (s *ReportSyncService) RunOnce(ctx context.Context) error {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		logrus.Warn("Churn report still running, skipping this tick")
		return nil
	}
	s.syncRunning = true
	s.lastRunStartedAt = time.Now()
	s.syncMutex.Unlock()

	defer func() {
		s.syncMutex.Lock()
		s.syncRunning = false
		s.lastRunCompletedAt = time.Now()
		s.syncMutex.Unlock()
	}()

	_, err := s.reporter.Run(ctx, s.params)
	if errors.Is(err, domain.ErrShopNotFound) {
		logrus.WithField("shop_name", s.params.ShopName).Warn("No shop matched during scheduled run")
		return nil
	}

	return err
}
