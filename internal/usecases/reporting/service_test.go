package reporting

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shopsight/churn-report/infrastructure/repository/mocks"
	"github.com/shopsight/churn-report/internal/domain"
	"github.com/shopsight/churn-report/internal/report"
)

func newTestService(t *testing.T, shopRepo *mocks.MockShopRepository, predictionRepo *mocks.MockPredictionRepository) *Service {
	t.Helper()
	return &Service{
		shopRepo:       shopRepo,
		predictionRepo: predictionRepo,
		location:       mustLoadJerusalem(t),
		now: func() time.Time {
			return mustParseRFC3339(t, "2024-03-10T10:00:00+03:00")
		},
	}
}

func TestServiceRun_WritesArtifactsPerShop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockShopRepo := mocks.NewMockShopRepository(ctrl)
	mockPredictionRepo := mocks.NewMockPredictionRepository(ctrl)
	service := newTestService(t, mockShopRepo, mockPredictionRepo)

	predictions := []domain.Prediction{
		{ShopID: 7, RunDate: mustParseRFC3339(t, "2024-03-10T08:00:00Z"), ProbaChurn: 0.91, GroupNumber: 2},
		{ShopID: 7, RunDate: mustParseRFC3339(t, "2024-03-10T09:00:00Z"), ProbaChurn: 0.40, GroupNumber: 2},
		{ShopID: 7, RunDate: mustParseRFC3339(t, "2024-03-09T08:00:00Z"), ProbaChurn: 0.95, GroupNumber: 3},
		{ShopID: 9, RunDate: mustParseRFC3339(t, "2024-03-10T08:30:00Z"), ProbaChurn: 0.85, GroupNumber: 1},
		{ShopID: 9, RunDate: mustParseRFC3339(t, "2024-03-10T08:45:00Z"), ProbaChurn: 0.99, GroupNumber: 1},
	}

	// Two shop ids share the case-insensitive name match; both are processed.
	mockShopRepo.EXPECT().
		FindShopIDs(gomock.Any(), "Acme").
		Return([]int64{7, 9}, nil)
	mockPredictionRepo.EXPECT().
		ListPredictions(gomock.Any()).
		Return(predictions, nil)

	outputDir := t.TempDir()
	summary, err := service.Run(context.Background(), domain.ReportParams{
		ShopName:     "Acme",
		ThresholdPct: 80,
		OutputDir:    outputDir,
	})
	require.NoError(t, err)
	require.Len(t, summary.Shops, 2)

	// Shop 7: the worked example — only the 0.91 row from today counts.
	assert.Equal(t, []domain.GroupCount{{GroupNumber: 2, Count: 1}}, summary.Shops[0].Counts)
	assert.Empty(t, summary.Shops[0].WriteError)

	csv7, err := os.ReadFile(filepath.Join(outputDir, "Acme_7_churn_counts.csv"))
	require.NoError(t, err)
	assert.Equal(t, "group_number,count\n2,1\n", string(csv7))

	png7, err := os.ReadFile(filepath.Join(outputDir, "Acme_7_churn.png"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png7, []byte("\x89PNG")), "chart is not a PNG")

	// Shop 9: independent artifacts under its own id.
	csv9, err := os.ReadFile(filepath.Join(outputDir, "Acme_9_churn_counts.csv"))
	require.NoError(t, err)
	assert.Equal(t, "group_number,count\n1,2\n", string(csv9))

	_, err = os.Stat(filepath.Join(outputDir, "Acme_9_churn.png"))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(outputDir, report.ManifestName))
	assert.NoError(t, err)
}

func TestServiceRun_CSVIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockShopRepo := mocks.NewMockShopRepository(ctrl)
	mockPredictionRepo := mocks.NewMockPredictionRepository(ctrl)
	service := newTestService(t, mockShopRepo, mockPredictionRepo)

	predictions := []domain.Prediction{
		{ShopID: 7, RunDate: mustParseRFC3339(t, "2024-03-10T08:00:00Z"), ProbaChurn: 0.91, GroupNumber: 2},
		{ShopID: 7, RunDate: mustParseRFC3339(t, "2024-03-10T08:10:00Z"), ProbaChurn: 0.93, GroupNumber: 5},
		{ShopID: 7, RunDate: mustParseRFC3339(t, "2024-03-10T08:20:00Z"), ProbaChurn: 0.97, GroupNumber: 2},
	}

	mockShopRepo.EXPECT().
		FindShopIDs(gomock.Any(), "Acme").
		Return([]int64{7}, nil).
		Times(2)
	mockPredictionRepo.EXPECT().
		ListPredictions(gomock.Any()).
		Return(predictions, nil).
		Times(2)

	params := domain.ReportParams{ShopName: "Acme", ThresholdPct: 80, OutputDir: t.TempDir()}
	csvPath := filepath.Join(params.OutputDir, "Acme_7_churn_counts.csv")

	_, err := service.Run(context.Background(), params)
	require.NoError(t, err)
	first, err := os.ReadFile(csvPath)
	require.NoError(t, err)

	_, err = service.Run(context.Background(), params)
	require.NoError(t, err)
	second, err := os.ReadFile(csvPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "group_number,count\n2,2\n5,1\n", string(first))
}

func TestServiceRun_ShopNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockShopRepo := mocks.NewMockShopRepository(ctrl)
	mockPredictionRepo := mocks.NewMockPredictionRepository(ctrl)
	service := newTestService(t, mockShopRepo, mockPredictionRepo)

	mockShopRepo.EXPECT().
		FindShopIDs(gomock.Any(), "Nowhere").
		Return([]int64{}, nil)

	outputDir := t.TempDir()
	_, err := service.Run(context.Background(), domain.ReportParams{
		ShopName:     "Nowhere",
		ThresholdPct: 80,
		OutputDir:    outputDir,
	})
	assert.ErrorIs(t, err, domain.ErrShopNotFound)

	entries, readErr := os.ReadDir(outputDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestServiceRun_PredictionQueryFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockShopRepo := mocks.NewMockShopRepository(ctrl)
	mockPredictionRepo := mocks.NewMockPredictionRepository(ctrl)
	service := newTestService(t, mockShopRepo, mockPredictionRepo)

	mockShopRepo.EXPECT().
		FindShopIDs(gomock.Any(), "Acme").
		Return([]int64{7}, nil)
	mockPredictionRepo.EXPECT().
		ListPredictions(gomock.Any()).
		Return(nil, assert.AnError)

	_, err := service.Run(context.Background(), domain.ReportParams{
		ShopName:     "Acme",
		ThresholdPct: 80,
		OutputDir:    t.TempDir(),
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestServiceRun_NothingAboveThresholdProducesNoShopFiles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockShopRepo := mocks.NewMockShopRepository(ctrl)
	mockPredictionRepo := mocks.NewMockPredictionRepository(ctrl)
	service := newTestService(t, mockShopRepo, mockPredictionRepo)

	mockShopRepo.EXPECT().
		FindShopIDs(gomock.Any(), "Acme").
		Return([]int64{7}, nil)
	mockPredictionRepo.EXPECT().
		ListPredictions(gomock.Any()).
		Return([]domain.Prediction{
			{ShopID: 7, RunDate: mustParseRFC3339(t, "2024-03-10T08:00:00Z"), ProbaChurn: 0.40, GroupNumber: 2},
		}, nil)

	outputDir := t.TempDir()
	summary, err := service.Run(context.Background(), domain.ReportParams{
		ShopName:     "Acme",
		ThresholdPct: 80,
		OutputDir:    outputDir,
	})
	require.NoError(t, err)
	require.Len(t, summary.Shops, 1)
	assert.Empty(t, summary.Shops[0].Counts)

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the run manifest is expected")
	assert.Equal(t, report.ManifestName, entries[0].Name())
}

func TestServiceRun_WriteFailureDoesNotAbortOtherShops(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockShopRepo := mocks.NewMockShopRepository(ctrl)
	mockPredictionRepo := mocks.NewMockPredictionRepository(ctrl)
	service := newTestService(t, mockShopRepo, mockPredictionRepo)

	mockShopRepo.EXPECT().
		FindShopIDs(gomock.Any(), "Acme").
		Return([]int64{7, 9}, nil)
	mockPredictionRepo.EXPECT().
		ListPredictions(gomock.Any()).
		Return([]domain.Prediction{
			{ShopID: 7, RunDate: mustParseRFC3339(t, "2024-03-10T08:00:00Z"), ProbaChurn: 0.91, GroupNumber: 2},
			{ShopID: 9, RunDate: mustParseRFC3339(t, "2024-03-10T08:00:00Z"), ProbaChurn: 0.91, GroupNumber: 2},
		}, nil)

	outputDir := t.TempDir()
	// A directory squatting on shop 7's chart path makes its write fail.
	require.NoError(t, os.MkdirAll(filepath.Join(outputDir, "Acme_7_churn.png"), 0o755))

	summary, err := service.Run(context.Background(), domain.ReportParams{
		ShopName:     "Acme",
		ThresholdPct: 80,
		OutputDir:    outputDir,
	})
	require.NoError(t, err)
	require.Len(t, summary.Shops, 2)

	assert.NotEmpty(t, summary.Shops[0].WriteError)
	assert.Empty(t, summary.Shops[1].WriteError)

	_, err = os.Stat(filepath.Join(outputDir, "Acme_9_churn.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outputDir, "Acme_9_churn_counts.csv"))
	assert.NoError(t, err)
}

func TestArtifactBase(t *testing.T) {
	assert.Equal(t, "Acme_7", artifactBase("Acme", 7))
	assert.Equal(t, "Acme_Outlet_12", artifactBase("Acme Outlet", 12))
	assert.Equal(t, "Acme_3", artifactBase("  Acme  ", 3))
}
