package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App        App        `mapstructure:",squash"`
	Warehouse  Warehouse  `mapstructure:",squash"`
	Database   Database   `mapstructure:",squash"`
	Report     Report     `mapstructure:",squash"`
	ReportSync ReportSync `mapstructure:",squash"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

// Warehouse selects and parameterizes the analytical warehouse backend.
// ProjectID may stay empty: the BigQuery client can still resolve a project
// from ambient credentials, or fail later at query time.
type Warehouse struct {
	Driver          string `mapstructure:"warehouse_driver"`
	ProjectID       string `mapstructure:"google_cloud_project"`
	Dataset         string `mapstructure:"bigquery_dataset"`
	PredictionTable string `mapstructure:"prediction_table"`
	ShopTable       string `mapstructure:"shop_table"`
}

type Database struct {
	DSN      string `mapstructure:"-"`
	Driver   string `mapstructure:"database_driver"`
	Password string `mapstructure:"database_password"`
	URL      string `mapstructure:"database_url"`
	User     string `mapstructure:"database_user"`
}

type Report struct {
	Timezone string `mapstructure:"report_timezone"`
}

type ReportSync struct {
	CronSchedule string `mapstructure:"report_sync_cron"`
	Enabled      bool   `mapstructure:"report_sync_enabled"`
}

func SetDefaults() {
	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("WAREHOUSE_DRIVER", "bigquery")
	viper.SetDefault("BIGQUERY_DATASET", "analytics")
	viper.SetDefault("PREDICTION_TABLE", "prediction_group_enriched")
	viper.SetDefault("SHOP_TABLE", "stg_shop")

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/warehouse")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")

	viper.SetDefault("REPORT_TIMEZONE", "Asia/Jerusalem")

	viper.SetDefault("REPORT_SYNC_CRON", "0 7 * * *") // every day at 7am
	viper.SetDefault("REPORT_SYNC_ENABLED", false)
}

func NewConfig() (*Config, error) {
	loadEnvFile() // ONLY LOCAL

	config := &Config{}

	SetDefaults()

	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.Debug("No .env readable by viper, relying on environment variables: ", err)
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	config.Database.DSN = fmt.Sprintf(
		"%s://%s:%s@%s",
		config.Database.Driver,
		config.Database.User,
		config.Database.Password,
		config.Database.URL,
	)

	return config, nil
}

// loadEnvFile loads a .env file when running outside a managed environment.
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Could not determine working directory: ", err)
		return
	}

	locations := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(filepath.Dir(cwd), ".env"),
	}

	for _, location := range locations {
		if err := godotenv.Load(location); err == nil {
			logrus.Debug("Loaded environment from ", location)
			return
		}
	}
}
