package report

import (
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/shopsight/churn-report/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ManifestName is the per-run summary written next to the shop artifacts.
const ManifestName = "churn_run_manifest.json"

func WriteManifest(path string, summary *domain.RunSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding run manifest")
	}

	return errors.Wrap(os.WriteFile(path, data, 0o644), "writing run manifest")
}
