package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/shopsight/churn-report/internal/domain"
)

// WriteCounts writes the two-column aggregate table with a header row. Rows
// are written in the given order; callers pass counts sorted by group number,
// which keeps the file byte-identical across runs on the same input.
func WriteCounts(path string, counts []domain.GroupCount) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating counts file")
	}

	w := csv.NewWriter(f)

	records := [][]string{{"group_number", "count"}}
	for _, c := range counts {
		records = append(records, []string{
			strconv.FormatInt(c.GroupNumber, 10),
			strconv.Itoa(c.Count),
		})
	}

	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "writing counts")
	}

	return errors.Wrap(f.Close(), "closing counts file")
}

// WriteChart writes an already rendered chart image.
func WriteChart(path string, png []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	return errors.Wrap(os.WriteFile(path, png, 0o644), "writing chart")
}
