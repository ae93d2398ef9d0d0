package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/use-agent/syndicate/models"
)

// FileSink writes each report to results_<unix-timestamp>.json in the
// output directory.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Deliver(_ context.Context, report *models.RunReport) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("report: create output dir: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("results_%d.json", report.Timestamp.Unix()))
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}

	slog.Info("run report saved", "path", path)
	return nil
}
