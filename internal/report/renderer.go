// Package report renders an activity summary into its output artifacts:
// CSV tables, PNG charts, an HTML report and a PDF report.
package report

import (
	"fmt"
	"log"
	"os"

	"bitbucket-stats/internal/domain"
)

// Renderer writes every report artifact into a single output directory.
// Rendering is deterministic: the same summary always yields the same
// files.
type Renderer struct {
	outputDir string
	year      int
	logger    *log.Logger
}

func NewRenderer(outputDir string, year int, logger *log.Logger) (*Renderer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", outputDir, err)
	}
	return &Renderer{outputDir: outputDir, year: year, logger: logger}, nil
}

// Render writes the CSV tables and every visual artifact.
func (r *Renderer) Render(summary domain.ActivitySummary) error {
	if err := WriteCSVs(r.outputDir, summary); err != nil {
		return err
	}
	return r.RenderVisuals(summary)
}

// RenderVisuals writes the charts and the HTML/PDF reports. Used directly
// by visualize-only mode, which re-renders from CSVs written earlier.
func (r *Renderer) RenderVisuals(summary domain.ActivitySummary) error {
	if err := r.renderCharts(summary); err != nil {
		return err
	}
	if err := r.renderHTML(summary); err != nil {
		return err
	}
	return r.renderPDF(summary)
}
