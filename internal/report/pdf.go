package report

import (
	"fmt"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"bitbucket-stats/internal/domain"
)

const reportPDF = "report.pdf"

// renderPDF writes report.pdf with the same content as the HTML report:
// overview, chart images, detail table.
func (r *Renderer) renderPDF(summary domain.ActivitySummary) error {
	data := r.buildReportData(summary)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Year-End Development Report %d", data.Year), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, fmt.Sprintf("Year-End Development Report %d", data.Year), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	if !data.HasData {
		pdf.MultiCell(0, 7, fmt.Sprintf("No activity was recorded for %d.", data.Year), "", "L", false)
	} else {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 9, "Overview", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, line := range []string{
			fmt.Sprintf("Total Repositories: %d", data.TotalRepos),
			fmt.Sprintf("Total Commits: %d", data.TotalCommits),
			fmt.Sprintf("Total Pull Requests: %d", data.TotalPRs),
			fmt.Sprintf("Total Lines Added: %d", data.TotalLinesAdded),
			fmt.Sprintf("Total Lines Removed: %d", data.TotalLinesRemoved),
			fmt.Sprintf("Mean Commits per Month: %.1f", data.MeanMonthlyCommits),
			fmt.Sprintf("Median Commits per Month: %.1f", data.MedianMonthlyCommits),
		} {
			pdf.CellFormat(0, 7, line, "", 1, "L", false, 0, "")
		}

		for _, ref := range data.Charts {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "B", 14)
			pdf.CellFormat(0, 9, ref.Title, "", 1, "L", false, 0, "")
			pdf.ImageOptions(filepath.Join(r.outputDir, ref.File), 10, pdf.GetY()+2, 190, 0, true,
				fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}

		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 9, "Detailed Statistics", "", 1, "L", false, 0, "")
		r.writePDFTable(pdf, data.Rows)
	}

	path := filepath.Join(r.outputDir, reportPDF)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	r.logger.Printf("generated %s", path)
	return nil
}

func (r *Renderer) writePDFTable(pdf *fpdf.Fpdf, rows []reportRow) {
	widths := []float64{50, 25, 25, 30, 30, 30}
	headers := []string{"Repository", "Month", "Commits", "Pull Requests", "Lines Added", "Lines Removed"}

	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		cells := []string{
			row.Repo,
			row.Month,
			fmt.Sprintf("%d", row.Commits),
			fmt.Sprintf("%d", row.PullRequests),
			fmt.Sprintf("%d", row.LinesAdded),
			fmt.Sprintf("%d", row.LinesRemoved),
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 6, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
