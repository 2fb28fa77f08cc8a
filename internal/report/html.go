package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/montanaflynn/stats"

	"bitbucket-stats/internal/domain"
)

const reportHTML = "report.html"

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<title>Year-End Development Report {{.Year}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 40px; }
h1 { color: #333; }
.section { margin: 20px 0; }
.chart { margin: 20px 0; text-align: center; }
img { max-width: 100%; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f5f5f5; }
</style>
</head>
<body>
<h1>Year-End Development Report {{.Year}}</h1>
{{if not .HasData}}
<div class="section">
<p>No activity was recorded for {{.Year}}.</p>
</div>
{{else}}
<div class="section">
<h2>Overview</h2>
<p>Total Repositories: {{.TotalRepos}}</p>
<p>Total Commits: {{.TotalCommits}}</p>
<p>Total Pull Requests: {{.TotalPRs}}</p>
<p>Total Lines Added: {{.TotalLinesAdded}}</p>
<p>Total Lines Removed: {{.TotalLinesRemoved}}</p>
<p>Mean Commits per Month: {{printf "%.1f" .MeanMonthlyCommits}}</p>
<p>Median Commits per Month: {{printf "%.1f" .MedianMonthlyCommits}}</p>
</div>
{{range .Charts}}
<div class="section">
<h2>{{.Title}}</h2>
<div class="chart"><img src="{{.File}}" alt="{{.Title}}"></div>
</div>
{{end}}
<div class="section">
<h2>Detailed Statistics</h2>
<table>
<tr><th>Repository</th><th>Month</th><th>Commits</th><th>Pull Requests</th><th>Lines Added</th><th>Lines Removed</th></tr>
{{range .Rows}}
<tr><td>{{.Repo}}</td><td>{{.Month}}</td><td>{{.Commits}}</td><td>{{.PullRequests}}</td><td>{{.LinesAdded}}</td><td>{{.LinesRemoved}}</td></tr>
{{end}}
</table>
</div>
{{end}}
</body>
</html>
`

type chartRef struct {
	File  string
	Title string
}

type reportRow struct {
	Repo         string
	Month        string
	Commits      int
	PullRequests int
	LinesAdded   int
	LinesRemoved int
}

type reportData struct {
	Year                 int
	HasData              bool
	TotalRepos           int
	TotalCommits         int
	TotalPRs             int
	TotalLinesAdded      int
	TotalLinesRemoved    int
	MeanMonthlyCommits   float64
	MedianMonthlyCommits float64
	Charts               []chartRef
	Rows                 []reportRow
}

// chartTitles pairs each chart file with its report section heading, in
// presentation order.
var chartTitles = []chartRef{
	{File: monthlyActivityPNG, Title: "Monthly Activity"},
	{File: repoContributionsPNG, Title: "Repository Contributions"},
	{File: fileChangesPNG, Title: "File Changes"},
	{File: contributionDistribPNG, Title: "Contribution Distribution"},
}

// renderHTML writes report.html. Only charts that were actually rendered
// are embedded.
func (r *Renderer) renderHTML(summary domain.ActivitySummary) error {
	data := r.buildReportData(summary)

	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return err
	}

	path := filepath.Join(r.outputDir, reportHTML)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	r.logger.Printf("generated %s", path)
	return file.Close()
}

func (r *Renderer) buildReportData(summary domain.ActivitySummary) reportData {
	data := reportData{
		Year:    r.year,
		HasData: len(summary) > 0,
	}
	if !data.HasData {
		return data
	}

	totals := summary.Totals()
	data.TotalRepos = len(summary.Repos())
	data.TotalCommits = totals.Commits
	data.TotalPRs = totals.PullRequests
	data.TotalLinesAdded = totals.LinesAdded
	data.TotalLinesRemoved = totals.LinesRemoved

	perMonth := make(map[string]int)
	for k, agg := range summary {
		perMonth[k.Month] += agg.Commits
	}
	monthly := make([]float64, 0, len(perMonth))
	for _, m := range summary.Months() {
		monthly = append(monthly, float64(perMonth[m]))
	}
	if mean, err := stats.Mean(monthly); err == nil {
		data.MeanMonthlyCommits = mean
	}
	if median, err := stats.Median(monthly); err == nil {
		data.MedianMonthlyCommits = median
	}

	for _, ref := range chartTitles {
		if _, err := os.Stat(filepath.Join(r.outputDir, ref.File)); err == nil {
			data.Charts = append(data.Charts, ref)
		}
	}

	for _, k := range summary.SortedKeys() {
		agg := summary[k]
		data.Rows = append(data.Rows, reportRow{
			Repo:         k.Repo,
			Month:        k.Month,
			Commits:      agg.Commits,
			PullRequests: agg.PullRequests,
			LinesAdded:   agg.LinesAdded,
			LinesRemoved: agg.LinesRemoved,
		})
	}
	return data
}
