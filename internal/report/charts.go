package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/wcharczuk/go-chart/v2"

	"bitbucket-stats/internal/domain"
)

const (
	monthlyActivityPNG      = "monthly_activity.png"
	repoContributionsPNG    = "repository_contributions.png"
	fileChangesPNG          = "file_changes.png"
	contributionDistribPNG  = "contribution_distribution.png"
	chartWidth, chartHeight = 1200, 600
)

// renderCharts writes the PNG charts for a summary. Charts that cannot be
// drawn from the available data are skipped, never a failure: an empty
// workspace must still produce a report.
func (r *Renderer) renderCharts(summary domain.ActivitySummary) error {
	if len(summary) == 0 {
		r.logger.Printf("no activity recorded, skipping chart generation")
		return nil
	}
	if err := r.monthlyActivityChart(summary); err != nil {
		return fmt.Errorf("render %s: %w", monthlyActivityPNG, err)
	}
	if err := r.repoContributionsChart(summary); err != nil {
		return fmt.Errorf("render %s: %w", repoContributionsPNG, err)
	}
	if err := r.fileChangesChart(summary); err != nil {
		return fmt.Errorf("render %s: %w", fileChangesPNG, err)
	}
	if err := r.contributionDistributionChart(summary); err != nil {
		return fmt.Errorf("render %s: %w", contributionDistribPNG, err)
	}
	return nil
}

// monthlyActivityChart draws commits, pull requests and total line changes
// per month as line series.
func (r *Renderer) monthlyActivityChart(summary domain.ActivitySummary) error {
	months := summary.Months()
	if len(months) < 2 {
		r.logger.Printf("fewer than two active months, skipping %s", monthlyActivityPNG)
		return nil
	}

	perMonth := make(map[string]domain.MonthlyAggregate)
	for k, agg := range summary {
		t := perMonth[k.Month]
		t.Commits += agg.Commits
		t.PullRequests += agg.PullRequests
		t.LinesAdded += agg.LinesAdded
		t.LinesRemoved += agg.LinesRemoved
		perMonth[k.Month] = t
	}

	xs := make([]float64, len(months))
	ticks := make([]chart.Tick, len(months))
	commits := make([]float64, len(months))
	prs := make([]float64, len(months))
	changes := make([]float64, len(months))
	for i, m := range months {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: m}
		commits[i] = float64(perMonth[m].Commits)
		prs[i] = float64(perMonth[m].PullRequests)
		changes[i] = float64(perMonth[m].LinesAdded + perMonth[m].LinesRemoved)
	}

	graph := chart.Chart{
		Title:  "Monthly Development Activity",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Ticks: ticks},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "Commits", XValues: xs, YValues: commits},
			chart.ContinuousSeries{Name: "Pull Requests", XValues: xs, YValues: prs},
			chart.ContinuousSeries{Name: "File Changes", XValues: xs, YValues: changes},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return r.writeChart(monthlyActivityPNG, graph.Render)
}

// repoContributionsChart draws the top 10 repositories by commit count.
func (r *Renderer) repoContributionsChart(summary domain.ActivitySummary) error {
	ranked := commitsByRepo(summary)
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}

	bars := make([]chart.Value, 0, len(ranked))
	var maxCommits float64
	for _, rc := range ranked {
		bars = append(bars, chart.Value{Label: rc.repo, Value: float64(rc.commits)})
		maxCommits = math.Max(maxCommits, float64(rc.commits))
	}
	if len(bars) == 0 {
		r.logger.Printf("no commit activity, skipping %s", repoContributionsPNG)
		return nil
	}

	graph := chart.BarChart{
		Title:    "Top Repositories by Commit Count",
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 60,
		Bars:     bars,
		// An explicit range keeps equal-valued bars renderable; go-chart
		// rejects a derived zero-width range.
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxCommits * 1.1},
		},
	}
	return r.writeChart(repoContributionsPNG, graph.Render)
}

// fileChangesChart draws lines added vs removed per month as stacked bars.
func (r *Renderer) fileChangesChart(summary domain.ActivitySummary) error {
	perMonth := make(map[string]domain.MonthlyAggregate)
	for k, agg := range summary {
		t := perMonth[k.Month]
		t.LinesAdded += agg.LinesAdded
		t.LinesRemoved += agg.LinesRemoved
		perMonth[k.Month] = t
	}

	var bars []chart.StackedBar
	for _, m := range summary.Months() {
		t := perMonth[m]
		if t.LinesAdded+t.LinesRemoved == 0 {
			continue
		}
		bars = append(bars, chart.StackedBar{
			Name:  m,
			Width: 60,
			Values: []chart.Value{
				{Label: "Added", Value: float64(t.LinesAdded)},
				{Label: "Removed", Value: float64(t.LinesRemoved)},
			},
		})
	}
	if len(bars) == 0 {
		r.logger.Printf("no line change activity, skipping %s", fileChangesPNG)
		return nil
	}

	graph := chart.StackedBarChart{
		Title:  "File Changes by Month",
		Width:  chartWidth,
		Height: chartHeight,
		Bars:   bars,
	}
	return r.writeChart(fileChangesPNG, graph.Render)
}

// contributionDistributionChart draws a commit-share pie of the top 5
// repositories, folding the rest into Others.
func (r *Renderer) contributionDistributionChart(summary domain.ActivitySummary) error {
	ranked := commitsByRepo(summary)
	if len(ranked) == 0 {
		r.logger.Printf("no commit activity, skipping %s", contributionDistribPNG)
		return nil
	}

	var values []chart.Value
	var others int
	for i, rc := range ranked {
		if i < 5 {
			values = append(values, chart.Value{Label: rc.repo, Value: float64(rc.commits)})
			continue
		}
		others += rc.commits
	}
	if others > 0 {
		values = append(values, chart.Value{Label: "Others", Value: float64(others)})
	}

	graph := chart.PieChart{
		Title:  "Repository Contribution Distribution",
		Width:  chartHeight,
		Height: chartHeight,
		Values: values,
	}
	return r.writeChart(contributionDistribPNG, graph.Render)
}

func (r *Renderer) writeChart(name string, render func(chart.RendererProvider, io.Writer) error) error {
	path := filepath.Join(r.outputDir, name)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := render(chart.PNG, file); err != nil {
		return err
	}
	r.logger.Printf("generated %s", path)
	return file.Close()
}

type repoCommits struct {
	repo    string
	commits int
}

// commitsByRepo ranks repositories by commit count descending, name
// ascending on ties, excluding repositories with no commits.
func commitsByRepo(summary domain.ActivitySummary) []repoCommits {
	totals := make(map[string]int)
	for k, agg := range summary {
		totals[k.Repo] += agg.Commits
	}
	ranked := make([]repoCommits, 0, len(totals))
	for repo, n := range totals {
		if n == 0 {
			continue
		}
		ranked = append(ranked, repoCommits{repo: repo, commits: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].commits != ranked[j].commits {
			return ranked[i].commits > ranked[j].commits
		}
		return ranked[i].repo < ranked[j].repo
	})
	return ranked
}
