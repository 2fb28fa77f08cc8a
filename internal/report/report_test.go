package report

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket-stats/internal/domain"
)

func testRenderer(t *testing.T, dir string) *Renderer {
	t.Helper()
	r, err := NewRenderer(dir, 2024, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	return r
}

func sampleSummary() domain.ActivitySummary {
	return domain.ActivitySummary{
		{Repo: "api", Month: "2024-01"}:     {Commits: 12, PullRequests: 3, LinesAdded: 540, LinesRemoved: 120},
		{Repo: "api", Month: "2024-02"}:     {Commits: 7, PullRequests: 1, LinesAdded: 200, LinesRemoved: 90},
		{Repo: "website", Month: "2024-01"}: {Commits: 4, PullRequests: 2, LinesAdded: 80, LinesRemoved: 15},
		{Repo: "website", Month: "2024-03"}: {Commits: 9, PullRequests: 0, LinesAdded: 310, LinesRemoved: 44},
	}
}

func TestWriteCSVs_EmptySummaryWritesHeaders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteCSVs(dir, domain.ActivitySummary{}))

	commits, err := os.ReadFile(filepath.Join(dir, "commits.csv"))
	require.NoError(t, err)
	assert.Equal(t, "repository,month,commits\n", string(commits))

	prs, err := os.ReadFile(filepath.Join(dir, "pull_requests.csv"))
	require.NoError(t, err)
	assert.Equal(t, "repository,month,pull_requests\n", string(prs))

	changes, err := os.ReadFile(filepath.Join(dir, "file_changes.csv"))
	require.NoError(t, err)
	assert.Equal(t, "repository,month,lines_added,lines_removed\n", string(changes))
}

func TestCSVs_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	summary := sampleSummary()

	require.NoError(t, WriteCSVs(dir, summary))
	loaded, err := LoadCSVs(dir)
	require.NoError(t, err)

	assert.Equal(t, summary, loaded)
}

func TestLoadCSVs_MissingFileNamesTheFile(t *testing.T) {
	_, err := LoadCSVs(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commits.csv")
}

func TestWriteCSVs_Deterministic(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	summary := sampleSummary()

	require.NoError(t, WriteCSVs(dirA, summary))
	require.NoError(t, WriteCSVs(dirB, summary))

	for _, name := range []string{"commits.csv", "pull_requests.csv", "file_changes.csv"} {
		a, err := os.ReadFile(filepath.Join(dirA, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(dirB, name))
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}
}

func TestRender_EmptySummaryStillProducesReport(t *testing.T) {
	dir := t.TempDir()
	r := testRenderer(t, dir)

	require.NoError(t, r.Render(domain.ActivitySummary{}))

	html, err := os.ReadFile(filepath.Join(dir, "report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "No activity was recorded for 2024")

	// Charts are skipped for an empty summary.
	assert.NoFileExists(t, filepath.Join(dir, "monthly_activity.png"))

	assert.FileExists(t, filepath.Join(dir, "report.pdf"))
	assert.FileExists(t, filepath.Join(dir, "commits.csv"))
}

func TestRender_FullRunProducesAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	r := testRenderer(t, dir)

	require.NoError(t, r.Render(sampleSummary()))

	for _, name := range []string{
		"commits.csv", "pull_requests.csv", "file_changes.csv",
		"monthly_activity.png", "repository_contributions.png",
		"file_changes.png", "contribution_distribution.png",
		"report.html", "report.pdf",
	} {
		assert.FileExists(t, filepath.Join(dir, name), name)
	}

	html, err := os.ReadFile(filepath.Join(dir, "report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "Total Commits: 32")
	assert.Contains(t, string(html), "Total Pull Requests: 6")
	assert.Contains(t, string(html), "monthly_activity.png")
	assert.Contains(t, string(html), "<td>api</td>")
}

func TestVisualizeOnly_ReproducesCharts(t *testing.T) {
	fullDir, visDir := t.TempDir(), t.TempDir()
	summary := sampleSummary()

	// Full run: CSVs plus visuals.
	require.NoError(t, testRenderer(t, fullDir).Render(summary))

	// Visualize-only run: reload the CSVs and re-render the visuals.
	loaded, err := LoadCSVs(fullDir)
	require.NoError(t, err)
	require.NoError(t, testRenderer(t, visDir).RenderVisuals(loaded))

	for _, name := range []string{
		"monthly_activity.png", "repository_contributions.png",
		"file_changes.png", "contribution_distribution.png",
	} {
		a, err := os.ReadFile(filepath.Join(fullDir, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(visDir, name))
		require.NoError(t, err)
		assert.Equal(t, a, b, "%s must be identical across a full run and a visualize-only run", name)
	}
}

func TestRender_EqualCommitCountsRenderBarChart(t *testing.T) {
	dir := t.TempDir()
	r := testRenderer(t, dir)

	// Every repository with the same commit count gives the bar chart a
	// flat value range; it must still render.
	summary := domain.ActivitySummary{
		{Repo: "api", Month: "2024-01"}:     {Commits: 5, PullRequests: 1},
		{Repo: "website", Month: "2024-02"}: {Commits: 5, PullRequests: 2},
	}
	require.NoError(t, r.Render(summary))

	assert.FileExists(t, filepath.Join(dir, "repository_contributions.png"))
	assert.FileExists(t, filepath.Join(dir, "contribution_distribution.png"))
}

func TestRender_SingleMonthSkipsActivityLineChart(t *testing.T) {
	dir := t.TempDir()
	r := testRenderer(t, dir)

	summary := domain.ActivitySummary{
		{Repo: "api", Month: "2024-01"}: {Commits: 3, PullRequests: 1, LinesAdded: 10, LinesRemoved: 2},
	}
	require.NoError(t, r.Render(summary))

	assert.NoFileExists(t, filepath.Join(dir, "monthly_activity.png"))
	assert.FileExists(t, filepath.Join(dir, "repository_contributions.png"))
	assert.FileExists(t, filepath.Join(dir, "report.html"))
}
