package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"bitbucket-stats/internal/domain"
)

const (
	commitsCSV      = "commits.csv"
	pullRequestsCSV = "pull_requests.csv"
	fileChangesCSV  = "file_changes.csv"
)

// WriteCSVs writes the three summary tables. Headers are always written,
// even for an empty summary. Rows are emitted in sorted key order so
// identical summaries produce byte-identical files.
func WriteCSVs(dir string, summary domain.ActivitySummary) error {
	keys := summary.SortedKeys()

	commitRows := make([][]string, 0, len(keys))
	prRows := make([][]string, 0, len(keys))
	changeRows := make([][]string, 0, len(keys))
	for _, k := range keys {
		agg := summary[k]
		commitRows = append(commitRows, []string{k.Repo, k.Month, strconv.Itoa(agg.Commits)})
		prRows = append(prRows, []string{k.Repo, k.Month, strconv.Itoa(agg.PullRequests)})
		changeRows = append(changeRows, []string{k.Repo, k.Month, strconv.Itoa(agg.LinesAdded), strconv.Itoa(agg.LinesRemoved)})
	}

	if err := writeCSV(filepath.Join(dir, commitsCSV), []string{"repository", "month", "commits"}, commitRows); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, pullRequestsCSV), []string{"repository", "month", "pull_requests"}, prRows); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, fileChangesCSV), []string{"repository", "month", "lines_added", "lines_removed"}, changeRows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

// LoadCSVs rebuilds an activity summary from a previous run's CSV files.
// Used by visualize-only mode; a missing file is reported by name so the
// user knows to run a full collection first.
func LoadCSVs(dir string) (domain.ActivitySummary, error) {
	summary := make(domain.ActivitySummary)

	err := readCSV(filepath.Join(dir, commitsCSV), 3, func(row []string) error {
		n, err := strconv.Atoi(row[2])
		if err != nil {
			return err
		}
		key := domain.MonthlyKey{Repo: row[0], Month: row[1]}
		agg := summary[key]
		agg.Commits = n
		summary[key] = agg
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = readCSV(filepath.Join(dir, pullRequestsCSV), 3, func(row []string) error {
		n, err := strconv.Atoi(row[2])
		if err != nil {
			return err
		}
		key := domain.MonthlyKey{Repo: row[0], Month: row[1]}
		agg := summary[key]
		agg.PullRequests = n
		summary[key] = agg
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = readCSV(filepath.Join(dir, fileChangesCSV), 4, func(row []string) error {
		added, err := strconv.Atoi(row[2])
		if err != nil {
			return err
		}
		removed, err := strconv.Atoi(row[3])
		if err != nil {
			return err
		}
		key := domain.MonthlyKey{Repo: row[0], Month: row[1]}
		agg := summary[key]
		agg.LinesAdded = added
		agg.LinesRemoved = removed
		summary[key] = agg
		return nil
	})
	if err != nil {
		return nil, err
	}

	return summary, nil
}

func readCSV(path string, fields int, visit func(row []string) error) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("could not find %s: run a full collection first or point --output-dir at an existing data set", path)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = fields
	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if err := visit(row); err != nil {
			return fmt.Errorf("read %s: row %d: %w", path, i+1, err)
		}
	}
	return nil
}
