// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"sort"
	"time"
)

// MonthFormat is the layout used for year-month bucket labels, e.g. "2024-01".
const MonthFormat = "2006-01"

// Repository identifies a single repository inside the workspace.
type Repository struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// CommitRecord is a single commit as fetched from the API. Immutable once fetched.
type CommitRecord struct {
	Repo    string
	Hash    string
	Author  string
	Date    time.Time
	Message string
}

// PullRequestRecord is a single pull request as fetched from the API.
type PullRequestRecord struct {
	Repo      string
	ID        int
	Author    string
	State     string
	CreatedOn time.Time
}

// FileChangeRecord holds the diffstat totals for one commit.
type FileChangeRecord struct {
	Repo         string
	CommitHash   string
	LinesAdded   int
	LinesRemoved int
}

// RecordSet bundles every record fetched during a collection run.
type RecordSet struct {
	Commits      []CommitRecord
	PullRequests []PullRequestRecord
	FileChanges  []FileChangeRecord
}

// MonthlyKey identifies one aggregation bucket: a repository in a given month.
type MonthlyKey struct {
	Repo  string
	Month string
}

// MonthlyAggregate holds the activity totals for one bucket.
type MonthlyAggregate struct {
	Commits      int
	PullRequests int
	LinesAdded   int
	LinesRemoved int
}

// ActivitySummary maps every (repository, month) bucket to its totals.
// It is the core domain entity of this application.
type ActivitySummary map[MonthlyKey]MonthlyAggregate

// SortedKeys returns the bucket keys ordered by repository then month,
// so that every rendering of the same summary is identical.
func (s ActivitySummary) SortedKeys() []MonthlyKey {
	keys := make([]MonthlyKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Repo != keys[j].Repo {
			return keys[i].Repo < keys[j].Repo
		}
		return keys[i].Month < keys[j].Month
	})
	return keys
}

// Months returns the distinct months present in the summary, sorted ascending.
func (s ActivitySummary) Months() []string {
	seen := make(map[string]bool)
	for k := range s {
		seen[k.Month] = true
	}
	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// Repos returns the distinct repository slugs present in the summary, sorted.
func (s ActivitySummary) Repos() []string {
	seen := make(map[string]bool)
	for k := range s {
		seen[k.Repo] = true
	}
	repos := make([]string, 0, len(seen))
	for r := range seen {
		repos = append(repos, r)
	}
	sort.Strings(repos)
	return repos
}

// Totals folds every bucket into a single grand-total aggregate.
func (s ActivitySummary) Totals() MonthlyAggregate {
	var t MonthlyAggregate
	for _, agg := range s {
		t.Commits += agg.Commits
		t.PullRequests += agg.PullRequests
		t.LinesAdded += agg.LinesAdded
		t.LinesRemoved += agg.LinesRemoved
	}
	return t
}
