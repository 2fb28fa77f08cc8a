// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"bitbucket-stats/internal/domain"
	"bitbucket-stats/internal/gateway"
)

// Aggregator is the use case for collecting and aggregating workspace
// activity. It orchestrates the fetching and combining of data.
type Aggregator struct {
	fetcher gateway.Fetcher
	logger  *log.Logger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.Fetcher, logger *log.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Collect walks every repository in the workspace and gathers its commits,
// pull requests and per-commit diffstats for the given year. Commit and
// pull request listings for one repository are fetched concurrently;
// diffstats stay sequential behind the client's rate limiter.
//
// A repository that fails with a transient or parse error is logged and
// skipped. Authorization failures abort the whole run.
func (a *Aggregator) Collect(ctx context.Context, year int) (domain.RecordSet, error) {
	repos, err := a.fetcher.ListRepositories(ctx)
	if err != nil {
		return domain.RecordSet{}, err
	}
	a.logger.Printf("found %d repositories", len(repos))

	var rs domain.RecordSet
	for i, repo := range repos {
		a.logger.Printf("processing repository %d/%d: %s", i+1, len(repos), repo.Slug)

		var commits []domain.CommitRecord
		var prs []domain.PullRequestRecord

		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			var err error
			commits, err = a.fetcher.FetchCommits(egCtx, repo.Slug, year)
			return err
		})
		eg.Go(func() error {
			var err error
			prs, err = a.fetcher.FetchPullRequests(egCtx, repo.Slug, year)
			return err
		})
		if err := eg.Wait(); err != nil {
			if errors.Is(err, gateway.ErrAuthorization) {
				return domain.RecordSet{}, err
			}
			a.logger.Printf("skipping repository %s: %v", repo.Slug, err)
			continue
		}

		for _, cm := range commits {
			fc, err := a.fetcher.FetchDiffstat(ctx, repo.Slug, cm.Hash)
			if err != nil {
				if errors.Is(err, gateway.ErrAuthorization) {
					return domain.RecordSet{}, err
				}
				a.logger.Printf("skipping diffstat for %s@%.8s: %v", repo.Slug, cm.Hash, err)
				continue
			}
			rs.FileChanges = append(rs.FileChanges, fc)
		}

		rs.Commits = append(rs.Commits, commits...)
		rs.PullRequests = append(rs.PullRequests, prs...)
	}

	a.logger.Printf("collected %d commits, %d pull requests, %d diffstats",
		len(rs.Commits), len(rs.PullRequests), len(rs.FileChanges))
	return rs, nil
}

// Dedupe drops records whose identifier was already seen, so that
// pagination overlap between pages cannot double-count activity.
// Commits and diffstats are identified by repo/hash, pull requests by
// repo/id.
func Dedupe(rs domain.RecordSet) domain.RecordSet {
	seen := make(map[string]bool)
	var out domain.RecordSet

	for _, c := range rs.Commits {
		k := "commit:" + c.Repo + "/" + c.Hash
		if seen[k] {
			continue
		}
		seen[k] = true
		out.Commits = append(out.Commits, c)
	}
	for _, pr := range rs.PullRequests {
		k := fmt.Sprintf("pr:%s/%d", pr.Repo, pr.ID)
		if seen[k] {
			continue
		}
		seen[k] = true
		out.PullRequests = append(out.PullRequests, pr)
	}
	for _, fc := range rs.FileChanges {
		k := "diff:" + fc.Repo + "/" + fc.CommitHash
		if seen[k] {
			continue
		}
		seen[k] = true
		out.FileChanges = append(out.FileChanges, fc)
	}
	return out
}

// Aggregate folds a record set into per-(repository, month) totals.
// It is a pure function of its input: replaying the same records, with or
// without duplicates, always reproduces identical aggregates. File change
// records are bucketed under the month of their commit; a diffstat whose
// commit is absent from the set has no month and is dropped.
func Aggregate(rs domain.RecordSet) domain.ActivitySummary {
	rs = Dedupe(rs)
	summary := make(domain.ActivitySummary)

	commitMonth := make(map[string]string, len(rs.Commits))
	for _, c := range rs.Commits {
		month := c.Date.Format(domain.MonthFormat)
		commitMonth[c.Repo+"/"+c.Hash] = month

		key := domain.MonthlyKey{Repo: c.Repo, Month: month}
		agg := summary[key]
		agg.Commits++
		summary[key] = agg
	}

	for _, pr := range rs.PullRequests {
		key := domain.MonthlyKey{Repo: pr.Repo, Month: pr.CreatedOn.Format(domain.MonthFormat)}
		agg := summary[key]
		agg.PullRequests++
		summary[key] = agg
	}

	for _, fc := range rs.FileChanges {
		month, ok := commitMonth[fc.Repo+"/"+fc.CommitHash]
		if !ok {
			continue
		}
		key := domain.MonthlyKey{Repo: fc.Repo, Month: month}
		agg := summary[key]
		agg.LinesAdded += fc.LinesAdded
		agg.LinesRemoved += fc.LinesRemoved
		summary[key] = agg
	}

	return summary
}
