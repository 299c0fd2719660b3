// Package gitsource aggregates commit activity from GitHub: every repository
// visible to the configured token is scanned for commits by a user within a
// window, together with change stats and a per-language attribution estimate.
package gitsource

import (
	"context"
	"math"
	"sync"
	"time"

	"codereport/internal/model"

	"github.com/google/go-github/v57/github"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/oauth2"
)

// Source fetches commit activity through the GitHub API.
type Source struct {
	client *github.Client
	cfg    Config
	pool   *ants.Pool
	log    logze.Logger
}

// New creates a GitHub source authenticated with the configured token.
func New(cfg Config) (*Source, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	log := logze.With("module", "gitsource")

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	client := github.NewClient(tc)
	if cfg.BaseURL != "" {
		var err error
		client, err = github.NewClient(tc).WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, errm.Wrap(err, "failed to create GitHub Enterprise client")
		}
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, errm.Wrap(err, "create worker pool")
	}

	return &Source{
		client: client,
		cfg:    cfg,
		pool:   pool,
		log:    log,
	}, nil
}

// Close releases the worker pool.
func (s *Source) Close() {
	s.pool.Release()
}

// FetchCommits returns the user's commits of the last `days` days across all
// repositories the token can see, in repository order. A repository that
// fails to load is logged and skipped, not fatal.
func (s *Source) FetchCommits(ctx context.Context, days int, username string) ([]model.CommitRecord, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	repos, err := s.listRepositories(ctx)
	if err != nil {
		return nil, errm.Wrap(err, "list repositories")
	}

	// One slot per repository so concurrent workers keep a deterministic
	// repository order in the result.
	perRepo := make([][]model.CommitRecord, len(repos))

	var wg sync.WaitGroup
	for i, repo := range repos {
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			commits, err := s.fetchRepoCommits(ctx, repo, since, username)
			if err != nil {
				s.log.Error("failed to fetch repository commits", "error", err, "repo", repo.GetName())
				return
			}
			perRepo[i] = commits
		}); err != nil {
			wg.Done()
			s.log.Error("failed to submit fetch task", "error", err, "repo", repo.GetName())
		}
	}
	wg.Wait()

	var all []model.CommitRecord
	for _, commits := range perRepo {
		all = append(all, commits...)
	}

	s.log.Info("aggregated commits", "repos", len(repos), "commits", len(all),
		"days", days, "username", username)

	return all, nil
}

func (s *Source) listRepositories(ctx context.Context) ([]*github.Repository, error) {
	opts := &github.RepositoryListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var all []*github.Repository
	for {
		repos, resp, err := s.client.Repositories.List(ctx, "", opts)
		if err != nil {
			return nil, err
		}
		all = append(all, repos...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (s *Source) fetchRepoCommits(ctx context.Context, repo *github.Repository, since time.Time, username string) ([]model.CommitRecord, error) {
	owner := repo.GetOwner().GetLogin()
	name := repo.GetName()

	distribution := s.languageDistribution(ctx, owner, name)

	opts := &github.CommitsListOptions{
		Since:       since,
		Author:      username,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var records []model.CommitRecord
	for {
		commits, resp, err := s.client.Repositories.ListCommits(ctx, owner, name, opts)
		if err != nil {
			return nil, errm.Wrap(err, "list commits")
		}

		for _, commit := range commits {
			additions, deletions := s.commitStats(ctx, owner, name, commit.GetSHA())
			records = append(records, model.CommitRecord{
				Message:              commit.GetCommit().GetMessage(),
				Repo:                 name,
				Date:                 commit.GetCommit().GetCommitter().GetDate().Format(time.RFC3339),
				Additions:            additions,
				Deletions:            deletions,
				LOCPerLanguage:       EstimateLOC(distribution, additions, deletions),
				LanguageDistribution: distribution,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return records, nil
}

// languageDistribution converts the repository's language byte counts into
// rounded percentages. Attribution is best-effort: on failure the commits
// are returned without language fields.
func (s *Source) languageDistribution(ctx context.Context, owner, name string) map[string]float64 {
	languages, _, err := s.client.Repositories.ListLanguages(ctx, owner, name)
	if err != nil {
		s.log.Debug("failed to list repository languages", "error", err, "repo", name)
		return nil
	}
	return Percentages(languages)
}

func (s *Source) commitStats(ctx context.Context, owner, name, sha string) (additions, deletions int) {
	detail, _, err := s.client.Repositories.GetCommit(ctx, owner, name, sha, nil)
	if err != nil {
		s.log.Debug("failed to get commit stats", "error", err, "repo", name, "sha", sha)
		return 0, 0
	}
	stats := detail.GetStats()
	return stats.GetAdditions(), stats.GetDeletions()
}

// Percentages converts per-language byte counts into percentage shares
// rounded to two decimals. The rounded values are estimates and need not sum
// to exactly 100.
func Percentages(bytesPerLanguage map[string]int) map[string]float64 {
	if len(bytesPerLanguage) == 0 {
		return nil
	}

	var total int
	for _, b := range bytesPerLanguage {
		total += b
	}
	if total == 0 {
		return nil
	}

	distribution := make(map[string]float64, len(bytesPerLanguage))
	for language, b := range bytesPerLanguage {
		percent := float64(b) / float64(total) * 100
		distribution[language] = math.Round(percent*100) / 100
	}
	return distribution
}

// EstimateLOC distributes a commit's addition/deletion counts across
// languages proportionally to the repository's language shares. The split is
// a per-repository estimate, not an exact per-commit attribution.
func EstimateLOC(distribution map[string]float64, additions, deletions int) map[string]model.LanguageLOC {
	if len(distribution) == 0 {
		return nil
	}

	locs := make(map[string]model.LanguageLOC, len(distribution))
	for language, percent := range distribution {
		locs[language] = model.LanguageLOC{
			EstimatedAdditions: int(math.Round(percent / 100 * float64(additions))),
			EstimatedDeletions: int(math.Round(percent / 100 * float64(deletions))),
		}
	}
	return locs
}
