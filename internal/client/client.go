// Package client talks to the report backend: the commit service, the
// elaboration service and the auth status endpoint.
package client

import (
	"context"
	"fmt"
	"net/url"

	"codereport/internal/model"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
)

// Client is an HTTP client for the report backend.
type Client struct {
	cli *cliex.HTTP
	cfg Config
	log logze.Logger
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	log := logze.With("module", "client")

	cli, err := cliex.NewWithConfig(cliex.Config{
		BaseURL:        cfg.BaseURL,
		RequestTimeout: cfg.Timeout,
	})
	if err != nil {
		return nil, errm.Wrap(err, "create HTTP client")
	}

	return &Client{
		cli: cli,
		cfg: cfg,
		log: log,
	}, nil
}

// FetchCommits requests the commit list for the given window. The duration
// format is validated by the backend, not here; both arguments must be
// non-empty or the call fails without touching the network.
func (c *Client) FetchCommits(ctx context.Context, duration, username string) ([]model.CommitRecord, error) {
	if duration == "" {
		return nil, model.ErrValidationFailed
	}
	if username == "" {
		return nil, model.ErrMissingUsername
	}

	apiURL := fmt.Sprintf("report/commit?duration=%s&username=%s",
		url.QueryEscape(duration), url.QueryEscape(username))

	var commits []model.CommitRecord
	if _, err := c.cli.Get(ctx, apiURL, &commits); err != nil {
		return nil, errm.Wrap(model.ErrFetchFailed, err.Error())
	}

	c.log.Debug("fetched commits", "count", len(commits), "duration", duration, "username", username)

	return commits, nil
}

type generateRequest struct {
	Commits []model.CommitRecord `json:"commits"`
}

type generateResponse struct {
	ElaboratedCommits *[]model.ElaboratedCommit `json:"elaborated_commits"`
	Summary           string                    `json:"summary"`
}

// GenerateReport submits the full commit list for elaboration as one batch.
// The response must carry exactly one elaborated commit per submitted commit,
// in submission order; anything else is a data-contract violation.
func (c *Client) GenerateReport(ctx context.Context, commits []model.CommitRecord) (*model.Report, error) {
	if len(commits) == 0 {
		return nil, model.ErrNoCommits
	}

	var resp generateResponse
	if _, err := c.cli.Post(ctx, "report/generate", generateRequest{Commits: commits}, &resp); err != nil {
		return nil, errm.Wrap(model.ErrGenerationFailed, err.Error())
	}

	if resp.ElaboratedCommits == nil {
		return nil, errm.Wrap(model.ErrGenerationIncomplete, "response has no elaborated_commits")
	}
	if len(*resp.ElaboratedCommits) != len(commits) {
		return nil, errm.Wrap(model.ErrGenerationIncomplete,
			fmt.Sprintf("submitted %d commits, got %d back", len(commits), len(*resp.ElaboratedCommits)))
	}

	c.log.Debug("generated report", "commits", len(commits), "has_summary", resp.Summary != "")

	return &model.Report{
		ElaboratedCommits: *resp.ElaboratedCommits,
		Summary:           resp.Summary,
	}, nil
}

type statusResponse struct {
	User *model.User `json:"user"`
}

// Status validates the token against the backend and returns the identity it
// resolves to. A response without a user means the token is invalid or
// expired.
func (c *Client) Status(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.ErrUnauthenticated
	}

	c.cli.C().SetHeader("Authorization", "Bearer "+token)

	var resp statusResponse
	if _, err := c.cli.Get(ctx, "auth/status", &resp); err != nil {
		return nil, errm.Wrap(model.ErrUnauthenticated, err.Error())
	}
	if resp.User == nil || resp.User.Username == "" {
		return nil, model.ErrUnauthenticated
	}

	return resp.User, nil
}
