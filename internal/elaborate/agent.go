// Package elaborate expands terse commit messages into readable descriptions
// and produces an aggregate summary, using the Gemini API.
package elaborate

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"codereport/internal/model"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/logze/v2"
	"google.golang.org/genai"
)

// Agent elaborates commits through Gemini.
type Agent struct {
	client *genai.Client
	cfg    Config
	log    logze.Logger
}

// New creates a Gemini-backed elaboration agent.
func New(ctx context.Context, cfg Config) (*Agent, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}

	transport := &http.Transport{}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, erro.Wrap(err, "failed to parse proxy URL")
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Transport: transport,
		},
	})
	if err != nil {
		return nil, erro.Wrap(err, "failed to create Gemini client")
	}

	agent := &Agent{
		client: client,
		cfg:    cfg,
		log:    logze.With("module", "elaborate"),
	}

	if cfg.IsTest {
		if err := agent.testConnection(ctx); err != nil {
			return nil, erro.Wrap(err, "failed to connect to Gemini API")
		}
	}

	return agent, nil
}

// GenerateReport elaborates every commit and produces an aggregate summary.
// The result keeps a strict one-to-one, in-order correspondence with the
// input: a commit whose elaboration cannot be produced (empty message, API
// error) is carried through with an empty elaboration instead of being
// dropped. Only a failure of the whole batch is an error.
func (a *Agent) GenerateReport(ctx context.Context, commits []model.CommitRecord) (*model.Report, error) {
	if len(commits) == 0 {
		return nil, model.ErrNoCommits
	}

	elaborated := make([]model.ElaboratedCommit, 0, len(commits))
	for _, commit := range commits {
		elaborated = append(elaborated, model.ElaboratedCommit{
			Original:             commit.Message,
			Elaboration:          a.elaborate(ctx, commit.Message),
			Repo:                 commit.Repo,
			Date:                 commit.Date,
			Additions:            commit.Additions,
			Deletions:            commit.Deletions,
			LOCPerLanguage:       commit.LOCPerLanguage,
			LanguageDistribution: commit.LanguageDistribution,
		})
	}

	summary, err := a.summarize(ctx, elaborated)
	if err != nil {
		// Summary is an enrichment on top of the elaborations, not a reason
		// to fail the batch.
		a.log.Error("failed to generate summary", "error", err)
		summary = ""
	}

	return &model.Report{
		ElaboratedCommits: elaborated,
		Summary:           summary,
	}, nil
}

func (a *Agent) elaborate(ctx context.Context, message string) string {
	if strings.TrimSpace(message) == "" {
		return ""
	}

	content, err := a.generate(ctx, "", elaborationPrompt(message))
	if err != nil {
		a.log.Error("failed to elaborate commit message", "error", a.handleAPIError(err))
		return ""
	}
	return strings.TrimSpace(content)
}

func (a *Agent) summarize(ctx context.Context, commits []model.ElaboratedCommit) (string, error) {
	content, err := a.generate(ctx, summarySystemPrompt, summaryPrompt(commits))
	if err != nil {
		return "", a.handleAPIError(err)
	}
	return strings.TrimSpace(content), nil
}

// generate calls the Gemini API to generate content
func (a *Agent) generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "text/plain",
		Temperature:      &a.cfg.Temperature,
		MaxOutputTokens:  int32(a.cfg.MaxTokens),
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}

	result, err := a.client.Models.GenerateContent(ctx,
		a.cfg.Model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		config,
	)
	if err != nil {
		return "", err
	}

	var content string
	if len(result.Candidates) > 0 {
		candidate := result.Candidates[0]
		if candidate.Content != nil && len(candidate.Content.Parts) > 0 {
			content = candidate.Content.Parts[0].Text
		}
	}
	return content, nil
}

// handleAPIError maps raw API errors to readable ones.
func (a *Agent) handleAPIError(err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "location is not supported"):
		return erro.New("region not supported by Gemini API")
	case strings.Contains(errStr, "429"):
		return erro.New("rate limit exceeded")
	case strings.Contains(errStr, "401") || strings.Contains(errStr, "403"):
		return erro.New("authentication failed")
	case strings.Contains(errStr, "503"):
		return erro.New("Gemini API service unavailable")
	default:
		return err
	}
}

func (a *Agent) testConnection(ctx context.Context) error {
	_, err := a.generate(ctx, "", "Respond with 'OK' if you can understand this message.")
	if err != nil {
		return a.handleAPIError(err)
	}
	return nil
}
