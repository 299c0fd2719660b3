// Package server exposes the report backend over HTTP: commit aggregation,
// report generation and the GitHub-backed auth endpoints.
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"codereport/internal/model"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/servex/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CommitSource aggregates commit activity for a user within a window.
type CommitSource interface {
	FetchCommits(ctx context.Context, days int, username string) ([]model.CommitRecord, error)
}

// Elaborator turns a commit list into an elaborated report.
type Elaborator interface {
	GenerateReport(ctx context.Context, commits []model.CommitRecord) (*model.Report, error)
}

// Server handles report and auth requests.
type Server struct {
	source     CommitSource
	elaborator Elaborator
	cfg        Config
	log        logze.Logger
	server     *servex.Server
	oauth      *oauthFlow
}

// New creates a report server.
func New(cfg Config, source CommitSource, elaborator Elaborator) (*Server, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}

	log := logze.With("module", "server")

	server, err := servex.NewServer(
		servex.WithReadTimeout(cfg.Timeout),
		servex.WithIdleTimeout(cfg.Timeout*2),
		servex.WithLogger(log),
		servex.WithHealthEndpoint(),
		servex.WithDefaultMetrics(),
		servex.WithCertificate(cfg.Certificate),
	)
	if err != nil {
		return nil, erro.Wrap(err, "failed to create server")
	}

	s := &Server{
		source:     source,
		elaborator: elaborator,
		cfg:        cfg,
		log:        log,
		server:     server,
		oauth:      newOAuthFlow(cfg),
	}

	server.HandleFunc("/report/commit", s.handleGetCommits)
	server.HandleFunc("/report/generate", s.handleGenerateReport)
	server.HandleFunc("/auth/status", s.handleStatus)
	server.HandleFunc("/auth/login", s.handleLogin)
	server.HandleFunc("/auth/callback", s.handleCallback)
	server.HandleFunc("/auth/logout", s.handleLogout)

	return s, nil
}

// Start starts the report server.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.EnableHTTPS {
		return s.server.StartHTTPS(s.cfg.Address)
	}
	return s.server.StartHTTP(s.cfg.Address)
}

// Stop stops the report server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleGetCommits(w http.ResponseWriter, r *http.Request) {
	ctx := servex.NewContext(w, r)

	durationRaw := r.URL.Query().Get("duration")
	if durationRaw == "" {
		ctx.BadRequest(erro.New("duration is required"), "duration is required")
		return
	}
	days, err := strconv.Atoi(durationRaw)
	if err != nil || days <= 0 {
		ctx.BadRequest(erro.New("invalid duration"), "duration must be a valid number of days")
		return
	}
	username := r.URL.Query().Get("username")

	commits, err := s.source.FetchCommits(r.Context(), days, username)
	if err != nil {
		ctx.InternalServerError(err, "failed to fetch commits")
		return
	}
	if commits == nil {
		// Always a JSON array, even when the window is empty.
		commits = []model.CommitRecord{}
	}

	ctx.Response(http.StatusOK, commits)
}

type generateRequest struct {
	Commits []model.CommitRecord `json:"commits"`
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	ctx := servex.NewContext(w, r)

	if r.Method != http.MethodPost {
		ctx.Response(http.StatusMethodNotAllowed)
		return
	}

	body, err := ctx.Read()
	if err != nil {
		ctx.BadRequest(err, "failed to read request body")
		return
	}

	var req generateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		ctx.BadRequest(err, "failed to parse request body")
		return
	}
	if len(req.Commits) == 0 {
		ctx.BadRequest(erro.New("empty commits"), "commits must be a non-empty list")
		return
	}

	report, err := s.elaborator.GenerateReport(r.Context(), req.Commits)
	if err != nil {
		ctx.InternalServerError(err, "failed to generate report")
		return
	}

	s.log.Info("generated report", "commits", len(report.ElaboratedCommits))
	ctx.Response(http.StatusOK, report)
}

type statusResponse struct {
	User *model.User `json:"user"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := servex.NewContext(w, r)

	token, ok := bearerToken(r)
	if !ok {
		ctx.Response(http.StatusUnauthorized, statusResponse{})
		return
	}

	claims, err := s.verifySession(token)
	if err != nil {
		s.log.Debug("session verification failed", "error", err)
		ctx.Response(http.StatusUnauthorized, statusResponse{})
		return
	}

	ctx.Response(http.StatusOK, statusResponse{User: &model.User{
		Username:  claims.Username,
		AvatarURL: claims.AvatarURL,
	}})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return token, token != ""
}
