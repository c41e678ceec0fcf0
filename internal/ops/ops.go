// Package ops implements the quoting operations shared by the CLI, the MCP
// server and the HTTP API.
package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/lanequote/internal/config"
	"github.com/hpungsan/lanequote/internal/db"
	"github.com/hpungsan/lanequote/internal/gemini"
	"github.com/hpungsan/lanequote/internal/geoapify"
	"github.com/hpungsan/lanequote/internal/pricing"
	"github.com/hpungsan/lanequote/internal/refdata"
	"github.com/hpungsan/lanequote/internal/render"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Service bundles what the operations need.
type Service struct {
	DB        *sql.DB
	Config    *config.Config
	Ref       *refdata.Source
	Engine    *pricing.Engine
	Summaries *pricing.SummaryResolver
	Renderer  *render.Renderer
	Logger    *zap.Logger

	// Now is the clock used for request log timestamps.
	Now func() time.Time
}

// Providers are the optional external services. A nil field disables it.
type Providers struct {
	Router    pricing.Router
	Generator pricing.Generator
}

// NewProviders builds the Geoapify and Gemini clients for the keys that are set.
func NewProviders(ctx context.Context, cfg *config.Config, secrets config.Secrets, log *zap.Logger) Providers {
	if log == nil {
		log = zap.NewNop()
	}
	var p Providers
	if secrets.GeoapifyAPIKey != "" {
		p.Router = geoapify.New(cfg.GeoapifyBaseURL, secrets.GeoapifyAPIKey)
	} else {
		log.Info("GEOAPIFY_API_KEY not set; distance estimation disabled")
	}

	if secrets.GeminiAPIKey != "" {
		g, err := gemini.New(ctx, secrets.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn("gemini client unavailable; client summaries disabled", zap.Error(err))
		} else {
			p.Generator = g
		}
	} else {
		log.Info("GEMINI_API_KEY not set; client summaries disabled")
	}
	return p
}

// New wires a Service over an initialized database.
func New(database *sql.DB, cfg *config.Config, providers Providers, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}

	renderer, err := render.New(cfg.TemplatePath)
	if err != nil {
		return nil, err
	}

	ref := refdata.New(database, cfg.ReferenceTTL(), refdata.WithLogger(log.Named("refdata")))
	distances := pricing.NewDistanceResolver(ref, providers.Router, cfg.ProviderTimeout(), cfg.SummaryTTL(), log.Named("distance"))
	summaries := pricing.NewSummaryResolver(ref, providers.Generator, cfg.ProviderTimeout(), cfg.SummaryTTL(), log.Named("summary"))

	return &Service{
		DB:        database,
		Config:    cfg,
		Ref:       ref,
		Engine:    pricing.NewEngine(ref, distances, log.Named("engine")),
		Summaries: summaries,
		Renderer:  renderer,
		Logger:    log,
		Now:       time.Now,
	}, nil
}

func (s *Service) timestamp() string {
	return s.Now().Format(db.TimestampLayout)
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
