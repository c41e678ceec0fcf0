package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/lanequote/internal/quote"
	"github.com/hpungsan/lanequote/internal/refdata"
)

// DefaultSummary stands in whenever no generated summary is available.
const DefaultSummary = "Client details as provided by user."

// Generator produces text from a prompt. gemini.Client implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SummarySource says where a summary came from.
type SummarySource string

const (
	SummaryDefault   SummarySource = "default"
	SummaryCached    SummarySource = "cache"
	SummaryGenerated SummarySource = "api"
)

// SummaryPrompt returns the prompt sent to the generator for a company.
func SummaryPrompt(company string) string {
	return fmt.Sprintf("Briefly summarize the company '%s' in 2-3 professional lines, focusing on their industry.", company)
}

// SummaryResolver returns short client descriptions from the summary cache,
// falling back to the generator. It never fails: every problem yields
// DefaultSummary, and defaults are never cached.
type SummaryResolver struct {
	ref     *refdata.Source
	gen     Generator
	timeout time.Duration
	memo    *expirable.LRU[string, string]
	flights singleflight.Group
	log     *zap.Logger
}

// NewSummaryResolver builds a resolver. A nil generator disables provider calls.
func NewSummaryResolver(ref *refdata.Source, gen Generator, timeout, memoTTL time.Duration, log *zap.Logger) *SummaryResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &SummaryResolver{
		ref:     ref,
		gen:     gen,
		timeout: timeout,
		memo:    expirable.NewLRU[string, string](memoSize, nil, memoTTL),
		log:     log,
	}
}

// Summary returns the description for company.
func (r *SummaryResolver) Summary(ctx context.Context, company string) string {
	text, _ := r.Lookup(ctx, company)
	return text
}

type summaryResult struct {
	text   string
	source SummarySource
}

// Lookup returns the description for company and where it came from.
func (r *SummaryResolver) Lookup(ctx context.Context, company string) (string, SummarySource) {
	company = strings.TrimSpace(company)
	if company == "" {
		return DefaultSummary, SummaryDefault
	}
	key := quote.Fold(company)

	if text, ok := r.cached(ctx, company); ok {
		r.log.Debug("client summary cache hit", zap.String("company", company))
		return text, SummaryCached
	}
	if text, ok := r.memo.Get(key); ok {
		return text, SummaryGenerated
	}
	if r.gen == nil {
		r.log.Debug("no generator configured; using default summary")
		return DefaultSummary, SummaryDefault
	}

	fctx := context.WithoutCancel(ctx)
	v, _, _ := r.flights.Do(key, func() (any, error) {
		if text, ok := r.cached(fctx, company); ok {
			return summaryResult{text, SummaryCached}, nil
		}
		if text, ok := r.memo.Get(key); ok {
			return summaryResult{text, SummaryGenerated}, nil
		}

		text, err := r.generate(fctx, company)
		if err != nil {
			r.log.Warn("client summary failed", zap.String("company", company), zap.Error(err))
			return summaryResult{DefaultSummary, SummaryDefault}, nil
		}

		r.memo.Add(key, text)
		if err := r.ref.AppendSummary(fctx, quote.SummaryEntry{CompanyName: company, SummaryText: text}); err != nil {
			r.log.Warn("failed to save to client summary cache", zap.String("company", company), zap.Error(err))
		}
		return summaryResult{text, SummaryGenerated}, nil
	})

	res := v.(summaryResult)
	return res.text, res.source
}

func (r *SummaryResolver) cached(ctx context.Context, company string) (string, bool) {
	snap, err := r.ref.Snapshot(ctx)
	if err != nil {
		r.log.Warn("client summary cache unavailable", zap.Error(err))
		return "", false
	}
	return snap.FindSummary(company)
}

func (r *SummaryResolver) generate(ctx context.Context, company string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.gen.Generate(ctx, SummaryPrompt(company))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty summary")
	}
	return text, nil
}
