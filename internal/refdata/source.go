// Package refdata serves table snapshots to the resolvers.
//
// A snapshot is reloaded once it is older than the configured TTL and is
// dropped immediately after any append made through the Source, so later
// lookups in the same process see the new row.
package refdata

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/lanequote/internal/db"
	"github.com/hpungsan/lanequote/internal/quote"
)

// DefaultTTL is the snapshot lifetime when none is configured.
const DefaultTTL = 10 * time.Minute

// Source owns the current snapshot and serializes writes to the cache tables.
type Source struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
	log *zap.Logger

	mu   sync.RWMutex
	snap *Snapshot
	// gen counts invalidations. A load only installs its snapshot when no
	// invalidation happened while it ran.
	gen uint64

	// loads collapses concurrent reloads into one set of queries.
	loads singleflight.Group

	writeMu sync.Mutex
}

// Option configures a Source.
type Option func(*Source)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Source) { s.log = l }
}

// New returns a Source reading from database. A non-positive ttl uses DefaultTTL.
func New(database *sql.DB, ttl time.Duration, opts ...Option) *Source {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Source{
		db:  database,
		ttl: ttl,
		now: time.Now,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current snapshot, loading it when absent or expired.
func (s *Source) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	snap, gen := s.snap, s.gen
	s.mu.RUnlock()

	if s.fresh(snap) {
		return snap, nil
	}

	v, err, _ := s.loads.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		s.mu.RLock()
		current, currentGen := s.snap, s.gen
		s.mu.RUnlock()
		if currentGen == gen && s.fresh(current) {
			return current, nil
		}

		loaded, err := s.load(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.gen == gen {
			s.snap = loaded
		}
		s.mu.Unlock()

		s.log.Debug("reference snapshot loaded",
			zap.Int("prices", len(loaded.Prices)),
			zap.Int("rates", len(loaded.Rates)),
			zap.Int("distances", len(loaded.Distances)),
			zap.Int("summaries", len(loaded.Summaries)),
			zap.Int("terms", len(loaded.Terms)))
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate drops the current snapshot; the next Snapshot call reloads.
func (s *Source) Invalidate() {
	s.mu.Lock()
	s.snap = nil
	s.gen++
	s.mu.Unlock()
}

func (s *Source) fresh(snap *Snapshot) bool {
	return snap != nil && s.now().Sub(snap.LoadedAt) < s.ttl
}

// AppendDistance writes a distance cache row and invalidates the snapshot.
func (s *Source) AppendDistance(ctx context.Context, e quote.DistanceEntry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := db.AppendDistance(ctx, s.db, e); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// AppendSummary writes a client summary cache row and invalidates the snapshot.
func (s *Source) AppendSummary(ctx context.Context, e quote.SummaryEntry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := db.AppendSummary(ctx, s.db, e); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// ImportRows appends rows to a reference table, clearing it first when
// replace is set, and invalidates the snapshot.
func (s *Source) ImportRows(ctx context.Context, t db.Table, rows [][]string, replace bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	write := db.AppendRows
	if replace {
		write = db.ReplaceRows
	}
	if err := write(ctx, s.db, t, rows); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

func (s *Source) load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{LoadedAt: s.now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Prices, err = db.ListPrices(gctx, s.db)
		return err
	})
	g.Go(func() (err error) {
		snap.Rates, err = db.ListRates(gctx, s.db)
		return err
	})
	g.Go(func() (err error) {
		snap.Distances, err = db.ListDistances(gctx, s.db)
		return err
	})
	g.Go(func() (err error) {
		snap.Summaries, err = db.ListSummaries(gctx, s.db)
		return err
	})
	g.Go(func() (err error) {
		snap.Terms, err = db.ListTerms(gctx, s.db)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snap, nil
}
