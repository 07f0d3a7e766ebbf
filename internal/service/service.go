package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/olegrjumin/urlrisk/internal/heuristic"
	"github.com/olegrjumin/urlrisk/internal/logging"
	"github.com/olegrjumin/urlrisk/internal/metrics"
	"github.com/olegrjumin/urlrisk/internal/signal"
	"github.com/olegrjumin/urlrisk/internal/urlnorm"
)

// DefaultAdapterTimeout bounds each reputation lookup
const DefaultAdapterTimeout = 8 * time.Second

// Source is a reputation feed consulted during a scan.
// Lookup never returns an error: unavailability is folded into the Result.
type Source interface {
	Name() string
	Lookup(ctx context.Context, u *urlnorm.URL) signal.Result
}

// Options configures a Service
type Options struct {
	Weights        Weights
	AdapterTimeout time.Duration
	Metrics        *metrics.Recorder
}

// Service provides the business logic layer for URL scanning.
// It sits between the HTTP transport layer and the signal sources.
type Service struct {
	sources []Source
	weights Weights
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.Recorder
}

// New creates a new Service instance
func New(sources []Source, logger *logging.Logger, opts Options) *Service {
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights
	}
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = DefaultAdapterTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Service{
		sources: sources,
		weights: opts.Weights,
		timeout: opts.AdapterTimeout,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Scan runs the heuristic analyzer and every source concurrently and
// combines their results. Each source gets its own deadline, so a slow
// feed only costs its own contribution.
func (s *Service) Scan(ctx context.Context, raw string) *Verdict {
	scanID := uuid.NewString()
	start := time.Now()
	s.logger.Info("Scanning URL", "scan_id", scanID, "url", raw)

	// A malformed URL still gets a heuristic score; sources report failure.
	u, err := urlnorm.Parse(raw)
	if err != nil {
		s.logger.Debug("URL did not parse", "scan_id", scanID, "error", err)
	} else {
		s.logger.Debug("URL parsed", "scan_id", scanID, "host", u.Hostname, "domain", u.RegisteredDomain())
	}

	var heur signal.Result
	results := make([]signal.Result, len(s.sources))

	var g errgroup.Group
	g.Go(func() error {
		t := time.Now()
		heur = heuristic.Analyze(raw, u)
		s.metrics.ObserveSource(SourceHeuristic, string(heur.Status), time.Since(t))
		return nil
	})
	for i, src := range s.sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = s.lookup(ctx, src, u)
			return nil
		})
	}
	_ = g.Wait()

	details := make(map[string]signal.Result, len(s.sources)+1)
	for i, src := range s.sources {
		details[src.Name()] = results[i]
	}
	details[SourceHeuristic] = heur

	v := Combine(s.weights, details)
	v.ScanID = scanID
	s.metrics.ObserveScan(string(v.Verdict))

	s.logger.Info("Scan completed",
		"scan_id", scanID,
		"score", v.Score,
		"verdict", v.Verdict,
		"reasons", len(v.Reasons),
		"total_ms", time.Since(start).Milliseconds(),
	)
	return v
}

func (s *Service) lookup(ctx context.Context, src Source, u *urlnorm.URL) signal.Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	r := src.Lookup(ctx, u)
	elapsed := time.Since(start)

	s.metrics.ObserveSource(src.Name(), string(r.Status), elapsed)
	if r.Status == signal.StatusFailed {
		s.logger.Warn("Source failed", "source", src.Name(), "elapsed_ms", elapsed.Milliseconds(), "ctx_err", ctx.Err())
	}
	return r
}

// QuickCheck scores a URL with the heuristic analyzer alone. The score is
// not weighted, so it is comparable with the thresholds on its own.
func (s *Service) QuickCheck(raw string) *Verdict {
	heur := heuristic.AnalyzeRaw(raw)
	v := newVerdict(heur.Score, map[string]signal.Result{SourceHeuristic: heur})
	v.ScanID = uuid.NewString()

	s.logger.Info("Quick check completed", "scan_id", v.ScanID, "url", raw, "score", v.Score, "verdict", v.Verdict)
	return v
}
