// Package compare runs every engine against one URL concurrently and merges
// their results into a comparative report.
package compare

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/locale"
	"github.com/nao1215/a11yscan/internal/model"
)

// Aggregator fans a URL out to several adapters.
//
// Each adapter runs in its own goroutine on a context detached from the
// caller's cancellation, so each one is bounded only by its own timeouts.
// A panicking or failing adapter becomes a failed EngineRun.
type Aggregator struct {
	// adapters are run concurrently. Their runs are reported in this order,
	// whatever order they finish in.
	adapters []engine.Adapter

	// logger receives one record per finished or failed engine.
	logger *slog.Logger

	// now timestamps the report and failed runs.
	now func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock sets the function used to timestamp reports and runs.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// New returns an Aggregator over adapters. Runs are reported in adapter order.
func New(adapters []engine.Adapter, opts ...Option) *Aggregator {
	a := &Aggregator{
		adapters: adapters,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run audits target with every adapter and composes the report. Adapters run
// concurrently on the caller's context values but not its cancellation; one
// failing or slow adapter never stops the others.
func (a *Aggregator) Run(ctx context.Context, target engine.Target) *model.ComparativeResult {
	runs := make([]model.EngineRun, len(a.adapters))
	detached := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i, ad := range a.adapters {
		g.Go(func() error {
			runs[i] = a.runOne(detached, ad, target)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // runOne never returns an error

	return Compose(target.URL, runs, a.now(), target.Language)
}

func (a *Aggregator) runOne(ctx context.Context, ad engine.Adapter, target engine.Target) (run model.EngineRun) {
	ts, start := a.now(), time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			a.logger.Error("engine panicked", "engine", ad.Engine(), "url", target.URL, "error", err)
			run = failedRun(target, ad.Engine(), ts, time.Since(start), err)
		}
	}()

	res, err := ad.Run(ctx, target)
	elapsed := time.Since(start)
	if err != nil || res == nil {
		a.logger.Warn("engine failed", "engine", ad.Engine(), "url", target.URL, "error", err)
		return failedRun(target, ad.Engine(), ts, elapsed, err)
	}
	a.logger.Info("engine finished",
		"engine", ad.Engine(),
		"url", target.URL,
		"violations", res.TotalViolations,
		"score", res.Score,
		"elapsed", elapsed,
	)
	return model.NewSuccessfulRun(res, elapsed)
}

func failedRun(target engine.Target, e model.Engine, ts time.Time, elapsed time.Duration, err error) model.EngineRun {
	run := model.NewFailedRun(target.URL, e, ts, elapsed, err)
	run.Result.Summary = locale.FailureSummary(target.Language, e, err)
	return run
}

// Compose merges engine runs into a comparative report. Only successful runs
// contribute violations and scores; every run, failed or not, has an entry
// in EngineSpecificViolations holding its raw list.
func Compose(url string, runs []model.EngineRun, now time.Time, lang language.Tag) *model.ComparativeResult {
	var ok []model.EngineRun
	specific := make(map[model.Engine][]model.Violation, len(runs))
	for _, r := range runs {
		if !r.Success || r.Result == nil {
			specific[r.Engine] = []model.Violation{}
			continue
		}
		ok = append(ok, r)
		specific[r.Engine] = r.Result.Violations
	}

	common := CommonViolations(ok)
	unique := UniqueCount(ok)
	summary := model.ComparativeSummary{
		ConsensusLevel:     Consensus(len(common), ok),
		MostReliableEngine: MostReliable(ok, common),
	}
	if len(ok) > 0 {
		best, worst, sum := math.MinInt, math.MaxInt, 0
		for _, r := range ok {
			best = max(best, r.Result.Score)
			worst = min(worst, r.Result.Score)
			sum += r.Result.Score
		}
		summary.BestScore = best
		summary.WorstScore = worst
		summary.AverageScore = model.RoundScore(float64(sum) / float64(len(ok)))
	}
	summary.Text = locale.ComparativeSummary(lang, len(ok), len(runs), unique, summary.ConsensusLevel)

	return &model.ComparativeResult{
		URL:                      url,
		Timestamp:                now,
		Engines:                  runs,
		TotalUniqueViolations:    unique,
		CommonViolations:         common,
		EngineSpecificViolations: specific,
		Summary:                  summary,
	}
}

// CommonViolations returns the violations of the first successful run whose
// criterion and level appear in every other successful run.
func CommonViolations(runs []model.EngineRun) []model.Violation {
	if len(runs) == 0 {
		return []model.Violation{}
	}
	out := []model.Violation{}
	for _, v := range runs[0].Result.Violations {
		shared := true
		for _, other := range runs[1:] {
			if !containsCriterion(other.Result.Violations, v) {
				shared = false
				break
			}
		}
		if shared {
			out = append(out, v)
		}
	}
	return out
}

func containsCriterion(list []model.Violation, v model.Violation) bool {
	for _, o := range list {
		if o.SameCriterion(v) {
			return true
		}
	}
	return false
}

// UniqueCount counts distinct violations across runs by criterion, level
// and description.
func UniqueCount(runs []model.EngineRun) int {
	seen := make(map[string]struct{})
	for _, r := range runs {
		for _, v := range r.Result.Violations {
			seen[v.DedupKey()] = struct{}{}
		}
	}
	return len(seen)
}

// Consensus returns how much the successful runs agree, as a percentage:
// common violations times the number of engines over all violations
// reported. It is 100 when no violation was reported at all.
func Consensus(common int, runs []model.EngineRun) int {
	total := 0
	for _, r := range runs {
		total += r.Result.TotalViolations
	}
	if total == 0 {
		return 100
	}
	return model.RoundScore(min(100, float64(common*len(runs))/float64(total)*100))
}

// MostReliable returns the engine whose violations best match the common
// set, relative to its own total. Ties go to the earlier engine of
// model.Engines. It is empty when no run succeeded.
func MostReliable(runs []model.EngineRun, common []model.Violation) model.Engine {
	var best model.Engine
	bestRatio := -1.0
	for _, e := range model.Engines {
		for _, r := range runs {
			if r.Engine != e {
				continue
			}
			matched := 0
			for _, v := range r.Result.Violations {
				if containsCriterion(common, v) {
					matched++
				}
			}
			ratio := float64(matched) / float64(max(1, len(r.Result.Violations)))
			if ratio > bestRatio {
				best, bestRatio = e, ratio
			}
		}
	}
	return best
}
