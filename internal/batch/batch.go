package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/a11yscan/internal/model"
)

// DefaultConcurrency is the number of audits run at once when none is set.
// Every audit holds at least one browser, so the default stays small.
const DefaultConcurrency = 2

// Handler runs one audit request. *orchestrator.Orchestrator implements it.
type Handler interface {
	Handle(ctx context.Context, req model.Request) (*model.Response, error)
}

// Result is the outcome of one request of a batch.
type Result struct {
	// Index is the position of the request in the batch.
	Index    int
	Request  model.Request
	Response *model.Response
	// Err is set when the request was rejected or skipped.
	Err     error
	Elapsed time.Duration
}

// Processor runs batches of audit requests.
type Processor struct {
	// handler audits one request. It is called from several goroutines.
	handler Handler

	// concurrency is the maximum number of requests handled at once.
	// A comparative request already starts one browser per engine, so the
	// number of browsers is up to three times this value.
	concurrency int

	// logger receives progress and failure records.
	logger *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets a custom logger for batch processing.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewProcessor creates a Processor sending requests to handler.
func NewProcessor(handler Handler, opts ...Option) *Processor {
	p := &Processor{
		handler:     handler,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Process runs every request and returns one Result per request, in input
// order. Cancelling ctx skips the requests that have not started; their
// Result carries the context error. Running audits are not interrupted.
func (p *Processor) Process(ctx context.Context, reqs []model.Request) []Result {
	results := make([]Result, len(reqs))
	// Each goroutine writes only its own slot.
	_ = p.ProcessWithCallback(ctx, reqs, func(r Result) { //nolint:errcheck // errors are carried by each Result
		results[r.Index] = r
	})
	return results
}

// ProcessWithCallback runs every request and calls callback as each one
// completes. callback is called from worker goroutines and must be safe for
// concurrent use. The returned error is the context error when ctx was
// cancelled before every request started.
func (p *Processor) ProcessWithCallback(ctx context.Context, reqs []model.Request, callback func(Result)) error {
	p.logger.Info("starting batch audit",
		"total", len(reqs),
		"concurrency", p.concurrency,
	)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			callback(Result{Index: i, Request: req, Err: err})
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				callback(Result{Index: i, Request: req, Err: err})
				return nil
			}

			p.logger.Info("auditing url",
				"url", req.URL,
				"engine", req.Engine,
				"index", i+1,
				"total", len(reqs),
			)

			begin := time.Now()
			resp, err := p.handler.Handle(ctx, req)
			res := Result{Index: i, Request: req, Response: resp, Err: err, Elapsed: time.Since(begin)}
			if err != nil {
				p.logger.Warn("audit rejected", "url", req.URL, "error", err)
			}
			callback(res)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors
	p.logger.Info("batch audit complete",
		"total", len(reqs),
		"elapsed", time.Since(start),
	)
	return ctx.Err()
}

// Summary counts the outcomes of a batch.
type Summary struct {
	Total     int
	Succeeded int
	Rejected  int
}

// Summarize counts the results of a batch. A request counts as succeeded
// when it produced a response, even if its engines failed.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Err != nil || r.Response == nil {
			s.Rejected++
			continue
		}
		s.Succeeded++
	}
	return s
}
