package engine

import (
	"context"
	"fmt"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/locale"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/rgaa"
	"github.com/nao1215/a11yscan/internal/scoring"
)

// rgaaSnapshotScript serializes the live DOM with its doctype.
const rgaaSnapshotScript = `(document.doctype ? new XMLSerializer().serializeToString(document.doctype) : '') + document.documentElement.outerHTML`

// maxPositions bounds the bounding box lookups of one run.
const maxPositions = 200

// RGAAAdapter audits a page with the in-page rule engine.
type RGAAAdapter struct {
	base
	mode browser.Mode
}

var _ Adapter = (*RGAAAdapter)(nil)

// NewRGAAAdapter returns an in-page rule engine adapter running headless.
func NewRGAAAdapter(provider SessionProvider, opts ...Option) *RGAAAdapter {
	a := &RGAAAdapter{
		base: newBase(provider),
		mode: browser.ModeHeadless,
	}
	a.apply(opts)
	return a
}

// Engine implements Adapter.
func (a *RGAAAdapter) Engine() model.Engine { return model.EngineRGAA }

// Run implements Adapter.
func (a *RGAAAdapter) Run(ctx context.Context, target Target) (*model.AuditResult, error) {
	ts := a.now()
	runCtx, cancel := a.bounded(ctx)
	defer cancel()
	res, err := a.run(runCtx, target)
	if err != nil {
		return a.fail(target, model.EngineRGAA, ts, fmt.Errorf("rgaa: %w", a.timeoutErr(runCtx, err)))
	}
	score := scoring.RGAA(res.Violations)
	a.logger.Debug("rgaa analysis finished",
		"url", target.URL,
		"checked_criteria", len(res.CheckedCriteria),
		"failed_criteria", len(res.FailedCriteria()),
		"elements", res.Metrics.Elements,
	)
	return model.NewAuditResult(target.URL, model.EngineRGAA, ts, res.Violations, score,
		locale.ConformanceSummary(target.Language, len(res.Violations), len(res.CheckedCriteria), len(rgaa.Catalog), score)), nil
}

func (a *RGAAAdapter) run(ctx context.Context, target Target) (*rgaa.Result, error) {
	sess, err := a.acquire(ctx, a.mode, target)
	if err != nil {
		return nil, err
	}
	defer a.release(sess)

	status, err := sess.Navigate(ctx, target.URL, browser.WaitDOMContentLoaded)
	if err != nil {
		return nil, err
	}
	if !navigationOK(status) {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", model.ErrNavigation, target.URL, status)
	}

	var markup string
	if err := sess.Evaluate(ctx, rgaaSnapshotScript, &markup); err != nil {
		return nil, fmt.Errorf("%w: serialize document: %w", model.ErrExtraction, err)
	}
	doc, err := dom.ParseString(markup)
	if err != nil {
		return nil, fmt.Errorf("%w: parse document: %w", model.ErrExtraction, err)
	}

	res := rgaa.New(doc).Analyze()
	a.locate(ctx, sess, res.Violations)
	return res, nil
}

// locate attaches bounding boxes to violations. Failures are ignored.
func (a *RGAAAdapter) locate(ctx context.Context, sess browser.Session, violations []model.Violation) {
	boxes := make(map[string]*model.Position)
	for i := range violations {
		if i >= maxPositions {
			return
		}
		sel := violations[i].Element
		if sel == "" || sel == "html" {
			continue
		}
		pos, seen := boxes[sel]
		if !seen {
			r, err := sess.BoundingBox(ctx, sel)
			if err == nil {
				pos = &model.Position{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, Selector: sel}
			}
			boxes[sel] = pos
		}
		if pos != nil {
			p := *pos
			violations[i].Position = &p
		}
	}
}
