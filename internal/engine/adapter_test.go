package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/a11yscan/internal/model"
)

func TestRunTimeoutBoundsWholeRun(t *testing.T) {
	t.Parallel()

	const bound = 50 * time.Millisecond

	tests := []struct {
		name string
		new  func(SessionProvider) Adapter
	}{
		{
			name: "wave completion polling",
			new: func(p SessionProvider) Adapter {
				return NewWaveAdapter(p, testWaveConfig(), NoPacer{}, WithRunTimeout(bound))
			},
		},
		{
			name: "axe injection",
			new: func(p SessionProvider) Adapter {
				return NewAxeAdapter(p, testAxeConfig(), nil, WithRunTimeout(bound))
			},
		},
		{
			name: "rgaa snapshot",
			new: func(p SessionProvider) Adapter {
				return NewRGAAAdapter(p, WithRunTimeout(bound))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sess := &fakeSession{
				exists:    map[string]bool{"#input_url": true, "#button_go": true},
				evalHangs: true,
			}
			a := tt.new(&fakeProvider{sess: sess})

			start := time.Now()
			res, err := a.Run(context.Background(), Target{URL: "https://example.com/"})
			elapsed := time.Since(start)

			if !errors.Is(err, model.ErrEngineTimeout) {
				t.Fatalf("Run() error = %v, want ErrEngineTimeout", err)
			}
			if elapsed > 2*time.Second {
				t.Errorf("Run() took %s with a %s bound", elapsed, bound)
			}
			if res == nil || res.Score != 0 || len(res.Violations) != 0 {
				t.Errorf("timed out result = %+v, want zeroed", res)
			}
			if sess.released != 1 {
				t.Errorf("released %d times, want 1", sess.released)
			}
		})
	}
}

func TestRunTimeoutKeepsStepErrors(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{exists: map[string]bool{}}
	a := NewWaveAdapter(&fakeProvider{sess: sess}, testWaveConfig(), NoPacer{}, WithRunTimeout(time.Minute))
	_, err := a.Run(context.Background(), Target{URL: "https://example.com/"})
	if !errors.Is(err, model.ErrNavigation) || errors.Is(err, model.ErrEngineTimeout) {
		t.Errorf("Run() error = %v, want ErrNavigation only", err)
	}
}

func TestWithRunTimeout(t *testing.T) {
	t.Parallel()

	if got := NewRGAAAdapter(nil).runTimeout; got != DefaultRunTimeout {
		t.Errorf("default run timeout = %s, want %s", got, DefaultRunTimeout)
	}

	a := NewRGAAAdapter(nil, WithRunTimeout(0))
	ctx, cancel := a.bounded(context.Background())
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Error("expected no deadline when the run bound is disabled")
	}
}
