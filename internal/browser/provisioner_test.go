package browser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/nao1215/a11yscan/internal/model"
)

type stubSession struct {
	Session
	cfg launchConfig
}

func newTestProvisioner(env Environment, launch launcher) *Provisioner {
	p := NewProvisioner(
		WithEnvironment(env),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	)
	p.launch = launch
	return p
}

func TestDetectEnvironment(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		env      map[string]string
		files    []string
		euid     int
		expected Environment
	}{
		{"plain developer machine", nil, nil, 1000, EnvironmentLocal},
		{"docker marker", nil, []string{"/.dockerenv"}, 1000, EnvironmentSandbox},
		{"kubernetes", map[string]string{"KUBERNETES_SERVICE_HOST": "10.0.0.1"}, nil, 1000, EnvironmentSandbox},
		{"ci runner", map[string]string{"CI": "true"}, nil, 1000, EnvironmentSandbox},
		{"running as root", nil, nil, 0, EnvironmentSandbox},
		{"explicit local wins", map[string]string{EnvVar: "local", "CI": "true"}, []string{"/.dockerenv"}, 0, EnvironmentLocal},
		{"explicit sandbox", map[string]string{EnvVar: "SANDBOX"}, nil, 1000, EnvironmentSandbox},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			probe := hostProbe{
				getenv: func(k string) string { return tc.env[k] },
				exists: func(path string) bool {
					for _, f := range tc.files {
						if f == path {
							return true
						}
					}
					return false
				},
				euid: tc.euid,
			}
			if got := probe.detect(); got != tc.expected {
				t.Errorf("got %s, expected %s", got, tc.expected)
			}
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Environment{"": EnvironmentAuto, "Local": EnvironmentLocal, "sandbox": EnvironmentSandbox} {
		got, err := ParseEnvironment(in)
		if err != nil || got != want {
			t.Errorf("ParseEnvironment(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseEnvironment("cloud"); err == nil {
		t.Error("expected an error for an unknown environment")
	}
}

func TestRandomIdentity(t *testing.T) {
	t.Parallel()

	a := RandomIdentity(rand.New(rand.NewPCG(7, 7)))
	b := RandomIdentity(rand.New(rand.NewPCG(7, 7)))
	if a != b {
		t.Errorf("expected the same seed to give the same identity: %+v vs %+v", a, b)
	}
	if a.UserAgent == "" || a.Width == 0 || a.Height == 0 {
		t.Errorf("identity is incomplete: %+v", a)
	}
}

func TestAcquire(t *testing.T) {
	t.Parallel()

	t.Run("sandbox gets sandbox flags and headless mode", func(t *testing.T) {
		t.Parallel()
		var got []launchConfig
		p := newTestProvisioner(EnvironmentSandbox, func(_ context.Context, cfg launchConfig) (Session, error) {
			got = append(got, cfg)
			return stubSession{cfg: cfg}, nil
		})

		if _, err := p.Acquire(context.Background(), ModeVisible); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected one launch, got %d", len(got))
		}
		if !got[0].headless {
			t.Error("expected visible mode to be downgraded in a sandbox")
		}
		if !hasFlag(got[0], "no-sandbox") || !hasFlag(got[0], "disable-dev-shm-usage") {
			t.Errorf("expected sandbox flags, got %+v", got[0].flags)
		}
		if got[0].identity == nil || got[0].identity.UserAgent == "" {
			t.Error("expected a randomized identity")
		}
	})

	t.Run("local keeps visible mode without sandbox flags", func(t *testing.T) {
		t.Parallel()
		var got launchConfig
		p := newTestProvisioner(EnvironmentLocal, func(_ context.Context, cfg launchConfig) (Session, error) {
			got = cfg
			return stubSession{}, nil
		})

		if _, err := p.Acquire(context.Background(), ModeVisible); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.headless {
			t.Error("expected visible mode on a local machine")
		}
		if hasFlag(got, "no-sandbox") {
			t.Error("did not expect sandbox flags on a local machine")
		}
	})

	t.Run("one minimal fallback after a failed launch", func(t *testing.T) {
		t.Parallel()
		var got []launchConfig
		p := newTestProvisioner(EnvironmentLocal, func(_ context.Context, cfg launchConfig) (Session, error) {
			got = append(got, cfg)
			if !cfg.minimal {
				return nil, errors.New("chrome crashed")
			}
			return stubSession{cfg: cfg}, nil
		})

		s, err := p.Acquire(context.Background(), ModeHeadless)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || !got[1].minimal || !got[1].headless || got[1].identity != nil {
			t.Errorf("expected a minimal headless retry, got %+v", got)
		}
		if !s.(stubSession).cfg.minimal {
			t.Error("expected the fallback session to be returned")
		}
	})

	t.Run("second failure is a launch error", func(t *testing.T) {
		t.Parallel()
		calls := 0
		p := newTestProvisioner(EnvironmentLocal, func(context.Context, launchConfig) (Session, error) {
			calls++
			return nil, errors.New("no chrome")
		})

		_, err := p.Acquire(context.Background(), ModeHeadless)
		if !errors.Is(err, model.ErrBrowserLaunch) {
			t.Errorf("expected ErrBrowserLaunch, got %v", err)
		}
		if calls != 2 {
			t.Errorf("expected exactly two attempts, got %d", calls)
		}
	})
}

func TestAllocatorOptions(t *testing.T) {
	t.Parallel()

	id := Identity{UserAgent: "ua", Width: 800, Height: 600}
	full := allocatorOptions(launchConfig{identity: &id, flags: sandboxFlags, proxy: "socks5://127.0.0.1:9050"})
	minimal := allocatorOptions(launchConfig{minimal: true, headless: true})

	if len(minimal) != 5 {
		t.Errorf("expected five minimal options, got %d", len(minimal))
	}
	if len(full) <= len(minimal) {
		t.Errorf("expected the full configuration to carry more options: %d vs %d", len(full), len(minimal))
	}
}

func TestJSString(t *testing.T) {
	t.Parallel()

	if got := jsString(`a"b`); got != `"a\"b"` {
		t.Errorf("got %s", got)
	}
}

func hasFlag(cfg launchConfig, name string) bool {
	for _, f := range cfg.flags {
		if f.name == name {
			return true
		}
	}
	return false
}
