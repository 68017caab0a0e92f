package tor

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// DefaultStartupTimeout bounds the embedded daemon's bootstrap when
// Settings leaves it zero.
const DefaultStartupTimeout = 3 * time.Minute

// Settings selects how audits reach the Tor network.
type Settings struct {
	// External uses an already running daemon at ProxyAddress instead of
	// starting an embedded one.
	External bool

	// ProxyAddress is the external daemon's SOCKS5 address.
	ProxyAddress string

	// StartupTimeout bounds the embedded daemon's bootstrap.
	StartupTimeout time.Duration

	// Timeout is the request timeout of HTTP clients built from the route.
	Timeout time.Duration
}

// Route is an established path to the Tor network. Browser sessions use
// ProxyURL; script downloads and page discovery use HTTPClient.
type Route struct {
	proxy  *Proxy
	daemon daemon
}

// Connect establishes a Route. An external proxy is probed before use;
// otherwise an embedded daemon is started and owned by the route.
func Connect(ctx context.Context, s Settings, logger *slog.Logger) (*Route, error) {
	return connect(ctx, s, logger, startEmbedded)
}

func connect(ctx context.Context, s Settings, logger *slog.Logger, start startFunc) (*Route, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if s.External {
		p, err := NewProxy(s.ProxyAddress, s.Timeout)
		if err != nil {
			return nil, err
		}
		if err := p.Probe(ctx); err != nil {
			return nil, err
		}
		logger.Info("using external tor proxy", "addr", p.Addr())
		return &Route{proxy: p}, nil
	}

	timeout := s.StartupTimeout
	if timeout <= 0 {
		timeout = DefaultStartupTimeout
	}
	logger.Info("starting embedded tor daemon", "timeout", timeout)
	d, err := start(ctx, timeout)
	if err != nil {
		return nil, err
	}
	p, err := NewProxy(d.SocksAddr(), s.Timeout)
	if err != nil {
		_ = d.Stop() //nolint:errcheck
		return nil, err
	}
	logger.Info("embedded tor daemon ready", "addr", p.Addr())
	return &Route{proxy: p, daemon: d}, nil
}

// ProxyURL returns the socks5:// URL for browser sessions.
func (r *Route) ProxyURL() string {
	return r.proxy.URL()
}

// HTTPClient returns an HTTP client that goes through the route.
func (r *Route) HTTPClient() *http.Client {
	return r.proxy.HTTPClient()
}

// Close stops the embedded daemon, if any. A nil Route closes cleanly.
func (r *Route) Close() error {
	if r == nil || r.daemon == nil {
		return nil
	}
	return r.daemon.Stop()
}
