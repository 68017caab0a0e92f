package tor

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// daemon is a running Tor process that owns a SOCKS port.
type daemon interface {
	SocksAddr() string
	Stop() error
}

// startFunc starts a daemon; tests replace it.
type startFunc func(ctx context.Context, timeout time.Duration) (daemon, error)

// startEmbedded launches a Tor daemon with tornago on OS-assigned ports and
// blocks until it has bootstrapped or timeout elapsed. Bootstrapping takes
// one to three minutes.
func startEmbedded(ctx context.Context, timeout time.Duration) (daemon, error) {
	cfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}
	// StartTorDaemon does not take a context; honor a cancellation that
	// happened during the bootstrap.
	if err := ctx.Err(); err != nil {
		_ = process.Stop() //nolint:errcheck
		return nil, err
	}
	return process, nil
}
