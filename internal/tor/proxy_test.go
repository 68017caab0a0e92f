package tor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestNewProxy(t *testing.T) {
	t.Parallel()

	p, err := NewProxy("127.0.0.1:9050", 30*time.Second)
	if err != nil {
		t.Fatalf("NewProxy() error = %v", err)
	}
	if p.Addr() != "127.0.0.1:9050" {
		t.Errorf("Addr() = %q", p.Addr())
	}
	if p.URL() != "socks5://127.0.0.1:9050" {
		t.Errorf("URL() = %q", p.URL())
	}

	if _, err := NewProxy("127.0.0.1", time.Second); !errors.Is(err, ErrInvalidProxyAddress) {
		t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
	}
}

func TestValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{"IPv4", "127.0.0.1:9050", true},
		{"localhost", "localhost:9150", true},
		{"IPv6", "[::1]:9050", true},
		{"empty", "", false},
		{"no port", "127.0.0.1", false},
		{"empty host", ":9050", false},
		{"empty port", "127.0.0.1:", false},
		{"extra colon", "127.0.0.1:9050:1", false},
		{"port zero", "127.0.0.1:0", false},
		{"port too large", "127.0.0.1:65536", false},
		{"signed port", "127.0.0.1:+80", false},
		{"named port", "127.0.0.1:socks", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := validProxyAddress(tt.address); got != tt.want {
				t.Errorf("validProxyAddress(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestProxyHTTPClient(t *testing.T) {
	t.Parallel()

	p, err := NewProxy("127.0.0.1:9050", 45*time.Second)
	if err != nil {
		t.Fatalf("NewProxy() error = %v", err)
	}

	client := p.HTTPClient()
	if client.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", client.Timeout)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.DialContext == nil {
		t.Error("expected a SOCKS5 DialContext")
	}
	if transport.TLSClientConfig != nil && transport.TLSClientConfig.InsecureSkipVerify {
		t.Error("TLS verification must stay enabled")
	}
	if err := client.CheckRedirect(nil, make([]*http.Request, maxRedirects)); !errors.Is(err, http.ErrUseLastResponse) {
		t.Errorf("expected the redirect limit, got %v", err)
	}
}

// fakeSOCKS starts a listener that answers one connection with handle.
func fakeSOCKS(t *testing.T, handle func(conn net.Conn)) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close() //nolint:errcheck
		handle(conn)
	}()
	return listener.Addr().String()
}

// torLike answers like Tor does for an onion service it cannot reach.
func torLike(conn net.Conn) {
	greeting := make([]byte, 3)
	_, _ = conn.Read(greeting)
	_, _ = conn.Write([]byte{0x05, 0x00})
	request := make([]byte, 256)
	_, _ = conn.Read(request)
	_, _ = conn.Write([]byte{0x05, 0x04, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
}

func TestProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		handle func(net.Conn)
		want   error
	}{
		{name: "tor proxy", handle: torLike},
		{
			name: "http server",
			handle: func(conn net.Conn) {
				_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
			},
			want: ErrProxyNotTor,
		},
		{
			name: "authentication required",
			handle: func(conn net.Conn) {
				greeting := make([]byte, 3)
				_, _ = conn.Read(greeting)
				_, _ = conn.Write([]byte{0x05, 0xFF})
			},
			want: ErrProxyNotTor,
		},
		{
			name: "closes after greeting",
			handle: func(conn net.Conn) {
				greeting := make([]byte, 3)
				_, _ = conn.Read(greeting)
				_, _ = conn.Write([]byte{0x05, 0x00})
			},
			want: ErrProxyNotTor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := NewProxy(fakeSOCKS(t, tt.handle), time.Second)
			if err != nil {
				t.Fatalf("NewProxy() error = %v", err)
			}
			err = p.Probe(context.Background())
			if tt.want == nil {
				if err != nil {
					t.Errorf("Probe() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Probe() error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("closed port", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := listener.Addr().String()
		_ = listener.Close()

		p, err := NewProxy(addr, time.Second)
		if err != nil {
			t.Fatalf("NewProxy() error = %v", err)
		}
		if err := p.Probe(context.Background()); !errors.Is(err, ErrProxyUnreachable) {
			t.Errorf("Probe() error = %v, want ErrProxyUnreachable", err)
		}
	})
}
