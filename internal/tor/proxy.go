package tor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrProxyUnreachable is returned when no TCP connection to the proxy
	// could be established in time.
	ErrProxyUnreachable = errors.New("cannot connect to Tor proxy")

	// ErrProxyNotTor is returned when the proxy answers but does not speak
	// unauthenticated SOCKS5 the way Tor does.
	ErrProxyNotTor = errors.New("proxy is not a Tor SOCKS5 proxy")
)

// probeTimeout bounds the whole SOCKS5 exchange of Probe.
const probeTimeout = 2 * time.Second

// maxRedirects is the redirect limit of HTTP clients built from a Proxy.
const maxRedirects = 10

// SOCKS5 bytes used by Probe (RFC 1928).
const (
	socksVersion    = 0x05
	socksNoAuth     = 0x00
	socksConnect    = 0x01
	socksDomainName = 0x03
)

// probeHost is a well-formed onion address that does not exist. Tor answers
// a CONNECT to it with a SOCKS5 reply, which is all Probe looks at.
const probeHost = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"

// Proxy is a Tor SOCKS5 endpoint.
type Proxy struct {
	addr    string
	dialer  proxy.Dialer
	timeout time.Duration
}

// NewProxy returns a Proxy for addr ("host:port"). timeout is the request
// timeout of the HTTP clients it builds. The proxy is not contacted.
func NewProxy(addr string, timeout time.Duration) (*Proxy, error) {
	if !validProxyAddress(addr) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, addr)
	}
	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	return &Proxy{addr: addr, dialer: dialer, timeout: timeout}, nil
}

// validProxyAddress checks that addr is host:port with a port in 1..65535.
func validProxyAddress(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" || port == "" || port[0] < '0' || port[0] > '9' {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// Addr returns the proxy address.
func (p *Proxy) Addr() string {
	return p.addr
}

// URL returns the proxy as socks5://host:port, the form the browser's
// --proxy-server flag expects.
func (p *Proxy) URL() string {
	return "socks5://" + p.addr
}

// Probe checks that the proxy speaks SOCKS5 without authentication and
// answers a CONNECT request. Any reply to the CONNECT counts as working.
func (p *Proxy) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnreachable, err)
	}
	defer conn.Close() //nolint:errcheck

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnreachable, err)
	}

	if err := socksGreet(conn); err != nil {
		return err
	}
	return socksConnectProbe(conn)
}

// socksGreet offers the no-authentication method and expects it accepted.
func socksGreet(conn net.Conn) error {
	if _, err := conn.Write([]byte{socksVersion, 1, socksNoAuth}); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnreachable, err)
	}
	var reply [2]byte
	if _, err := io.ReadFull(conn, reply[:]); err != nil {
		return replyError(err)
	}
	if reply != [2]byte{socksVersion, socksNoAuth} {
		return fmt.Errorf("%w: greeting answered with %#x %#x", ErrProxyNotTor, reply[0], reply[1])
	}
	return nil
}

// socksConnectProbe sends a CONNECT for probeHost:80 and reads the reply
// header.
func socksConnectProbe(conn net.Conn) error {
	req := make([]byte, 0, 7+len(probeHost))
	req = append(req, socksVersion, socksConnect, 0x00, socksDomainName, byte(len(probeHost)))
	req = append(req, probeHost...)
	req = binary.BigEndian.AppendUint16(req, 80)
	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnreachable, err)
	}

	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return replyError(err)
	}
	if header[0] != socksVersion {
		return fmt.Errorf("%w: CONNECT answered with version %#x", ErrProxyNotTor, header[0])
	}
	return nil
}

// replyError classifies a failed read: a timeout means the proxy is not
// answering, anything else that it is not a SOCKS5 proxy.
func replyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrProxyUnreachable, err)
	}
	return fmt.Errorf("%w: %w", ErrProxyNotTor, err)
}

// HTTPClient returns an HTTP client whose connections go through the proxy.
// TLS certificates are verified.
func (p *Proxy) HTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := p.dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return p.dialer.Dial(network, addr)
			},
			// Each connection holds a Tor circuit.
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		},
		Timeout: p.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}
