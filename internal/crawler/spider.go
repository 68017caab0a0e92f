package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	// DefaultUserAgent identifies discovery requests.
	DefaultUserAgent = "a11yscan/1.0 (+https://github.com/nao1215/a11yscan)"

	defaultMaxDepth    = 1
	defaultMaxPages    = 20
	defaultDelay       = 500 * time.Millisecond
	defaultMaxBodySize = 5 * 1024 * 1024
)

// ErrUnsupportedScheme is returned when discovery starts from a non-HTTP URL.
var ErrUnsupportedScheme = errors.New("only http and https URLs can be crawled")

// Page is a page found during discovery.
type Page struct {
	// URL is the normalized page URL.
	URL string

	// Title is the page's <title>, possibly empty.
	Title string

	// Depth is the number of links followed from the start page.
	Depth int
}

// Spider discovers the pages of one site, breadth first.
// A Spider holds no crawl state and can run several discoveries.
type Spider struct {
	client *http.Client
	logger *slog.Logger

	// maxDepth limits how deep to crawl from the starting URL.
	// 0 means only the starting page, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the total number of pages returned.
	maxPages int

	// delay is the time to wait between requests.
	delay time.Duration

	userAgent   string
	maxBodySize int64
	headers     map[string]string

	// ignorePatterns are URL path globs that are never followed.
	ignorePatterns []string

	// followPatterns, when set, are the only URL path globs followed.
	followPatterns []string
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to discover.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size read per page.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithHeaders sets extra request headers, such as a site's session cookie.
func WithHeaders(headers map[string]string) SpiderOption {
	return func(s *Spider) {
		s.headers = headers
	}
}

// WithIgnorePatterns sets URL path patterns to skip.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts discovery to URL paths matching at least one
// pattern. The start page is always kept.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithLogger sets the logger for skipped pages.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider that fetches pages with client.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	if client == nil {
		client = http.DefaultClient
	}
	s := &Spider{
		client:      client,
		logger:      slog.Default(),
		maxDepth:    defaultMaxDepth,
		maxPages:    defaultMaxPages,
		delay:       defaultDelay,
		userAgent:   DefaultUserAgent,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type queueItem struct {
	url   string
	depth int
}

// Discover returns the start page and the same-host pages reachable from
// it, in breadth-first order. It fails only when the start page cannot be
// fetched; later failures are logged and skipped. On cancellation the pages
// found so far are returned with the context error.
func (s *Spider) Discover(ctx context.Context, startURL string) ([]Page, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}
	if start.Scheme != "http" && start.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, startURL)
	}
	if start.Host == "" {
		return nil, fmt.Errorf("invalid start URL: missing host: %s", startURL)
	}

	first := normalizeURL(start.String())
	visited := map[string]bool{first: true}
	queue := []queueItem{{url: first, depth: 0}}
	pages := make([]Page, 0, min(s.maxPages, 64))

	for len(queue) > 0 && len(pages) < s.maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		item := queue[0]
		queue = queue[1:]

		if len(pages) > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return pages, ctx.Err()
			case <-time.After(s.delay):
			}
		}

		result, err := s.fetch(ctx, item.url)
		if err != nil {
			if item.depth == 0 {
				return nil, fmt.Errorf("failed to fetch %s: %w", item.url, err)
			}
			if ctx.Err() != nil {
				return pages, ctx.Err()
			}
			s.logger.Debug("skipping page", "url", item.url, "error", err)
			continue
		}

		pages = append(pages, Page{URL: item.url, Title: result.Title, Depth: item.depth})

		if item.depth >= s.maxDepth {
			continue
		}
		for _, link := range result.Links {
			link = normalizeURL(link)
			if visited[link] || !isSameHost(start.Host, link) || !s.shouldCrawl(link) {
				continue
			}
			visited[link] = true
			queue = append(queue, queueItem{url: link, depth: item.depth + 1})
		}
	}

	return pages, nil
}

// fetch retrieves one HTML page and parses it.
func (s *Spider) fetch(ctx context.Context, pageURL string) (*ParseResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return nil, fmt.Errorf("not an HTML page: %q", resp.Header.Get("Content-Type"))
	}

	// Links are relative to the final URL after redirects.
	base := resp.Request.URL
	return Parse(base, io.LimitReader(resp.Body, s.maxBodySize))
}

// isHTML reports whether a Content-Type is an HTML document. A missing type
// is accepted.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// normalizeURL normalizes a URL for deduplication: fragment removed, scheme
// and host lowercased, and an empty path turned into "/".
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// isSameHost checks if a URL is on the host discovery started from.
func isSameHost(baseHost, targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, baseHost)
}

// shouldCrawl checks a URL against the ignore and follow patterns.
// Ignore patterns win over follow patterns.
func (s *Spider) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(s.followPatterns) == 0 {
		return true
	}
	for _, pattern := range s.followPatterns {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern checks if a URL path matches a glob pattern.
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - other patterns follow path.Match, and a pattern without "/" is
//     also tried against the last path segment
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*."); ok && strings.HasSuffix(p, "."+ext) {
		return true
	}
	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}
	return false
}
