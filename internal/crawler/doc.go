// Package crawler discovers the pages of a site to audit.
//
// A Spider starts from one URL and follows the links of each HTML page,
// breadth first, without leaving the start host. Depth, page count and the
// delay between requests are bounded, and per-site glob patterns select
// which paths are followed:
//
//	spider := crawler.NewSpider(client, crawler.WithMaxDepth(2))
//	pages, err := spider.Discover(ctx, "https://www.example.com")
//
// The HTTP client decides the route: a plain client for public sites, or a
// client from the tor package for onion services.
package crawler
