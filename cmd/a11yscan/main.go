// Package main provides the entry point for the a11yscan CLI.
//
// a11yscan audits web pages for accessibility problems with up to three
// engines and compares their findings.
//
// Usage:
//
//	a11yscan audit <url>
//	a11yscan serve
//
// See --help for all available options.
package main

// main is the entry point for a11yscan.
func main() {
	Execute()
}
