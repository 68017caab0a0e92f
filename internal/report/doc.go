// Package report renders audit responses for people and tools.
//
// SimpleWriter prints a terminal summary, JSONWriter and FullJSONWriter emit
// the wire form of model.Response, and MarkdownWriter produces a document
// with an impact pie chart. All of them implement Writer, and MultiWriter
// fans one response out to several of them.
package report
