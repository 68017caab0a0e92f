package report

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/a11yscan/internal/model"
)

// JSONWriter writes the response as one JSON document. Field names are the
// camelCase wire names of the model package, and HTML snippets are kept
// verbatim (no < escapes).
type JSONWriter struct {
	baseWriter

	// indent is the per-level indentation; empty means compact output.
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents nested values by indent. An empty indent keeps the
// output on one line.
func WithIndent(indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = indent
	}
}

// WithPrettyPrint indents by two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("  ")
}

// NewJSONWriter creates a JSONWriter writing to output.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *JSONWriter) Write(resp *model.Response) (int, error) {
	return w.encode(resp)
}

// encode writes v followed by a newline in a single Write call, so a failed
// encoding leaves the output untouched.
func (w *JSONWriter) encode(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", w.indent)
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// JSONReport is the document written by FullJSONWriter: the response plus
// the version that produced it and when.
type JSONReport struct {
	Version     string          `json:"version"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Response    *model.Response `json:"response"`
}

// FullJSONWriter writes responses wrapped in a JSONReport. It is what
// "audit --json" and "audit --output" produce.
type FullJSONWriter struct {
	*JSONWriter

	version string
	now     func() time.Time
}

// NewFullJSONWriter creates a FullJSONWriter stamping reports with version.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
		now:        time.Now,
	}
}

// Write implements Writer.
func (w *FullJSONWriter) Write(resp *model.Response) (int, error) {
	return w.encode(&JSONReport{
		Version:     w.version,
		GeneratedAt: w.now().UTC(),
		Response:    resp,
	})
}
