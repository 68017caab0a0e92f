package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/nao1215/a11yscan/internal/config"
)

func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()
	if cmd.Use != "serve" {
		t.Errorf("expected use 'serve', got %q", cmd.Use)
	}
	for _, name := range []string{"listen", "default-plan", "no-save", "tor", "external-tor", "config"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
	if err := cmd.Args(cmd, []string{"extra"}); err == nil {
		t.Error("expected serve to reject arguments")
	}
}

func TestRunServeCmdMissingConfig(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	root.SetArgs([]string{"serve", "-c", filepath.Join(t.TempDir(), "missing.yaml")})
	if err := root.Execute(); !errors.Is(err, config.ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}
