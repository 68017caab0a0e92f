package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/nao1215/a11yscan/internal/config"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = ""
	commit  = ""
	date    = ""
)

// shortCommitLen is the length of a displayed commit hash.
const shortCommitLen = 7

// buildInfo describes the running binary.
type buildInfo struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
}

// readBuildInfo prefers the ldflags values and falls back to what the Go
// toolchain recorded in the binary.
func readBuildInfo() buildInfo {
	bi := buildInfo{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if bi.Version == "" && info.Main.Version != "" {
			bi.Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && bi.Commit == "":
				bi.Commit = s.Value[:min(len(s.Value), shortCommitLen)]
			case s.Key == "vcs.time" && bi.Date == "":
				bi.Date = s.Value
			}
		}
	}

	if bi.Version == "" {
		bi.Version = "(devel)"
	}
	if bi.Commit == "" {
		bi.Commit = "unknown"
	}
	if bi.Date == "" {
		bi.Date = "unknown"
	}
	return bi
}

// getVersion returns the version stamped into reports and /healthz.
func getVersion() string {
	return readBuildInfo().Version
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit hash and build date of a11yscan, with the Go
version it was built with and the axe-core build injected by default.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			bi := readBuildInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "a11yscan version %s\n", bi.Version)
			fmt.Fprintf(out, "  commit:   %s\n", bi.Commit)
			fmt.Fprintf(out, "  built:    %s\n", bi.Date)
			fmt.Fprintf(out, "  go:       %s\n", bi.GoVersion)
			fmt.Fprintf(out, "  axe-core: %s\n", config.DefaultAxeScriptURL)
		},
	}
}
