package browser

import (
	"fmt"
	"os"
	"strings"
)

// Environment is the kind of host the browser runs on.
type Environment string

const (
	// EnvironmentAuto detects the environment at launch time.
	EnvironmentAuto Environment = "auto"
	// EnvironmentSandbox is a container, CI runner or serverless host where
	// Chrome's own sandbox and shared memory are unavailable.
	EnvironmentSandbox Environment = "sandbox"
	// EnvironmentLocal is a developer machine with a full desktop.
	EnvironmentLocal Environment = "local"
)

// EnvVar overrides environment detection when set to "sandbox" or "local".
const EnvVar = "A11YSCAN_ENV"

// sandboxEnvVars are set by well-known container, CI and serverless hosts.
var sandboxEnvVars = []string{
	"KUBERNETES_SERVICE_HOST",
	"AWS_LAMBDA_FUNCTION_NAME",
	"K_SERVICE",
	"VERCEL",
	"RENDER",
	"FLY_APP_NAME",
	"DYNO",
	"CI",
	"GITHUB_ACTIONS",
}

var sandboxMarkers = []string{"/.dockerenv", "/run/.containerenv"}

// ParseEnvironment validates an environment name. An empty string means auto.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case "", EnvironmentAuto:
		return EnvironmentAuto, nil
	case EnvironmentSandbox:
		return EnvironmentSandbox, nil
	case EnvironmentLocal:
		return EnvironmentLocal, nil
	default:
		return "", fmt.Errorf("unknown browser environment %q: expected auto, sandbox or local", s)
	}
}

// hostProbe abstracts the host lookups used by detection.
type hostProbe struct {
	getenv func(string) string
	exists func(string) bool
	euid   int
}

func osProbe() hostProbe {
	return hostProbe{
		getenv: os.Getenv,
		exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
		euid: os.Geteuid(),
	}
}

// detect resolves EnvironmentAuto against the host.
func (h hostProbe) detect() Environment {
	switch Environment(strings.ToLower(h.getenv(EnvVar))) {
	case EnvironmentSandbox:
		return EnvironmentSandbox
	case EnvironmentLocal:
		return EnvironmentLocal
	}
	for _, m := range sandboxMarkers {
		if h.exists(m) {
			return EnvironmentSandbox
		}
	}
	for _, v := range sandboxEnvVars {
		if h.getenv(v) != "" {
			return EnvironmentSandbox
		}
	}
	// Chrome refuses to start its sandbox as root.
	if h.euid == 0 {
		return EnvironmentSandbox
	}
	return EnvironmentLocal
}
