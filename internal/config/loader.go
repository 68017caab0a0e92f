package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the name looked up in the working and home directories.
const DefaultConfigFile = ".a11yscan"

// xdgConfigFile is the name looked up in the XDG config directory.
const xdgConfigFile = "config.yaml"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFile is returned when the file cannot be decoded or
	// holds an out-of-range value.
	ErrInvalidConfigFile = errors.New("invalid configuration file")
)

// LoadConfigFile reads the sites, defaults and plans of a YAML file.
// Unknown keys are rejected so that a misspelled "ignorePatterns" does not
// silently crawl the logout page. A missing file yields ErrConfigNotFound;
// whether that matters is up to the caller.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // the path is chosen by the user
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	cf, err := decodeFile(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidConfigFile, path, err)
	}
	return cf, nil
}

func decodeFile(data []byte) (*File, error) {
	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	for name, plan := range cf.Plans {
		if plan.AuditsLimit < 0 || plan.PeriodDays < 0 {
			return nil, fmt.Errorf("plan %q: auditsLimit and periodDays must not be negative", name)
		}
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	if cf.Plans == nil {
		cf.Plans = make(map[string]PlanConfig)
	}
	return &cf, nil
}

// FindConfigFile returns the configuration file to load, or "" when there
// is none. An explicit configPath is only checked for existence. Otherwise
// .a11yscan in the working directory wins over .a11yscan in the home
// directory, which wins over config.yaml in the XDG config directory.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}
	for _, candidate := range configCandidates() {
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func configCandidates() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	return append(paths, filepath.Join(XDGConfigDir(), xdgConfigFile))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
