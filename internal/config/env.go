package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables overriding the defaults.
const (
	EnvEnvironment = "A11YSCAN_ENV"
	EnvChromePath  = "A11YSCAN_CHROME_PATH"
	EnvListenAddr  = "A11YSCAN_LISTEN"
	EnvAxeURL      = "A11YSCAN_AXE_URL"
	EnvWaveURL     = "A11YSCAN_WAVE_URL"
	EnvDBDir       = "A11YSCAN_DB_DIR"
)

// LoadEnv loads .env files into the process environment. Missing files are
// ignored and variables already set are never overwritten.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv copies the A11YSCAN_* variables into c.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Environment, EnvEnvironment)
	set(&c.ChromePath, EnvChromePath)
	set(&c.ListenAddr, EnvListenAddr)
	set(&c.AxeScriptURL, EnvAxeURL)
	set(&c.WaveURL, EnvWaveURL)
	set(&c.DBDir, EnvDBDir)
	c.Environment = strings.ToLower(c.Environment)
}
