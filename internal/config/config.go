// Package config loads navshell settings from the environment (with an
// optional .env file) and the YAML shell file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-level settings.
type Config struct {
	// CDP connection settings
	CDPAddress string
	CDPPort    int

	// Browser launch, used only when nothing listens on the CDP port
	LaunchBrowser bool
	ProfileDir    string
	BrowserLogDir string
	WindowSize    string
	UserAgent     string

	// Control API
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	LogLevel string
	LogFile  string

	ShellConfigPath string
	LoopQueueSize   int

	// Push delivery
	ImageWorkers   int
	ImageConnectMS int
	ImageReadMS    int
	ImageCacheDir  string
	ImageCacheKeep int
	NTFYEndpoint   string

	// Event journal; empty disables it
	JournalDir string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:       getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		LaunchBrowser:    getEnvBoolOrDefault("NAVSHELL_LAUNCH_BROWSER", true),
		ProfileDir:       getEnvOrDefault("NAVSHELL_PROFILE_DIR", "./data/profile"),
		BrowserLogDir:    getEnvOrDefault("NAVSHELL_BROWSER_LOG_DIR", "./logs/browser"),
		WindowSize:       getEnvOrDefault("NAVSHELL_WINDOW_SIZE", "412,915"),
		UserAgent:        getEnvOrDefault("NAVSHELL_USER_AGENT", ""),
		BindAddr:         getEnvOrDefault("NAVSHELL_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:   getEnvListOrDefault("NAVSHELL_PORT_CANDIDATES", []string{"127.0.0.1:8191", "127.0.0.1:8192", "127.0.0.1:8193"}),
		PortAutoFallback: getEnvBoolOrDefault("NAVSHELL_PORT_AUTO_FALLBACK", true),
		LogLevel:         strings.ToLower(getEnvOrDefault("NAVSHELL_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("NAVSHELL_LOG_FILE", "logs/navshell.log"),
		ShellConfigPath:  getEnvOrDefault("NAVSHELL_SHELL_CONFIG", "./config/shell.yaml"),
		LoopQueueSize:    getEnvIntOrDefault("NAVSHELL_LOOP_QUEUE", 256),
		ImageWorkers:     getEnvIntOrDefault("NAVSHELL_IMAGE_WORKERS", 4),
		ImageConnectMS:   getEnvIntOrDefault("NAVSHELL_IMAGE_CONNECT_TIMEOUT_MS", 5000),
		ImageReadMS:      getEnvIntOrDefault("NAVSHELL_IMAGE_READ_TIMEOUT_MS", 5000),
		ImageCacheDir:    getEnvOrDefault("NAVSHELL_IMAGE_CACHE_DIR", "./data/images"),
		ImageCacheKeep:   getEnvIntOrDefault("NAVSHELL_IMAGE_CACHE_KEEP", 200),
		NTFYEndpoint:     getEnvOrDefault("NAVSHELL_NTFY_ENDPOINT", ""),
		JournalDir:       getEnvOrDefault("NAVSHELL_JOURNAL_DIR", "./data/journal"),
	}

	if cfg.CDPPort < 1 || cfg.CDPPort > 65535 {
		return nil, fmt.Errorf("config: CHROMIUM_CDP_PORT out of range: %d", cfg.CDPPort)
	}
	if cfg.ImageWorkers < 1 {
		cfg.ImageWorkers = 1
	}
	if cfg.ImageConnectMS < 100 {
		cfg.ImageConnectMS = 100
	}
	if cfg.ImageReadMS < 100 {
		cfg.ImageReadMS = 100
	}
	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint used by the chromedp remote allocator.
func (c *Config) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

// ImageConnectTimeout is the push image dial timeout.
func (c *Config) ImageConnectTimeout() time.Duration {
	return time.Duration(c.ImageConnectMS) * time.Millisecond
}

// ImageReadTimeout is the push image response timeout.
func (c *Config) ImageReadTimeout() time.Duration {
	return time.Duration(c.ImageReadMS) * time.Millisecond
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
