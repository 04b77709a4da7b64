package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the coordinator HTTP surface and callback settings.
type Server struct {
	Bind                string `toml:"bind"`
	PublicBaseURL       string `toml:"public_base_url"`
	JobToken            string `toml:"job_token"`
	DataDir             string `toml:"data_dir"`
	CreateRatePerMinute int    `toml:"create_rate_per_minute"`
	CreateRateBurst     int    `toml:"create_rate_burst"`
	// TrustProxyHeaders honours X-Forwarded-For and X-Real-IP from any peer.
	TrustProxyHeaders bool `toml:"trust_proxy_headers"`
	// TrustedProxies lists peer addresses or CIDRs whose forwarding headers are honoured.
	TrustedProxies []string `toml:"trusted_proxies"`
}

// Store selects and configures the job record backend.
type Store struct {
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir"`
	SQLitePath string `toml:"sqlite_path"`
	RedisURL   string `toml:"redis_url"`
	RedisKey   string `toml:"redis_key_prefix"`
}

// Dispatch contains the external trigger (GitHub Actions workflow_dispatch) settings.
type Dispatch struct {
	GitHubToken    string `toml:"github_token"`
	GitHubRepo     string `toml:"github_repo"`
	Workflow       string `toml:"workflow"`
	Ref            string `toml:"ref"`
	APIBaseURL     string `toml:"api_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// YouTube contains cookie and origin defaults used when signing requests.
type YouTube struct {
	Origin            string `toml:"origin"`
	CookieDomain      string `toml:"cookie_domain"`
	DefaultCookieText string `toml:"default_cookie_text"`
}

// Worker contains settings for the extraction run on the external compute node.
type Worker struct {
	YtDlpBinary            string   `toml:"ytdlp_binary"`
	ProbeTimeoutSeconds    int      `toml:"probe_timeout_seconds"`
	FetchTimeoutSeconds    int      `toml:"fetch_timeout_seconds"`
	CallbackTimeoutSeconds int      `toml:"callback_timeout_seconds"`
	ProxyURL               string   `toml:"proxy_url"`
	Languages              []string `toml:"languages"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for captionjob.
//
// Configuration sections by subsystem:
//   - Server: API bind address, callback base URL, shared job token
//   - Store: job record backend (file, sqlite, redis)
//   - Dispatch: GitHub Actions workflow trigger
//   - YouTube: cookie domain, origin, default cookie text
//   - Worker: yt-dlp binary, timeouts, proxy, language preference
//   - Logging: log format, level, and optional file output
//
// A Config is loaded once and treated as read-only afterwards. Components
// receive the sections they need by value.
type Config struct {
	Server   Server   `toml:"server"`
	Store    Store    `toml:"store"`
	Dispatch Dispatch `toml:"dispatch"`
	YouTube  YouTube  `toml:"youtube"`
	Worker   Worker   `toml:"worker"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/captionjob/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment fallbacks applied. A .env file in the working
// directory is loaded first; variables already present in the environment win.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := loadDotEnv(); err != nil {
		return nil, "", false, err
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("captionjob.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and store directories the coordinator writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Server.DataDir}
	switch c.Store.Backend {
	case StoreBackendFile:
		dirs = append(dirs, c.Store.Dir)
	case StoreBackendSQLite:
		dirs = append(dirs, filepath.Dir(c.Store.SQLitePath))
	}
	if c.Logging.Dir != "" {
		dirs = append(dirs, c.Logging.Dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file for the coordinator daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Server.DataDir, "captionjobd.lock")
}

// DispatchTimeout returns the bounded wait applied to the external trigger call.
func (c *Config) DispatchTimeout() time.Duration {
	return time.Duration(c.Dispatch.TimeoutSeconds) * time.Second
}

// ProbeTimeout bounds one yt-dlp metadata run.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Worker.ProbeTimeoutSeconds) * time.Second
}

// FetchTimeout bounds one caption track download.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Worker.FetchTimeoutSeconds) * time.Second
}

// CallbackTimeout bounds worker calls back to the coordinator.
func (c *Config) CallbackTimeout() time.Duration {
	return time.Duration(c.Worker.CallbackTimeoutSeconds) * time.Second
}

// Languages returns a copy of the preferred caption language order.
func (c *Config) Languages() []string {
	out := make([]string, len(c.Worker.Languages))
	copy(out, c.Worker.Languages)
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
