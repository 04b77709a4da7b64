package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeServer(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeDispatch()
	c.normalizeYouTube()
	c.normalizeWorker()
	return c.normalizeLogging()
}

func (c *Config) normalizeServer() error {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = lookupEnv("CAPTION_PUBLIC_BASE_URL")
	}
	c.Server.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Server.PublicBaseURL), "/")
	if c.Server.JobToken == "" {
		c.Server.JobToken = lookupEnv("CAPTION_JOB_TOKEN")
	}
	c.Server.JobToken = strings.TrimSpace(c.Server.JobToken)
	if strings.TrimSpace(c.Server.DataDir) == "" {
		c.Server.DataDir = defaultDataDir
	}
	var err error
	if c.Server.DataDir, err = expandPath(c.Server.DataDir); err != nil {
		return fmt.Errorf("server.data_dir: %w", err)
	}
	if c.Server.CreateRatePerMinute < 0 {
		c.Server.CreateRatePerMinute = 0
	}
	if c.Server.CreateRateBurst <= 0 {
		c.Server.CreateRateBurst = defaultCreateRateBurst
	}
	proxies := c.Server.TrustedProxies[:0]
	for _, entry := range c.Server.TrustedProxies {
		if trimmed := strings.TrimSpace(entry); trimmed != "" {
			proxies = append(proxies, trimmed)
		}
	}
	c.Server.TrustedProxies = proxies
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = StoreBackendFile
	}
	var err error
	if strings.TrimSpace(c.Store.Dir) == "" {
		c.Store.Dir = defaultStoreDir
	}
	if c.Store.Dir, err = expandPath(c.Store.Dir); err != nil {
		return fmt.Errorf("store.dir: %w", err)
	}
	if strings.TrimSpace(c.Store.SQLitePath) == "" {
		c.Store.SQLitePath = defaultSQLitePath
	}
	if c.Store.SQLitePath, err = expandPath(c.Store.SQLitePath); err != nil {
		return fmt.Errorf("store.sqlite_path: %w", err)
	}
	if c.Store.RedisURL == "" {
		c.Store.RedisURL = lookupEnv("CAPTION_REDIS_URL")
	}
	c.Store.RedisURL = strings.TrimSpace(c.Store.RedisURL)
	c.Store.RedisKey = strings.TrimSpace(c.Store.RedisKey)
	if c.Store.RedisKey == "" {
		c.Store.RedisKey = defaultRedisKeyPrefix
	}
	return nil
}

func (c *Config) normalizeDispatch() {
	if c.Dispatch.GitHubToken == "" {
		c.Dispatch.GitHubToken = lookupEnv("CAPTION_DISPATCH_TOKEN", "GITHUB_TOKEN")
	}
	c.Dispatch.GitHubToken = strings.TrimSpace(c.Dispatch.GitHubToken)
	if c.Dispatch.GitHubRepo == "" {
		c.Dispatch.GitHubRepo = lookupEnv("CAPTION_DISPATCH_REPO")
	}
	c.Dispatch.GitHubRepo = strings.Trim(strings.TrimSpace(c.Dispatch.GitHubRepo), "/")
	c.Dispatch.Workflow = strings.TrimSpace(c.Dispatch.Workflow)
	if c.Dispatch.Workflow == "" {
		c.Dispatch.Workflow = defaultWorkflow
	}
	c.Dispatch.Ref = strings.TrimSpace(c.Dispatch.Ref)
	if c.Dispatch.Ref == "" {
		c.Dispatch.Ref = defaultRef
	}
	c.Dispatch.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Dispatch.APIBaseURL), "/")
	if c.Dispatch.APIBaseURL == "" {
		c.Dispatch.APIBaseURL = defaultGitHubAPIBaseURL
	}
}

func (c *Config) normalizeYouTube() {
	c.YouTube.Origin = strings.TrimRight(strings.TrimSpace(c.YouTube.Origin), "/")
	if c.YouTube.Origin == "" {
		c.YouTube.Origin = defaultOrigin
	}
	c.YouTube.CookieDomain = strings.TrimPrefix(strings.TrimSpace(c.YouTube.CookieDomain), ".")
	if c.YouTube.CookieDomain == "" {
		c.YouTube.CookieDomain = defaultCookieDomain
	}
	if strings.TrimSpace(c.YouTube.DefaultCookieText) == "" {
		c.YouTube.DefaultCookieText = lookupEnv("YOUTUBE_COOKIE_TEXT")
	}
}

func (c *Config) normalizeWorker() {
	c.Worker.YtDlpBinary = strings.TrimSpace(c.Worker.YtDlpBinary)
	if c.Worker.YtDlpBinary == "" {
		c.Worker.YtDlpBinary = defaultYtDlpBinary
	}
	if c.Worker.ProxyURL == "" {
		c.Worker.ProxyURL = lookupEnv("HTTPS_PROXY", "HTTP_PROXY")
	}
	c.Worker.ProxyURL = strings.TrimSpace(c.Worker.ProxyURL)

	languages := make([]string, 0, len(c.Worker.Languages))
	for _, lang := range c.Worker.Languages {
		if lang = strings.TrimSpace(lang); lang != "" {
			languages = append(languages, lang)
		}
	}
	if len(languages) == 0 {
		languages = append(languages, DefaultLanguages...)
	}
	c.Worker.Languages = languages
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

// lookupEnv returns the first non-empty value among keys.
func lookupEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
