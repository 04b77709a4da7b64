package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// Validate ensures the configuration is structurally usable. Dispatch
// credentials are optional here; job creation checks them per request via
// DispatchReady so a coordinator can still serve polls without them.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	return nil
}

// DispatchReady reports which settings required to dispatch a job are missing.
func (c *Config) DispatchReady() error {
	var missing []string
	if c.Dispatch.GitHubToken == "" {
		missing = append(missing, "dispatch.github_token")
	}
	if c.Dispatch.GitHubRepo == "" {
		missing = append(missing, "dispatch.github_repo")
	}
	if c.Server.PublicBaseURL == "" {
		missing = append(missing, "server.public_base_url")
	}
	if c.Server.JobToken == "" {
		missing = append(missing, "server.job_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.PublicBaseURL != "" {
		if err := validateHTTPURL("server.public_base_url", c.Server.PublicBaseURL); err != nil {
			return err
		}
	}
	for _, entry := range c.Server.TrustedProxies {
		if _, err := ParseProxyPrefix(entry); err != nil {
			return fmt.Errorf("server.trusted_proxies: %w", err)
		}
	}
	return nil
}

// ParseProxyPrefix accepts a CIDR or a bare address, which is treated as a
// single-host prefix.
func ParseProxyPrefix(value string) (netip.Prefix, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "/") {
		prefix, err := netip.ParsePrefix(value)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid CIDR %q", value)
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid address %q", value)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case StoreBackendFile, StoreBackendSQLite:
	case StoreBackendRedis:
		if c.Store.RedisURL == "" {
			return errors.New("store.redis_url must be set when store.backend is redis")
		}
	default:
		return fmt.Errorf("store.backend: unsupported value %q", c.Store.Backend)
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if c.Dispatch.GitHubRepo != "" {
		owner, repo, ok := strings.Cut(c.Dispatch.GitHubRepo, "/")
		if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
			return fmt.Errorf("dispatch.github_repo must be owner/repo, got %q", c.Dispatch.GitHubRepo)
		}
	}
	if err := validateHTTPURL("dispatch.api_base_url", c.Dispatch.APIBaseURL); err != nil {
		return err
	}
	if c.Dispatch.TimeoutSeconds <= 0 {
		return errors.New("dispatch.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorker() error {
	return ensurePositiveMap(map[string]int{
		"worker.probe_timeout_seconds":    c.Worker.ProbeTimeoutSeconds,
		"worker.fetch_timeout_seconds":    c.Worker.FetchTimeoutSeconds,
		"worker.callback_timeout_seconds": c.Worker.CallbackTimeoutSeconds,
	})
}

func validateHTTPURL(key, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
