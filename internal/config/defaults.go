package config

// Store backends accepted by store.backend.
const (
	StoreBackendFile   = "file"
	StoreBackendSQLite = "sqlite"
	StoreBackendRedis  = "redis"
)

const (
	defaultBind                   = "127.0.0.1:8000"
	defaultDataDir                = "~/.local/share/captionjob"
	defaultStoreDir               = "~/.local/share/captionjob/jobs"
	defaultSQLitePath             = "~/.local/share/captionjob/jobs.db"
	defaultRedisKeyPrefix         = "caption_job"
	defaultCreateRatePerMinute    = 30
	defaultCreateRateBurst        = 5
	defaultWorkflow               = "caption-job.yml"
	defaultRef                    = "main"
	defaultGitHubAPIBaseURL       = "https://api.github.com"
	defaultDispatchTimeoutSeconds = 15
	defaultOrigin                 = "https://www.youtube.com"
	defaultCookieDomain           = "youtube.com"
	defaultYtDlpBinary            = "yt-dlp"
	defaultProbeTimeoutSeconds    = 120
	defaultFetchTimeoutSeconds    = 60
	defaultCallbackTimeoutSeconds = 60
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// DefaultLanguages is the caption language preference used when none is configured.
var DefaultLanguages = []string{"ko", "ko-KR", "ko_KR", "en"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:                defaultBind,
			DataDir:             defaultDataDir,
			CreateRatePerMinute: defaultCreateRatePerMinute,
			CreateRateBurst:     defaultCreateRateBurst,
		},
		Store: Store{
			Backend:    StoreBackendFile,
			Dir:        defaultStoreDir,
			SQLitePath: defaultSQLitePath,
			RedisKey:   defaultRedisKeyPrefix,
		},
		Dispatch: Dispatch{
			Workflow:       defaultWorkflow,
			Ref:            defaultRef,
			APIBaseURL:     defaultGitHubAPIBaseURL,
			TimeoutSeconds: defaultDispatchTimeoutSeconds,
		},
		YouTube: YouTube{
			Origin:       defaultOrigin,
			CookieDomain: defaultCookieDomain,
		},
		Worker: Worker{
			YtDlpBinary:            defaultYtDlpBinary,
			ProbeTimeoutSeconds:    defaultProbeTimeoutSeconds,
			FetchTimeoutSeconds:    defaultFetchTimeoutSeconds,
			CallbackTimeoutSeconds: defaultCallbackTimeoutSeconds,
			Languages:              append([]string(nil), DefaultLanguages...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
