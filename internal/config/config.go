package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Cron     CronConfig     `mapstructure:"cron"`
	IGDB     IGDBConfig     `mapstructure:"igdb"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type CronConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

type IGDBConfig struct {
	ClientID           string        `mapstructure:"client_id"`
	ClientSecret       string        `mapstructure:"client_secret"`
	TokenURL           string        `mapstructure:"token_url"`
	BaseURL            string        `mapstructure:"base_url"`
	AuthTimeout        time.Duration `mapstructure:"auth_timeout"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MinRequestInterval time.Duration `mapstructure:"min_request_interval"`
}

// SupabaseConfig is consumed by the eventual bulk uploader; the sync core only
// validates it so a misconfigured deployment fails before any network activity.
type SupabaseConfig struct {
	URL         string `mapstructure:"url"`
	ServiceRole string `mapstructure:"service_role"`
	BatchSize   int    `mapstructure:"batch_size"`
}

type SyncConfig struct {
	PageLimit  int  `mapstructure:"page_limit"`
	MaxPages   int  `mapstructure:"max_pages"`
	ChunkSize  int  `mapstructure:"chunk_size"`
	RunOnStart bool `mapstructure:"run_on_start"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// The credential surface keeps the exact variable names the deployment
	// already exports for the previous generation of this tool.
	_ = v.BindEnv("igdb.client_id", "IGDB_CLIENT_ID")
	_ = v.BindEnv("igdb.client_secret", "IGDB_CLIENT_SECRET")
	_ = v.BindEnv("supabase.url", "SUPABASE_URL")
	_ = v.BindEnv("supabase.service_role", "SUPABASE_SERVICE_ROLE")
	_ = v.BindEnv("store.path", "IGDB_SQLITE")
	_ = v.BindEnv("supabase.batch_size", "BATCH_SIZE")

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("store.path", "igdb_staging.db")
	v.SetDefault("cron.enabled", false)
	v.SetDefault("cron.schedule", "@every 6h")
	v.SetDefault("igdb.token_url", "https://id.twitch.tv/oauth2/token")
	v.SetDefault("igdb.base_url", "https://api.igdb.com/v4")
	v.SetDefault("igdb.auth_timeout", "30s")
	v.SetDefault("igdb.timeout", "60s")
	// Keeps the client at or under 4 requests per second.
	v.SetDefault("igdb.min_request_interval", "250ms")
	v.SetDefault("supabase.batch_size", 800)
	v.SetDefault("sync.page_limit", 500)
	v.SetDefault("sync.max_pages", 200)
	v.SetDefault("sync.chunk_size", 100)
	v.SetDefault("sync.run_on_start", true)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing required credential in one error so a broken
// deployment surfaces the full list on the first failed start.
func (c Config) Validate() error {
	var missing []string
	if c.IGDB.ClientID == "" {
		missing = append(missing, "IGDB_CLIENT_ID")
	}
	if c.IGDB.ClientSecret == "" {
		missing = append(missing, "IGDB_CLIENT_SECRET")
	}
	if c.Supabase.URL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.Supabase.ServiceRole == "" {
		missing = append(missing, "SUPABASE_SERVICE_ROLE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
