// Package config handles the loading and parsing of the application's
// configuration. It uses Viper to read a YAML file plus environment
// variable overrides.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"seoaudit/internal/logger"
	"seoaudit/internal/models"
	"seoaudit/internal/oracle"
)

// Settings is the overall configuration of seoaudit, mirroring
// seoaudit.yaml.
type Settings struct {
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Reporting ReportingConfig `mapstructure:"reporting"`
	Logging   logger.Config   `mapstructure:"logging"`
}

// CrawlerConfig holds the per-crawl options and the fetcher settings.
// IgnoreQueryParams is a pointer so that an absent key keeps its default of
// true instead of collapsing to false.
type CrawlerConfig struct {
	MaxPages            int    `mapstructure:"max_pages"`
	MaxDepth            int    `mapstructure:"max_depth"`
	IgnoreQueryParams   *bool  `mapstructure:"ignore_query_params"`
	FollowExternalLinks bool   `mapstructure:"follow_external_links"`
	DelayMs             int    `mapstructure:"delay_ms"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
	UserAgent           string `mapstructure:"user_agent"`
	RenderJS            bool   `mapstructure:"render_js"`
}

// Options converts the crawler section into CrawlOptions, falling back to
// the documented defaults for unset fields.
func (c CrawlerConfig) Options() models.CrawlOptions {
	opts := models.DefaultCrawlOptions()
	if c.MaxPages > 0 {
		opts.MaxPages = c.MaxPages
	}
	if c.MaxDepth > 0 {
		opts.MaxDepth = c.MaxDepth
	}
	if c.IgnoreQueryParams != nil {
		opts.IgnoreQueryParams = *c.IgnoreQueryParams
	}
	opts.FollowExternalLinks = c.FollowExternalLinks
	if c.DelayMs > 0 {
		opts.DelayBetweenRequests = time.Duration(c.DelayMs) * time.Millisecond
	}
	if c.UserAgent != "" {
		opts.UserAgent = c.UserAgent
	}
	return opts
}

// OracleConfig enables and configures the semantic-similarity oracle.
type OracleConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Client  oracle.Config `mapstructure:",squash"`
}

// RedisConfig holds the configuration for the shared visited-URL set.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// ReportingConfig defines where audit reports are written.
type ReportingConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from a file in the given path and
// unmarshals it into a Settings struct. Each call uses its own Viper
// instance, so repeated loads never see stale search paths.
func LoadConfig(path string) (config Settings, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("seoaudit")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err = v.ReadInConfig()
	if err != nil {
		return
	}

	err = v.Unmarshal(&config)
	return
}
