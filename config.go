package folio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/feed"
	"github.com/eringen/folio/imaging"
	"github.com/eringen/folio/pages"
)

// minSecretLen is the shortest accepted token signing secret, in bytes.
const minSecretLen = 32

// SiteConfig holds all configuration for the admin server.
type SiteConfig struct {
	Owner    string `mapstructure:"owner"`     // Site owner shown in titles and footers
	URL      string `mapstructure:"url"`       // Canonical URL, no trailing slash
	Tagline  string `mapstructure:"tagline"`   // About page description
	LogoHTML string `mapstructure:"logo_html"` // Nav logo markup (default escaped Owner)
	Year     string `mapstructure:"year"`      // Footer year (default current year)

	Addr string `mapstructure:"addr"` // Listen address (default ":3000")

	AdminPasswordHash string `mapstructure:"admin_password_hash"` // Required: hex sha256 of the admin password
	AuthSecret        string `mapstructure:"auth_secret"`         // Required: token signing secret, 32+ bytes
	CookieSecure      bool   `mapstructure:"cookie_secure"`       // Set true for HTTPS

	GitHubOwner  string `mapstructure:"github_owner"`
	GitHubRepo   string `mapstructure:"github_repo"`
	GitHubBranch string `mapstructure:"github_branch"` // default "main"
	GitHubToken  string `mapstructure:"github_token"`
	GitHubAPIURL string `mapstructure:"github_api_url"` // GitHub Enterprise

	LocalDatabasePath string `mapstructure:"local_db"` // Serve from a local SQLite store instead of GitHub

	InstagramToken string        `mapstructure:"instagram_token"`
	FeedCacheTTL   time.Duration `mapstructure:"feed_cache_ttl"` // default 30m

	ImageMaxWidth int `mapstructure:"image_max_width"` // default 2400, negative disables

	LoginAttempts int           `mapstructure:"login_attempts"` // Failed logins per window (default 5)
	LoginWindow   time.Duration `mapstructure:"login_window"`   // default 1m
}

func (c *SiteConfig) setDefaults() {
	if c.Owner == "" {
		c.Owner = "Portfolio"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Year == "" {
		c.Year = strconv.Itoa(time.Now().Year())
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.GitHubBranch == "" {
		c.GitHubBranch = "main"
	}
	if c.FeedCacheTTL == 0 {
		c.FeedCacheTTL = feed.DefaultTTL
	}
	if c.ImageMaxWidth == 0 {
		c.ImageMaxWidth = imaging.DefaultMaxWidth
	}
	if c.LoginAttempts == 0 {
		c.LoginAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
}

// Validate reports the first missing or unusable required setting.
func (c SiteConfig) Validate() error {
	if strings.TrimSpace(c.AdminPasswordHash) == "" {
		return errors.New("folio: admin password hash is required")
	}
	if len(c.AuthSecret) < minSecretLen {
		return fmt.Errorf("folio: auth secret must be at least %d bytes", minSecretLen)
	}
	return nil
}

// Site returns the identity baked into generated pages.
func (c SiteConfig) Site() pages.Site {
	return pages.Site{
		Owner:    c.Owner,
		URL:      c.URL,
		Tagline:  c.Tagline,
		LogoHTML: c.LogoHTML,
		Year:     c.Year,
	}
}

func (c SiteConfig) maxImageWidth() int {
	if c.ImageMaxWidth < 0 {
		return 0
	}
	return c.ImageMaxWidth
}

// configKeys lists every setting with the legacy environment variable it
// also answers to, if any.
var configKeys = map[string]string{
	"owner":               "",
	"url":                 "",
	"tagline":             "",
	"logo_html":           "",
	"year":                "",
	"addr":                "",
	"admin_password_hash": "ADMIN_PASSWORD_HASH",
	"auth_secret":         "AUTH_SECRET",
	"cookie_secure":       "",
	"github_owner":        "GITHUB_OWNER",
	"github_repo":         "GITHUB_REPO",
	"github_branch":       "",
	"github_token":        "GITHUB_TOKEN",
	"github_api_url":      "",
	"local_db":            "",
	"instagram_token":     "INSTAGRAM_TOKEN",
	"feed_cache_ttl":      "",
	"image_max_width":     "",
	"login_attempts":      "",
	"login_window":        "",
}

// LoadConfig reads settings from the optional config file at path (YAML,
// TOML or JSON) and from FOLIO_* environment variables, which win. The
// deployment's original variable names (ADMIN_PASSWORD_HASH, GITHUB_TOKEN,
// ...) are honored when the FOLIO_ form is unset.
func LoadConfig(path string) (SiteConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return SiteConfig{}, fmt.Errorf("folio: read config %s: %w", path, err)
		}
	}
	for key, legacy := range configKeys {
		names := []string{key, "FOLIO_" + strings.ToUpper(key)}
		if legacy != "" {
			names = append(names, legacy)
		}
		if err := v.BindEnv(names...); err != nil {
			return SiteConfig{}, err
		}
	}
	var cfg SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("folio: decode config: %w", err)
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithContentStore replaces the store built from the GitHub settings.
func WithContentStore(s content.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithFeedSource replaces the Graph API client behind the feed cache.
func WithFeedSource(src feed.Source) Option {
	return func(a *App) {
		a.feedSource = src
	}
}

// WithClock sets the clock used for tokens, commit messages and the feed cache.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}
