package harvest

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Fetch engine choices for detail pages.
const (
	EngineBrowser = "browser"
	EngineStatic  = "static"
)

// Config captures every knob that influences a harvest run. Values originate
// from Viper so the engine stays decoupled from how it was configured.
type Config struct {
	ListingURL string
	Target     int

	Host         string
	DenyPrefixes []string

	OutPath     string
	FailOutPath string

	FetchDelay  time.Duration
	FetchJitter time.Duration
	RoundPause  time.Duration

	MaxNoNew      int
	FetchAttempts int
	BackoffBase   time.Duration
	BackoffCap    time.Duration

	RevealSteps  int
	RevealSettle time.Duration
	StableAfter  int

	LinkSelector        string
	TitleSelector       string
	PriceSelector       string
	DescriptionSelector string

	ReadyTimeout time.Duration
	NavTimeout   time.Duration

	Engine    string
	UserAgent string

	Headless       bool
	BlockResources bool
	HostQPS        float64

	MirrorDSN      string
	MirrorTable    string
	DiagnosticsDir string
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		ListingURL:          v.GetString("harvest.listing_url"),
		Target:              v.GetInt("harvest.target"),
		Host:                v.GetString("harvest.host"),
		DenyPrefixes:        v.GetStringSlice("harvest.deny_prefixes"),
		OutPath:             v.GetString("harvest.out"),
		FailOutPath:         v.GetString("harvest.fail_out"),
		FetchDelay:          v.GetDuration("harvest.delay"),
		FetchJitter:         v.GetDuration("harvest.jitter"),
		RoundPause:          v.GetDuration("harvest.round_pause"),
		MaxNoNew:            v.GetInt("harvest.max_no_new"),
		FetchAttempts:       v.GetInt("harvest.fetch_attempts"),
		BackoffBase:         v.GetDuration("harvest.backoff_base"),
		BackoffCap:          v.GetDuration("harvest.backoff_cap"),
		RevealSteps:         v.GetInt("harvest.reveal_steps"),
		RevealSettle:        v.GetDuration("harvest.reveal_settle"),
		StableAfter:         v.GetInt("harvest.stable_after"),
		LinkSelector:        v.GetString("selectors.item_link"),
		TitleSelector:       v.GetString("selectors.title"),
		PriceSelector:       v.GetString("selectors.price"),
		DescriptionSelector: v.GetString("selectors.description"),
		ReadyTimeout:        v.GetDuration("harvest.ready_timeout"),
		NavTimeout:          v.GetDuration("harvest.nav_timeout"),
		Engine:              strings.ToLower(v.GetString("harvest.engine")),
		UserAgent:           v.GetString("harvest.user_agent"),
		Headless:            v.GetBool("browser.headless"),
		BlockResources:      v.GetBool("browser.block_resources"),
		HostQPS:             v.GetFloat64("browser.host_qps"),
		MirrorDSN:           v.GetString("mirror.dsn"),
		MirrorTable:         v.GetString("mirror.table"),
		DiagnosticsDir:      v.GetString("harvest.diagnostics_dir"),
	}
	if cfg.Host == "" {
		cfg.Host = hostOf(cfg.ListingURL)
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.ListingURL == "" {
		return fmt.Errorf("harvest.listing_url must be set")
	}
	if c.Host == "" {
		return fmt.Errorf("harvest.host could not be derived from the listing url")
	}
	if c.Target <= 0 {
		return fmt.Errorf("harvest.target must be > 0")
	}
	if c.OutPath == "" {
		return fmt.Errorf("harvest.out must be set")
	}
	if c.FailOutPath == "" {
		return fmt.Errorf("harvest.fail_out must be set")
	}
	if c.MaxNoNew <= 0 {
		return fmt.Errorf("harvest.max_no_new must be > 0")
	}
	if c.FetchAttempts <= 0 {
		return fmt.Errorf("harvest.fetch_attempts must be > 0")
	}
	if c.BackoffBase <= 0 || c.BackoffCap < c.BackoffBase {
		return fmt.Errorf("harvest backoff must satisfy 0 < base <= cap")
	}
	if c.RevealSteps <= 0 {
		return fmt.Errorf("harvest.reveal_steps must be > 0")
	}
	if c.ReadyTimeout <= 0 || c.NavTimeout <= 0 {
		return fmt.Errorf("harvest timeouts must be > 0")
	}
	if c.TitleSelector == "" {
		return fmt.Errorf("selectors.title must be set")
	}
	if c.LinkSelector == "" {
		return fmt.Errorf("selectors.item_link must be set")
	}
	if c.Engine != EngineBrowser && c.Engine != EngineStatic {
		return fmt.Errorf("harvest.engine must be %q or %q", EngineBrowser, EngineStatic)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("harvest.user_agent must be set")
	}
	if c.HostQPS < 0 {
		return fmt.Errorf("browser.host_qps must be >= 0")
	}
	return nil
}

// RetryPolicy derives the fetch retry policy from the config.
func (c Config) RetryPolicy() LinearBackoffPolicy {
	return LinearBackoffPolicy{
		MaxAttempts: c.FetchAttempts,
		Base:        c.BackoffBase,
		Cap:         c.BackoffCap,
	}
}

// Scope derives the URL scope from the config.
func (c Config) Scope() *Scope {
	return NewScope(c.Host, c.DenyPrefixes)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return normalizeHost(u.Hostname())
}
