// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Hardened HardenedConfig `mapstructure:"hardened"`
	DB       DBConfig       `mapstructure:"db"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Policies PolicyConfig   `mapstructure:"policies"`
}

// InputConfig locates the upstream URL record stream.
type InputConfig struct {
	JSONLPath    string `mapstructure:"jsonl_path"`
	CSVPath      string `mapstructure:"csv_path"`
	BatchSize    int    `mapstructure:"batch_size"`
	ForceProcess bool   `mapstructure:"force_process"`
}

// OutputConfig locates the append-only output artifacts.
type OutputConfig struct {
	CandidatesJSONL string `mapstructure:"candidates_jsonl"`
	FinalCSV        string `mapstructure:"final_csv"`
	DumpDir         string `mapstructure:"dump_dir"`
	DumpMax         int    `mapstructure:"dump_max"`
}

// CrawlerConfig governs the batch scheduler.
type CrawlerConfig struct {
	Workers       int `mapstructure:"workers"`
	MemoryLimitMB int `mapstructure:"memory_limit_mb"`
}

// HTTPConfig configures the resilient fetcher's retry behavior.
type HTTPConfig struct {
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	MaxRetries     int      `mapstructure:"max_retries"`
	BackoffBaseMs  int      `mapstructure:"backoff_base_ms"`
	JitterMaxMs    int      `mapstructure:"jitter_max_ms"`
	RPSPerHost     float64  `mapstructure:"rps_per_host"`
	BurstPerHost   int      `mapstructure:"burst_per_host"`
	UserAgents     []string `mapstructure:"user_agents"`
}

// HardenedConfig configures the secondary challenge-capable client.
type HardenedConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	MaxParallel    int      `mapstructure:"max_parallel"`
	NavTimeoutSec  int      `mapstructure:"nav_timeout_seconds"`
	PreferredHosts []string `mapstructure:"preferred_hosts"`
}

// DBConfig enables the optional Postgres outcome store when DSN is set.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// ServerConfig controls the ops listener. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// PolicyConfig holds the vendor-tuned heuristic tables. The defaults are tuned
// to the Magento storefronts the pipeline was first pointed at; membership is
// replaceable without touching pipeline code.
type PolicyConfig struct {
	BotWallIndicators       []string          `mapstructure:"bot_wall_indicators"`
	NonProductCartTerms     []string          `mapstructure:"non_product_cart_terms"`
	NonProductTitlePrefixes []string          `mapstructure:"non_product_title_prefixes"`
	NonProductPathMarkers   []string          `mapstructure:"non_product_path_markers"`
	Selectors               []string          `mapstructure:"selectors"`
	MarketingPrefixes       []string          `mapstructure:"marketing_prefixes"`
	BrandTokens             []string          `mapstructure:"brand_tokens"`
	Denylist                []string          `mapstructure:"denylist"`
	SlugPrefixes            []string          `mapstructure:"slug_prefixes"`
	URLExcludeTokens        []string          `mapstructure:"url_exclude_tokens"`
	URLProductMarkers       []string          `mapstructure:"url_product_markers"`
	LocaleByTLD             map[string]string `mapstructure:"locale_by_tld"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NAMECRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.jsonl_path", "product_urls.jsonl")
	v.SetDefault("input.csv_path", "merged_data.csv")
	v.SetDefault("input.batch_size", 1000)
	v.SetDefault("input.force_process", true)
	v.SetDefault("output.candidates_jsonl", "product_name_candidates.jsonl")
	v.SetDefault("output.final_csv", "product_names_final.csv")
	v.SetDefault("output.dump_dir", ".")
	v.SetDefault("output.dump_max", 10)
	v.SetDefault("crawler.workers", 10)
	v.SetDefault("crawler.memory_limit_mb", 4096)
	v.SetDefault("http.timeout_seconds", 12)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_base_ms", 2000)
	v.SetDefault("http.jitter_max_ms", 200)
	v.SetDefault("http.rps_per_host", 0)
	v.SetDefault("http.burst_per_host", 1)
	v.SetDefault("http.user_agents", []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	})
	v.SetDefault("hardened.enabled", true)
	v.SetDefault("hardened.max_parallel", 2)
	v.SetDefault("hardened.nav_timeout_seconds", 25)
	v.SetDefault("hardened.preferred_hosts", []string{"glamira."})
	v.SetDefault("db.table", "product_names")
	v.SetDefault("server.port", 0)
	v.SetDefault("logging.development", false)

	v.SetDefault("policies.bot_wall_indicators", []string{
		"cloudflare", "captcha", "attention required", "access denied",
	})
	v.SetDefault("policies.non_product_cart_terms", []string{"warenkorb", "cart"})
	v.SetDefault("policies.non_product_title_prefixes", []string{"<title>warenkorb"})
	v.SetDefault("policies.non_product_path_markers", []string{"checkout/cart/"})
	v.SetDefault("policies.selectors", []string{
		"h1.page-title span.base",
		"h1.page-title",
		".page-title",
		"h1.product-title",
		"h1.product-name",
		".product-title",
		".product-name",
		".product-info h1",
		".product-details h1",
		".product-header h1",
		"[itemprop='name']",
		"[data-testid='product-title']",
		"[data-testid='product-name']",
		"[data-role='product-name']",
		"meta[property='og:title']",
		"meta[name='title']",
		"h1",
		"title",
	})
	v.SetDefault("policies.marketing_prefixes", []string{
		"Kaufen Sie ", "Achetez ", "Acheter ", "Buy ", "Compra ", "Compre ",
	})
	v.SetDefault("policies.brand_tokens", []string{"glamira", "store", "shop"})
	v.SetDefault("policies.denylist", []string{
		"404", "not found", "error", "page not found", "home", "shop", "store", "catalog", "products",
	})
	v.SetDefault("policies.slug_prefixes", []string{
		"glamira-", "bague-", "ring-", "anneau-", "verlobungsring-", "eheringe-",
		"pierscionki-", "prsten-", "collier-", "pendant-", "necklace-", "earring-",
	})
	v.SetDefault("policies.url_exclude_tokens", []string{
		"/cart", "/checkout", "/customer", "/account", "/login", "/logout",
		"/wishlist", "/compare", "/search", "/catalog/category", "/contact",
		"/privacy", "/terms", "/cookies", "/newsletter", "/order", "/payment",
	})
	v.SetDefault("policies.url_product_markers", []string{"product", "prod", "glamira-"})
	v.SetDefault("policies.locale_by_tld", map[string]string{
		"de": "de-DE,de;q=0.8,en;q=0.5",
		"at": "de-AT,de;q=0.8,en;q=0.5",
		"ch": "de-CH,de;q=0.8,fr-CH;q=0.6,en;q=0.5",
		"fr": "fr-FR,fr;q=0.8,en;q=0.5",
		"be": "fr-BE,fr;q=0.8,nl-BE;q=0.6,en;q=0.5",
		"it": "it-IT,it;q=0.8,en;q=0.5",
		"es": "es-ES,es;q=0.8,en;q=0.5",
		"pt": "pt-PT,pt;q=0.8,en;q=0.5",
		"pl": "pl-PL,pl;q=0.8,en;q=0.5",
		"cz": "cs-CZ,cs;q=0.8,en;q=0.5",
		"au": "en-AU,en;q=0.8",
		"uk": "en-GB,en;q=0.8",
	})
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Input.BatchSize <= 0 {
		return fmt.Errorf("input.batch_size must be > 0")
	}
	if c.Crawler.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries <= 0 {
		return fmt.Errorf("http.max_retries must be > 0")
	}
	if len(c.HTTP.UserAgents) == 0 {
		return fmt.Errorf("http.user_agents must not be empty")
	}
	if c.Hardened.Enabled && c.Hardened.MaxParallel <= 0 {
		return fmt.Errorf("hardened.max_parallel must be > 0 when hardened is enabled")
	}
	if c.Output.DumpMax < 0 {
		return fmt.Errorf("output.dump_max must be >= 0")
	}
	return nil
}

// HTTPTimeout returns the per-attempt HTTP timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffBase returns the exponential backoff base delay.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.HTTP.BackoffBaseMs) * time.Millisecond
}

// JitterMax returns the per-attempt random jitter ceiling.
func (c Config) JitterMax() time.Duration {
	return time.Duration(c.HTTP.JitterMaxMs) * time.Millisecond
}
