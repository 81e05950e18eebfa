package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-pets/parser"
)

// FlagProbabilities are the odds of each synthesized boolean being true.
// The shelter site does not publish these attributes.
type FlagProbabilities struct {
	Vaccinated  float64 `mapstructure:"vaccinated"`
	Urgent      float64 `mapstructure:"urgent"`
	Sterilized  float64 `mapstructure:"sterilized"`
	KidFriendly float64 `mapstructure:"kid_friendly"`
}

// Config holds scraper configuration.
type Config struct {
	BaseURL          string `mapstructure:"base_url"`
	PageParam        string `mapstructure:"page_param"`
	DetailQueryKey   string `mapstructure:"detail_query_key"`
	DetailQueryValue string `mapstructure:"detail_query_value"`
	MaxPages         int    `mapstructure:"max_pages"` // 0 means no ceiling
	Parallelism      int    `mapstructure:"parallelism"`

	ItemDelayMin         time.Duration `mapstructure:"item_delay_min"`
	ItemDelayMax         time.Duration `mapstructure:"item_delay_max"`
	PageDelayMin         time.Duration `mapstructure:"page_delay_min"`
	PageDelayMax         time.Duration `mapstructure:"page_delay_max"`
	RequestDelay         time.Duration `mapstructure:"request_delay"`
	RequestRandomDelay   time.Duration `mapstructure:"request_random_delay"`
	MaxRequestsPerMinute int           `mapstructure:"max_requests_per_minute"`

	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	RetryBackoffMax time.Duration `mapstructure:"retry_backoff_max"`

	OutputFile   string `mapstructure:"output_file"`
	OutputFormat string `mapstructure:"output_format"` // json, csv, or dual
	ImageDir     string `mapstructure:"image_dir"`

	UserAgent        string `mapstructure:"user_agent"`
	Verbose          bool   `mapstructure:"verbose"`
	RespectRobotsTxt bool   `mapstructure:"respect_robots_txt"`
	MetricsAddr      string `mapstructure:"metrics_addr"`

	Seed          int64             `mapstructure:"seed"` // 0 picks a time-based seed
	DedupeMaxSize int               `mapstructure:"dedupe_max_size"`
	GalleryLimit  int               `mapstructure:"gallery_limit"`
	Flags         FlagProbabilities `mapstructure:"flags"`
	Vocabulary    parser.Vocabulary `mapstructure:"vocabulary"`
}

// DefaultConfig returns the settings used against schronisko-lodz.pl.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:              "https://schronisko-lodz.pl/index.php?p=adopcje_v2",
		PageParam:            "page",
		DetailQueryKey:       "a",
		DetailQueryValue:     "view_details",
		MaxPages:             8,
		Parallelism:          1,
		ItemDelayMin:         300 * time.Millisecond,
		ItemDelayMax:         700 * time.Millisecond,
		PageDelayMin:         1 * time.Second,
		PageDelayMax:         2 * time.Second,
		RequestDelay:         0,
		RequestRandomDelay:   0,
		MaxRequestsPerMinute: 0,
		Timeout:              30 * time.Second,
		MaxRetries:           0,
		RetryBackoff:         200 * time.Millisecond,
		RetryBackoffMax:      2 * time.Second,
		OutputFile:           "test_data/data/pets.json",
		OutputFormat:         "json",
		ImageDir:             "test_data/images/pets",
		UserAgent:            "Mozilla/5.0 (compatible; AdoptScraper/1.1; +https://example.com)",
		Verbose:              false,
		RespectRobotsTxt:     false,
		DedupeMaxSize:        100000,
		GalleryLimit:         parser.MaxGalleryImages,
		Flags: FlagProbabilities{
			Vaccinated:  0.8,
			Urgent:      0.3,
			Sterilized:  0.8,
			KidFriendly: 0.8,
		},
		Vocabulary: parser.DefaultVocabulary(),
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.PageParam == "" {
		return fmt.Errorf("page param cannot be empty")
	}
	if c.DetailQueryKey == "" || c.DetailQueryValue == "" {
		return fmt.Errorf("detail query key and value cannot be empty")
	}

	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if err := validateRange("item delay", c.ItemDelayMin, c.ItemDelayMax); err != nil {
		return err
	}
	if err := validateRange("page delay", c.PageDelayMin, c.PageDelayMax); err != nil {
		return err
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay cannot be negative")
	}
	if c.RequestRandomDelay < 0 {
		return fmt.Errorf("request random delay cannot be negative")
	}
	if c.MaxRequestsPerMinute < 0 {
		return fmt.Errorf("max requests per minute cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.ImageDir == "" {
		return fmt.Errorf("image directory cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.GalleryLimit < 0 || c.GalleryLimit > parser.MaxGalleryImages {
		return fmt.Errorf("gallery limit must be between 0 and %d", parser.MaxGalleryImages)
	}
	for name, p := range map[string]float64{
		"vaccinated":   c.Flags.Vaccinated,
		"urgent":       c.Flags.Urgent,
		"sterilized":   c.Flags.Sterilized,
		"kid_friendly": c.Flags.KidFriendly,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("flag probability %s must be within [0, 1]", name)
		}
	}

	return nil
}

func validateRange(name string, min, max time.Duration) error {
	if min < 0 || max < 0 {
		return fmt.Errorf("%s cannot be negative", name)
	}
	if max < min {
		return fmt.Errorf("%s max (%s) cannot be below min (%s)", name, max, min)
	}
	return nil
}
