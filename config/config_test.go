package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "negative parallelism",
			mutate: func(cfg *Config) {
				cfg.Parallelism = -1
			},
			wantErr: "parallelism",
		},
		{
			name: "negative max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = -1
			},
			wantErr: "max pages",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "inverted item delay",
			mutate: func(cfg *Config) {
				cfg.ItemDelayMin = time.Second
				cfg.ItemDelayMax = time.Millisecond
			},
			wantErr: "item delay",
		},
		{
			name: "gallery limit too large",
			mutate: func(cfg *Config) {
				cfg.GalleryLimit = 9
			},
			wantErr: "gallery limit",
		},
		{
			name: "flag probability out of range",
			mutate: func(cfg *Config) {
				cfg.Flags.Urgent = 1.5
			},
			wantErr: "urgent",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "empty image dir",
			mutate: func(cfg *Config) {
				cfg.ImageDir = ""
			},
			wantErr: "image directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestZeroMaxPagesMeansUnlimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPages = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero max pages should validate, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.yaml")
	content := `
base_url: http://example.test/list
max_pages: 3
item_delay_min: 10ms
item_delay_max: 20ms
flags:
  urgent: 0.5
vocabulary:
  small:
    - tiny
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("load file: %v", err)
	}

	if cfg.BaseURL != "http://example.test/list" {
		t.Fatalf("base url = %q", cfg.BaseURL)
	}
	if cfg.MaxPages != 3 {
		t.Fatalf("max pages = %d, want 3", cfg.MaxPages)
	}
	if cfg.ItemDelayMin != 10*time.Millisecond || cfg.ItemDelayMax != 20*time.Millisecond {
		t.Fatalf("item delay = [%s, %s]", cfg.ItemDelayMin, cfg.ItemDelayMax)
	}
	if cfg.Flags.Urgent != 0.5 || cfg.Flags.Vaccinated != 0.8 {
		t.Fatalf("flags = %+v", cfg.Flags)
	}
	if len(cfg.Vocabulary.Small) != 1 || cfg.Vocabulary.Small[0] != "tiny" {
		t.Fatalf("small vocabulary = %v, want [tiny]", cfg.Vocabulary.Small)
	}
	if len(cfg.Vocabulary.Big) == 0 {
		t.Fatalf("big vocabulary should keep defaults")
	}
	if cfg.OutputFormat != "json" {
		t.Fatalf("output format = %q, want default json", cfg.OutputFormat)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	if err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), cfg); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SCRAPER_TEST_INT", "12")
	t.Setenv("SCRAPER_TEST_BAD", "abc")
	t.Setenv("SCRAPER_TEST_DUR", "1500ms")

	if n, ok, err := EnvInt("SCRAPER_TEST_INT"); err != nil || !ok || n != 12 {
		t.Fatalf("EnvInt = (%d, %v, %v), want (12, true, nil)", n, ok, err)
	}
	if _, _, err := EnvInt("SCRAPER_TEST_BAD"); err == nil {
		t.Fatalf("EnvInt should reject non-numeric values")
	}
	if _, ok, err := EnvInt("SCRAPER_TEST_UNSET"); ok || err != nil {
		t.Fatalf("unset variable should report ok=false without error")
	}
	if d, ok, err := EnvDuration("SCRAPER_TEST_DUR"); err != nil || !ok || d != 1500*time.Millisecond {
		t.Fatalf("EnvDuration = (%s, %v, %v)", d, ok, err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SCRAPER_DOTENV_VALUE=from-file\nSCRAPER_DOTENV_SET=from-file\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("SCRAPER_DOTENV_SET", "from-env")
	t.Setenv("SCRAPER_DOTENV_VALUE", "")
	os.Unsetenv("SCRAPER_DOTENV_VALUE")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SCRAPER_DOTENV_VALUE") })

	if got := os.Getenv("SCRAPER_DOTENV_VALUE"); got != "from-file" {
		t.Fatalf("dotenv value = %q, want from-file", got)
	}
	if got := os.Getenv("SCRAPER_DOTENV_SET"); got != "from-env" {
		t.Fatalf("existing env should win, got %q", got)
	}
}
