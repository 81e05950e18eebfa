package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-pets/config"
	"github.com/aluiziolira/go-scrape-pets/scraper"
)

func TestCreateWriter(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		format  string
		file    string
		wantErr bool
	}{
		{format: "json", file: "pets.json"},
		{format: "csv", file: "pets.csv"},
		{format: "dual", file: "pets.json"},
		{format: "xml", file: "pets.xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := createWriter(tt.format, filepath.Join(dir, tt.format, tt.file))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("create writer: %v", err)
			}
			if err := w.Write(nil); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SCRAPER_PAGES", "3")
	t.Setenv("SCRAPER_PARALLEL", "2")
	t.Setenv("SCRAPER_IMAGES", "/tmp/pets")
	t.Setenv("SCRAPER_BASE_URL", "https://shelter.test/index.php?p=adopcje_v2")

	cfg := config.DefaultConfig()
	if err := applyEnv(cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.MaxPages != 3 || cfg.Parallelism != 2 {
		t.Fatalf("pages/parallel = %d/%d, want 3/2", cfg.MaxPages, cfg.Parallelism)
	}
	if cfg.ImageDir != "/tmp/pets" || !strings.HasPrefix(cfg.BaseURL, "https://shelter.test") {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("SCRAPER_PAGES", "many")
	if err := applyEnv(config.DefaultConfig()); err == nil {
		t.Fatalf("expected error for non-numeric SCRAPER_PAGES")
	}
}

func TestMetricsRouter(t *testing.T) {
	metrics := scraper.NewMetrics()
	metrics.IncPages()
	router := newMetricsRouter(metrics)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "scraper_listing_pages_total 1") {
		t.Fatalf("metrics output missing page counter:\n%s", rec.Body.String())
	}
}
