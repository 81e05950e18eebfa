package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-pets/config"
	"github.com/aluiziolira/go-scrape-pets/models"
	"github.com/aluiziolira/go-scrape-pets/pipeline"
	"github.com/aluiziolira/go-scrape-pets/scraper"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := applyEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	configPath := flag.String("config", "", "Optional config file (yaml, toml or json)")
	maxPages := flag.Int("pages", cfg.MaxPages, "Maximum listing pages to crawl (0 = until exhausted)")
	parallelism := flag.Int("parallel", cfg.Parallelism, "Number of detail pages processed concurrently")
	outputFile := flag.String("output", cfg.OutputFile, "Output file path")
	imageDir := flag.String("images", cfg.ImageDir, "Directory for downloaded images")
	outputFormat := flag.String("format", cfg.OutputFormat, "Output format: json, csv, or dual")
	baseURL := flag.String("base-url", cfg.BaseURL, "Listing URL to crawl")
	seed := flag.Int64("seed", cfg.Seed, "Random seed (0 = time based)")
	itemDelayMin := flag.Duration("item-delay-min", cfg.ItemDelayMin, "Minimum gap between detail pages")
	itemDelayMax := flag.Duration("item-delay-max", cfg.ItemDelayMax, "Maximum gap between detail pages")
	pageDelayMin := flag.Duration("page-delay-min", cfg.PageDelayMin, "Minimum pause between listing pages")
	pageDelayMax := flag.Duration("page-delay-max", cfg.PageDelayMax, "Maximum pause between listing pages")
	delay := flag.Duration("delay", cfg.RequestDelay, "Delay between HTTP requests")
	randomDelay := flag.Duration("random-delay", cfg.RequestRandomDelay, "Random jitter added to delay")
	rate := flag.Int("rate", cfg.MaxRequestsPerMinute, "Maximum requests per minute (0 = unlimited)")
	maxRetries := flag.Int("max-retries", cfg.MaxRetries, "Maximum retry attempts per URL")
	retryBackoff := flag.Duration("retry-backoff", cfg.RetryBackoff, "Initial retry backoff")
	retryBackoffMax := flag.Duration("retry-backoff-max", cfg.RetryBackoffMax, "Maximum retry backoff")
	respectRobots := flag.Bool("respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", cfg.Verbose, "Enable verbose logging")

	flag.Parse()

	if *configPath != "" {
		if err := config.LoadFile(*configPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}

	// Flags given on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "pages":
			cfg.MaxPages = *maxPages
		case "parallel":
			cfg.Parallelism = *parallelism
		case "output":
			cfg.OutputFile = *outputFile
		case "images":
			cfg.ImageDir = *imageDir
		case "format":
			cfg.OutputFormat = strings.ToLower(*outputFormat)
		case "base-url":
			cfg.BaseURL = *baseURL
		case "seed":
			cfg.Seed = *seed
		case "item-delay-min":
			cfg.ItemDelayMin = *itemDelayMin
		case "item-delay-max":
			cfg.ItemDelayMax = *itemDelayMax
		case "page-delay-min":
			cfg.PageDelayMin = *pageDelayMin
		case "page-delay-max":
			cfg.PageDelayMax = *pageDelayMax
		case "delay":
			cfg.RequestDelay = *delay
		case "random-delay":
			cfg.RequestRandomDelay = *randomDelay
		case "rate":
			cfg.MaxRequestsPerMinute = *rate
		case "max-retries":
			cfg.MaxRetries = *maxRetries
		case "retry-backoff":
			cfg.RetryBackoff = *retryBackoff
		case "retry-backoff-max":
			cfg.RetryBackoffMax = *retryBackoffMax
		case "respect-robots":
			cfg.RespectRobotsTxt = *respectRobots
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "v":
			cfg.Verbose = *verbose
		}
	})

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("pages", cfg.MaxPages),
		slog.Int("workers", cfg.Parallelism),
		slog.String("images", cfg.ImageDir),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = newMetricsServer(cfg.MetricsAddr, s.Metrics)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p := pipeline.NewPipeline(writer, cfg)
	p.Start()
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	result, runErr := s.Run(ctx, p)
	if runErr != nil {
		slog.Error("scraping failed", slog.Any("error", runErr))
	}

	// Whatever was collected is written even when the run aborted.
	exitCode := 0
	if err := p.Close(); err != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", err))
		exitCode = 1
	}
	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
		exitCode = 1
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		exitCode = 1
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, time.Since(startTime), cfg, p.GetMetrics())

	if runErr != nil {
		exitCode = 1
	}
	os.Exit(exitCode)
}

// applyEnv overlays the SCRAPER_* environment variables on cfg.
func applyEnv(cfg *config.Config) error {
	if value, ok, err := config.EnvInt("SCRAPER_PAGES"); err != nil {
		return err
	} else if ok {
		cfg.MaxPages = value
	}
	if value, ok, err := config.EnvInt("SCRAPER_PARALLEL"); err != nil {
		return err
	} else if ok {
		cfg.Parallelism = value
	}
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		cfg.OutputFile = value
	}
	if value, ok := config.EnvString("SCRAPER_IMAGES"); ok {
		cfg.ImageDir = value
	}
	if value, ok := config.EnvString("SCRAPER_BASE_URL"); ok {
		cfg.BaseURL = value
	}
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok, err := config.EnvDuration("SCRAPER_TIMEOUT"); err != nil {
		return err
	} else if ok {
		cfg.Timeout = value
	}
	return nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		csvFilename := strings.TrimSuffix(jsonFilename, ".json") + ".csv"
		return pipeline.NewDualWriter(csvFilename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.ScraperResult, duration time.Duration, cfg *config.Config, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	totalItems := int64(0)
	if processed, ok := metrics["processed_pets"].(int64); ok {
		totalItems = processed
	}
	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(totalItems) / duration.Seconds()
	}

	fmt.Printf("  Pets saved:    %d\n", totalItems)
	if result != nil {
		successRate := 0.0
		if result.RequestCount > 0 {
			successRate = float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
		}
		fmt.Printf("  Pages:         %d (stopped: %s)\n", result.PageCount, result.StopReason)
		fmt.Printf("  Skipped:       %d\n", result.SkippedCount)
		if len(result.SkipsByReason) > 0 {
			fmt.Printf("  Skip reasons:  %v\n", result.SkipsByReason)
		}
		fmt.Printf("  Images:        %d stored, %d duplicate\n", result.ImagesStored, result.ImagesDuplicate)
		fmt.Printf("  Success rate:  %.2f%%\n", successRate)
		fmt.Printf("  Errors:        %d\n", result.ErrorCount)
		fmt.Printf("  Retries:       %d\n", result.RetryCount)
		fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
		if len(result.ErrorsByType) > 0 {
			fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
		}
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Pets/sec:      %.2f\n", itemsPerSec)
	fmt.Printf("  Output file:   %s\n", cfg.OutputFile)
	fmt.Printf("  Image dir:     %s\n", cfg.ImageDir)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
