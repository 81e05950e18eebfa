package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-pets/config"
	"github.com/aluiziolira/go-scrape-pets/models"
	"github.com/aluiziolira/go-scrape-pets/parser"
	"github.com/aluiziolira/go-scrape-pets/pipeline"
	"github.com/aluiziolira/go-scrape-pets/storage"
)

// Scraper crawls the shelter listing page by page and turns every detail
// page into a Pet with its images stored on disk.
type Scraper struct {
	cfg        *config.Config
	collector  *colly.Collector
	images     *colly.Collector
	store      *storage.ContentStore
	normalizer *parser.Normalizer
	rng        *lockedRand
	pacer      *pacer
	limiter    *rate.Limiter
	visited    *lru.Cache[string, struct{}]
	Metrics    *Metrics

	requestCount    int64
	pageCount       int64
	errorCount      int64
	retryCount      int64
	skippedCount    int64
	imagesStored    int64
	imagesDuplicate int64

	mu            sync.Mutex
	failedURLs    []string
	errorsByType  map[string]int
	skipsByReason map[string]int
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithRand replaces the random source used for gallery sampling, flag
// synthesis and delays. Item directory names always come from crypto/rand
// so runs with the same seed never share directories.
func WithRand(r *rand.Rand) Option {
	return func(s *Scraper) {
		s.rng = newLockedRand(r)
	}
}

// NewScraper builds a scraper instance configured from cfg. The image
// directory is created here; failing to do so is fatal.
func NewScraper(cfg *config.Config, opts ...Option) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	store, err := storage.NewContentStore(cfg.ImageDir)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	collector, err := newCollector(cfg, transport, colly.AllowedDomains(parsed.Hostname()))
	if err != nil {
		return nil, err
	}
	collector.DetectCharset = true

	// Images are often served from, or redirected to, another host. Redirect
	// checks are bound to the collector that owns the HTTP client, so images
	// get their own collector without a domain restriction. Payloads are
	// binary and must not be truncated or charset converted.
	images, err := newCollector(cfg, transport)
	if err != nil {
		return nil, err
	}
	images.DetectCharset = false
	images.MaxBodySize = 0

	visited, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("visited set: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Scraper{
		cfg:           cfg,
		collector:     collector,
		images:        images,
		store:         store,
		normalizer:    parser.NewNormalizer(cfg.Vocabulary),
		rng:           newLockedRand(rand.New(rand.NewSource(seed))),
		visited:       visited,
		errorsByType:  make(map[string]int),
		skipsByReason: make(map[string]int),
		Metrics:       NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pacer = newPacer(s.rng, cfg.ItemDelayMin, cfg.ItemDelayMax, cfg.Parallelism == 1)
	if cfg.MaxRequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.MaxRequestsPerMinute)), 1)
	}
	return s, nil
}

// WithTransport swaps the HTTP transport used for every request.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
	s.images.WithTransport(rt)
}

func newCollector(cfg *config.Config, transport http.RoundTripper, options ...colly.CollectorOption) (*colly.Collector, error) {
	options = append([]colly.CollectorOption{colly.UserAgent(cfg.UserAgent)}, options...)
	c := colly.NewCollector(options...)
	c.SetRequestTimeout(cfg.Timeout)
	c.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	c.AllowURLRevisit = true
	c.WithTransport(transport)

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.RequestDelay,
		RandomDelay: cfg.RequestRandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}
	return c, nil
}

// Run crawls listing pages starting at page 1 until a page has no new
// detail links or the page ceiling is reached, and streams pets through
// the pipeline in discovery order. Item failures are logged and skipped;
// only a *storage.PersistenceError aborts the run.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	var (
		runErr    error
		processed int
		stop      = models.StopPageLimit
	)
	for page := 1; s.cfg.MaxPages == 0 || page <= s.cfg.MaxPages; page++ {
		if page > 1 {
			if err := sleepContext(ctx, s.rng.Between(s.cfg.PageDelayMin, s.cfg.PageDelayMax)); err != nil {
				stop = models.StopCancelled
				break
			}
		}
		if ctx.Err() != nil {
			stop = models.StopCancelled
			break
		}

		links, err := s.discoverPage(ctx, page)
		if err != nil {
			// A listing page that cannot be fetched means the rest of the
			// listing is unreachable; the run still completes with what it
			// has collected.
			slog.Warn("listing page failed, ending pagination and keeping collected records",
				slog.Int("page", page),
				slog.Any("error", err),
			)
			stop = models.StopListingFailed
			if ctx.Err() != nil {
				stop = models.StopCancelled
			}
			break
		}
		atomic.AddInt64(&s.pageCount, 1)
		s.Metrics.IncPages()

		fresh := s.filterNew(links)
		slog.Info("listing page",
			slog.Int("page", page),
			slog.Int("links", len(links)),
			slog.Int("new", len(fresh)),
		)
		if len(fresh) == 0 {
			stop = models.StopNoNewLinks
			break
		}

		pets, err := s.extractAll(ctx, fresh)
		if len(pets) > 0 {
			if perr := p.Process(pets...); perr != nil {
				if !errors.Is(perr, pipeline.ErrPipelineClosed) {
					slog.Error("pipeline process error", slog.Any("error", perr))
				}
			} else {
				processed += len(pets)
			}
		}
		if err != nil {
			runErr = err
			stop = models.StopFatal
			break
		}
	}

	result := &models.ScraperResult{
		StartTime:       start,
		EndTime:         time.Now(),
		ErrorCount:      int(atomic.LoadInt64(&s.errorCount)),
		SkippedCount:    int(atomic.LoadInt64(&s.skippedCount)),
		FailedURLs:      s.snapshotFailedURLs(),
		ErrorsByType:    snapshot(&s.mu, s.errorsByType),
		SkipsByReason:   snapshot(&s.mu, s.skipsByReason),
		RetryCount:      int(atomic.LoadInt64(&s.retryCount)),
		RequestCount:    int(atomic.LoadInt64(&s.requestCount)),
		PageCount:       int(atomic.LoadInt64(&s.pageCount)),
		ImagesStored:    int(atomic.LoadInt64(&s.imagesStored)),
		ImagesDuplicate: int(atomic.LoadInt64(&s.imagesDuplicate)),
		TotalCount:      processed,
		StopReason:      stop,
	}
	return result, runErr
}

// extractAll processes the links of one listing page with at most
// Parallelism items in flight. The returned pets keep the order of links.
// One item failing never cancels the others; a persistence error does.
func (s *Scraper) extractAll(ctx context.Context, links []string) ([]*models.Pet, error) {
	slots := make([]*models.Pet, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for i, link := range links {
		g.Go(func() error {
			if err := s.pacer.Wait(gctx); err != nil {
				return nil
			}
			defer s.pacer.Done()
			pet, err := s.ExtractPet(gctx, link)
			switch {
			case isPersistence(err):
				return err
			case err != nil:
				s.Metrics.IncPet("failed")
				slog.Info("pet processed", slog.String("outcome", "failed"), slog.String("url", link), slog.Any("error", err))
			case pet != nil:
				slots[i] = pet
				s.Metrics.IncPet("stored")
				slog.Info("pet processed", slog.String("outcome", "stored"), slog.String("url", link), slog.String("name", pet.Name))
			}
			return nil
		})
	}
	err := g.Wait()

	pets := make([]*models.Pet, 0, len(slots))
	for _, pet := range slots {
		if pet != nil {
			pets = append(pets, pet)
		}
	}
	return pets, err
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func snapshot(mu *sync.Mutex, in map[string]int) map[string]int {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
