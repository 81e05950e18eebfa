package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	phaseListing = "listing"
	phaseDetail  = "detail"
	phaseImage   = "image"
)

// fetch downloads rawURL, retrying transient failures up to MaxRetries
// times. The returned error is already classified.
func (s *Scraper) fetch(ctx context.Context, rawURL, phase string) (*colly.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, status, err := s.fetchOnce(rawURL, phase)
		if err == nil {
			return resp, nil
		}

		classified := classifyError(err, status)
		category := errorTypeLabel(classified)
		atomic.AddInt64(&s.errorCount, 1)
		s.mu.Lock()
		s.errorsByType[category]++
		s.mu.Unlock()
		s.Metrics.IncError(category)

		if attempt >= s.cfg.MaxRetries || !retryable(classified) {
			slog.Warn("request failed",
				slog.String("url", rawURL),
				slog.String("phase", phase),
				slog.String("category", category),
				slog.Any("error", err),
			)
			s.mu.Lock()
			s.failedURLs = append(s.failedURLs, rawURL)
			s.mu.Unlock()
			return nil, classified
		}

		atomic.AddInt64(&s.retryCount, 1)
		s.Metrics.IncRetries()
		delay := s.backoff(attempt + 1)
		slog.Debug("retrying request",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
			slog.String("category", category),
		)
		if err := sleepContext(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// fetchOnce performs a single synchronous request on a clone of the page
// or image collector. Clones share their parent's HTTP backend, so limit
// rules, redirect checks and the transport carry over.
func (s *Scraper) fetchOnce(rawURL, phase string) (*colly.Response, int, error) {
	parent := s.collector
	if phase == phaseImage {
		parent = s.images
	}
	c := parent.Clone()
	c.DetectCharset = parent.DetectCharset
	c.MaxBodySize = parent.MaxBodySize

	var (
		resp   *colly.Response
		status int
	)
	c.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		atomic.AddInt64(&s.requestCount, 1)
		s.Metrics.IncRequest(phase)
	})
	c.OnResponse(func(r *colly.Response) {
		resp = r
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			s.Metrics.ObserveDuration(phase, time.Since(start))
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(rawURL); err != nil {
		return nil, status, err
	}
	if resp == nil {
		return nil, status, fmt.Errorf("no response for %s", rawURL)
	}
	return resp, status, nil
}

func (s *Scraper) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := s.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := s.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

// fetchDocument fetches an HTML page and parses it. The document URL is
// the final request URL, used to resolve relative links.
func (s *Scraper) fetchDocument(ctx context.Context, rawURL, phase string) (*goquery.Document, error) {
	resp, err := s.fetch(ctx, rawURL, phase)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	doc.Url = resp.Request.URL
	return doc, nil
}
