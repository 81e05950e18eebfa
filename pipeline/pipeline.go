package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-pets/config"
	"github.com/aluiziolira/go-scrape-pets/models"
	"github.com/aluiziolira/go-scrape-pets/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when the aggregator does not drain in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

// drainTimeout bounds how long Close waits for the aggregator.
var drainTimeout = 30 * time.Second

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(pets []*models.Pet) error
	Close() error
	Validate() error
}

// Pipeline collects pets in arrival order. A single aggregator goroutine
// owns the sequence; producers hand records over through a channel. The
// full sequence is written once, on Close.
type Pipeline struct {
	writer OutputWriter
	petCh  chan *models.Pet
	done   chan struct{}

	records []*models.Pet
	seen    *lru.Cache[string, struct{}]

	metrics metrics

	mu      sync.Mutex // guards closed/started/err
	closed  bool
	started bool
	err     error

	closeOnce    sync.Once
	closeErr     error
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline writing to writer.
func NewPipeline(writer OutputWriter, cfg *config.Config) *Pipeline {
	size := cfg.DedupeMaxSize
	if size <= 0 {
		size = 1
	}
	seen, _ := lru.New[string, struct{}](size)
	return &Pipeline{
		writer:   writer,
		petCh:    make(chan *models.Pet, 64),
		done:     make(chan struct{}),
		seen:     seen,
		metrics:  newMetrics(),
		shutdown: make(chan struct{}),
	}
}

// Start launches the aggregator goroutine.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.started {
		return
	}
	p.started = true
	go p.aggregate()
}

// Process hands pets to the aggregator, preserving argument order.
func (p *Pipeline) Process(pets ...*models.Pet) error {
	if len(pets) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, pet := range pets {
		if pet == nil {
			continue
		}
		if err := p.enqueue(pet); err != nil {
			return err
		}
	}
	return nil
}

// Close stops intake, waits for the aggregator and writes the collected
// sequence, even when it is empty. Drain and write together are bounded by
// drainTimeout. Subsequent calls return the first result.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.close()
	})
	return p.closeErr
}

func (p *Pipeline) close() error {
	p.mu.Lock()
	p.closed = true
	started := p.started
	p.mu.Unlock()

	p.signalShutdown()
	close(p.petCh)

	finished := make(chan error, 1)
	go func() {
		if started {
			<-p.done
		}
		finished <- p.writer.Write(p.Records())
	}()

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()
	select {
	case err := <-finished:
		if err != nil {
			p.setErr(fmt.Errorf("write output: %w", err))
		}
	case <-timer.C:
		return ErrPipelineCloseTimeout
	}
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Records returns a copy of the accepted pets in arrival order. It is
// only stable once Close has returned.
func (p *Pipeline) Records() []*models.Pet {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*models.Pet, len(p.records))
	copy(out, p.records)
	return out
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				processed := metrics["processed_pets"].(int64)
				validation := metrics["validation_errors"].(map[string]int)
				slog.Info("pipeline progress",
					slog.Int64("processed", processed),
					slog.Int("validation_errors", len(validation)),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) aggregate() {
	defer close(p.done)
	for pet := range p.petCh {
		if !p.accept(pet) {
			continue
		}
		p.mu.Lock()
		p.records = append(p.records, pet)
		p.mu.Unlock()
		p.metrics.incrementProcessed()
	}
}

func (p *Pipeline) accept(pet *models.Pet) bool {
	if err := parser.ValidatePet(pet); err != nil {
		slog.Debug("pet rejected", slog.Any("error", err))
		p.metrics.addValidation("invalid_record")
		return false
	}
	if pet.SourceURL != "" {
		if p.seen.Contains(pet.SourceURL) {
			p.metrics.addValidation("duplicate_url")
			return false
		}
		p.seen.Add(pet.SourceURL, struct{}{})
	}
	if pet.ImagePaths == nil {
		pet.ImagePaths = []string{}
	}
	return true
}

func (p *Pipeline) enqueue(pet *models.Pet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.petCh <- pet:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_pets":    m.processed,
		"validation_errors": copyValidation,
	}
}
