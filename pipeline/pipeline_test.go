package pipeline

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-pets/config"
	"github.com/aluiziolira/go-scrape-pets/models"
)

type mockWriter struct {
	mu          sync.Mutex
	batches     [][]*models.Pet
	closed      bool
	validateErr error
}

func (mw *mockWriter) Write(pets []*models.Pet) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	copyBatch := make([]*models.Pet, len(pets))
	copy(copyBatch, pets)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
}

func (mw *mockWriter) writes() [][]*models.Pet {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.batches
}

type blockingWriter struct {
	blockCh chan struct{}
}

func (bw *blockingWriter) Write(pets []*models.Pet) error {
	<-bw.blockCh
	return nil
}

func (bw *blockingWriter) Close() error {
	return nil
}

func (bw *blockingWriter) Validate() error {
	return nil
}

func testPet(name, url string) *models.Pet {
	return &models.Pet{
		Name:          name,
		Type:          models.SpeciesCat,
		Age:           2,
		Gender:        models.GenderFemale,
		Size:          models.SizeSmall,
		MainImagePath: "images/" + name + "/main.jpg",
		ImagePaths:    []string{},
		SourceURL:     url,
	}
}

func TestPipelineProcessValidationAndDedup(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(writer, cfg)
	p.Start()

	valid := testPet("Mruczek", "http://example.test/pet/1")
	invalid := testPet("", "http://example.test/pet/2")
	duplicate := testPet("Mruczek", "http://example.test/pet/1")

	if err := p.Process(valid, invalid, duplicate); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	writes := writer.writes()
	if len(writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(writes))
	}
	if len(writes[0]) != 1 {
		t.Fatalf("written pets = %d, want 1", len(writes[0]))
	}

	metrics := p.GetMetrics()
	if got := metrics["processed_pets"].(int64); got != 1 {
		t.Fatalf("processed_pets = %d, want 1", got)
	}
	validation, ok := metrics["validation_errors"].(map[string]int)
	if !ok {
		t.Fatalf("expected validation errors map")
	}
	if validation["invalid_record"] == 0 {
		t.Fatalf("expected invalid_record validation error")
	}
	if validation["duplicate_url"] == 0 {
		t.Fatalf("expected duplicate_url validation error")
	}
}

func TestPipelinePreservesArrivalOrder(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(writer, cfg)
	p.Start()

	for i := 0; i < 100; i++ {
		name := "pet" + strconv.Itoa(i)
		if err := p.Process(testPet(name, "http://example.test/pet/"+strconv.Itoa(i))); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	records := p.Records()
	if len(records) != 100 {
		t.Fatalf("records = %d, want 100", len(records))
	}
	for i, pet := range records {
		if want := "pet" + strconv.Itoa(i); pet.Name != want {
			t.Fatalf("records[%d] = %q, want %q", i, pet.Name, want)
		}
	}
}

func TestPipelineCloseWritesEmptySequence(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(writer, cfg)
	p.Start()

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	writes := writer.writes()
	if len(writes) != 1 {
		t.Fatalf("writes = %d, want exactly 1", len(writes))
	}
	if len(writes[0]) != 0 {
		t.Fatalf("written pets = %d, want 0", len(writes[0]))
	}
}

func TestPipelineProcessAfterClose(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewPipeline(&mockWriter{}, cfg)
	p.Start()
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	err := p.Process(testPet("Burek", "http://example.test/pet/9"))
	if !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("process after close = %v, want ErrPipelineClosed", err)
	}
}

func TestPipelineCloseTimeout(t *testing.T) {
	cfg := config.DefaultConfig()

	writer := &blockingWriter{blockCh: make(chan struct{})}
	p := NewPipeline(writer, cfg)
	p.Start()

	if err := p.Process(testPet("Blocked", "http://example.test/pet/blocked")); err != nil {
		t.Fatalf("process: %v", err)
	}

	previousTimeout := drainTimeout
	drainTimeout = 25 * time.Millisecond
	t.Cleanup(func() {
		drainTimeout = previousTimeout
		close(writer.blockCh)
	})

	if err := p.Close(); err == nil || !errors.Is(err, ErrPipelineCloseTimeout) {
		t.Fatalf("expected close timeout error, got %v", err)
	}
}
