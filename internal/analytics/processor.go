// Package analytics enriches recorded clicks in the background: the raw
// User-Agent becomes a "<browser> on <os>" label and the client address a
// country name.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"shawty-backend/internal/domain"
	"shawty-backend/internal/metrics"
	"shawty-backend/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrNotStarted = errors.New("processor not started")
	ErrQueueFull  = errors.New("analytics queue is full")
)

// Job is one click waiting for enrichment.
type Job struct {
	ClickID   int64
	UserAgent string
	ClientIP  string
}

// EnrichmentStore persists the enrichment result of a click.
type EnrichmentStore interface {
	UpdateClickEnrichment(ctx context.Context, clickID int64, userAgent, country string) error
}

// DeviceDescriber turns a raw User-Agent header into a display label.
type DeviceDescriber interface {
	Describe(userAgent string) string
}

// ProcessorConfig holds configuration for the analytics processor
type ProcessorConfig struct {
	WorkerCount     int           // Number of worker goroutines
	BufferSize      int           // Size of the job queue buffer
	RetryAttempts   int           // Attempts for the store update
	RetryDelay      time.Duration // Base delay between retries
	ShutdownTimeout time.Duration // Time to wait for the queue to drain
	JobTimeout      time.Duration // Upper bound for one job including lookups
	DevCountry      string        // Country reported for local addresses
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() ProcessorConfig {
	return ProcessorConfig{
		WorkerCount:     4,
		BufferSize:      1000,
		RetryAttempts:   3,
		RetryDelay:      500 * time.Millisecond,
		ShutdownTimeout: 30 * time.Second,
		JobTimeout:      10 * time.Second,
		DevCountry:      "Indonesia (Dev)",
	}
}

// Stats is a point-in-time view of the processor.
type Stats struct {
	Started       bool `json:"started"`
	QueueLength   int  `json:"queue_length"`
	QueueCapacity int  `json:"queue_capacity"`
	WorkerCount   int  `json:"worker_count"`
	RetryAttempts int  `json:"retry_attempts"`
}

// Processor drains a bounded queue of enrichment jobs with a fixed pool of
// workers. Submit never blocks the caller.
type Processor struct {
	config   ProcessorConfig
	store    EnrichmentStore
	devices  DeviceDescriber
	geo      Geolocator
	metrics  metrics.Recorder
	log      *zap.Logger
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	stopped  bool
	mu       sync.RWMutex
}

// NewProcessor creates a new analytics processor
func NewProcessor(store EnrichmentStore, devices DeviceDescriber, geo Geolocator, rec metrics.Recorder, log *zap.Logger, config ProcessorConfig) *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	if rec == nil {
		rec = metrics.Noop{}
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}

	return &Processor{
		config:   config,
		store:    store,
		devices:  devices,
		geo:      geo,
		metrics:  rec,
		log:      log,
		jobQueue: make(chan Job, config.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the workers
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("processor already started")
	}
	if p.stopped {
		return fmt.Errorf("processor cannot be restarted")
	}

	p.log.Info("starting analytics processor",
		zap.Int("workers", p.config.WorkerCount),
		zap.Int("buffer_size", p.config.BufferSize),
		zap.Int("retry_attempts", p.config.RetryAttempts),
	)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.started = true
	return nil
}

// Stop closes the queue and waits for the workers to drain it. Jobs still
// queued after ShutdownTimeout are abandoned.
func (p *Processor) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}
	p.started = false
	p.stopped = true
	close(p.jobQueue)
	p.mu.Unlock()

	p.log.Info("stopping analytics processor", zap.Int("pending", len(p.jobQueue)))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	defer p.cancel()
	select {
	case <-done:
		p.log.Info("analytics processor stopped gracefully")
		return nil
	case <-time.After(p.config.ShutdownTimeout):
		p.log.Warn("analytics processor shutdown timeout reached", zap.Int("abandoned", len(p.jobQueue)))
		return fmt.Errorf("shutdown timeout reached")
	}
}

// Submit enqueues a job. A full queue drops the job and returns ErrQueueFull.
func (p *Processor) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return ErrNotStarted
	}

	select {
	case p.jobQueue <- job:
		p.metrics.QueueDepth(len(p.jobQueue))
		return nil
	default:
		p.metrics.Enrichment(metrics.EnrichmentDropped)
		p.log.Error("analytics queue is full, dropping click enrichment",
			zap.Int64("click_id", job.ClickID),
			zap.Int("queue_size", len(p.jobQueue)),
		)
		return ErrQueueFull
	}
}

// Stats returns processor statistics
func (p *Processor) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return Stats{
		Started:       p.started,
		QueueLength:   len(p.jobQueue),
		QueueCapacity: cap(p.jobQueue),
		WorkerCount:   p.config.WorkerCount,
		RetryAttempts: p.config.RetryAttempts,
	}
}

func (p *Processor) worker(workerID int) {
	defer p.wg.Done()

	log := p.log.With(zap.Int("worker_id", workerID))
	log.Debug("analytics worker started")

	for job := range p.jobQueue {
		p.metrics.QueueDepth(len(p.jobQueue))
		p.process(log, job)
	}

	log.Debug("analytics worker stopped")
}

func (p *Processor) process(log *zap.Logger, job Job) {
	ctx := p.ctx
	if p.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, p.config.JobTimeout)
		defer cancel()
	}

	device := p.describe(job.UserAgent)
	country := p.resolveCountry(ctx, log, job.ClientIP)

	if err := p.updateWithRetry(ctx, log, job.ClickID, device, country); err != nil {
		p.metrics.Enrichment(metrics.EnrichmentFailed)
		log.Warn("click enrichment failed",
			zap.Int64("click_id", job.ClickID),
			zap.Error(err),
		)
		return
	}

	p.metrics.Enrichment(metrics.EnrichmentOK)
	log.Debug("click enriched",
		zap.Int64("click_id", job.ClickID),
		zap.String("device", device),
		zap.String("country", country),
	)
}

func (p *Processor) describe(userAgent string) string {
	if p.devices == nil {
		return userAgent
	}
	return p.devices.Describe(userAgent)
}

// resolveCountry never fails: every lookup problem collapses to CountryUnknown.
func (p *Processor) resolveCountry(ctx context.Context, log *zap.Logger, ip string) string {
	if IsLocalAddress(ip) {
		return p.config.DevCountry
	}
	if net.ParseIP(ip) == nil || p.geo == nil {
		return domain.CountryUnknown
	}

	country, err := p.geo.Country(ctx, ip)
	if err != nil {
		log.Warn("geolocation failed", zap.String("ip", ip), zap.Error(err))
		return domain.CountryUnknown
	}
	return country
}

// updateWithRetry retries the store update with exponential backoff. A click
// deleted in the meantime is not retried.
func (p *Processor) updateWithRetry(ctx context.Context, log *zap.Logger, clickID int64, device, country string) error {
	var lastErr error

	for attempt := 1; attempt <= p.config.RetryAttempts; attempt++ {
		err := p.store.UpdateClickEnrichment(ctx, clickID, device, country)
		if err == nil {
			if attempt > 1 {
				log.Info("click enrichment succeeded after retry",
					zap.Int64("click_id", clickID),
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}
		if errors.Is(err, repository.ErrClickNotFound) {
			return err
		}

		lastErr = err
		if attempt == p.config.RetryAttempts {
			break
		}

		delay := p.config.RetryDelay * time.Duration(1<<(attempt-1))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("after %d attempts: %w", p.config.RetryAttempts, lastErr)
}
