package service

import (
	"context"
	"time"

	"shawty-backend/internal/analytics"
	"shawty-backend/internal/domain"
	"shawty-backend/internal/repository"

	"go.uber.org/zap"
)

// defaultUserAgent is stored when the request has no User-Agent header.
const defaultUserAgent = "Unknown"

// ClickMeta is what the transport layer knows about a redirect request.
type ClickMeta struct {
	Referrer  string
	UserAgent string
	ClientIP  string
}

// EnrichmentQueue accepts jobs for the background enrichment workers.
type EnrichmentQueue interface {
	Submit(job analytics.Job) error
}

// Recorder writes the click event and the counter increment synchronously,
// then hands the click to the enrichment queue.
type Recorder struct {
	storage repository.Storage
	queue   EnrichmentQueue
	log     *zap.Logger
	now     func() time.Time
}

func NewRecorder(storage repository.Storage, queue EnrichmentQueue, log *zap.Logger) *Recorder {
	return &Recorder{
		storage: storage,
		queue:   queue,
		log:     log,
		now:     time.Now,
	}
}

// Record returns the new click id. repository.ErrClickRejected means the
// link turned inactive or ran out of clicks after it was checked.
func (r *Recorder) Record(ctx context.Context, linkID int64, meta ClickMeta) (int64, error) {
	referrer := meta.Referrer
	if referrer == "" {
		referrer = domain.DefaultReferrer
	}
	userAgent := meta.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	click := &domain.ClickEvent{
		Timestamp: r.now().UTC(),
		Referrer:  referrer,
		UserAgent: userAgent,
		Country:   domain.CountryPending,
	}
	if err := r.storage.RecordClick(ctx, linkID, click); err != nil {
		return 0, err
	}

	if r.queue != nil {
		job := analytics.Job{ClickID: click.ID, UserAgent: userAgent, ClientIP: meta.ClientIP}
		if err := r.queue.Submit(job); err != nil {
			r.log.Warn("click enrichment not scheduled", zap.Int64("click_id", click.ID), zap.Error(err))
		}
	}

	return click.ID, nil
}
