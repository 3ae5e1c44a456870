package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clc-lbu/timetable-api/internal/models"
	appErrors "github.com/clc-lbu/timetable-api/pkg/errors"
	"github.com/clc-lbu/timetable-api/pkg/jobs"
	"github.com/clc-lbu/timetable-api/pkg/render"
)

type pageCacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type prewarmEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// RenderServiceConfig tunes render behaviour.
type RenderServiceConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	Prewarm  bool
}

// RenderService turns a record's PDF payload into page images. Rendering is
// a cancellable unit of work bounded by a timeout; results are cached per
// record id, and a failure leaves the raw-download path untouched.
type RenderService struct {
	renderer render.PageRenderer
	cache    pageCacheStore
	metrics  *MetricsService
	logger   *zap.Logger
	queue    prewarmEnqueuer
	cfg      RenderServiceConfig
}

// NewRenderService constructs the service.
func NewRenderService(renderer render.PageRenderer, cache pageCacheStore, metrics *MetricsService, logger *zap.Logger, cfg RenderServiceConfig) *RenderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 12 * time.Hour
	}
	return &RenderService{
		renderer: renderer,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// AttachQueue wires the background prewarm queue. Optional; without it
// uploads simply render on first view.
func (s *RenderService) AttachQueue(queue prewarmEnqueuer) {
	s.queue = queue
}

// Pages returns the rendered page images for a record, serving from cache
// when possible.
func (s *RenderService) Pages(ctx context.Context, record *models.TimetableRecord) ([][]byte, error) {
	if record == nil {
		return nil, appErrors.ErrNotFound
	}
	key := pageCacheKey(record.ID)
	if s.cache != nil {
		var cached [][]byte
		start := time.Now()
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true, time.Since(start))
			}
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("page cache read failed", zap.Int64("id", record.ID), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false, time.Since(start))
		}
	}
	return s.renderAndCache(ctx, record)
}

// PrewarmAsync schedules a background render so the first viewer gets a
// cache hit. No-op when prewarming is disabled or the queue is absent.
func (s *RenderService) PrewarmAsync(record *models.TimetableRecord) {
	if !s.cfg.Prewarm || s.queue == nil || record == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "render_prewarm",
		Payload: record,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue render prewarm", zap.Int64("id", record.ID), zap.Error(err))
	}
}

// PrewarmJob is the queue handler rendering a freshly uploaded record.
func (s *RenderService) PrewarmJob(ctx context.Context, job jobs.Job) error {
	record, ok := job.Payload.(*models.TimetableRecord)
	if !ok || record == nil {
		return fmt.Errorf("render_prewarm: unexpected payload %T", job.Payload)
	}
	_, err := s.renderAndCache(ctx, record)
	return err
}

// InvalidateRecord drops cached pages for a deleted record.
func (s *RenderService) InvalidateRecord(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, pageCacheKey(id)); err != nil {
		s.logger.Warn("page cache invalidation failed", zap.Int64("id", id), zap.Error(err))
	}
}

func (s *RenderService) renderAndCache(ctx context.Context, record *models.TimetableRecord) ([][]byte, error) {
	if s.renderer == nil {
		return nil, appErrors.Clone(appErrors.ErrRenderFailed, "no renderer configured")
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	pages, err := s.renderer.Render(renderCtx, record.FileData)
	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveRender(duration, err == nil)
	}
	if err != nil {
		s.logger.Warn("pdf render failed, download fallback remains available",
			zap.Int64("id", record.ID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrRenderFailed.Code, appErrors.ErrRenderFailed.Status, "could not render PDF pages")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, pageCacheKey(record.ID), pages, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("page cache write failed", zap.Int64("id", record.ID), zap.Error(err))
		}
	}
	return pages, nil
}

func pageCacheKey(id int64) string {
	return fmt.Sprintf("timetable:pages:%d", id)
}
