package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clc-lbu/timetable-api/internal/models"
	appErrors "github.com/clc-lbu/timetable-api/pkg/errors"
)

type timetableStore interface {
	Create(ctx context.Context, record *models.TimetableRecord) error
	FindCurrent(ctx context.Context, program models.Program) (*models.TimetableRecord, error)
	FindByID(ctx context.Context, id int64) (*models.TimetableRecord, error)
	ListByProgram(ctx context.Context, program models.Program) ([]models.TimetableSummary, error)
	Delete(ctx context.Context, id int64) error
	PruneProgram(ctx context.Context, program models.Program, keep int) (int, error)
}

type renderPrewarmer interface {
	PrewarmAsync(record *models.TimetableRecord)
}

type pageCacheInvalidator interface {
	InvalidateRecord(ctx context.Context, id int64)
}

// TimetableUpload carries one admin upload.
type TimetableUpload struct {
	Filename   string `validate:"required"`
	Label      string `validate:"required"`
	Program    string `validate:"required"`
	UploadedBy string
	Size       int64
	Content    io.Reader
}

// TimetableServiceConfig bounds uploads and sets attribution defaults.
type TimetableServiceConfig struct {
	MaxFileSize     int64
	DefaultUploader string
}

// TimetableService wraps the store with the domain rules: current = newest
// uploaded_at per program, immutable versions, graceful degradation when the
// store is unreachable.
type TimetableService struct {
	repo      timetableStore
	prewarm   renderPrewarmer
	pageCache pageCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableServiceConfig
}

// NewTimetableService constructs the service with defaults.
func NewTimetableService(repo timetableStore, prewarm renderPrewarmer, pageCache pageCacheInvalidator, validate *validator.Validate, logger *zap.Logger, cfg TimetableServiceConfig) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 20 * 1024 * 1024
	}
	if cfg.DefaultUploader == "" {
		cfg.DefaultUploader = "Admin"
	}
	return &TimetableService{
		repo:      repo,
		prewarm:   prewarm,
		pageCache: pageCache,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Save validates the upload and inserts a new immutable version. uploaded_at
// is assigned here in UTC, never taken from the client. The payload is stored
// as-is; well-formedness only surfaces at render time.
func (s *TimetableService) Save(ctx context.Context, upload TimetableUpload) (*models.TimetableRecord, error) {
	if err := s.validator.Struct(upload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload payload")
	}
	label := strings.TrimSpace(upload.Label)
	if label == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "label must not be empty")
	}
	program := models.Program(upload.Program)
	if !program.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown program")
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a PDF file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}

	data, err := io.ReadAll(upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a PDF file is required")
	}

	uploader := strings.TrimSpace(upload.UploadedBy)
	if uploader == "" {
		uploader = s.cfg.DefaultUploader
	}

	record := &models.TimetableRecord{
		Program:    program,
		Filename:   upload.Filename,
		FileData:   data,
		Label:      label,
		UploadedBy: uploader,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("timetable save failed", zap.String("program", string(program)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "could not save timetable")
	}

	s.logger.Info("timetable uploaded",
		zap.Int64("id", record.ID),
		zap.String("program", string(program)),
		zap.String("label", label),
		zap.String("uploaded_by", uploader),
		zap.Int("size_bytes", len(data)),
	)
	if s.prewarm != nil {
		s.prewarm.PrewarmAsync(record)
	}
	return record, nil
}

// Current returns the newest record for the program. A store failure is
// logged and reported as absent with degraded=true so the caller can keep
// the page alive and show a notice instead of crashing.
func (s *TimetableService) Current(ctx context.Context, program models.Program) (*models.TimetableRecord, bool, error) {
	if !program.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "unknown program")
	}
	record, err := s.repo.FindCurrent(ctx, program)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "no timetable uploaded yet")
		}
		s.logger.Error("timetable current lookup failed", zap.String("program", string(program)), zap.Error(err))
		return nil, true, appErrors.Clone(appErrors.ErrNotFound, "timetable temporarily unavailable")
	}
	return record, false, nil
}

// Get loads one exact version including the payload.
func (s *TimetableService) Get(ctx context.Context, id int64) (*models.TimetableRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		s.logger.Error("timetable lookup failed", zap.Int64("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "could not load timetable")
	}
	return record, nil
}

// History lists every version for a program, newest first. The first row is
// the current one and is flagged non-deletable for the presentation layer.
// Store failures degrade to an empty listing.
func (s *TimetableService) History(ctx context.Context, program models.Program) ([]models.TimetableSummary, bool, error) {
	if !program.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "unknown program")
	}
	summaries, err := s.repo.ListByProgram(ctx, program)
	if err != nil {
		s.logger.Error("timetable history lookup failed", zap.String("program", string(program)), zap.Error(err))
		return []models.TimetableSummary{}, true, nil
	}
	for i := range summaries {
		summaries[i].Current = i == 0
		summaries[i].CanDelete = i != 0
	}
	return summaries, false, nil
}

// Delete removes exactly one version by id. A missing id is a reported
// failure (NOT_FOUND), consistently — never a silent no-op. Deleting the
// current version is permitted; "current" simply recomputes to the
// next-newest row.
func (s *TimetableService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable version not found")
		}
		s.logger.Error("timetable delete failed", zap.Int64("id", id), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "could not delete timetable")
	}
	if s.pageCache != nil {
		s.pageCache.InvalidateRecord(ctx, id)
	}
	s.logger.Info("timetable deleted", zap.Int64("id", id))
	return nil
}

// Prune removes all but the newest keep versions of a program. keep defaults
// to 1 so the current version always survives.
func (s *TimetableService) Prune(ctx context.Context, program models.Program, keep int) (int, error) {
	if !program.Valid() {
		return 0, appErrors.Clone(appErrors.ErrValidation, "unknown program")
	}
	if keep < 1 {
		keep = 1
	}
	removed, err := s.repo.PruneProgram(ctx, program, keep)
	if err != nil {
		s.logger.Error("timetable prune failed", zap.String("program", string(program)), zap.Error(err))
		return 0, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "could not prune timetable versions")
	}
	s.logger.Info("timetable versions pruned",
		zap.String("program", string(program)),
		zap.Int("keep", keep),
		zap.Int("removed", removed),
	)
	return removed, nil
}
