package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clc-lbu/timetable-api/internal/dto"
	"github.com/clc-lbu/timetable-api/internal/models"
	"github.com/clc-lbu/timetable-api/internal/service"
	appErrors "github.com/clc-lbu/timetable-api/pkg/errors"
	"github.com/clc-lbu/timetable-api/pkg/response"
)

type timetableManager interface {
	Save(ctx context.Context, upload service.TimetableUpload) (*models.TimetableRecord, error)
	Current(ctx context.Context, program models.Program) (*models.TimetableRecord, bool, error)
	Get(ctx context.Context, id int64) (*models.TimetableRecord, error)
	History(ctx context.Context, program models.Program) ([]models.TimetableSummary, bool, error)
	Delete(ctx context.Context, id int64) error
	Prune(ctx context.Context, program models.Program, keep int) (int, error)
}

type pageProvider interface {
	Pages(ctx context.Context, record *models.TimetableRecord) ([][]byte, error)
}

type historyExporter interface {
	HistoryReport(ctx context.Context, program models.Program, format string) (*service.ExportResult, error)
}

// TimetableHandler manages timetable HTTP endpoints.
type TimetableHandler struct {
	timetables timetableManager
	pages      pageProvider
	exports    historyExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(timetables timetableManager, pages pageProvider, exports historyExporter) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, pages: pages, exports: exports}
}

// Programs godoc
// @Summary List program tabs
// @Tags Programs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /programs [get]
func (h *TimetableHandler) Programs(c *gin.Context) {
	infos := make([]models.ProgramInfo, 0, len(models.Programs))
	for _, program := range models.Programs {
		infos = append(infos, models.ProgramInfo{Program: program, Label: program.Label()})
	}
	response.JSON(c, http.StatusOK, infos, nil)
}

// Current godoc
// @Summary Get the current timetable metadata for a program
// @Tags Timetables
// @Produce json
// @Param program path string true "Program code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /programs/{program}/current [get]
func (h *TimetableHandler) Current(c *gin.Context) {
	program, err := programParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, degraded, err := h.timetables.Current(c.Request.Context(), program)
	if err != nil {
		response.ErrorWithMeta(c, err, degradedMeta(degraded))
		return
	}
	response.JSON(c, http.StatusOK, dto.CurrentTimetableResponse{
		ID:         record.ID,
		Program:    record.Program,
		Filename:   record.Filename,
		Label:      record.Label,
		UploadedBy: record.UploadedBy,
		UploadedAt: record.UploadedAt,
	}, nil)
}

// CurrentPages godoc
// @Summary Get the current timetable rendered as page images
// @Tags Timetables
// @Produce json
// @Param program path string true "Program code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /programs/{program}/current/pages [get]
func (h *TimetableHandler) CurrentPages(c *gin.Context) {
	program, err := programParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, degraded, err := h.timetables.Current(c.Request.Context(), program)
	if err != nil {
		response.ErrorWithMeta(c, err, degradedMeta(degraded))
		return
	}
	pages, err := h.pages.Pages(c.Request.Context(), record)
	if err != nil {
		response.Error(c, err)
		return
	}
	encoded := make([]string, 0, len(pages))
	for _, page := range pages {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(page))
	}
	response.JSON(c, http.StatusOK, dto.PagesResponse{
		ID:        record.ID,
		PageCount: len(encoded),
		Pages:     encoded,
	}, nil)
}

// CurrentDownload godoc
// @Summary Download the current timetable PDF
// @Tags Timetables
// @Produce application/pdf
// @Param program path string true "Program code"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /programs/{program}/current/download [get]
func (h *TimetableHandler) CurrentDownload(c *gin.Context) {
	program, err := programParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, degraded, err := h.timetables.Current(c.Request.Context(), program)
	if err != nil {
		response.ErrorWithMeta(c, err, degradedMeta(degraded))
		return
	}
	servePDF(c, record)
}

// History godoc
// @Summary List every uploaded version for a program
// @Tags Timetables
// @Produce json
// @Param program path string true "Program code"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /programs/{program}/history [get]
func (h *TimetableHandler) History(c *gin.Context) {
	program, err := programParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summaries, degraded, err := h.timetables.History(c.Request.Context(), program)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, degradedMeta(degraded))
}

// ExportHistory godoc
// @Summary Export a program's upload history as CSV or PDF
// @Tags Timetables
// @Produce octet-stream
// @Param program path string true "Program code"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /programs/{program}/history/export [get]
func (h *TimetableHandler) ExportHistory(c *gin.Context) {
	program, err := programParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := c.DefaultQuery("format", "csv")
	result, err := h.exports.HistoryReport(c.Request.Context(), program, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

// Upload godoc
// @Summary Upload a new timetable version
// @Tags Timetables
// @Accept multipart/form-data
// @Produce json
// @Param program formData string true "Program code"
// @Param label formData string true "Version label"
// @Param uploadedBy formData string false "Uploader name"
// @Param file formData file true "Timetable PDF"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /timetables [post]
func (h *TimetableHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a PDF file is required"))
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "only PDF files are accepted"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer src.Close()

	upload := service.TimetableUpload{
		Filename:   fileHeader.Filename,
		Label:      c.PostForm("label"),
		Program:    c.PostForm("program"),
		UploadedBy: c.PostForm("uploadedBy"),
		Size:       fileHeader.Size,
		Content:    src,
	}
	record, err := h.timetables.Save(c.Request.Context(), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.CurrentTimetableResponse{
		ID:         record.ID,
		Program:    record.Program,
		Filename:   record.Filename,
		Label:      record.Label,
		UploadedBy: record.UploadedBy,
		UploadedAt: record.UploadedAt,
	})
}

// Delete godoc
// @Summary Delete one timetable version
// @Tags Timetables
// @Produce json
// @Param id path int true "Version ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.timetables.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download one exact timetable version
// @Tags Timetables
// @Produce application/pdf
// @Param id path int true "Version ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /timetables/{id}/download [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.timetables.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	servePDF(c, record)
}

// Prune godoc
// @Summary Remove old versions of a program, keeping the newest
// @Tags Timetables
// @Accept json
// @Produce json
// @Param program path string true "Program code"
// @Param payload body dto.PruneRequest false "Prune options"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /programs/{program}/prune [post]
func (h *TimetableHandler) Prune(c *gin.Context) {
	program, err := programParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.PruneRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid prune payload"))
			return
		}
	}
	removed, err := h.timetables.Prune(c.Request.Context(), program, req.Keep)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PruneResponse{Program: program, Removed: removed}, nil)
}

func programParam(c *gin.Context) (models.Program, error) {
	program := models.Program(c.Param("program"))
	if !program.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown program")
	}
	return program, nil
}

func idParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid timetable id")
	}
	return id, nil
}

func servePDF(c *gin.Context, record *models.TimetableRecord) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", record.FileData)
}

func degradedMeta(degraded bool) map[string]interface{} {
	if !degraded {
		return nil
	}
	return map[string]interface{}{
		"degraded": true,
		"notice":   "timetable store temporarily unavailable, showing what we can",
	}
}
