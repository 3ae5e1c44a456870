package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clc-lbu/timetable-api/internal/models"
	"github.com/clc-lbu/timetable-api/internal/service"
	appErrors "github.com/clc-lbu/timetable-api/pkg/errors"
	"github.com/clc-lbu/timetable-api/pkg/response"
)

type timetableManagerMock struct {
	record     *models.TimetableRecord
	summaries  []models.TimetableSummary
	degraded   bool
	err        error
	pruned     int
	lastUpload service.TimetableUpload
	lastKeep   int
	deletedID  int64
}

func (m *timetableManagerMock) Save(ctx context.Context, upload service.TimetableUpload) (*models.TimetableRecord, error) {
	m.lastUpload = upload
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

func (m *timetableManagerMock) Current(ctx context.Context, program models.Program) (*models.TimetableRecord, bool, error) {
	if m.err != nil {
		return nil, m.degraded, m.err
	}
	return m.record, m.degraded, nil
}

func (m *timetableManagerMock) Get(ctx context.Context, id int64) (*models.TimetableRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

func (m *timetableManagerMock) History(ctx context.Context, program models.Program) ([]models.TimetableSummary, bool, error) {
	return m.summaries, m.degraded, m.err
}

func (m *timetableManagerMock) Delete(ctx context.Context, id int64) error {
	m.deletedID = id
	return m.err
}

func (m *timetableManagerMock) Prune(ctx context.Context, program models.Program, keep int) (int, error) {
	m.lastKeep = keep
	return m.pruned, m.err
}

type pageProviderMock struct {
	pages [][]byte
	err   error
}

func (m *pageProviderMock) Pages(ctx context.Context, record *models.TimetableRecord) ([][]byte, error) {
	return m.pages, m.err
}

type historyExporterMock struct {
	result *service.ExportResult
	err    error
}

func (m *historyExporterMock) HistoryReport(ctx context.Context, program models.Program, format string) (*service.ExportResult, error) {
	return m.result, m.err
}

func sampleRecord() *models.TimetableRecord {
	return &models.TimetableRecord{
		ID:         3,
		Program:    models.ProgramJuniorPrimary,
		Filename:   "week6.pdf",
		FileData:   []byte("%PDF-1.4 sample"),
		Label:      "Term 1 · Week 6",
		UploadedBy: "Admin",
		UploadedAt: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
	}
}

func newTimetableTestContext(t *testing.T, method, target string, body io.Reader) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestTimetableHandlerPrograms(t *testing.T) {
	handler := NewTimetableHandler(&timetableManagerMock{}, nil, nil)
	c, w := newTimetableTestContext(t, http.MethodGet, "/programs", nil)

	handler.Programs(c)
	require.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	programs, ok := envelope.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, programs, 4)
}

func TestTimetableHandlerCurrent(t *testing.T) {
	mockSvc := &timetableManagerMock{record: sampleRecord()}
	handler := NewTimetableHandler(mockSvc, nil, nil)
	c, w := newTimetableTestContext(t, http.MethodGet, "/programs/JP/current", nil)
	c.Params = gin.Params{{Key: "program", Value: "JP"}}

	handler.Current(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"label":"Term 1 · Week 6"`)
}

func TestTimetableHandlerCurrentUnknownProgram(t *testing.T) {
	handler := NewTimetableHandler(&timetableManagerMock{}, nil, nil)
	c, w := newTimetableTestContext(t, http.MethodGet, "/programs/HS/current", nil)
	c.Params = gin.Params{{Key: "program", Value: "HS"}}

	handler.Current(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerCurrentDegradedNotice(t *testing.T) {
	mockSvc := &timetableManagerMock{
		err:      appErrors.Clone(appErrors.ErrNotFound, "timetable temporarily unavailable"),
		degraded: true,
	}
	handler := NewTimetableHandler(mockSvc, nil, nil)
	c, w := newTimetableTestContext(t, http.MethodGet, "/programs/General/current", nil)
	c.Params = gin.Params{{Key: "program", Value: "General"}}

	handler.Current(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Meta)
	assert.Equal(t, true, envelope.Meta["degraded"])
	assert.NotEmpty(t, envelope.Meta["notice"])
}

func TestTimetableHandlerCurrentPages(t *testing.T) {
	mockSvc := &timetableManagerMock{record: sampleRecord()}
	pages := &pageProviderMock{pages: [][]byte{[]byte("png-1"), []byte("png-2")}}
	handler := NewTimetableHandler(mockSvc, pages, nil)
	c, w := newTimetableTestContext(t, http.MethodGet, "/programs/JP/current/pages", nil)
	c.Params = gin.Params{{Key: "program", Value: "JP"}}

	handler.CurrentPages(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pageCount":2`)
}

func TestTimetableHandlerCurrentPagesRenderFailure(t *testing.T) {
	mockSvc := &timetableManagerMock{record: sampleRecord()}
	pages := &pageProviderMock{err: appErrors.Clone(appErrors.ErrRenderFailed, "could not render PDF pages")}
	handler := NewTimetableHandler(mockSvc, pages, nil)
	c, w := newTimetableTestContext(t, http.MethodGet, "/programs/JP/current/pages", nil)
	c.Params = gin.Params{{Key: "program", Value: "JP"}}

	handler.CurrentPages(c)
	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestTimetableHandlerCurrentDownload(t *testing.T) {
	mockSvc := &timetableManagerMock{record: sampleRecord()}
	handler := NewTimetableHandler(mockSvc, nil, nil)
	c, w := newTimetableTestContext(t, http.MethodGet, "/programs/JP/current/download", nil)
	c.Params = gin.Params{{Key: "program", Value: "JP"}}

	handler.CurrentDownload(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "week6.pdf")
	assert.Equal(t, []byte("%PDF-1.4 sample"), w.Body.Bytes())
}

func buildUploadForm(t *testing.T, filename string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	form := multipart.NewWriter(buf)
	require.NoError(t, form.WriteField("program", "JP"))
	require.NoError(t, form.WriteField("label", "Term 1 · Week 6"))
	require.NoError(t, form.WriteField("uploadedBy", "Office"))
	part, err := form.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 sample"))
	require.NoError(t, err)
	require.NoError(t, form.Close())
	return buf, form.FormDataContentType()
}

func TestTimetableHandlerUpload(t *testing.T) {
	mockSvc := &timetableManagerMock{record: sampleRecord()}
	handler := NewTimetableHandler(mockSvc, nil, nil)

	buf, contentType := buildUploadForm(t, "week6.pdf")
	c, w := newTimetableTestContext(t, http.MethodPost, "/timetables", buf)
	c.Request.Header.Set("Content-Type", contentType)

	handler.Upload(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "JP", mockSvc.lastUpload.Program)
	assert.Equal(t, "Term 1 · Week 6", mockSvc.lastUpload.Label)
	assert.Equal(t, "Office", mockSvc.lastUpload.UploadedBy)
	assert.Equal(t, "week6.pdf", mockSvc.lastUpload.Filename)
}

func TestTimetableHandlerUploadRejectsNonPDF(t *testing.T) {
	handler := NewTimetableHandler(&timetableManagerMock{}, nil, nil)

	buf, contentType := buildUploadForm(t, "week6.docx")
	c, w := newTimetableTestContext(t, http.MethodPost, "/timetables", buf)
	c.Request.Header.Set("Content-Type", contentType)

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerUploadMissingFile(t *testing.T) {
	handler := NewTimetableHandler(&timetableManagerMock{}, nil, nil)

	buf := &bytes.Buffer{}
	form := multipart.NewWriter(buf)
	require.NoError(t, form.WriteField("program", "JP"))
	require.NoError(t, form.WriteField("label", "Week 6"))
	require.NoError(t, form.Close())
	c, w := newTimetableTestContext(t, http.MethodPost, "/timetables", buf)
	c.Request.Header.Set("Content-Type", form.FormDataContentType())

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerHistoryDegraded(t *testing.T) {
	mockSvc := &timetableManagerMock{summaries: []models.TimetableSummary{}, degraded: true}
	handler := NewTimetableHandler(mockSvc, nil, nil)
	c, w := newTimetableTestContext(t, http.MethodGet, "/programs/General/history", nil)
	c.Params = gin.Params{{Key: "program", Value: "General"}}

	handler.History(c)
	require.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Meta)
	assert.Equal(t, true, envelope.Meta["degraded"])
}

func TestTimetableHandlerDelete(t *testing.T) {
	mockSvc := &timetableManagerMock{}
	handler := NewTimetableHandler(mockSvc, nil, nil)
	c, w := newTimetableTestContext(t, http.MethodDelete, "/timetables/5", nil)
	c.Params = gin.Params{{Key: "id", Value: "5"}}

	handler.Delete(c)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(5), mockSvc.deletedID)
}

func TestTimetableHandlerDeleteInvalidID(t *testing.T) {
	handler := NewTimetableHandler(&timetableManagerMock{}, nil, nil)
	c, w := newTimetableTestContext(t, http.MethodDelete, "/timetables/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Delete(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerDeleteMissing(t *testing.T) {
	mockSvc := &timetableManagerMock{err: appErrors.Clone(appErrors.ErrNotFound, "timetable version not found")}
	handler := NewTimetableHandler(mockSvc, nil, nil)
	c, w := newTimetableTestContext(t, http.MethodDelete, "/timetables/99", nil)
	c.Params = gin.Params{{Key: "id", Value: "99"}}

	handler.Delete(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerPrune(t *testing.T) {
	mockSvc := &timetableManagerMock{pruned: 2}
	handler := NewTimetableHandler(mockSvc, nil, nil)
	c, w := newTimetableTestContext(t, http.MethodPost, "/programs/General/prune", bytes.NewBufferString(`{"keep":3}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "program", Value: "General"}}

	handler.Prune(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, mockSvc.lastKeep)
	assert.Contains(t, w.Body.String(), `"removed":2`)
}

func TestTimetableHandlerExportHistory(t *testing.T) {
	exporter := &historyExporterMock{result: &service.ExportResult{
		Filename:    "timetable_history_general_20260302_090000.csv",
		ContentType: "text/csv",
		Payload:     []byte("ID,Label\n"),
	}}
	handler := NewTimetableHandler(&timetableManagerMock{}, nil, exporter)
	c, w := newTimetableTestContext(t, http.MethodGet, "/programs/General/history/export?format=csv", nil)
	c.Params = gin.Params{{Key: "program", Value: "General"}}

	handler.ExportHistory(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.Equal(t, "ID,Label\n", w.Body.String())
}
