package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clc-lbu/timetable-api/internal/models"
	appErrors "github.com/clc-lbu/timetable-api/pkg/errors"
)

type timetableStoreStub struct {
	records map[int64]*models.TimetableRecord
	nextID  int64
	failAll bool
}

func newTimetableStoreStub() *timetableStoreStub {
	return &timetableStoreStub{records: make(map[int64]*models.TimetableRecord), nextID: 1}
}

func (s *timetableStoreStub) Create(ctx context.Context, record *models.TimetableRecord) error {
	if s.failAll {
		return errors.New("store down")
	}
	record.ID = s.nextID
	s.nextID++
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *timetableStoreStub) byProgram(program models.Program) []*models.TimetableRecord {
	var out []*models.TimetableRecord
	for _, r := range s.records {
		if r.Program == program {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out
}

func (s *timetableStoreStub) FindCurrent(ctx context.Context, program models.Program) (*models.TimetableRecord, error) {
	if s.failAll {
		return nil, errors.New("store down")
	}
	rows := s.byProgram(program)
	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}
	clone := *rows[0]
	return &clone, nil
}

func (s *timetableStoreStub) FindByID(ctx context.Context, id int64) (*models.TimetableRecord, error) {
	if s.failAll {
		return nil, errors.New("store down")
	}
	if r, ok := s.records[id]; ok {
		clone := *r
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *timetableStoreStub) ListByProgram(ctx context.Context, program models.Program) ([]models.TimetableSummary, error) {
	if s.failAll {
		return nil, errors.New("store down")
	}
	rows := s.byProgram(program)
	out := make([]models.TimetableSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.TimetableSummary{
			ID:         r.ID,
			Program:    r.Program,
			Filename:   r.Filename,
			Label:      r.Label,
			UploadedBy: r.UploadedBy,
			UploadedAt: r.UploadedAt,
		})
	}
	return out, nil
}

func (s *timetableStoreStub) Delete(ctx context.Context, id int64) error {
	if s.failAll {
		return errors.New("store down")
	}
	if _, ok := s.records[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.records, id)
	return nil
}

func (s *timetableStoreStub) PruneProgram(ctx context.Context, program models.Program, keep int) (int, error) {
	if s.failAll {
		return 0, errors.New("store down")
	}
	rows := s.byProgram(program)
	removed := 0
	for i, r := range rows {
		if i >= keep {
			delete(s.records, r.ID)
			removed++
		}
	}
	return removed, nil
}

type prewarmStub struct {
	records []*models.TimetableRecord
}

func (p *prewarmStub) PrewarmAsync(record *models.TimetableRecord) {
	p.records = append(p.records, record)
}

type invalidatorStub struct {
	ids []int64
}

func (i *invalidatorStub) InvalidateRecord(ctx context.Context, id int64) {
	i.ids = append(i.ids, id)
}

func seedRecord(t *testing.T, store *timetableStoreStub, program models.Program, label string, uploadedAt time.Time) *models.TimetableRecord {
	t.Helper()
	record := &models.TimetableRecord{
		Program:    program,
		Filename:   label + ".pdf",
		FileData:   []byte("%PDF-1.4 " + label),
		Label:      label,
		UploadedBy: "Admin",
		UploadedAt: uploadedAt,
	}
	require.NoError(t, store.Create(context.Background(), record))
	return record
}

func TestTimetableServiceSaveRoundTrip(t *testing.T) {
	store := newTimetableStoreStub()
	prewarm := &prewarmStub{}
	svc := NewTimetableService(store, prewarm, nil, nil, nil, TimetableServiceConfig{})

	payload := []byte("%PDF-1.4 example")
	record, err := svc.Save(context.Background(), TimetableUpload{
		Filename: "term1.pdf",
		Label:    "  Term 1 · Week 6  ",
		Program:  "JP",
		Size:     int64(len(payload)),
		Content:  bytes.NewReader(payload),
	})
	require.NoError(t, err)
	require.NotZero(t, record.ID)
	require.Equal(t, "Term 1 · Week 6", record.Label)
	require.Equal(t, "Admin", record.UploadedBy)
	require.False(t, record.UploadedAt.IsZero())
	require.Len(t, prewarm.records, 1)

	stored, err := svc.Get(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, payload, stored.FileData)
}

func TestTimetableServiceSaveRejectsInvalid(t *testing.T) {
	store := newTimetableStoreStub()
	svc := NewTimetableService(store, nil, nil, nil, nil, TimetableServiceConfig{MaxFileSize: 16})

	payload := []byte("%PDF-1.4")
	base := TimetableUpload{
		Filename: "x.pdf",
		Label:    "Week 1",
		Program:  "SY",
		Size:     int64(len(payload)),
	}

	blank := base
	blank.Label = "   "
	blank.Content = bytes.NewReader(payload)
	_, err := svc.Save(context.Background(), blank)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	noFile := base
	noFile.Size = 0
	noFile.Content = nil
	_, err = svc.Save(context.Background(), noFile)
	require.Error(t, err)

	badProgram := base
	badProgram.Program = "HS"
	badProgram.Content = bytes.NewReader(payload)
	_, err = svc.Save(context.Background(), badProgram)
	require.Error(t, err)

	tooBig := base
	tooBig.Size = 64
	tooBig.Content = bytes.NewReader(bytes.Repeat([]byte("a"), 64))
	_, err = svc.Save(context.Background(), tooBig)
	require.Error(t, err)

	require.Empty(t, store.records)
}

func TestTimetableServiceCurrentPicksNewest(t *testing.T) {
	store := newTimetableStoreStub()
	svc := NewTimetableService(store, nil, nil, nil, nil, TimetableServiceConfig{})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	seedRecord(t, store, models.ProgramJuniorPrimary, "old", base)
	newest := seedRecord(t, store, models.ProgramJuniorPrimary, "new", base.Add(time.Hour))
	seedRecord(t, store, models.ProgramSeniorYears, "other-program", base.Add(2*time.Hour))

	record, degraded, err := svc.Current(context.Background(), models.ProgramJuniorPrimary)
	require.NoError(t, err)
	require.False(t, degraded)
	require.Equal(t, newest.ID, record.ID)
}

func TestTimetableServiceCurrentEmpty(t *testing.T) {
	svc := NewTimetableService(newTimetableStoreStub(), nil, nil, nil, nil, TimetableServiceConfig{})

	_, degraded, err := svc.Current(context.Background(), models.ProgramGeneral)
	require.Error(t, err)
	require.False(t, degraded)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceCurrentDegradesOnStoreFailure(t *testing.T) {
	store := newTimetableStoreStub()
	store.failAll = true
	svc := NewTimetableService(store, nil, nil, nil, nil, TimetableServiceConfig{})

	_, degraded, err := svc.Current(context.Background(), models.ProgramGeneral)
	require.Error(t, err)
	require.True(t, degraded)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceHistoryFlagsCurrent(t *testing.T) {
	store := newTimetableStoreStub()
	svc := NewTimetableService(store, nil, nil, nil, nil, TimetableServiceConfig{})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	seedRecord(t, store, models.ProgramPrimaryYears, "v1", base)
	seedRecord(t, store, models.ProgramPrimaryYears, "v2", base.Add(time.Hour))

	summaries, degraded, err := svc.History(context.Background(), models.ProgramPrimaryYears)
	require.NoError(t, err)
	require.False(t, degraded)
	require.Len(t, summaries, 2)
	require.True(t, summaries[0].Current)
	require.False(t, summaries[0].CanDelete)
	require.False(t, summaries[1].Current)
	require.True(t, summaries[1].CanDelete)
}

func TestTimetableServiceHistoryDegradesToEmpty(t *testing.T) {
	store := newTimetableStoreStub()
	store.failAll = true
	svc := NewTimetableService(store, nil, nil, nil, nil, TimetableServiceConfig{})

	summaries, degraded, err := svc.History(context.Background(), models.ProgramGeneral)
	require.NoError(t, err)
	require.True(t, degraded)
	require.Empty(t, summaries)
}

func TestTimetableServiceDeleteRecomputesCurrent(t *testing.T) {
	store := newTimetableStoreStub()
	invalidator := &invalidatorStub{}
	svc := NewTimetableService(store, nil, invalidator, nil, nil, TimetableServiceConfig{})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	older := seedRecord(t, store, models.ProgramGeneral, "v1", base)
	newest := seedRecord(t, store, models.ProgramGeneral, "v2", base.Add(time.Hour))

	require.NoError(t, svc.Delete(context.Background(), newest.ID))
	require.Equal(t, []int64{newest.ID}, invalidator.ids)

	record, _, err := svc.Current(context.Background(), models.ProgramGeneral)
	require.NoError(t, err)
	require.Equal(t, older.ID, record.ID)
}

func TestTimetableServiceDeleteMissingIsNotFound(t *testing.T) {
	svc := NewTimetableService(newTimetableStoreStub(), nil, nil, nil, nil, TimetableServiceConfig{})

	err := svc.Delete(context.Background(), 42)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServicePruneKeepsNewest(t *testing.T) {
	store := newTimetableStoreStub()
	svc := NewTimetableService(store, nil, nil, nil, nil, TimetableServiceConfig{})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	seedRecord(t, store, models.ProgramGeneral, "v1", base)
	seedRecord(t, store, models.ProgramGeneral, "v2", base.Add(time.Hour))
	newest := seedRecord(t, store, models.ProgramGeneral, "v3", base.Add(2*time.Hour))

	removed, err := svc.Prune(context.Background(), models.ProgramGeneral, 0)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	record, _, err := svc.Current(context.Background(), models.ProgramGeneral)
	require.NoError(t, err)
	require.Equal(t, newest.ID, record.ID)
}
