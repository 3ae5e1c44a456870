package dto

import (
	"time"

	"github.com/clc-lbu/timetable-api/internal/models"
)

// CurrentTimetableResponse carries the current record's metadata.
type CurrentTimetableResponse struct {
	ID         int64          `json:"id"`
	Program    models.Program `json:"program"`
	Filename   string         `json:"filename"`
	Label      string         `json:"label"`
	UploadedBy string         `json:"uploadedBy"`
	UploadedAt time.Time      `json:"uploadedAt"`
}

// PagesResponse returns rendered page images for the current record.
type PagesResponse struct {
	ID        int64    `json:"id"`
	PageCount int      `json:"pageCount"`
	Pages     []string `json:"pages"` // base64 PNG, in page order
}

// PruneRequest asks to remove old versions of a program, keeping the newest.
type PruneRequest struct {
	Keep int `json:"keep"`
}

// PruneResponse reports how many versions were removed.
type PruneResponse struct {
	Program models.Program `json:"program"`
	Removed int            `json:"removed"`
}
