package models

import "time"

// Program tags a timetable with the school program it belongs to.
type Program string

const (
	ProgramGeneral       Program = "General"
	ProgramJuniorPrimary Program = "JP"
	ProgramPrimaryYears  Program = "PY"
	ProgramSeniorYears   Program = "SY"
)

// Programs lists every valid program in display order.
var Programs = []Program{ProgramGeneral, ProgramJuniorPrimary, ProgramPrimaryYears, ProgramSeniorYears}

var programLabels = map[Program]string{
	ProgramGeneral:       "All Staff",
	ProgramJuniorPrimary: "Junior Primary",
	ProgramPrimaryYears:  "Primary Years",
	ProgramSeniorYears:   "Senior Years",
}

// Valid reports whether the program is one of the fixed set.
func (p Program) Valid() bool {
	_, ok := programLabels[p]
	return ok
}

// Label returns the human-facing program name.
func (p Program) Label() string {
	if label, ok := programLabels[p]; ok {
		return label
	}
	return string(p)
}

// TimetableRecord is one immutable uploaded timetable version. Updating the
// timetable means inserting a new record; rows are never edited in place.
type TimetableRecord struct {
	ID         int64     `db:"id" json:"id"`
	Program    Program   `db:"program" json:"program"`
	Filename   string    `db:"filename" json:"filename"`
	FileData   []byte    `db:"file_data" json:"-"`
	Label      string    `db:"label" json:"label"`
	UploadedBy string    `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploadedAt"`
}

// TimetableSummary is record metadata without the binary payload, as served
// by history listings. Current marks the newest row per program; CanDelete
// tells clients to disable the delete action on it.
type TimetableSummary struct {
	ID         int64     `db:"id" json:"id"`
	Program    Program   `db:"program" json:"program"`
	Filename   string    `db:"filename" json:"filename"`
	Label      string    `db:"label" json:"label"`
	UploadedBy string    `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploadedAt"`
	Current    bool      `db:"-" json:"current"`
	CanDelete  bool      `db:"-" json:"canDelete"`
}

// ProgramInfo describes one program tab for the presentation layer.
type ProgramInfo struct {
	Program Program `json:"program"`
	Label   string  `json:"label"`
}
