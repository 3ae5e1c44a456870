package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/clc-lbu/timetable-api/internal/models"
)

// Week label markers shown outside term time.
const (
	PreTermLabel  = "Week 0 — Pre-Term"
	HolidaysLabel = "School Holidays"
)

// CalendarService computes the term/week header label from a fixed table of
// school terms. Pure date arithmetic: no I/O, no mutable state.
type CalendarService struct {
	terms []models.Term
}

// NewCalendarService builds the service over a term table sorted by start date.
func NewCalendarService(terms []models.Term) *CalendarService {
	sorted := make([]models.Term, len(terms))
	copy(sorted, terms)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].FirstMonday.Before(sorted[j].FirstMonday)
	})
	return &CalendarService{terms: sorted}
}

// DefaultTerms returns the SA school calendar for 2026.
func DefaultTerms() []models.Term {
	return []models.Term{
		{Number: 1, FirstMonday: time.Date(2026, time.January, 26, 0, 0, 0, 0, time.UTC), Weeks: 11},
		{Number: 2, FirstMonday: time.Date(2026, time.April, 27, 0, 0, 0, 0, time.UTC), Weeks: 10},
		{Number: 3, FirstMonday: time.Date(2026, time.July, 20, 0, 0, 0, 0, time.UTC), Weeks: 10},
		{Number: 4, FirstMonday: time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC), Weeks: 9},
	}
}

// ParseTerms reads "n:YYYY-MM-DD:weeks" tuples from configuration.
func ParseTerms(tuples []string) ([]models.Term, error) {
	terms := make([]models.Term, 0, len(tuples))
	for _, tuple := range tuples {
		parts := strings.Split(strings.TrimSpace(tuple), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid term tuple %q", tuple)
		}
		number, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid term number in %q: %w", tuple, err)
		}
		firstMonday, err := time.ParseInLocation("2006-01-02", parts[1], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid term start in %q: %w", tuple, err)
		}
		weeks, err := strconv.Atoi(parts[2])
		if err != nil || weeks <= 0 {
			return nil, fmt.Errorf("invalid week count in %q", tuple)
		}
		terms = append(terms, models.Term{Number: number, FirstMonday: firstMonday, Weeks: weeks})
	}
	return terms, nil
}

// WeekLabel returns "Term {n} · Week {w}" when today falls inside a term,
// the pre-term marker before the first term starts, and the holidays marker
// in any gap between or after terms. The first and last day of a term are
// both in-term.
func (s *CalendarService) WeekLabel(today time.Time) string {
	day := dateOnly(today)
	for _, term := range s.terms {
		start := dateOnly(term.FirstMonday)
		end := dateOnly(term.End())
		if day.Before(start) || day.After(end) {
			continue
		}
		week := int(day.Sub(start).Hours()/24)/7 + 1
		return fmt.Sprintf("Term %d · Week %d", term.Number, week)
	}
	if len(s.terms) > 0 && day.Before(dateOnly(s.terms[0].FirstMonday)) {
		return PreTermLabel
	}
	return HolidaysLabel
}

// Terms exposes the configured table (read-only copy).
func (s *CalendarService) Terms() []models.Term {
	out := make([]models.Term, len(s.terms))
	copy(out, s.terms)
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
