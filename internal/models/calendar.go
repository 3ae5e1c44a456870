package models

import "time"

// Term is one school term: a number, the Monday it starts on, and how many
// weeks it runs. The first and last day of a term are both in-term.
type Term struct {
	Number      int       `json:"number"`
	FirstMonday time.Time `json:"firstMonday"`
	Weeks       int       `json:"weeks"`
}

// End returns the last in-term day (inclusive).
func (t Term) End() time.Time {
	return t.FirstMonday.AddDate(0, 0, t.Weeks*7-1)
}
