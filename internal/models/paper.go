package models

import (
	"strings"
	"time"
)

// Term is the examination window a paper was set for.
type Term string

const (
	TermMidSem Term = "MidSem"
	TermEndSem Term = "EndSem"
)

// Valid reports whether t is MidSem or EndSem.
func (t Term) Valid() bool {
	return t == TermMidSem || t == TermEndSem
}

// PaperFile points to the stored PDF of a paper.
type PaperFile struct {
	URL string `json:"url"`
	Key string `json:"-"`
}

// Paper is a previous-year exam paper.
type Paper struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	Year       int       `json:"year"`
	Semester   int       `json:"semester"`
	Term       Term      `json:"term"`
	File       PaperFile `json:"file"`
	UploadedBy string    `json:"uploadedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PaperFilter narrows a paper list. Zero-valued fields are ignored; every
// set field must match.
type PaperFilter struct {
	// Subject is matched as a case-insensitive substring.
	Subject  string
	Year     int
	Semester int
	Term     Term
}

// Empty reports whether no field of the filter is set.
func (f PaperFilter) Empty() bool {
	return strings.TrimSpace(f.Subject) == "" && f.Year == 0 && f.Semester == 0 && f.Term == ""
}

// Match reports whether p satisfies every set field of f.
func (f PaperFilter) Match(p Paper) bool {
	if f.Year != 0 && p.Year != f.Year {
		return false
	}
	if f.Semester != 0 && p.Semester != f.Semester {
		return false
	}
	if f.Term != "" && p.Term != f.Term {
		return false
	}
	if s := strings.TrimSpace(f.Subject); s != "" &&
		!strings.Contains(strings.ToLower(p.Subject), strings.ToLower(s)) {
		return false
	}
	return true
}

// Apply returns the papers matching f, preserving order.
func (f PaperFilter) Apply(papers []Paper) []Paper {
	out := make([]Paper, 0, len(papers))
	for _, p := range papers {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
