package models

import (
	"errors"
	"time"
)

// ErrNothingToUndo is returned when an Undo mark finds no earlier mark to reverse.
var ErrNothingToUndo = errors.New("nothing to undo")

// AttendanceStatus is a single marking action.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusAbsent  AttendanceStatus = "Absent"
	StatusUndo    AttendanceStatus = "Undo"
)

// Valid reports whether s is Present, Absent or Undo.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusUndo:
		return true
	}
	return false
}

// HistoryEntry records one marking action.
type HistoryEntry struct {
	Status    AttendanceStatus `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
}

// Subject holds attendance counters for one course. History is ordered
// oldest first.
type Subject struct {
	ID              string         `json:"id"`
	OwnerID         string         `json:"ownerId"`
	Name            string         `json:"subject"`
	AttendedClasses int            `json:"attendedClasses"`
	TotalClasses    int            `json:"totalClasses"`
	History         []HistoryEntry `json:"history"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// Percentage returns attended/total as a percentage, or 0 when no class
// has been counted yet.
func (s Subject) Percentage() float64 {
	if s.TotalClasses == 0 {
		return 0
	}
	return float64(s.AttendedClasses) / float64(s.TotalClasses) * 100
}

// RecentHistory returns up to n history entries, most recent first.
func (s Subject) RecentHistory(n int) []HistoryEntry {
	if n <= 0 {
		return nil
	}
	out := make([]HistoryEntry, 0, min(n, len(s.History)))
	for i := len(s.History) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.History[i])
	}
	return out
}

// undoTarget finds the index of the latest Present/Absent entry that has not
// been reversed by a later Undo. It returns -1 when there is none.
func (s Subject) undoTarget() int {
	pending := 0
	for i := len(s.History) - 1; i >= 0; i-- {
		switch s.History[i].Status {
		case StatusUndo:
			pending++
		case StatusPresent, StatusAbsent:
			if pending == 0 {
				return i
			}
			pending--
		}
	}
	return -1
}

// Mark applies a marking action to the counters and appends it to the
// history. Present and Absent count a class; Undo reverses the most recent
// mark that is still in effect. On error s is left unchanged.
func (s *Subject) Mark(status AttendanceStatus, at time.Time) error {
	switch status {
	case StatusPresent:
		s.TotalClasses++
		s.AttendedClasses++
	case StatusAbsent:
		s.TotalClasses++
	case StatusUndo:
		i := s.undoTarget()
		if i < 0 {
			return ErrNothingToUndo
		}
		s.TotalClasses--
		if s.History[i].Status == StatusPresent {
			s.AttendedClasses--
		}
	default:
		return errors.New("unknown attendance status")
	}
	s.History = append(s.History, HistoryEntry{Status: status, Timestamp: at})
	return nil
}
