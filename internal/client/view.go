package client

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/atinyakov/studysync/internal/models"
)

const (
	// recentHistoryLen is how many marks the attendance strip shows.
	recentHistoryLen = 5
	// attendanceTarget is the percentage below which a subject is flagged.
	attendanceTarget = 75
	previewLen       = 100
)

// AttendancePercent returns the attendance percentage rounded to an integer.
func AttendancePercent(s models.Subject) int {
	return int(math.Round(s.Percentage()))
}

func preview(content string) string {
	r := []rune(content)
	if len(r) <= previewLen {
		return content
	}
	return string(r[:previewLen]) + "..."
}

// PrintNotes writes notes in the order given.
func PrintNotes(w io.Writer, notes []models.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes yet.")
		return
	}
	for _, n := range notes {
		fmt.Fprintf(w, "ID: %s\nTitle: %s\nSubject: %s\nStatus: %s\n", n.ID, n.Title, n.Subject, n.Status)
		if n.Content != "" {
			fmt.Fprintf(w, "Content: %s\n", preview(n.Content))
		}
		for _, a := range n.Attachments {
			fmt.Fprintf(w, "  [%s] %s\n", a.Format, a.URL)
		}
		fmt.Fprintln(w, "---")
	}
}

// PrintPapers writes papers as a table.
func PrintPapers(w io.Writer, papers []models.Paper) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSUBJECT\tYEAR\tSEM\tTERM\tFILE")
	for _, p := range papers {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", p.ID, p.Subject, p.Year, p.Semester, p.Term, p.File.URL)
	}
	_ = tw.Flush()
}

// PrintSubjects writes each subject with its percentage and recent marks.
func PrintSubjects(w io.Writer, subjects []models.Subject) {
	if len(subjects) == 0 {
		fmt.Fprintln(w, "No subjects tracked yet.")
		return
	}
	for _, s := range subjects {
		pct := AttendancePercent(s)
		flag := ""
		if pct < attendanceTarget {
			flag = fmt.Sprintf(" (below %d%%)", attendanceTarget)
		}
		fmt.Fprintf(w, "ID: %s\nSubject: %s\nAttendance: %d/%d = %d%%%s\n",
			s.ID, s.Name, s.AttendedClasses, s.TotalClasses, pct, flag)

		recent := s.RecentHistory(recentHistoryLen)
		if len(recent) == 0 {
			fmt.Fprintln(w, "History: none")
		} else {
			fmt.Fprint(w, "History:")
			for _, h := range recent {
				fmt.Fprintf(w, " %s(%s)", h.Status, h.Timestamp.Local().Format("Jan 2 15:04"))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, "---")
	}
}
