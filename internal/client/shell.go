package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/studysync/internal/models"
)

const helpText = `Available commands:
  signup | login | logout | whoami
  notes | note-add | note-edit <id> | note-delete <id>
  papers [subject=.. year=.. semester=.. term=MidSem|EndSem]
  paper-upload | paper-delete <id>            (admin)
  attendance | subject-add [name] | mark <id> Present|Absent|Undo
  subject-edit <id> | subject-delete <id>
  help | exit`

// Shell is the interactive StudySync command loop.
type Shell struct {
	api     *Client
	session *Session
	prompt  *Prompter
	out     io.Writer
}

// NewShell builds a shell reading commands from in.
func NewShell(api *Client, session *Session, in io.Reader, out io.Writer) *Shell {
	return &Shell{api: api, session: session, prompt: NewPrompter(in, out), out: out}
}

// Run reads and executes commands until exit, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) {
	for ctx.Err() == nil {
		fmt.Fprint(s.out, "studysync> ")
		line, ok := s.prompt.Line()
		if !ok {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if !s.Exec(ctx, args) {
			return
		}
	}
}

// Exec runs one command. It returns false when the shell should stop.
func (s *Shell) Exec(ctx context.Context, args []string) bool {
	var err error
	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "signup":
		err = s.signup(ctx)
	case "login":
		err = s.login(ctx)
	case "logout":
		if err = s.session.Logout(); err == nil {
			fmt.Fprintln(s.out, "Logged out")
		}
	case "whoami":
		err = s.whoami(ctx)
	case "notes":
		err = s.listNotes(ctx)
	case "note-add":
		err = s.addNote(ctx)
	case "note-edit":
		err = withID(args, func(id string) error { return s.editNote(ctx, id) })
	case "note-delete":
		err = withID(args, func(id string) error {
			if err := s.api.DeleteNote(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Note deleted")
			return s.listNotes(ctx)
		})
	case "papers":
		err = s.listPapers(ctx, args[1:])
	case "paper-upload":
		err = s.uploadPaper(ctx)
	case "paper-delete":
		err = withID(args, func(id string) error {
			if !s.session.IsAdmin() {
				return errAdminOnly
			}
			if err := s.api.DeletePaper(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Paper deleted")
			return s.listPapers(ctx, nil)
		})
	case "attendance":
		err = s.listSubjects(ctx)
	case "subject-add":
		err = s.addSubject(ctx, strings.Join(args[1:], " "))
	case "mark":
		if len(args) < 3 {
			fmt.Fprintln(s.out, "Usage: mark <id> Present|Absent|Undo")
			return true
		}
		err = s.mark(ctx, args[1], models.AttendanceStatus(args[2]))
	case "subject-edit":
		err = withID(args, func(id string) error { return s.renameSubject(ctx, id) })
	case "subject-delete":
		err = withID(args, func(id string) error {
			if err := s.api.DeleteSubject(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Subject deleted")
			return s.listSubjects(ctx)
		})
	case "exit", "quit":
		fmt.Fprintln(s.out, "Bye")
		return false
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	if err != nil {
		s.toast(err)
	}
	return true
}

var (
	errAdminOnly = errors.New("only admins can do that")
	errUsage     = errors.New("missing id")
)

func withID(args []string, fn func(id string) error) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: %s <id>", errUsage, args[0])
	}
	return fn(args[1])
}

// toast prints a failed command's message.
func (s *Shell) toast(err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintln(s.out, "Error:", apiErr.Message)
		return
	}
	fmt.Fprintln(s.out, "Error:", err)
}

func (s *Shell) signup(ctx context.Context) error {
	name := s.prompt.Ask("Full name")
	email := s.prompt.Ask("Email")
	password := s.prompt.Ask("Password")
	u, err := s.api.Signup(ctx, name, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Welcome, %s!\n", u.FullName)
	return nil
}

func (s *Shell) login(ctx context.Context) error {
	email := s.prompt.Ask("Email")
	password := s.prompt.Ask("Password")
	u, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Logged in as %s (%s)\n", u.Email, u.Role)
	return nil
}

func (s *Shell) whoami(ctx context.Context) error {
	u, err := s.api.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s <%s> role=%s\n", u.FullName, u.Email, u.Role)
	return nil
}

func (s *Shell) listNotes(ctx context.Context) error {
	notes, err := s.api.Notes(ctx)
	if err != nil {
		return err
	}
	PrintNotes(s.out, notes)
	return nil
}

func (s *Shell) addNote(ctx context.Context) error {
	form := NoteForm{
		Title:   s.prompt.Ask("Title"),
		Subject: s.prompt.Ask("Subject"),
		Content: s.prompt.Ask("Content"),
		Status:  models.NoteStatus(s.prompt.AskDefault("Status (Pending/Understood/Revisit)", string(models.NotePending))),
	}
	if form.Title == "" {
		return errors.New("title is required")
	}
	files := s.prompt.AskList("Attachments (comma-separated paths, empty for none)")
	if _, err := s.api.AddNote(ctx, form, files); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Note added")
	return s.listNotes(ctx)
}

func (s *Shell) editNote(ctx context.Context, id string) error {
	notes, err := s.api.Notes(ctx)
	if err != nil {
		return err
	}
	var current *models.Note
	for i := range notes {
		if notes[i].ID == id {
			current = &notes[i]
			break
		}
	}
	if current == nil {
		return errors.New("note not found")
	}

	form := NoteForm{
		Title:   s.prompt.AskDefault("Title", current.Title),
		Subject: s.prompt.AskDefault("Subject", current.Subject),
		Content: s.prompt.AskDefault("Content", current.Content),
		Status:  models.NoteStatus(s.prompt.AskDefault("Status", string(current.Status))),
	}
	if _, err := s.api.EditNote(ctx, id, form); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Note updated")
	return s.listNotes(ctx)
}

func (s *Shell) listPapers(ctx context.Context, filterArgs []string) error {
	filter, err := ParseFilter(filterArgs)
	if err != nil {
		return err
	}
	papers, err := s.api.Papers(ctx)
	if err != nil {
		return err
	}
	PrintPapers(s.out, filter.Apply(papers))
	return nil
}

func (s *Shell) uploadPaper(ctx context.Context) error {
	if !s.session.IsAdmin() {
		return errAdminOnly
	}
	form := PaperForm{Subject: s.prompt.Ask("Subject")}
	var err error
	if form.Year, err = s.prompt.AskInt("Year"); err != nil {
		return err
	}
	if form.Semester, err = s.prompt.AskInt("Semester"); err != nil {
		return err
	}
	form.Term = models.Term(s.prompt.AskDefault("Term (MidSem/EndSem)", string(models.TermMidSem)))
	path := s.prompt.Ask("PDF file path")

	if _, err := s.api.UploadPaper(ctx, form, path); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Paper uploaded")
	return s.listPapers(ctx, nil)
}

func (s *Shell) listSubjects(ctx context.Context) error {
	subjects, err := s.api.Subjects(ctx)
	if err != nil {
		return err
	}
	PrintSubjects(s.out, subjects)
	return nil
}

func (s *Shell) addSubject(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		name = s.prompt.Ask("Subject name")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("subject name cannot be empty")
	}
	if _, err := s.api.AddSubject(ctx, name); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Subject added")
	return s.listSubjects(ctx)
}

func (s *Shell) mark(ctx context.Context, id string, status models.AttendanceStatus) error {
	if !status.Valid() {
		return errors.New("status must be Present, Absent or Undo")
	}
	if _, err := s.api.Mark(ctx, id, status); err != nil {
		return err
	}
	return s.listSubjects(ctx)
}

func (s *Shell) renameSubject(ctx context.Context, id string) error {
	name := s.prompt.Ask("New name")
	if name == "" {
		return errors.New("subject name cannot be empty")
	}
	if _, err := s.api.RenameSubject(ctx, id, name); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Subject renamed")
	return s.listSubjects(ctx)
}
