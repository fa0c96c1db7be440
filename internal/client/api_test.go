package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atinyakov/studysync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPDF = "%PDF-1.4\n%%EOF\n"

func newTestClient(t *testing.T, h http.Handler) (*Client, *Session) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	session, err := LoadSession(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	return New(srv.URL+"/", srv.Client(), session), session
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_LoginStoresSession(t *testing.T) {
	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("token"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.co", body["email"])
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"success": true,
			"token":   "tok-1",
			"user":    models.PublicUser{ID: "u1", Email: "a@b.co", Role: models.RoleUser},
		})
	}))

	u, err := c.Login(context.Background(), "a@b.co", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "tok-1", session.AccessToken())
	assert.Equal(t, "a@b.co", session.CurrentUser().Email)
}

func TestClient_APIError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Wrong password"})
	}))

	_, err := c.Login(context.Background(), "a@b.co", "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Wrong password", apiErr.Message)
}

func TestClient_APIErrorWithoutEnvelope(t *testing.T) {
	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	require.NoError(t, session.SetToken("tok"))

	_, err := c.Notes(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestClient_RequiresToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent without a token")
	}))
	_, err := c.Subjects(context.Background())
	assert.True(t, errors.Is(err, ErrNotSignedIn))
}

func TestClient_AddNoteMultipart(t *testing.T) {
	dir := t.TempDir()
	attachment := filepath.Join(dir, "diagram.png")
	require.NoError(t, os.WriteFile(attachment, []byte("fake-png"), 0o644))

	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/notes/add", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("token"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Heaps", r.FormValue("title"))
		assert.Equal(t, "Pending", r.FormValue("status"))

		files := r.MultipartForm.File["attachments"]
		require.Len(t, files, 1)
		assert.Equal(t, "diagram.png", files[0].Filename)
		f, err := files[0].Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "fake-png", string(data))

		writeJSONResponse(w, http.StatusCreated, map[string]any{
			"success": true,
			"note": models.Note{ID: "n1", Title: "Heaps", Attachments: []models.Attachment{
				{Format: "png", URL: "http://x/uploads/k.png"},
			}},
		})
	}))
	require.NoError(t, session.SetToken("tok"))

	note, err := c.AddNote(context.Background(), NoteForm{Title: "Heaps", Status: models.NotePending}, []string{attachment})
	require.NoError(t, err)
	require.Len(t, note.Attachments, 1)
	assert.Equal(t, "png", note.Attachments[0].Format)
}

func TestClient_EditNote(t *testing.T) {
	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/notes/n1", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Revisit", r.PostForm.Get("status"))
		writeJSONResponse(w, http.StatusOK, map[string]any{"success": true, "note": models.Note{ID: "n1", Status: models.NoteRevisit}})
	}))
	require.NoError(t, session.SetToken("tok"))

	note, err := c.EditNote(context.Background(), "n1", NoteForm{Title: "t", Status: models.NoteRevisit})
	require.NoError(t, err)
	assert.Equal(t, models.NoteRevisit, note.Status)
}

func TestClient_UploadPaper(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "os.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte(testPDF), 0o644))
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0o644))

	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "OS", body["subject"])
		assert.EqualValues(t, 2024, body["year"])
		assert.Equal(t, "EndSem", body["term"])

		encoded := strings.TrimPrefix(body["fileBase64"].(string), "data:application/pdf;base64,")
		data, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		assert.Equal(t, testPDF, string(data))

		writeJSONResponse(w, http.StatusCreated, map[string]any{"success": true, "paper": models.Paper{ID: "p1", Subject: "OS"}})
	}))
	require.NoError(t, session.SetToken("tok"))

	form := PaperForm{Subject: "OS", Year: 2024, Semester: 3, Term: models.TermEndSem}
	paper, err := c.UploadPaper(context.Background(), form, pdf)
	require.NoError(t, err)
	assert.Equal(t, "p1", paper.ID)

	_, err = c.UploadPaper(context.Background(), form, txt)
	assert.ErrorContains(t, err, "not a PDF")
}

func TestClient_Attendance(t *testing.T) {
	var calls []string
	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodGet:
			writeJSONResponse(w, http.StatusOK, map[string]any{"success": true, "data": []models.Subject{{ID: "s1", Name: "Maths"}}})
		case r.Method == http.MethodDelete:
			writeJSONResponse(w, http.StatusOK, map[string]any{"success": true, "message": "Subject deleted"})
		default:
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			writeJSONResponse(w, http.StatusOK, map[string]any{"success": true, "data": models.Subject{ID: "s1", Name: body["subject"]}})
		}
	}))
	require.NoError(t, session.SetToken("tok"))
	ctx := context.Background()

	subjects, err := c.Subjects(ctx)
	require.NoError(t, err)
	assert.Len(t, subjects, 1)

	s, err := c.AddSubject(ctx, "Physics")
	require.NoError(t, err)
	assert.Equal(t, "Physics", s.Name)

	_, err = c.Mark(ctx, "s1", models.StatusPresent)
	require.NoError(t, err)
	_, err = c.RenameSubject(ctx, "s1", "Applied Physics")
	require.NoError(t, err)
	require.NoError(t, c.DeleteSubject(ctx, "s1"))

	assert.Equal(t, []string{
		"GET /api/attendance",
		"POST /api/attendance/add-subject",
		"PATCH /api/attendance/mark/s1",
		"PATCH /api/attendance/edit/s1",
		"DELETE /api/attendance/s1",
	}, calls)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter([]string{"subject= Networks ", "YEAR=2023", "semester=5", "term=MidSem"})
	require.NoError(t, err)
	assert.Equal(t, models.PaperFilter{Subject: "Networks", Year: 2023, Semester: 5, Term: models.TermMidSem}, f)

	for _, bad := range [][]string{{"year=x"}, {"term=Final"}, {"color=red"}, {"subject"}} {
		_, err := ParseFilter(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestNewHTTPClient(t *testing.T) {
	c, err := NewHTTPClient("")
	require.NoError(t, err)
	assert.Nil(t, c.Transport)

	_, err = NewHTTPClient(filepath.Join(t.TempDir(), "missing.crt"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.crt")
	require.NoError(t, os.WriteFile(bad, []byte("not a cert"), 0o644))
	_, err = NewHTTPClient(bad)
	assert.ErrorContains(t, err, "failed to parse CA cert")
}
