package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/studysync/internal/models"
	"github.com/gabriel-vasile/mimetype"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// ErrNotSignedIn is returned by calls that need a token when none is stored.
var ErrNotSignedIn = errors.New("not signed in: run signup or login first")

// NewHTTPClient returns an HTTP client that additionally trusts the CA in
// caFile. An empty caFile uses the system roots.
func NewHTTPClient(caFile string) (*http.Client, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	if caFile == "" {
		return client, nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool, err := x509.SystemCertPool()
	if err != nil || caPool == nil {
		caPool = x509.NewCertPool()
	}
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: caPool, MinVersion: tls.VersionTLS12},
	}
	return client, nil
}

// Client calls the StudySync REST API on behalf of the session user.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

// New constructs a Client for the server at baseURL.
func New(baseURL string, httpClient *http.Client, session *Session) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, session: session}
}

// NoteForm is the editable part of a note.
type NoteForm struct {
	Title   string
	Content string
	Subject string
	Status  models.NoteStatus
}

func (f NoteForm) values() map[string]string {
	return map[string]string{
		"title":   f.Title,
		"content": f.Content,
		"subject": f.Subject,
		"status":  string(f.Status),
	}
}

// PaperForm is the metadata of a paper upload.
type PaperForm struct {
	Subject  string
	Year     int
	Semester int
	Term     models.Term
}

type authResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// do sends a request and decodes the success envelope into out.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, authed bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		token := c.session.AccessToken()
		if token == "" {
			return ErrNotSignedIn
		}
		req.Header.Set("token", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &env) != nil || env.Message == "" {
			env.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(b), true, out)
}

func (c *Client) authenticate(ctx context.Context, path string, in any) (*models.PublicUser, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var res authResponse
	if err := c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(b), false, &res); err != nil {
		return nil, err
	}
	if err := c.session.SetToken(res.Token); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if err := c.session.SetUser(res.User); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &res.User, nil
}

// Signup creates an account and stores the returned token.
func (c *Client) Signup(ctx context.Context, fullName, email, password string) (*models.PublicUser, error) {
	return c.authenticate(ctx, "/api/auth/signup", map[string]string{
		"fullName": fullName,
		"email":    email,
		"password": password,
	})
}

// Login signs in and stores the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.PublicUser, error) {
	return c.authenticate(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Me fetches the signed-in user and refreshes the stored copy.
func (c *Client) Me(ctx context.Context) (*models.PublicUser, error) {
	var res struct {
		User models.PublicUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", "", nil, true, &res); err != nil {
		return nil, err
	}
	if err := c.session.SetUser(res.User); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &res.User, nil
}

// Notes lists the user's notes.
func (c *Client) Notes(ctx context.Context) ([]models.Note, error) {
	var res struct {
		Notes []models.Note `json:"notes"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notes", "", nil, true, &res); err != nil {
		return nil, err
	}
	return res.Notes, nil
}

// AddNote creates a note, uploading the files at paths as attachments.
func (c *Client) AddNote(ctx context.Context, form NoteForm, paths []string) (*models.Note, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range form.values() {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	for _, p := range paths {
		if err := attachFile(mw, p); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var res struct {
		Note models.Note `json:"note"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/notes/add", mw.FormDataContentType(), buf, true, &res); err != nil {
		return nil, err
	}
	return &res.Note, nil
}

func attachFile(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()
	fw, err := mw.CreateFormFile("attachments", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return fmt.Errorf("read attachment %s: %w", path, err)
	}
	return nil
}

// EditNote replaces the text fields of a note.
func (c *Client) EditNote(ctx context.Context, id string, form NoteForm) (*models.Note, error) {
	vals := url.Values{}
	for k, v := range form.values() {
		vals.Set(k, v)
	}
	var res struct {
		Note models.Note `json:"note"`
	}
	err := c.do(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id),
		"application/x-www-form-urlencoded", strings.NewReader(vals.Encode()), true, &res)
	if err != nil {
		return nil, err
	}
	return &res.Note, nil
}

// DeleteNote deletes a note.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), "", nil, true, nil)
}

// Papers lists every paper. Filtering happens locally.
func (c *Client) Papers(ctx context.Context) ([]models.Paper, error) {
	var res struct {
		Papers []models.Paper `json:"papers"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/pypapers", "", nil, true, &res); err != nil {
		return nil, err
	}
	return res.Papers, nil
}

// UploadPaper sends the PDF at path as a base64 data URL.
func (c *Client) UploadPaper(ctx context.Context, form PaperForm, path string) (*models.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read paper: %w", err)
	}
	if !mimetype.Detect(data).Is("application/pdf") {
		return nil, fmt.Errorf("%s is not a PDF file", path)
	}

	body := map[string]any{
		"subject":    form.Subject,
		"year":       form.Year,
		"semester":   form.Semester,
		"term":       form.Term,
		"fileBase64": "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data),
	}
	var res struct {
		Paper models.Paper `json:"paper"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/pypapers/upload", body, &res); err != nil {
		return nil, err
	}
	return &res.Paper, nil
}

// DeletePaper deletes a paper. Only admins may call it.
func (c *Client) DeletePaper(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/pypapers/"+url.PathEscape(id), "", nil, true, nil)
}

type subjectResponse struct {
	Data models.Subject `json:"data"`
}

// Subjects lists the user's attendance subjects.
func (c *Client) Subjects(ctx context.Context) ([]models.Subject, error) {
	var res struct {
		Data []models.Subject `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/attendance", "", nil, true, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

// AddSubject starts tracking a subject.
func (c *Client) AddSubject(ctx context.Context, name string) (*models.Subject, error) {
	var res subjectResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/attendance/add-subject", map[string]string{"subject": name}, &res); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

// Mark records Present, Absent or Undo.
func (c *Client) Mark(ctx context.Context, id string, status models.AttendanceStatus) (*models.Subject, error) {
	var res subjectResponse
	path := "/api/attendance/mark/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodPatch, path, map[string]string{"status": string(status)}, &res); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

// RenameSubject changes a subject's name.
func (c *Client) RenameSubject(ctx context.Context, id, name string) (*models.Subject, error) {
	var res subjectResponse
	path := "/api/attendance/edit/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodPatch, path, map[string]string{"subject": name}, &res); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

// DeleteSubject stops tracking a subject.
func (c *Client) DeleteSubject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/attendance/"+url.PathEscape(id), "", nil, true, nil)
}

// ParseFilter reads "key=value" arguments of the papers command.
func ParseFilter(args []string) (models.PaperFilter, error) {
	var f models.PaperFilter
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok {
			return f, fmt.Errorf("expected key=value, got %q", arg)
		}
		key, val = strings.ToLower(key), strings.TrimSpace(val)
		switch key {
		case "subject":
			f.Subject = val
		case "year", "semester":
			n, err := strconv.Atoi(val)
			if err != nil {
				return f, fmt.Errorf("%s must be a number", key)
			}
			if key == "year" {
				f.Year = n
			} else {
				f.Semester = n
			}
		case "term":
			f.Term = models.Term(val)
			if !f.Term.Valid() {
				return f, errors.New("term must be MidSem or EndSem")
			}
		default:
			return f, fmt.Errorf("unknown filter %q", key)
		}
	}
	return f, nil
}
