// Package storage keeps uploaded note attachments and exam papers on the
// local filesystem and hands back the public URL each file is served from.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrInvalidKey is returned when a key would escape the storage directory.
var ErrInvalidKey = errors.New("invalid storage key")

// Object describes a stored file.
type Object struct {
	// Key is the file name inside the storage directory.
	Key string
	// URL is where clients can download the file.
	URL string
	// Format is the inferred extension without the leading dot.
	Format string
	// ContentType is the sniffed MIME type.
	ContentType string
	// Size is the number of bytes written.
	Size int64
}

// LocalStore writes files into Dir and serves them under BaseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates dir if needed. baseURL is the URL prefix the
// directory is served from, e.g. "https://api.example.com/uploads".
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the storage directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save sniffs the content type of r, writes it under a fresh key and returns
// the stored object. filename is only used as a format hint.
func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	br := bufio.NewReaderSize(r, 3072)
	head, err := br.Peek(3072)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	mtype := mimetype.Detect(head)
	format := InferFormat(mtype, filename)

	key := uuid.NewString()
	if format != "" {
		key += "." + format
	}

	f, err := os.OpenFile(filepath.Join(s.dir, key), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Object{}, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(f, br)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, key))
		return Object{}, fmt.Errorf("write file: %w", err)
	}

	return Object{
		Key:         key,
		URL:         s.baseURL + "/" + key,
		Format:      format,
		ContentType: mtype.String(),
		Size:        n,
	}, nil
}

// Remove deletes the file stored under key. Missing files are not an error.
func (s *LocalStore) Remove(_ context.Context, key string) error {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return ErrInvalidKey
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// fallbackFormats are the filename extensions kept for content that sniffs
// as plain text or raw bytes. Anything else is stored as txt or bin.
var fallbackFormats = map[string]bool{
	"txt": true, "md": true, "csv": true, "tsv": true, "log": true,
	"doc": true, "docx": true, "ppt": true, "pptx": true, "xls": true, "xlsx": true,
	"odt": true, "odp": true, "ods": true, "rtf": true, "zip": true,
}

// InferFormat picks the extension for a stored file. The sniffed type wins
// unless it is generic, in which case an allowed filename extension is used.
func InferFormat(mtype *mimetype.MIME, filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if mtype == nil || mtype.Is("application/octet-stream") {
		if fallbackFormats[ext] {
			return ext
		}
		return "bin"
	}
	if mtype.Is("text/plain") {
		if fallbackFormats[ext] {
			return ext
		}
		return "txt"
	}
	if detected := strings.TrimPrefix(mtype.Extension(), "."); detected != "" {
		return detected
	}
	return "bin"
}
