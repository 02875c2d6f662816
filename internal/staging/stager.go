// Package staging resolves a job's document reference (remote URL or
// inline base64 payload) into a local readable byte stream under size
// and time limits.
package staging

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

// Formats the pipeline can hand to an engine. Keys are the normalized
// MIME types reported by content sniffing.
var supportedKinds = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/msword": true,
	"text/plain":         true,
	"text/markdown":      true,
	"text/html":          true,
	"image/jpeg":         true,
	"image/png":          true,
	"image/tiff":         true,
}

// Config bounds the staging step. Limits are read once at startup and
// never mutated.
type Config struct {
	MaxBytes     int64
	FetchTimeout time.Duration
	TempDir      string
}

// Stager stages document requests into temp-backed byte streams.
type Stager struct {
	cfg    Config
	client *http.Client
	logger logger.Logger
}

func NewStager(cfg Config, log logger.Logger) *Stager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 100 * 1024 * 1024 // 100MB
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 60 * time.Second
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Stager{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.FetchTimeout},
		logger: log,
	}
}

// Staged owns a temporary file holding the document bytes. Its lifetime
// is one conversion call; Release must run on every exit path.
type Staged struct {
	Filename string
	MIME     string
	Size     int64

	file     *os.File
	path     string
	released bool
}

// Reader returns the document bytes positioned at the start.
func (s *Staged) Reader() (io.Reader, error) {
	if s.released {
		return nil, fmt.Errorf("staged document already released")
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind staged file: %w", err)
	}
	return s.file, nil
}

// Bytes reads the whole staged payload into memory.
func (s *Staged) Bytes() ([]byte, error) {
	r, err := s.Reader()
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// Release closes and removes the temporary file. Safe to call more than
// once.
func (s *Staged) Release() {
	if s.released {
		return
	}
	s.released = true
	if s.file != nil {
		s.file.Close()
	}
	if s.path != "" {
		os.Remove(s.path)
	}
}

// Stage resolves req into a Staged document. The URL fetch is bounded by
// the configured timeout and the size ceiling is enforced while
// streaming, not after buffering the full body.
func (st *Stager) Stage(ctx context.Context, req *models.DocumentRequest) (*Staged, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(st.cfg.TempDir, "staged-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	staged := &Staged{
		Filename: req.InferredFilename(),
		file:     tmp,
		path:     tmp.Name(),
	}

	if req.DocumentURL != "" {
		err = st.fetchURL(ctx, req.DocumentURL, tmp, staged)
	} else {
		err = st.decodeInline(req.DocumentBytes, tmp, staged)
	}
	if err != nil {
		staged.Release()
		return nil, err
	}

	if err := st.sniffKind(staged); err != nil {
		staged.Release()
		return nil, err
	}

	st.logger.Info("Document staged",
		logger.String("filename", staged.Filename),
		logger.String("mime", staged.MIME),
		logger.Int64("size", staged.Size),
	)

	return staged, nil
}

func (st *Stager) fetchURL(ctx context.Context, url string, dst *os.File, staged *Staged) error {
	fetchCtx, cancel := context.WithTimeout(ctx, st.cfg.FetchTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return models.WrapJobError(models.KindFetch, err, "invalid document URL")
	}

	resp, err := st.client.Do(httpReq)
	if err != nil {
		return models.WrapJobError(models.KindFetch, err, "failed to fetch document")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.NewJobError(models.KindFetch, "unexpected status %d fetching document", resp.StatusCode)
	}

	if resp.ContentLength > st.cfg.MaxBytes {
		return models.NewJobError(models.KindFetch, "document exceeds size limit of %d bytes", st.cfg.MaxBytes)
	}

	// Copy at most one byte over the ceiling so oversized bodies are
	// rejected mid-stream.
	written, err := io.Copy(dst, io.LimitReader(resp.Body, st.cfg.MaxBytes+1))
	if err != nil {
		return models.WrapJobError(models.KindFetch, err, "failed to read document body")
	}
	if written > st.cfg.MaxBytes {
		return models.NewJobError(models.KindFetch, "document exceeds size limit of %d bytes", st.cfg.MaxBytes)
	}

	staged.Size = written
	return nil
}

func (st *Stager) decodeInline(encoded string, dst *os.File, staged *Staged) error {
	decoder := base64.NewDecoder(base64.StdEncoding, strings.NewReader(encoded))
	written, err := io.Copy(dst, io.LimitReader(decoder, st.cfg.MaxBytes+1))
	if err != nil {
		return models.WrapJobError(models.KindDecode, err, "malformed base64 payload")
	}
	// Size-limit breaches share a kind with the fetch path, but the
	// message names the inline payload.
	if written > st.cfg.MaxBytes {
		return models.NewJobError(models.KindFetch, "decoded payload exceeds size limit of %d bytes", st.cfg.MaxBytes)
	}

	staged.Size = written
	return nil
}

func (st *Stager) sniffKind(staged *Staged) error {
	if _, err := staged.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind staged file: %w", err)
	}

	detected, err := mimetype.DetectReader(staged.file)
	if err != nil {
		return models.WrapJobError(models.KindUnsupportedFormat, err, "failed to detect document type")
	}

	kind := normalizeKind(detected.String(), staged.Filename)
	if !supportedKinds[kind] {
		return models.NewJobError(models.KindUnsupportedFormat, "unsupported document type: %s", kind)
	}

	staged.MIME = kind
	return nil
}

// normalizeKind strips MIME parameters and lets the extension refine
// generic sniff results (markdown is indistinguishable from plain text
// by content).
func normalizeKind(detected, filename string) string {
	kind := detected
	if idx := strings.Index(kind, ";"); idx >= 0 {
		kind = strings.TrimSpace(kind[:idx])
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if kind == "text/plain" && (ext == ".md" || ext == ".markdown") {
		return "text/markdown"
	}
	if kind == "image/jpg" {
		return "image/jpeg"
	}
	return kind
}
