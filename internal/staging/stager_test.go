package staging

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/doc-converter/internal/models"
	"github.com/feichai0017/doc-converter/pkg/logger"
)

func newTestStager(t *testing.T, maxBytes int64) (*Stager, string) {
	t.Helper()
	dir := t.TempDir()
	stager := NewStager(Config{
		MaxBytes:     maxBytes,
		FetchTimeout: 5 * time.Second,
		TempDir:      dir,
	}, logger.NewTestLogger())
	return stager, dir
}

func assertTempDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging temp dir should be empty")
}

func TestStageURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"))
	}))
	defer srv.Close()

	stager, dir := newTestStager(t, 1<<20)
	staged, err := stager.Stage(context.Background(), &models.DocumentRequest{
		DocumentURL: srv.URL + "/sample.pdf",
	})
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", staged.MIME)
	assert.Equal(t, "sample.pdf", staged.Filename)
	assert.Greater(t, staged.Size, int64(0))

	staged.Release()
	assertTempDirEmpty(t, dir)
}

func TestStageURLNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	stager, dir := newTestStager(t, 1<<20)
	_, err := stager.Stage(context.Background(), &models.DocumentRequest{
		DocumentURL: srv.URL + "/missing.pdf",
	})
	require.Error(t, err)
	assert.Equal(t, models.KindFetch, models.KindOf(err))
	assertTempDirEmpty(t, dir)
}

func TestStageURLSizeCeiling(t *testing.T) {
	const chunk = 1024
	const totalChunks = 10240 // 10MB advertised via streaming
	served := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		buf := make([]byte, chunk)
		for i := 0; i < totalChunks; i++ {
			if _, err := w.Write(buf); err != nil {
				return
			}
			served++
			flusher.Flush()
		}
	}))

	stager, dir := newTestStager(t, 64*1024)
	_, err := stager.Stage(context.Background(), &models.DocumentRequest{
		DocumentURL: srv.URL + "/big.bin",
	})
	srv.Close() // waits for the handler, so reading served below is safe
	require.Error(t, err)
	assert.Equal(t, models.KindFetch, models.KindOf(err))
	// The fetch must abort while streaming, well before the full body.
	assert.Less(t, served, totalChunks)
	assertTempDirEmpty(t, dir)
}

func TestStageInlineBytes(t *testing.T) {
	stager, dir := newTestStager(t, 1<<20)
	payload := base64.StdEncoding.EncodeToString([]byte("plain text document body\n"))

	staged, err := stager.Stage(context.Background(), &models.DocumentRequest{
		DocumentBytes: payload,
		Filename:      "note.txt",
	})
	require.NoError(t, err)

	assert.Equal(t, "text/plain", staged.MIME)
	content, err := staged.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "plain text document body\n", string(content))

	staged.Release()
	staged.Release() // idempotent
	assertTempDirEmpty(t, dir)
}

func TestStageInlineInvalidBase64(t *testing.T) {
	stager, dir := newTestStager(t, 1<<20)
	_, err := stager.Stage(context.Background(), &models.DocumentRequest{
		DocumentBytes: "!!!not-base64!!!",
	})
	require.Error(t, err)
	assert.Equal(t, models.KindDecode, models.KindOf(err))
	assertTempDirEmpty(t, dir)
}

func TestStageInlineSizeCeiling(t *testing.T) {
	stager, dir := newTestStager(t, 64)
	payload := base64.StdEncoding.EncodeToString(make([]byte, 128))

	_, err := stager.Stage(context.Background(), &models.DocumentRequest{
		DocumentBytes: payload,
		Filename:      "big.bin",
	})
	require.Error(t, err)
	assert.Equal(t, models.KindFetch, models.KindOf(err))
	assert.Contains(t, err.Error(), "decoded payload exceeds size limit")
	assertTempDirEmpty(t, dir)
}

func TestStageBothSourcesRejected(t *testing.T) {
	stager, dir := newTestStager(t, 1<<20)
	_, err := stager.Stage(context.Background(), &models.DocumentRequest{
		DocumentURL:   "https://example.com/a.pdf",
		DocumentBytes: "aGVsbG8=",
	})
	require.Error(t, err)
	assert.Equal(t, models.KindInvalidConfiguration, models.KindOf(err))
	assertTempDirEmpty(t, dir)
}

func TestStageNoSourceRejected(t *testing.T) {
	stager, _ := newTestStager(t, 1<<20)
	_, err := stager.Stage(context.Background(), &models.DocumentRequest{})
	require.Error(t, err)
	assert.Equal(t, models.KindInvalidConfiguration, models.KindOf(err))
}

func TestStageUnsupportedFormat(t *testing.T) {
	stager, dir := newTestStager(t, 1<<20)
	// ZIP magic bytes, not in the supported set.
	payload := base64.StdEncoding.EncodeToString([]byte{0x50, 0x4b, 0x03, 0x04, 0x00, 0x00, 0x00, 0x00})

	_, err := stager.Stage(context.Background(), &models.DocumentRequest{
		DocumentBytes: payload,
		Filename:      "archive.zip",
	})
	require.Error(t, err)
	assert.Equal(t, models.KindUnsupportedFormat, models.KindOf(err))
	assertTempDirEmpty(t, dir)
}

func TestMarkdownRefinedByExtension(t *testing.T) {
	stager, dir := newTestStager(t, 1<<20)
	payload := base64.StdEncoding.EncodeToString([]byte("# Title\n\nbody\n"))

	staged, err := stager.Stage(context.Background(), &models.DocumentRequest{
		DocumentBytes: payload,
		Filename:      "readme.md",
	})
	require.NoError(t, err)
	defer staged.Release()

	assert.Equal(t, "text/markdown", staged.MIME)
	_ = dir
}
