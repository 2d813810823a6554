package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/queue"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/separation"
	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSeparator writes the configured stem files where spleeter would.
type fakeSeparator struct {
	writes []string
	err    error

	calls  []separation.StemCount
	input  string
	ctxErr error
}

func (f *fakeSeparator) Separate(ctx context.Context, inputPath, outputRoot string, count separation.StemCount) error {
	f.calls = append(f.calls, count)
	f.input = inputPath
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return f.err
	}
	dir := separation.OutputDir(outputRoot, inputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, s := range f.writes {
		if err := os.WriteFile(filepath.Join(dir, s+".wav"), []byte(s), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.SeparationEvent
	err    error
}

func (p *recordingPublisher) PublishSeparation(_ context.Context, evt queue.SeparationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

type formPart struct {
	name, filename, body string
	isFile               bool
}

func multipartBody(t *testing.T, parts ...formPart) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		if !p.isFile {
			require.NoError(t, w.WriteField(p.name, p.body))
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.name+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", "audio/wav")
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = io.WriteString(pw, p.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func stems(v string) formPart { return formPart{name: "stems", body: v} }

func upload(filename, body string) formPart {
	return formPart{name: "file", filename: filename, body: body, isFile: true}
}

type harness struct {
	root      string
	api       *API
	separator *fakeSeparator
	events    *recordingPublisher
	router    chi.Router
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		root:      t.TempDir(),
		separator: &fakeSeparator{},
		events:    &recordingPublisher{},
	}
	h.api = &API{
		Storage:   storage.NewStaging(h.root),
		Separator: h.separator,
		Events:    h.events,
	}
	h.router = chi.NewRouter()
	h.api.RegisterRoutes(h.router)
	return h
}

func (h *harness) post(t *testing.T, body io.Reader, contentType string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return h.do(t, httptest.NewRequest(http.MethodPost, "/separate", body), contentType)
}

func (h *harness) do(t *testing.T, req *http.Request, contentType string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got), rec.Body.String())
	return rec, got
}

func TestSeparate_InvalidStems(t *testing.T) {
	for _, v := range []string{"4", "", "two", "2 ", "10"} {
		t.Run("stems="+v, func(t *testing.T) {
			h := newHarness(t)
			body, ct := multipartBody(t, stems(v), upload("song.wav", "data"))
			rec, got := h.post(t, body, ct)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, msgInvalidStems, got["error"])
			assert.Empty(t, h.separator.calls)
		})
	}
}

func TestSeparate_MissingStemsField(t *testing.T) {
	h := newHarness(t)
	body, ct := multipartBody(t, upload("song.wav", "data"))
	rec, got := h.post(t, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidStems, got["error"])
}

func TestSeparate_StemsInQueryStringIgnored(t *testing.T) {
	h := newHarness(t)
	body, ct := multipartBody(t, upload("song.wav", "data"))
	rec, got := h.do(t, httptest.NewRequest(http.MethodPost, "/separate?stems=2", body), ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidStems, got["error"])
	assert.Empty(t, h.separator.calls)
}

func TestSeparate_StemsCheckedBeforeFile(t *testing.T) {
	h := newHarness(t)
	body, ct := multipartBody(t, stems("3"))
	rec, got := h.post(t, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidStems, got["error"])
}

func TestSeparate_NoFilePart(t *testing.T) {
	h := newHarness(t)
	body, ct := multipartBody(t, stems("2"))
	rec, got := h.post(t, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgNoFilePart, got["error"])
}

func TestSeparate_NoFilePart_URLEncoded(t *testing.T) {
	h := newHarness(t)
	form := url.Values{"stems": {"5"}}
	rec, got := h.post(t, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgNoFilePart, got["error"])
}

func TestSeparate_EmptyFilename(t *testing.T) {
	h := newHarness(t)
	body, ct := multipartBody(t, stems("2"), upload("", "data"))
	rec, got := h.post(t, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgNoSelected, got["error"])
	assert.Empty(t, h.separator.calls)
}

func TestSeparate_TwoStems(t *testing.T) {
	h := newHarness(t)
	h.separator.writes = []string{"vocals", "accompaniment"}

	body, ct := multipartBody(t, stems("2"), upload("song.wav", "RIFFDATA"))
	rec, got := h.post(t, body, ct)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, map[string]any{
		"vocals":        filepath.Join(h.root, "output", "song", "vocals.wav"),
		"accompaniment": filepath.Join(h.root, "output", "song", "accompaniment.wav"),
	}, got["output_paths"])

	require.Equal(t, []separation.StemCount{separation.TwoStems}, h.separator.calls)
	staged := filepath.Join(h.root, "input", "song.wav")
	assert.Equal(t, staged, h.separator.input)
	b, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, "RIFFDATA", string(b))
}

func TestSeparate_OnlyExistingFilesReported(t *testing.T) {
	h := newHarness(t)
	h.separator.writes = []string{"vocals"}

	body, ct := multipartBody(t, stems("2"), upload("song.mp3", "x"))
	rec, got := h.post(t, body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"vocals": filepath.Join(h.root, "output", "song", "vocals.wav"),
	}, got["output_paths"])
}

func TestSeparate_FiveStems(t *testing.T) {
	h := newHarness(t)
	h.separator.writes = []string{"vocals", "bass", "drums", "piano", "other"}

	body, ct := multipartBody(t, stems("5"), upload("mix.flac", "x"))
	rec, got := h.post(t, body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	paths, ok := got["output_paths"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, paths, 5)
	assert.NotContains(t, paths, "accompaniment")
	assert.Equal(t, filepath.Join(h.root, "output", "mix", "drums.wav"), paths["drums"])
	assert.Equal(t, []separation.StemCount{separation.FiveStems}, h.separator.calls)
}

func TestSeparate_NoStemsProduced(t *testing.T) {
	h := newHarness(t)
	body, ct := multipartBody(t, stems("2"), upload("song.wav", "x"))
	rec, got := h.post(t, body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{}, got["output_paths"])
}

func TestSeparate_SeparatorFailure(t *testing.T) {
	h := newHarness(t)
	h.separator.err = errors.New("model not found")

	body, ct := multipartBody(t, stems("2"), upload("song.wav", "x"))
	rec, got := h.post(t, body, ct)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error separating file: model not found", got["error"])
	assert.Empty(t, h.events.events)

	// staged input is left in place
	_, err := os.Stat(filepath.Join(h.root, "input", "song.wav"))
	assert.NoError(t, err)
}

func TestSeparate_FilenameDirectoriesStripped(t *testing.T) {
	h := newHarness(t)
	h.separator.writes = []string{"vocals"}

	body, ct := multipartBody(t, stems("2"), upload("../../evil.wav", "x"))
	rec, _ := h.post(t, body, ct)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, filepath.Join(h.root, "input", "evil.wav"), h.separator.input)
}

func TestSeparate_PublishesEvent(t *testing.T) {
	h := newHarness(t)
	h.separator.writes = []string{"vocals", "accompaniment"}

	body, ct := multipartBody(t, stems("2"), upload("song.wav", "x"))
	rec, _ := h.post(t, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, h.events.events, 1)
	evt := h.events.events[0]
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "song.wav", evt.Filename)
	assert.Equal(t, 2, evt.Stems)
	assert.Len(t, evt.OutputPaths, 2)
}

func TestSeparate_PublishFailureIgnored(t *testing.T) {
	h := newHarness(t)
	h.events.err = errors.New("nats: connection closed")
	h.separator.writes = []string{"vocals"}

	body, ct := multipartBody(t, stems("2"), upload("song.wav", "x"))
	rec, got := h.post(t, body, ct)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", got["status"])
}

func TestSeparate_WithoutEvents(t *testing.T) {
	h := newHarness(t)
	h.api.Events = nil
	h.separator.writes = []string{"vocals"}

	body, ct := multipartBody(t, stems("2"), upload("song.wav", "x"))
	rec, _ := h.post(t, body, ct)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSeparate_TooLarge(t *testing.T) {
	h := newHarness(t)
	h.api.MaxUploadBytes = 1024

	body, ct := multipartBody(t, stems("2"), upload("song.wav", strings.Repeat("x", 4096)))
	rec, got := h.post(t, body, ct)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, got["error"], "1024")
	assert.Empty(t, h.separator.calls)
}

func TestSeparate_ClientGoneDoesNotCancelSeparator(t *testing.T) {
	h := newHarness(t)
	h.separator.writes = []string{"vocals", "accompaniment"}
	body, ct := multipartBody(t, stems("2"), upload("song.wav", "data"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/separate", body).WithContext(ctx)
	rec, got := h.do(t, req, ct)

	require.Len(t, h.separator.calls, 1)
	assert.NoError(t, h.separator.ctxErr)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", got["status"])
}
