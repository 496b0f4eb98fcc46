package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/kv"
	"github.com/dunamismax/artifactkit/internal/logging"
	"github.com/dunamismax/artifactkit/internal/notes"
	"github.com/dunamismax/artifactkit/internal/notify"
	"github.com/dunamismax/artifactkit/internal/password"
	"github.com/dunamismax/artifactkit/internal/queue"
	"github.com/dunamismax/artifactkit/internal/ratelimit"
	"github.com/dunamismax/artifactkit/internal/store"
	"github.com/dunamismax/artifactkit/internal/tools"
	"github.com/dunamismax/artifactkit/internal/transform"
	"github.com/hibiken/asynq"
	"nhooyr.io/websocket"
)

type fakeQueue struct {
	payloads []queue.ExportBatchPayload
}

func (q *fakeQueue) EnqueueExportBatch(_ context.Context, payload queue.ExportBatchPayload) (*asynq.TaskInfo, error) {
	q.payloads = append(q.payloads, payload)
	return &asynq.TaskInfo{ID: payload.JobID, Queue: "artifactkit", State: asynq.TaskStatePending}, nil
}

type fakeStorage struct {
	objects map[string]bool
}

func (s fakeStorage) PresignedPutURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.example.com/" + key + "?signed=1", nil
}

func (s fakeStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	return s.objects[key], nil
}

type denyLimiter struct{}

func (denyLimiter) AllowN(context.Context, string, int) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: false, Limit: 1, RetryAfter: 2 * time.Second}, nil
}

// costLimiter records the cost charged per subject and always allows.
type costLimiter struct {
	charged map[string]int
}

func (l *costLimiter) AllowN(_ context.Context, subject string, n int) (ratelimit.Decision, error) {
	l.charged[subject] += n
	return ratelimit.Decision{Allowed: true, Limit: 10, Remaining: 10 - int64(l.charged[subject])}, nil
}

type testEnv struct {
	server  *Server
	handler http.Handler
	queue   *fakeQueue
	jobs    *store.MemoryJobStore
	notices *notify.Center
}

func newTestEnv(t *testing.T, limiter RateLimiter) *testEnv {
	t.Helper()
	logger := logging.Nop()
	kvStore := kv.NewMemory(0)
	hist := history.NewCollections(kvStore, config.HistoryConfig{Capacity: 20, ScanCapacity: 10})
	notices := notify.NewCenter(time.Minute, time.Minute)
	metrics := NewMetrics()

	deps := tools.NewDeps(codec.New(), hist, notices, logger)
	deps.Observe = metrics.ObserveTool
	notepad := notes.New(kvStore, notes.Options{Logger: logger})
	t.Cleanup(notepad.Close)
	toolbox := tools.NewToolbox(deps, config.LimitsConfig{}, notepad)

	q := &fakeQueue{}
	jobs := store.NewMemoryJobStore()
	srv := NewServer(Deps{
		Logger:      logger,
		Queue:       q,
		Jobs:        jobs,
		Storage:     fakeStorage{objects: map[string]bool{"uploads/a.png": true}},
		Tools:       toolbox,
		History:     hist,
		Notices:     notices,
		Metrics:     metrics,
		RateLimiter: limiter,
	}, config.APIConfig{PreviewDebounce: 10 * time.Millisecond}, config.RateLimitConfig{})
	return &testEnv{server: srv, handler: srv.Handler(), queue: q, jobs: jobs, notices: notices}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type upload struct {
	field string
	name  string
	data  []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func testImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/v1/jobs/abc123/start":   "/v1/jobs/{id}/start",
		"/v1/jobs/abc123":         "/v1/jobs/{id}",
		"/v1/jobs":                "/v1/jobs",
		"/v1/history/qrHistory/3": "/v1/history/{collection}/{id}",
		"/v1/notes/my-site":       "/v1/notes/{site}",
		"/v1/hash/text":           "/v1/hash/text",
		"/healthz":                "/healthz",
		"/some/random/deep/path":  "other",
	}
	for path, want := range cases {
		if got := routeLabel(path); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidParameters, http.StatusBadRequest},
		{domain.ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{domain.ErrDecode, http.StatusUnprocessableEntity},
		{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrStorageQuota, http.StatusInsufficientStorage},
		{notes.ErrWrongPassword, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected a request id header")
	}
}

func TestHashTextAndHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, jsonRequest(t, http.MethodPost, "/v1/hash/text", map[string]any{
		"text":       "abc",
		"algorithms": []string{"sha256"},
		"save":       true,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res tools.HashResult
	decodeBody(t, rec, &res)
	if res.Digests["sha256"] != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected digest %v", res.Digests)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/history/"+history.HashHistory, nil))
	var list struct {
		Records []domain.HistoryRecord `json:"records"`
	}
	decodeBody(t, rec, &list)
	if len(list.Records) != 1 {
		t.Fatalf("expected one history record, got %d", len(list.Records))
	}

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/v1/history/"+history.HashHistory, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/history/"+history.HashHistory, nil))
	decodeBody(t, rec, &list)
	if len(list.Records) != 0 {
		t.Fatalf("expected cleared history, got %d", len(list.Records))
	}
}

func TestUnknownHistoryCollection(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/v1/history/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHashFileAndCompare(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, multipartRequest(t, "/v1/hash/file",
		map[string]string{"algorithms": "md5,sha1"},
		upload{field: "file", name: "a.txt", data: []byte("abc")},
	))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res tools.HashResult
	decodeBody(t, rec, &res)
	if res.Digests["md5"] != "900150983cd24fb0d6963f7d28e17f72" || res.Size != 3 {
		t.Fatalf("unexpected result %+v", res)
	}

	rec = env.do(t, jsonRequest(t, http.MethodPost, "/v1/hash/compare", map[string]string{
		"expected": "900150983CD24FB0D6963F7D28E17F72 ",
		"actual":   res.Digests["md5"],
	}))
	var cmp map[string]bool
	decodeBody(t, rec, &cmp)
	if !cmp["match"] {
		t.Fatal("expected digests to match")
	}
}

func TestPasswordGeneration(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, jsonRequest(t, http.MethodPost, "/v1/password", map[string]any{
		"length": 20, "count": 3, "upper": true, "lower": true, "digits": true,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Passwords []tools.GeneratedPassword `json:"passwords"`
	}
	decodeBody(t, rec, &res)
	if len(res.Passwords) != 3 || len(res.Passwords[0].Password) != 20 {
		t.Fatalf("unexpected passwords %+v", res.Passwords)
	}

	rec = env.do(t, jsonRequest(t, http.MethodPost, "/v1/password", map[string]any{"length": 2}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestQREncodeDecodeRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, jsonRequest(t, http.MethodPost, "/v1/qr/encode", map[string]any{
		"data": "https://example.com/artifact", "size": 400,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %s", ct)
	}

	rec = env.do(t, multipartRequest(t, "/v1/qr/decode", nil,
		upload{field: "file", name: "qr.png", data: rec.Body.Bytes()},
	))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res map[string]string
	decodeBody(t, rec, &res)
	if res["text"] != "https://example.com/artifact" {
		t.Fatalf("unexpected decode %q", res["text"])
	}
}

func TestQREncodeSVGAndFormatCheck(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, jsonRequest(t, http.MethodPost, "/v1/qr/encode", map[string]any{"data": "hello", "format": "svg"}))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<svg") {
		t.Fatalf("expected svg, got %d", rec.Code)
	}
	rec = env.do(t, jsonRequest(t, http.MethodPost, "/v1/qr/encode", map[string]any{"data": "hello", "format": "pdf"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestQREncodeTypedPayload(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, jsonRequest(t, http.MethodPost, "/v1/qr/encode", map[string]any{
		"type":   "wifi",
		"fields": map[string]string{"ssid": "lab", "password": "s3cret"},
		"size":   400,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, multipartRequest(t, "/v1/qr/decode", nil,
		upload{field: "file", name: "qr.png", data: rec.Body.Bytes()},
	))
	var res map[string]string
	decodeBody(t, rec, &res)
	if res["text"] != "WIFI:T:WPA;S:lab;P:s3cret;;" {
		t.Fatalf("unexpected decode %q", res["text"])
	}

	rec = env.do(t, jsonRequest(t, http.MethodPost, "/v1/qr/encode", map[string]any{"type": "fax"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown payload type, got %d", rec.Code)
	}
}

func TestFailedToolRaisesNotification(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, jsonRequest(t, http.MethodPost, "/v1/qr/encode", map[string]any{"data": ""}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/notifications", nil))
	var res struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	decodeBody(t, rec, &res)
	if len(res.Notifications) != 1 || res.Notifications[0].Level != notify.LevelError {
		t.Fatalf("unexpected notifications %+v", res.Notifications)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/v1/notifications/"+res.Notifications[0].ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/v1/notifications/"+res.Notifications[0].ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestConvertToJPEG(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, multipartRequest(t, "/v1/convert",
		map[string]string{"format": "jpeg", "quality": "0.7"},
		upload{field: "files", name: "in.png", data: testImage(t, 32, 24)},
	))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %s", ct)
	}
}

func TestConvertRejectsUnsupportedType(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, multipartRequest(t, "/v1/convert",
		map[string]string{"format": "png"},
		upload{field: "files", name: "notes.txt", data: []byte("just some text")},
	))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d: %s", rec.Code, rec.Body.String())
	}

	active := env.notices.Active()
	if len(active) != 1 || active[0].Level != notify.LevelError {
		t.Fatalf("expected one error notification for the rejected upload, got %+v", active)
	}
}

func TestOversizedUploadRaisesNotification(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.tools.Limits.ImageMaxBytes = 64
	rec := env.do(t, multipartRequest(t, "/v1/qr/decode", nil,
		upload{field: "file", name: "big.png", data: testImage(t, 32, 32)},
	))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}

	active := env.notices.Active()
	if len(active) != 1 || active[0].Level != notify.LevelError {
		t.Fatalf("expected one error notification for the oversized upload, got %+v", active)
	}
}

func TestPDFKeepsUploadOrder(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, multipartRequest(t, "/v1/pdf",
		map[string]string{"page_size": "a4", "margin_mm": "5"},
		upload{field: "files", name: "1.png", data: testImage(t, 40, 20)},
		upload{field: "files", name: "2.png", data: testImage(t, 20, 40)},
	))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "application/pdf" || rec.Header().Get("X-Artifact-Pages") != "2" {
		t.Fatalf("unexpected headers %v", rec.Header())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("expected a PDF body")
	}
}

func TestSignatureExport(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, jsonRequest(t, http.MethodPost, "/v1/signature", map[string]any{
		"strokes": []map[string]any{{
			"points": []map[string]float64{{"x": 10, "y": 10}, {"x": 80, "y": 40}, {"x": 150, "y": 20}},
		}},
		"width": 200, "height": 80,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 80 {
		t.Fatalf("unexpected size %v", img.Bounds())
	}

	rec = env.do(t, jsonRequest(t, http.MethodPost, "/v1/signature", map[string]any{"strokes": []any{}}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty pad, got %d", rec.Code)
	}
}

func TestNotesLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, jsonRequest(t, http.MethodPut, "/v1/notes/team-notes", map[string]any{
		"windows": []string{"first", "second"},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	pw := "correct horse"
	rec = env.do(t, jsonRequest(t, http.MethodPut, "/v1/notes/team-notes", map[string]any{
		"windows":      []string{"first", "second"},
		"new_password": pw,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/notes/team-notes", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a password, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/notes/team-notes", nil)
	req.Header.Set(notePasswordHeader, "wrong")
	if rec = env.do(t, req); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/notes/team-notes", nil)
	req.Header.Set(notePasswordHeader, pw)
	rec = env.do(t, req)
	var note notes.Note
	decodeBody(t, rec, &note)
	if !note.IsPasswordProtected || len(note.Windows) != 2 || note.Windows[1] != "second" {
		t.Fatalf("unexpected note %+v", note)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/notes/team-notes", nil)
	req.Header.Set(notePasswordHeader, pw)
	if rec = env.do(t, req); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/v1/notes/team-notes", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestCreateAndStartLocalJob(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := t.TempDir()
	input := filepath.Join(dir, "page.png")
	if err := os.WriteFile(input, testImage(t, 10, 10), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	rec := env.do(t, jsonRequest(t, http.MethodPost, "/v1/jobs", map[string]any{
		"source_type": "local_file",
		"object_keys": []string{input},
		"format":      "pdf",
	}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]any
	decodeBody(t, rec, &created)
	jobID := created["job_id"].(string)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/v1/jobs/"+jobID+"/start", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.queue.payloads) != 1 || env.queue.payloads[0].ObjectKeys[0] != input {
		t.Fatalf("unexpected payloads %+v", env.queue.payloads)
	}
	job, _, _ := env.jobs.Get(context.Background(), jobID)
	if job.Status != domain.JobStatusQueued {
		t.Fatalf("expected queued, got %s", job.Status)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/v1/jobs/"+jobID+"/start", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a queued job, got %d", rec.Code)
	}
}

func TestObjectStoreJobPresignsAndChecksSources(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, jsonRequest(t, http.MethodPost, "/v1/jobs", map[string]any{
		"source_type": "object_store",
		"object_keys": []string{"uploads/a.png", "uploads/b.png"},
		"format":      "zip",
	}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		JobID   string         `json:"job_id"`
		Uploads []uploadTarget `json:"uploads"`
	}
	decodeBody(t, rec, &created)
	if len(created.Uploads) != 2 || created.Uploads[1].PresignedPutURL == "" {
		t.Fatalf("unexpected uploads %+v", created.Uploads)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/v1/jobs/"+created.JobID+"/start", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a missing source, got %d", rec.Code)
	}
}

func TestCreateJobValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, jsonRequest(t, http.MethodPost, "/v1/jobs", map[string]any{
		"source_type": "local_file",
		"object_keys": []string{"a.png"},
		"format":      "tiff",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/v1/jobs/missing/start", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRateLimitRejectsMutations(t *testing.T) {
	env := newTestEnv(t, denyLimiter{})
	rec := env.do(t, jsonRequest(t, http.MethodPost, "/v1/hash/text", map[string]any{"text": "a", "algorithms": []string{"md5"}}))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/notifications", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected reads to bypass the limiter, got %d", rec.Code)
	}
}

func TestMetricsExposeToolOutcomes(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, jsonRequest(t, http.MethodPost, "/v1/hash/text", map[string]any{"text": "a", "algorithms": []string{"md5"}}))
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `artifactkit_tool_operations_total{outcome="success",tool="hash"} 1`) {
		t.Fatalf("tool metric missing from output")
	}
	if !strings.Contains(string(body), `artifactkit_api_requests_total{method="POST",route="/v1/hash/text",status="200"} 1`) {
		t.Fatalf("request metric missing from output")
	}
}

func TestPreviewWebsocket(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/preview?format=png", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(8 << 20)

	if err := conn.Write(ctx, websocket.MessageBinary, testImage(t, 24, 24)); err != nil {
		t.Fatalf("write image: %v", err)
	}
	typ, frame, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read first frame: %v", err)
	}
	if typ != websocket.MessageBinary {
		t.Fatalf("expected a binary frame, got %v", typ)
	}
	if _, err := png.Decode(bytes.NewReader(frame)); err != nil {
		t.Fatalf("first frame is not a png: %v", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"brightness":0.4,"filter":"grayscale"}`)); err != nil {
		t.Fatalf("write params: %v", err)
	}
	typ, frame, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("read second frame: %v", err)
	}
	if typ != websocket.MessageBinary {
		t.Fatalf("expected a binary frame, got %v: %s", typ, frame)
	}
	img, err := png.Decode(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("second frame is not a png: %v", err)
	}
	r, g, b, _ := img.At(5, 5).RGBA()
	if r != g || g != b {
		t.Fatalf("expected a grayscale frame, got %d %d %d", r, g, b)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func TestScanToPDF(t *testing.T) {
	env := newTestEnv(t, nil)
	img := testImage(t, 60, 40)
	rec := env.do(t, multipartRequest(t, "/v1/scan", map[string]string{"filter": "bw", "name": "receipts"},
		upload{field: "files", name: "a.png", data: img},
		upload{field: "files", name: "b.png", data: img},
	))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Artifact-Pages"); got != "2" {
		t.Fatalf("expected 2 pages, got %q", got)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "receipts.pdf") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}

	rec = env.do(t, multipartRequest(t, "/v1/scan", map[string]string{"filter": "neon"},
		upload{field: "files", name: "a.png", data: img},
	))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown filter, got %d", rec.Code)
	}
}

func TestRateLimitChargesRouteCost(t *testing.T) {
	limiter := &costLimiter{charged: map[string]int{}}
	env := newTestEnv(t, limiter)
	img := testImage(t, 8, 8)

	env.do(t, jsonRequest(t, http.MethodPost, "/v1/hash/text", map[string]any{"text": "a", "algorithms": []string{"md5"}}))
	rec := env.do(t, multipartRequest(t, "/v1/pdf", nil, upload{field: "files", name: "a.png", data: img}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := limiter.charged["anonymous:/v1/hash/text"]; got != 1 {
		t.Fatalf("expected hash to cost 1, got %d", got)
	}
	if got := limiter.charged["anonymous:/v1/pdf"]; got != 2 {
		t.Fatalf("expected pdf to cost 2, got %d", got)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "8" {
		t.Fatalf("unexpected remaining %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestLookupRoutes(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/v1/enhance/filters", nil))
	var filters map[string][]string
	decodeBody(t, rec, &filters)
	if len(filters["filters"]) == 0 {
		t.Fatalf("expected filter names, got %+v", filters)
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/idphoto/presets", nil))
	var presets struct {
		Presets []transform.PhotoPreset `json:"presets"`
	}
	decodeBody(t, rec, &presets)
	if len(presets.Presets) == 0 || presets.Presets[0].WidthMM <= 0 {
		t.Fatalf("unexpected presets %+v", presets.Presets)
	}

	rec = env.do(t, jsonRequest(t, http.MethodPost, "/v1/password/strength", map[string]any{"password": "abc"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var weak password.Strength
	decodeBody(t, rec, &weak)

	rec = env.do(t, jsonRequest(t, http.MethodPost, "/v1/password/strength", map[string]any{"password": "V3ry-l0ng&Unpredictable!pass"}))
	var strong password.Strength
	decodeBody(t, rec, &strong)
	if strong.Score <= weak.Score {
		t.Fatalf("expected a higher score for the long password: %+v vs %+v", strong, weak)
	}
}
