package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofintel/sof-extractor/constants"
	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/entity"
	"github.com/sofintel/sof-extractor/internal/jobs"
)

const testToken = "test-token"

// stubProcessor stands in for the extraction pipeline.
type stubProcessor struct {
	events  []entity.Event
	warning *entity.ValidationWarning
	err     error
}

func (s *stubProcessor) Process(context.Context, []byte, string) ([]entity.Event, *entity.ValidationWarning, error) {
	return s.events, s.warning, s.err
}

func newTestServer(t *testing.T, proc jobs.Processor) *Server {
	t.Helper()
	store := jobs.NewMemoryStore()
	m, err := jobs.NewManager(store, proc, jobs.ManagerConfig{
		SpoolDir: t.TempDir(),
		Workers:  2,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	auth := NewStaticTokenAuthenticator(testToken, "tester")
	return New(m, auth, Config{Addr: ":0"}, nil)
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func doRequest(t *testing.T, h http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadAndWait(t *testing.T, h http.Handler) uuid.UUID {
	t.Helper()
	body, contentType := multipartUpload(t, "sof.pdf", []byte("document bytes"))
	rec := doRequest(t, h, http.MethodPost, "/api/upload", body, contentType)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var up struct {
		JobID uuid.UUID `json:"job_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&up))

	require.Eventually(t, func() bool {
		rec := doRequest(t, h, http.MethodGet, "/api/status/"+up.JobID.String(), nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var st struct {
			Status constants.JobStatus `json:"status"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
		return st.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return up.JobID
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	srv := newTestServer(t, &stubProcessor{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRejectsMissingOrWrongToken(t *testing.T) {
	srv := newTestServer(t, &stubProcessor{})
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadStatusResultFlow(t *testing.T) {
	start := time.Date(2024, 8, 22, 6, 0, 0, 0, time.UTC)
	srv := newTestServer(t, &stubProcessor{events: []entity.Event{
		{Event: "Arrival", Start: &start, Location: "Rotterdam"},
	}})
	h := srv.Routes()

	id := uploadAndWait(t, h)

	rec := doRequest(t, h, http.MethodGet, "/api/result/"+id.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var job entity.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, constants.JobStatusCompleted, job.Status)
	require.Len(t, job.Events, 1)
	assert.Equal(t, "Arrival", job.Events[0].Event)
}

func TestResultReturnsFailedJobWithError(t *testing.T) {
	srv := newTestServer(t, &stubProcessor{err: common.ErrExtractionService})
	h := srv.Routes()

	id := uploadAndWait(t, h)

	rec := doRequest(t, h, http.MethodGet, "/api/result/"+id.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code, "failed jobs deliver their error through result")

	var job entity.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, constants.JobStatusFailed, job.Status)
	assert.Equal(t, "extraction service unavailable", job.Error)
	assert.Empty(t, job.Events)
}

func TestResultBeforeCompletionConflicts(t *testing.T) {
	// a processor that never finishes keeps the job out of completed state
	blocked := make(chan struct{})
	t.Cleanup(func() { close(blocked) })
	srv := newTestServer(t, processorFunc(func(ctx context.Context) ([]entity.Event, *entity.ValidationWarning, error) {
		select {
		case <-blocked:
		case <-ctx.Done():
		}
		return nil, nil, ctx.Err()
	}))
	h := srv.Routes()

	body, contentType := multipartUpload(t, "sof.pdf", []byte("document"))
	rec := doRequest(t, h, http.MethodPost, "/api/upload", body, contentType)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var up struct {
		JobID uuid.UUID `json:"job_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&up))

	rec = doRequest(t, h, http.MethodGet, "/api/result/"+up.JobID.String(), nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	srv := newTestServer(t, &stubProcessor{})
	h := srv.Routes()

	body, contentType := multipartUpload(t, "report.txt", []byte("text"))
	rec := doRequest(t, h, http.MethodPost, "/api/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusUnknownAndMalformedIDs(t *testing.T) {
	srv := newTestServer(t, &stubProcessor{})
	h := srv.Routes()

	rec := doRequest(t, h, http.MethodGet, "/api/status/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/status/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListJobs(t *testing.T) {
	srv := newTestServer(t, &stubProcessor{events: []entity.Event{}})
	h := srv.Routes()

	id := uploadAndWait(t, h)

	rec := doRequest(t, h, http.MethodGet, "/api/jobs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []entity.Summary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "sof.pdf", list[0].Filename)
}

func TestExportCSV(t *testing.T) {
	start := time.Date(2024, 8, 22, 6, 0, 0, 0, time.UTC)
	srv := newTestServer(t, &stubProcessor{events: []entity.Event{
		{Event: "Arrival", Start: &start},
	}})
	h := srv.Routes()

	id := uploadAndWait(t, h)

	rec := doRequest(t, h, http.MethodGet, fmt.Sprintf("/api/export/%s?format=csv", id), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sof_events_")
	assert.Contains(t, rec.Body.String(), "Arrival")
}

// processorFunc adapts a func to jobs.Processor.
type processorFunc func(ctx context.Context) ([]entity.Event, *entity.ValidationWarning, error)

func (f processorFunc) Process(ctx context.Context, _ []byte, _ string) ([]entity.Event, *entity.ValidationWarning, error) {
	return f(ctx)
}
