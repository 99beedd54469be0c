package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sofintel/sof-extractor/constants"
	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/entity"
	"github.com/sofintel/sof-extractor/internal/export"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type uploadResponse struct {
	JobID  uuid.UUID           `json:"job_id"`
	Status constants.JobStatus `json:"status"`
}

// handleUpload accepts a multipart document, registers a queued job, and
// returns its id without waiting for processing.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: parse multipart form: %v", common.ErrInvalidInput, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: missing form field %q", common.ErrInvalidInput, "file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	id, err := s.manager.Submit(r.Context(), data, header.Filename,
		header.Header.Get("Content-Type"), ownerFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, uploadResponse{JobID: id, Status: constants.JobStatusQueued})
}

type statusResponse struct {
	JobID     uuid.UUID           `json:"job_id"`
	Status    constants.JobStatus `json:"status"`
	Filename  string              `json:"filename"`
	CreatedAt time.Time           `json:"created_at"`
	Error     string              `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Filename:  job.Filename,
		CreatedAt: job.CreatedAt,
		Error:     job.Error,
	})
}

// handleResult returns the full job record once the job is terminal, so a
// failed job's error is retrievable here too. Jobs still in flight yield a
// conflict so clients keep polling status instead.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !job.Status.Terminal() {
		s.writeError(w, r, fmt.Errorf("%w: status is %q", common.ErrInvalidState, job.Status))
		return
	}
	if job.Events == nil {
		job.Events = []entity.Event{}
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.manager.ListByOwner(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summaries := make([]entity.Summary, 0, len(list))
	for i := range list {
		summaries = append(summaries, list[i].Summarize())
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, filename, contentType, err := export.Format(job, r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("http.export.write", "error", err)
	}
}

func (s *Server) jobFromRequest(r *http.Request) (*entity.Job, error) {
	id, err := uuid.Parse(chi.URLParam(r, "job_id"))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed job id", common.ErrInvalidInput)
	}
	return s.manager.Get(r.Context(), id, ownerFrom(r.Context()))
}
