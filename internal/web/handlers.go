package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/journalimport/internal/core"
	"github.com/JonMunkholm/journalimport/internal/intake"
	"github.com/JonMunkholm/journalimport/internal/logging"
	"github.com/JonMunkholm/journalimport/internal/web/templates"
)

const (
	// multipartOverhead is allowed on top of the file size limit for the
	// multipart framing and the other form fields.
	multipartOverhead = 1 << 20

	// multipartMemory is how much of a form is kept in memory before
	// spilling to temp files.
	multipartMemory = 32 << 20

	defaultListLimit = 50
	maxListLimit     = 500
)

// handleHealth reports liveness with the dispatcher state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":     "ok",
		"dispatcher": s.service.DispatcherStatus(),
	})
}

// readSubmission parses the multipart form into a submit request. The
// file goes in "file"; "project_id" and "user_id" are optional.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (core.SubmitRequest, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.SubmitRequest{}, fmt.Errorf("%w: request body over %d bytes", intake.ErrFileTooLarge, tooLarge.Limit)
		}
		return core.SubmitRequest{}, fmt.Errorf("%w: %v", core.ErrBadForm, err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return core.SubmitRequest{}, core.ErrNoFile
	}
	if err != nil {
		return core.SubmitRequest{}, fmt.Errorf("%w: %v", core.ErrBadForm, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return core.SubmitRequest{}, fmt.Errorf("read upload: %w", err)
	}

	req := core.SubmitRequest{
		Filename: header.Filename,
		UserID:   r.FormValue("user_id"),
		Data:     data,
	}
	if raw := r.FormValue("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return core.SubmitRequest{}, fmt.Errorf("%w: project_id %q", core.ErrInvalidID, raw)
		}
		req.ProjectID = uuid.NullUUID{UUID: id, Valid: true}
	}
	return req, nil
}

// handleCreateUpload accepts a file and returns the pending upload.
func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	req, err := s.readSubmission(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	u, err := s.service.Submit(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/uploads/"+u.ID.String())
	writeJSONStatus(w, http.StatusCreated, u)
}

// handleUploadForm is the browser form target; it redirects to the
// upload's page.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	req, err := s.readSubmission(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	u, err := s.service.Submit(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	http.Redirect(w, r, "/uploads/"+u.ID.String(), http.StatusSeeOther)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := s.service.RecentUploads(r.Context(), queryLimit(r, defaultListLimit))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, uploads)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "uploadID")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	u, err := s.service.Upload(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, u)
}

// handleUploadStatus returns the polling view: status, entry count, error
// message and the most recent log entries.
func (s *Server) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "uploadID")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	st, err := s.service.Status(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, st)
}

func (s *Server) handleUploadLogs(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "uploadID")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	logs, err := s.service.Logs(r.Context(), id, queryLimit(r, 0))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, logs)
}

func (s *Server) handleProjectSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "projectID")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sum, err := s.service.ProjectSummary(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, sum)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uploads, err := s.service.RecentUploads(r.Context(), defaultListLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.render(w, r, templates.Dashboard(uploads, intake.Allowed()))
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "uploadID")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	u, err := s.service.Upload(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logs, err := s.service.Logs(r.Context(), id, 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.render(w, r, templates.UploadDetailPage(templates.UploadDetailParams{Upload: u, Logs: logs}))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "path", r.URL.Path, "error", err)
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s %q", core.ErrInvalidID, param, raw)
	}
	return id, nil
}

// queryLimit reads ?limit=, clamped to maxListLimit. Missing or malformed
// values give def.
func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxListLimit)
}
