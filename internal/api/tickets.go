package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opsdesk/triagent/internal/processor"
	"github.com/opsdesk/triagent/internal/runstore"
	"github.com/opsdesk/triagent/internal/ticket"
)

// runTimeout caps a run so an unresponsive model cannot pin a request
// forever.
const runTimeout = 30 * time.Minute

// uploadTickets handles POST /api/v1/tickets/upload. The batch arrives
// either as a multipart file (format from the filename extension) or as
// a raw JSON/CSV body (format from the query parameter or Content-Type).
// The whole batch is validated before anything is stored.
func (s *Server) uploadTickets(w http.ResponseWriter, r *http.Request) {
	body, format, err := uploadSource(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer body.Close()

	tickets, err := ticket.DecodeBatch(body, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ticket.ValidateBatch(tickets); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID := processor.NewRunID()
	ctx := r.Context()
	if err := s.runs.SaveTickets(ctx, runID, tickets); err != nil {
		s.logger.Error("failed to store tickets", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if err := s.runs.SaveRecord(ctx, runstore.Record{RunID: runID, Status: runstore.StatusUploaded}); err != nil {
		s.logger.Error("failed to store run record", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	s.logger.Info("batch uploaded", "run_id", runID, "tickets", len(tickets), "format", format)
	writeJSON(w, http.StatusCreated, map[string]any{
		"run_id":       runID,
		"ticket_count": len(tickets),
		"status":       runstore.StatusUploaded,
	})
}

// uploadSource resolves where the batch bytes come from and what format
// they are in.
func uploadSource(r *http.Request) (io.ReadCloser, string, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("no file provided: %v", err)
		}
		switch {
		case strings.HasSuffix(header.Filename, ".json"):
			return file, "json", nil
		case strings.HasSuffix(header.Filename, ".csv"):
			return file, "csv", nil
		default:
			file.Close()
			return nil, "", fmt.Errorf("file must be .json or .csv, got %q", header.Filename)
		}
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		if strings.Contains(contentType, "csv") {
			format = "csv"
		} else {
			format = "json"
		}
	}
	return r.Body, format, nil
}

// processRun handles POST /api/v1/tickets/process/{runID}. Processing
// is synchronous: the response carries the full summary. The run is
// detached from the client connection so a dropped request does not
// kill an in-flight batch mid-way.
func (s *Server) processRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	reqCtx := r.Context()

	rec, err := s.runs.GetRecord(reqCtx, runID)
	if errors.Is(err, runstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown run %s", runID))
		return
	}
	if err != nil {
		s.logger.Error("failed to load run record", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if rec.Status == runstore.StatusProcessing {
		writeError(w, http.StatusConflict, fmt.Sprintf("run %s is already processing", runID))
		return
	}

	tickets, err := s.runs.GetTickets(reqCtx, runID)
	if err != nil {
		s.logger.Error("failed to load tickets", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load tickets")
		return
	}

	rec.Status = runstore.StatusProcessing
	rec.Error = ""
	if err := s.runs.SaveRecord(reqCtx, rec); err != nil {
		s.logger.Error("failed to update run record", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start run")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	summary, err := s.runner.Run(ctx, runID, tickets)
	if err != nil {
		s.logger.Error("run failed", "run_id", runID, "error", err)
		rec.Status = runstore.StatusFailed
		rec.Error = err.Error()
		if serr := s.runs.SaveRecord(ctx, rec); serr != nil {
			s.logger.Error("failed to store run outcome", "run_id", runID, "error", serr)
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("run failed: %v", err))
		return
	}

	rec.Status = runstore.StatusCompleted
	rec.Summary = summary
	if err := s.runs.SaveRecord(ctx, rec); err != nil {
		s.logger.Error("failed to store run outcome", "run_id", runID, "error", err)
	}

	writeJSON(w, http.StatusOK, summary)
}

// runStatus handles GET /api/v1/tickets/status/{runID}.
func (s *Server) runStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	rec, err := s.runs.GetRecord(r.Context(), runID)
	if errors.Is(err, runstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown run %s", runID))
		return
	}
	if err != nil {
		s.logger.Error("failed to load run record", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	resp := map[string]any{
		"run_id": rec.RunID,
		"status": rec.Status,
	}
	if rec.Error != "" {
		resp["error"] = rec.Error
	}
	if rec.Summary != nil {
		resp["total_tickets"] = rec.Summary.TotalTickets
		resp["accuracy"] = rec.Summary.Accuracy
		resp["proposed_skill_ids"] = rec.Summary.ProposedSkillIDs
	}
	writeJSON(w, http.StatusOK, resp)
}

// runResults handles GET /api/v1/tickets/results/{runID}. Results exist
// only for completed runs.
func (s *Server) runResults(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	rec, err := s.runs.GetRecord(r.Context(), runID)
	if errors.Is(err, runstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown run %s", runID))
		return
	}
	if err != nil {
		s.logger.Error("failed to load run record", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if rec.Status != runstore.StatusCompleted {
		writeError(w, http.StatusConflict, fmt.Sprintf("run %s is %s, results require a completed run", runID, rec.Status))
		return
	}

	writeJSON(w, http.StatusOK, rec.Summary)
}
