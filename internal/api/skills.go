package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opsdesk/triagent/internal/events"
	"github.com/opsdesk/triagent/internal/skills"
)

// listActiveSkills handles GET /api/v1/skills: the skills currently
// composed into prompts, in prompt order.
func (s *Server) listActiveSkills(w http.ResponseWriter, r *http.Request) {
	docs, err := s.skills.ListActive()
	if err != nil {
		s.logger.Error("failed to list skills", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list skills")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"skills": docs,
		"count":  len(docs),
	})
}

// listPendingSkills handles GET /api/v1/skills/pending: proposals
// awaiting a decision, oldest first.
func (s *Server) listPendingSkills(w http.ResponseWriter, r *http.Request) {
	docs, err := s.skills.ListPending()
	if err != nil {
		s.logger.Error("failed to list pending skills", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pending skills")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"skills": docs,
		"count":  len(docs),
	})
}

// getSkill handles GET /api/v1/skills/{skillID}. Pending proposals are
// looked up first so a reviewer sees the full document before deciding;
// active skills are searched as a fallback.
func (s *Server) getSkill(w http.ResponseWriter, r *http.Request) {
	skillID := chi.URLParam(r, "skillID")

	doc, err := s.skills.GetPending(skillID)
	if err == nil {
		writeJSON(w, http.StatusOK, doc)
		return
	}
	if !errors.Is(err, skills.ErrNotFound) {
		s.logger.Error("failed to load skill", "skill_id", skillID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load skill")
		return
	}

	active, err := s.skills.ListActive()
	if err != nil {
		s.logger.Error("failed to list skills", "skill_id", skillID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load skill")
		return
	}
	for _, doc := range active {
		if doc.ID == skillID {
			writeJSON(w, http.StatusOK, doc)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Sprintf("unknown skill %s", skillID))
}

// approveSkill handles POST /api/v1/skills/{skillID}/approve. Approval
// is idempotent; re-approving an already-active skill succeeds.
func (s *Server) approveSkill(w http.ResponseWriter, r *http.Request) {
	skillID := chi.URLParam(r, "skillID")

	if err := s.skills.Approve(skillID); err != nil {
		if errors.Is(err, skills.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown skill %s", skillID))
			return
		}
		s.logger.Error("failed to approve skill", "skill_id", skillID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to approve skill")
		return
	}

	s.publishSkillEvent(events.SubjectSkillApproved, skillID)
	writeJSON(w, http.StatusOK, map[string]string{
		"skill_id": skillID,
		"state":    string(skills.StateApproved),
	})
}

// rejectSkill handles POST /api/v1/skills/{skillID}/reject.
func (s *Server) rejectSkill(w http.ResponseWriter, r *http.Request) {
	skillID := chi.URLParam(r, "skillID")

	if err := s.skills.Reject(skillID); err != nil {
		if errors.Is(err, skills.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown skill %s", skillID))
			return
		}
		s.logger.Error("failed to reject skill", "skill_id", skillID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reject skill")
		return
	}

	s.publishSkillEvent(events.SubjectSkillRejected, skillID)
	writeJSON(w, http.StatusOK, map[string]string{
		"skill_id": skillID,
		"state":    string(skills.StateRejected),
	})
}

func (s *Server) publishSkillEvent(subject, skillID string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, map[string]string{"skill_id": skillID}); err != nil {
		s.logger.Warn("failed to publish skill event", "subject", subject, "skill_id", skillID, "error", err)
	}
}
