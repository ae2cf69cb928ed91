package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/codequest-app/codequest/internal/app/content"
	"github.com/codequest-app/codequest/internal/domain"
)

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.svc.Catalog.LoadCourses()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": courses})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := s.svc.Catalog.Course(chi.URLParam(r, "courseID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	course, err := s.svc.Catalog.Course(chi.URLParam(r, "courseID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"course_id": course.ID, "tasks": course.Tasks})
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if _, err := s.svc.Catalog.Task(taskID); err != nil {
		s.fail(w, r, err)
		return
	}
	qs, err := s.svc.Catalog.LoadQuestions(taskID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task_id": taskID, "questions": qs})
}

type answerRequest struct {
	Choice    *int    `json:"choice,omitempty"`
	Text      *string `json:"text,omitempty"`
	Positions []int   `json:"positions,omitempty"`
}

type answerResponse struct {
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	id, err := strconv.Atoi(chi.URLParam(r, "questionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "question id must be an integer")
		return
	}
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	qs, err := s.svc.Catalog.LoadQuestions(taskID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var q *domain.Question
	for i := range qs {
		if qs[i].ID == id {
			q = &qs[i]
			break
		}
	}
	if q == nil {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("question %d not found in task %s", id, taskID))
		return
	}

	var correct bool
	switch q.Kind {
	case domain.KindMultipleChoice:
		if req.Choice == nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "choice is required")
			return
		}
		correct = content.CheckChoice(*q, *req.Choice)
	case domain.KindEditText:
		if req.Text == nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "text is required")
			return
		}
		correct = content.CheckEditText(*q, *req.Text)
	case domain.KindPressMistake:
		correct = content.CheckMistakes(*q, req.Positions)
	case domain.KindFlipCard:
		writeError(w, http.StatusBadRequest, "invalid_request", "flip cards are self-graded")
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Correct: correct, Explanation: q.Explanation})
}

func (s *Server) handleListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := s.svc.Catalog.LoadRewards()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rewards": rewards})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	data, ok := s.svc.Catalog.Image(chi.URLParam(r, "name"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "image not found")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
