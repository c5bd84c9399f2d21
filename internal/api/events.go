package api

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/importer"
	"github.com/sirdesai22/certify-service/internal/models"
	"github.com/sirdesai22/certify-service/internal/services"
)

const maxUpload = 10 << 20

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.Events.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var in services.EventInput
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	ev, err := s.Events.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// getEvent includes participants for admins only.
func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	admin := s.Policy.IsAdmin(currentUser(r.Context()))
	ev, err := s.Events.Get(r.Context(), id, admin)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !admin {
		ev.Quizzes = hideAnswers(ev.Quizzes)
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in services.EventPatch
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	ev, err := s.Events.Update(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Events.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) joinEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in services.JoinInput
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, created, err := s.Participants.Join(r.Context(), id, currentUser(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"participant": s.participantView(r, p), "created": created})
}

// eventQR returns the kiosk code of an event with a PNG rendering of it.
func (s *Server) eventQR(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	code, err := s.Events.KioskCode(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	png, err := s.QR.Encode(code, 300)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"qr_code": code,
		"image":   "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
}

func (s *Server) importParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: multipart form: %v", errs.ErrInvalidInput, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: file is required", errs.ErrInvalidInput))
		return
	}
	defer file.Close()

	rows, err := importer.Read(header.Filename, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Participants.ImportParticipants(r.Context(), id, rows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listQuizzes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	quizzes, err := s.Quizzes.ListQuizzes(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !s.Policy.IsAdmin(currentUser(r.Context())) {
		quizzes = hideAnswers(quizzes)
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (s *Server) createQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in services.QuizInput
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	q, err := s.Quizzes.CreateQuiz(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *Server) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Quizzes.DeleteQuiz(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func hideAnswers(qs []models.Quiz) []models.Quiz {
	out := make([]models.Quiz, len(qs))
	for i, q := range qs {
		q.CorrectAnswer = ""
		out[i] = q
	}
	return out
}
