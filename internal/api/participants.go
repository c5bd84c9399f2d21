package api

import (
	"net/http"

	"github.com/sirdesai22/certify-service/internal/models"
	"github.com/sirdesai22/certify-service/internal/services"
)

func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	eventID, err := queryID(r, "event")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ps, err := s.Participants.List(r.Context(), eventID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) getParticipant(w http.ResponseWriter, r *http.Request) {
	p, err := s.participantFor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if p.Event != nil {
		p.Event.Quizzes, p.Event.Participants = nil, nil
	}
	writeJSON(w, http.StatusOK, s.participantView(r, p))
}

func (s *Server) deleteParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Participants.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) checkIn(w http.ResponseWriter, r *http.Request)  { s.attendance(w, r, true) }
func (s *Server) checkOut(w http.ResponseWriter, r *http.Request) { s.attendance(w, r, false) }

func (s *Server) attendance(w http.ResponseWriter, r *http.Request, in bool) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body services.AttendanceInput
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	body.ScannedBy = currentUser(r.Context()).Username

	mark := s.Participants.CheckOut
	if in {
		mark = s.Participants.CheckIn
	}
	p, err := mark(r.Context(), id, body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type evaluationRequest struct {
	Data map[string]any `json:"evaluation_data" validate:"required"`
}

func (s *Server) submitEvaluation(w http.ResponseWriter, r *http.Request) {
	p, err := s.participantFor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in evaluationRequest
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err = s.Participants.SubmitEvaluation(r.Context(), p.ID, in.Data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.participantView(r, p))
}

type quizRequest struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

func (s *Server) submitQuiz(w http.ResponseWriter, r *http.Request) {
	p, err := s.participantFor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in quizRequest
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Quizzes.Submit(r.Context(), p.ID, in.Answers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !s.Policy.IsAdmin(currentUser(r.Context())) {
		res = res.Redacted()
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) scanQR(w http.ResponseWriter, r *http.Request) {
	var in services.ScanInput
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.ScannedBy = currentUser(r.Context()).Username
	res, err := s.Participants.ScanQR(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// participantView hides the quiz answer key from everyone but admins.
func (s *Server) participantView(r *http.Request, p models.Participant) models.Participant {
	if !s.Policy.IsAdmin(currentUser(r.Context())) {
		p.QuizData = services.RedactQuizData(p.QuizData)
	}
	return p
}
