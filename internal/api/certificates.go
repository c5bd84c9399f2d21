package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
	"github.com/sirdesai22/certify-service/internal/services"
)

type issueResponse struct {
	Certificate   models.Certificate `json:"certificate"`
	Created       bool               `json:"created"`
	Emailed       bool               `json:"emailed"`
	DeliveryError string             `json:"delivery_error,omitempty"`
}

func (s *Server) issueCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := services.DefaultIssueOptions()
	if err := s.decode(r, &opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Certificates.Issue(r.Context(), id, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body := issueResponse{Certificate: res.Certificate, Created: res.Created, Emailed: res.Emailed}
	if res.DeliveryErr != nil {
		body.DeliveryError = res.DeliveryErr.Error()
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, body)
}

// listCertificates lists one participant's certificates, or all of them for admins.
func (s *Server) listCertificates(w http.ResponseWriter, r *http.Request) {
	participantID, err := queryID(r, "participant")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user := currentUser(r.Context())
	if participantID == nil && !s.Policy.IsAdmin(user) {
		s.writeError(w, r, fmt.Errorf("%w: participant is required", errs.ErrForbidden))
		return
	}
	if participantID != nil {
		p, err := s.Participants.Get(r.Context(), *participantID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !s.Policy.CanAccessParticipant(user, p) {
			s.writeError(w, r, fmt.Errorf("%w: not your registration", errs.ErrForbidden))
			return
		}
	}
	certs, err := s.Certificates.List(r.Context(), participantID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for i := range certs {
		if certs[i].Participant != nil {
			view := s.participantView(r, *certs[i].Participant)
			certs[i].Participant = &view
		}
	}
	writeJSON(w, http.StatusOK, certs)
}

func (s *Server) downloadCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cert, err := s.Certificates.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cert.Participant == nil || !s.Policy.CanAccessParticipant(currentUser(r.Context()), *cert.Participant) {
		s.writeError(w, r, fmt.Errorf("%w: not your certificate", errs.ErrForbidden))
		return
	}
	data, name, err := s.Certificates.Document(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) resendCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cert, err := s.Certificates.Resend(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cert.Participant = nil
	writeJSON(w, http.StatusOK, cert)
}

// verify is public. Unknown codes answer 200 with valid=false.
func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	v, err := s.Certificates.Verify(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
