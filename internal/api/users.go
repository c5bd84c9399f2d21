package api

import (
	"net/http"

	"github.com/sirdesai22/certify-service/internal/services"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := s.decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.Users.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, err := s.Users.Get(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if u.Profile == nil {
		p, err := s.Users.Profile(r.Context(), u.ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		u.Profile = &p
	}
	writeJSON(w, http.StatusOK, u)
}

// myQR renders the caller's personal check-in code as a PNG.
func (s *Server) myQR(w http.ResponseWriter, r *http.Request) {
	p, err := s.Users.Profile(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	png, err := s.QR.Encode(p.QRCode, 300)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-QR-Code", p.QRCode)
	_, _ = w.Write(png)
}
