package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
)

type userKey struct{}

func currentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey{}).(*models.User)
	return u
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// subject validates an HS256 token and returns the user id it was issued for.
func (s *Server) subject(raw string) (uuid.UUID, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.JWTSecret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		sub, _ = claims["user_id"].(string)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: token has no user id", errs.ErrUnauthorized)
	}
	return id, nil
}

// authenticate attaches the caller to the request when a bearer token is present.
// A present but invalid token is rejected; an absent one is left to the handler.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(s.JWTSecret) == 0 {
			s.writeError(w, r, fmt.Errorf("%w: token auth is not configured", errs.ErrUnauthorized))
			return
		}
		id, err := s.subject(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		user, err := s.Users.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				err = fmt.Errorf("%w: unknown user", errs.ErrUnauthorized)
			}
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, &user)))
	})
}

func (s *Server) requireUser(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r.Context()) == nil {
			s.writeError(w, r, fmt.Errorf("%w: bearer token required", errs.ErrUnauthorized))
			return
		}
		h(w, r)
	}
}

func (s *Server) requireAdmin(h http.HandlerFunc) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !s.Policy.IsAdmin(currentUser(r.Context())) {
			s.writeError(w, r, fmt.Errorf("%w: admin only", errs.ErrForbidden))
			return
		}
		h(w, r)
	})
}

// participantFor loads the participant named in the path and checks the caller may act on it.
func (s *Server) participantFor(r *http.Request) (models.Participant, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return models.Participant{}, err
	}
	p, err := s.Participants.Get(r.Context(), id)
	if err != nil {
		return p, err
	}
	if !s.Policy.CanAccessParticipant(currentUser(r.Context()), p) {
		return p, fmt.Errorf("%w: not your registration", errs.ErrForbidden)
	}
	return p, nil
}
