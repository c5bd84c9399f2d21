package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/logger"
	"github.com/sirdesai22/certify-service/internal/services"
)

const maxBody = 1 << 20

type errorBody struct {
	Error  string            `json:"error"`
	Unmet  []string          `json:"unmet_requirements,omitempty"`
	Fields map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrIneligible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrDuplicateSubmission), errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errs.ErrInvalidQR), errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrRender), errors.Is(err, errs.ErrDelivery):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: fields})
		return
	}

	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var inel *services.IneligibleError
	if errors.As(err, &inel) {
		body.Unmet = inel.Unmet
	}
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context(), s.Log).WithError(err).Error("request failed")
		body.Error = "internal server error"
	}
	writeJSON(w, status, body)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into v and validates it. An empty body leaves v untouched.
func (s *Server) decode(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", errs.ErrInvalidInput, err)
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := sonic.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%w: malformed json: %v", errs.ErrInvalidInput, err)
		}
	}
	return s.validate.Struct(v)
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a uuid", errs.ErrInvalidInput, name)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a uuid", errs.ErrInvalidInput, name)
	}
	return &id, nil
}
