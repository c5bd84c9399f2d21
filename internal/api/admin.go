package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/services"
)

func (s *Server) attendanceReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "event_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, rows, err := s.Reports.Attendance(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	csvHeaders(w, "attendance_"+id.String()+".csv")
	if err := services.WriteAttendanceCSV(w, rows); err != nil {
		s.Log.WithError(err).Warn("attendance report write failed")
	}
}

func (s *Server) evaluationReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "event_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, rows, err := s.Reports.Evaluation(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	csvHeaders(w, "evaluation_"+id.String()+".csv")
	if err := services.WriteEvaluationCSV(w, rows); err != nil {
		s.Log.WithError(err).Warn("evaluation report write failed")
	}
}

func csvHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

func limitParam(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

func (s *Server) listOutbox(w http.ResponseWriter, r *http.Request) {
	out, err := s.Outbox.ListOutbox(r.Context(), r.URL.Query().Get("pending") == "true", limitParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listDLQ(w http.ResponseWriter, r *http.Request) {
	out, err := s.Outbox.ListDLQ(r.Context(), r.URL.Query().Get("unresolved") == "true", limitParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// retryDLQ puts a dead-lettered change back on the outbox for the sync worker.
func (s *Server) retryDLQ(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: id must be an integer", errs.ErrInvalidInput))
		return
	}
	if err := s.Outbox.Requeue(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "requeued"})
}
