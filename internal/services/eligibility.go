package services

import (
	"strings"

	"gorm.io/datatypes"

	"github.com/sirdesai22/certify-service/internal/errs"
	"github.com/sirdesai22/certify-service/internal/models"
)

const (
	ReqAttendance = "attendance"
	ReqEvaluation = "evaluation"
	ReqQuiz       = "quiz"
)

// IneligibleError lists the requirements a participant has not met yet.
type IneligibleError struct {
	Unmet []string
}

func (e *IneligibleError) Error() string {
	return "participant is not eligible for a certificate: missing " + strings.Join(e.Unmet, ", ")
}

func (e *IneligibleError) Unwrap() error { return errs.ErrIneligible }

// IsEligible reports whether every enabled requirement of the event holds for p.
func IsEligible(e models.Event, p models.Participant) bool {
	return len(UnmetRequirements(e, p)) == 0
}

// UnmetRequirements returns the enabled requirements p fails, in a fixed order.
func UnmetRequirements(e models.Event, p models.Participant) []string {
	var unmet []string
	if requirementEnabled(e.Requirements, ReqAttendance, true) &&
		p.Status != models.StatusAttended && p.Status != models.StatusCompleted {
		unmet = append(unmet, ReqAttendance)
	}
	if requirementEnabled(e.Requirements, ReqEvaluation, false) && !p.HasEvaluated {
		unmet = append(unmet, ReqEvaluation)
	}
	if requirementEnabled(e.Requirements, ReqQuiz, false) && !p.QuizPassed {
		unmet = append(unmet, ReqQuiz)
	}
	return unmet
}

func requirementEnabled(reqs datatypes.JSONMap, key string, def bool) bool {
	v, ok := reqs[key]
	if !ok {
		return def
	}
	return truthy(v)
}

// truthy mirrors loose JSON truthiness: zero values, empty containers and
// "false"-like strings are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "0", "false", "no", "off":
			return false
		}
		return true
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
