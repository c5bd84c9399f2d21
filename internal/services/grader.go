package services

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/sirdesai22/certify-service/internal/models"
)

// PassThreshold is the minimum score, in percent, that passes a quiz.
const PassThreshold = 70.0

type QuestionResult struct {
	QuizID        uuid.UUID `json:"quiz_id"`
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	CorrectAnswer string    `json:"correct_answer,omitempty"`
	Correct       bool      `json:"correct"`
	Points        int       `json:"points"`
	Awarded       int       `json:"awarded"`
}

type QuizResult struct {
	Score        float64          `json:"score"`
	Passed       bool             `json:"passed"`
	TotalPoints  int              `json:"total_points"`
	MaxPoints    int              `json:"max_points"`
	CorrectCount int              `json:"correct_count"`
	Results      []QuestionResult `json:"results"`
}

// GradeQuiz scores answers keyed by quiz id. Missing answers count as empty strings.
func GradeQuiz(quizzes []models.Quiz, answers map[string]string) QuizResult {
	ordered := make([]models.Quiz, len(quizzes))
	copy(ordered, quizzes)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	res := QuizResult{Results: make([]QuestionResult, 0, len(ordered))}
	for _, q := range ordered {
		res.MaxPoints += q.Points

		answer := answers[q.ID.String()]
		qr := QuestionResult{
			QuizID:        q.ID,
			Question:      q.Question,
			Answer:        answer,
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
		}
		if strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer)) {
			qr.Correct = true
			qr.Awarded = q.Points
			res.TotalPoints += q.Points
			res.CorrectCount++
		}
		res.Results = append(res.Results, qr)
	}

	if res.MaxPoints > 0 {
		res.Score = float64(res.TotalPoints) / float64(res.MaxPoints) * 100
	}
	res.Passed = res.Score >= PassThreshold
	return res
}

// Redacted returns the result without the answer key, for participant-facing responses.
func (r QuizResult) Redacted() QuizResult {
	out := r
	out.Results = make([]QuestionResult, len(r.Results))
	for i, q := range r.Results {
		q.CorrectAnswer = ""
		out.Results[i] = q
	}
	return out
}
