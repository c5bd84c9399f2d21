package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirdesai22/certify-service/internal/models"
)

func TestGradeQuizEmpty(t *testing.T) {
	res := GradeQuiz(nil, map[string]string{})
	assert.Equal(t, 0, res.MaxPoints)
	assert.Equal(t, 0.0, res.Score)
	assert.False(t, res.Passed)
	assert.Empty(t, res.Results)
}

func TestGradeQuizIgnoresCaseAndWhitespace(t *testing.T) {
	q := models.Quiz{ID: uuid.New(), Question: "Capital of France?", CorrectAnswer: "paris", Points: 1}
	res := GradeQuiz([]models.Quiz{q}, map[string]string{q.ID.String(): " Paris "})
	assert.Equal(t, 100.0, res.Score)
	assert.True(t, res.Passed)
	assert.Equal(t, 1, res.CorrectCount)
}

func TestGradeQuizWeightsAndOrder(t *testing.T) {
	first := models.Quiz{ID: uuid.New(), Question: "Q1", CorrectAnswer: "a", Points: 3, Order: 2}
	second := models.Quiz{ID: uuid.New(), Question: "Q2", CorrectAnswer: "b", Points: 7, Order: 1}

	res := GradeQuiz([]models.Quiz{first, second}, map[string]string{
		first.ID.String(): "A",
		// second missing: graded as ""
	})
	assert.Equal(t, 10, res.MaxPoints)
	assert.Equal(t, 3, res.TotalPoints)
	assert.InDelta(t, 30.0, res.Score, 1e-9)
	assert.False(t, res.Passed)

	require.Len(t, res.Results, 2)
	assert.Equal(t, second.ID, res.Results[0].QuizID)
	assert.Equal(t, "", res.Results[0].Answer)
	assert.Equal(t, 0, res.Results[0].Awarded)
	assert.Equal(t, 3, res.Results[1].Awarded)
}

func TestGradeQuizPassThresholdIsInclusive(t *testing.T) {
	var quizzes []models.Quiz
	answers := map[string]string{}
	for i := 0; i < 10; i++ {
		q := models.Quiz{ID: uuid.New(), CorrectAnswer: "yes", Points: 1, Order: i}
		quizzes = append(quizzes, q)
		if i < 7 {
			answers[q.ID.String()] = "yes"
		}
	}
	res := GradeQuiz(quizzes, answers)
	assert.InDelta(t, 70.0, res.Score, 1e-9)
	assert.True(t, res.Passed)
}
