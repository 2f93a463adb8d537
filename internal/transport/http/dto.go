package http

import (
	"context"
	"errors"
	"net/http"

	"gifts-assessment-service/internal/domain"
	"github.com/gin-gonic/gin"
)

type startRequest struct {
	Locale           string `json:"locale"`
	QuestionsPerGift int    `json:"questionsPerGift"`
}

type submitRequest struct {
	Answers    map[string]int `json:"answers" binding:"required"`
	Analyze    bool           `json:"analyze"`
	Regenerate bool           `json:"regenerate"`
}

type submitResponse struct {
	SessionID string                 `json:"sessionId"`
	Ranked    []domain.GiftScore     `json:"ranked"`
	Analysis  *domain.AnalysisResult `json:"analysis,omitempty"`
}

// insightRequest is the body of the server tier endpoint.
type insightRequest struct {
	Locale     string             `json:"locale"`
	Regenerate bool               `json:"regenerate"`
	Scores     []domain.GiftScore `json:"scores" binding:"required"`
}

func vectorFrom(scores []domain.GiftScore) domain.ScoreVector {
	v := domain.ScoreVector{Scores: make(map[domain.GiftKey]domain.GiftScore, len(scores))}
	for _, s := range scores {
		if s.Gift == "" {
			continue
		}
		v.Scores[s.Gift] = s
	}
	return v
}

func errorBody(message, code string) gin.H {
	return gin.H{"error": gin.H{"message": message, "code": code}}
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrSessionCompleted):
		return http.StatusConflict, "session_completed"
	case errors.Is(err, domain.ErrAnalysisSuperseded):
		return http.StatusConflict, "superseded"
	case errors.Is(err, domain.ErrInvalidQuizSize), errors.Is(err, domain.ErrEmptyScores):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrNoQuestions):
		return http.StatusServiceUnavailable, "no_questions"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	c.JSON(status, errorBody(err.Error(), code))
}
