package http

import (
	"net/http"

	"gifts-assessment-service/internal/app"
	"gifts-assessment-service/internal/insight"
	"gifts-assessment-service/internal/logger"
	"github.com/gin-gonic/gin"
)

// AssessmentHandler serves the REST assessment flow and the server insight tier.
type AssessmentHandler struct {
	service        *app.AssessmentService
	analyzer       *insight.Analyzer
	defaultPerGift int
	log            *logger.Logger
}

func NewAssessmentHandler(service *app.AssessmentService, analyzer *insight.Analyzer, defaultPerGift int, log *logger.Logger) *AssessmentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AssessmentHandler{
		service:        service,
		analyzer:       analyzer,
		defaultPerGift: defaultPerGift,
		log:            log.With("component", "assessment_handler"),
	}
}

// Start creates a session and returns its questions.
func (h *AssessmentHandler) Start(c *gin.Context) {
	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody(err.Error(), "invalid_request"))
			return
		}
	}
	perGift := req.QuestionsPerGift
	if perGift == 0 {
		perGift = h.defaultPerGift
	}
	res, err := h.service.Start(c.Request.Context(), identityFrom(c), req.Locale, perGift)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *AssessmentHandler) Questions(c *gin.Context) {
	questions, err := h.service.Questions(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": c.Param("id"), "questions": questions})
}

// Submit scores the answers and, when asked, analyzes the result.
func (h *AssessmentHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error(), "invalid_request"))
		return
	}
	sessionID := c.Param("id")
	scores, err := h.service.Submit(c.Request.Context(), sessionID, req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := submitResponse{SessionID: sessionID, Ranked: scores.Ranked()}
	if req.Analyze && h.analyzer != nil {
		locale := ""
		if session, err := h.service.Session(c.Request.Context(), sessionID); err == nil {
			locale = session.Locale
		}
		result, err := h.analyzer.Analyze(c.Request.Context(), insight.AnalysisRequest{
			Scores:     scores,
			Identity:   identityFrom(c),
			Locale:     locale,
			Regenerate: req.Regenerate,
		})
		if err != nil {
			h.log.Warn("analysis skipped", "session", sessionID, "error", err)
		} else {
			resp.Analysis = &result
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Insights is the privileged server tier: it analyzes on behalf of the token subject
// and writes the shared cache.
func (h *AssessmentHandler) Insights(c *gin.Context) {
	var req insightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error(), "invalid_request"))
		return
	}
	result, err := h.analyzer.Analyze(c.Request.Context(), insight.AnalysisRequest{
		Scores:     vectorFrom(req.Scores),
		Identity:   identityFrom(c),
		Locale:     req.Locale,
		Regenerate: req.Regenerate,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
