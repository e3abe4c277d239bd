// internal/handlers/assessment.go
package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/models"
	"github.com/TraderInsightsLab/Sistem/internal/services"
)

// cookieKey is where the browser session remembers the test it is taking.
const cookieKey = "testID"

type AssessmentHandler struct {
	log    *zap.Logger
	funnel *services.Funnel
}

func NewAssessmentHandler(funnel *services.Funnel, log *zap.Logger) *AssessmentHandler {
	return &AssessmentHandler{log: log, funnel: funnel}
}

type startRequest struct {
	UserProfile models.UserProfile `json:"userProfile"`
}

type progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

type testView struct {
	Session  *models.Session `json:"session"`
	Progress progress        `json:"progress"`
}

func (h *AssessmentHandler) view(sess *models.Session) testView {
	return testView{
		Session:  sess,
		Progress: progress{Answered: len(sess.Answers), Total: len(h.funnel.Sessions().Catalog().List())},
	}
}

// Questions lists the catalog in display order.
func (h *AssessmentHandler) Questions(c *gin.Context) {
	respond(c, http.StatusOK, h.funnel.Sessions().Catalog().List())
}

func (h *AssessmentHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, h.log, apperr.Validation("invalid request body: %v", err))
		return
	}

	sess, err := h.funnel.StartSession(c.Request.Context(), req.UserProfile)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	session := sessions.Default(c)
	session.Set(cookieKey, sess.ID.String())
	if err := session.Save(); err != nil {
		h.log.Warn("Failed to remember test in cookie", zap.String("sessionID", sess.ID.String()), zap.Error(err))
	}

	respond(c, http.StatusCreated, h.view(sess))
}

// Current resumes the test remembered by the browser session.
func (h *AssessmentHandler) Current(c *gin.Context) {
	session := sessions.Default(c)
	raw, ok := session.Get(cookieKey).(string)
	if !ok {
		fail(c, h.log, apperr.NotFound("no test in progress"))
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		session.Delete(cookieKey)
		_ = session.Save()
		fail(c, h.log, apperr.NotFound("no test in progress"))
		return
	}

	sess, err := h.funnel.Sessions().Get(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, h.view(sess))
}

func (h *AssessmentHandler) Get(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	sess, err := h.funnel.Sessions().Get(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, h.view(sess))
}

func (h *AssessmentHandler) SubmitAnswer(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	var answer models.Answer
	if err := c.ShouldBindJSON(&answer); err != nil {
		fail(c, h.log, apperr.Validation("invalid answer: %v", err))
		return
	}

	sess, err := h.funnel.RecordAnswer(c.Request.Context(), id, answer)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, h.view(sess))
}

func (h *AssessmentHandler) Answers(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	answers, err := h.funnel.Sessions().Answers(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, answers)
}
