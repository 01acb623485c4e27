package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"habit-coach/internal/logger"
	"habit-coach/internal/middleware"
	"habit-coach/internal/model"
	"habit-coach/internal/service"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// MaxLabFileBytes caps an uploaded lab report.
const MaxLabFileBytes = 10 << 20

// PlanAgent produces a habit plan from an onboarding payload.
type PlanAgent interface {
	Execute(ctx context.Context, payload model.OutboundPayload) (*model.AgentResult, error)
}

type OnboardingHandler struct {
	agent    PlanAgent
	progress *service.ProgressService
	secret   []byte
	ttl      time.Duration
}

func NewOnboardingHandler(agent PlanAgent, progress *service.ProgressService, secret []byte, ttl time.Duration) *OnboardingHandler {
	return &OnboardingHandler{agent: agent, progress: progress, secret: secret, ttl: ttl}
}

// POST /api/onboarding
//
// JSON: {"data":{...},"lab_file":{"filename","mime_type","base64"},"start_date":"2026-10-18"}
// multipart: fields data (JSON) and start_date, file part lab_file.
func (h *OnboardingHandler) Submit(c *gin.Context) {
	req, status, err := h.bind(c)
	if err != nil {
		c.JSON(status, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	start := time.Now()
	if req.StartDate != "" {
		start, _ = time.ParseInLocation(time.DateOnly, req.StartDate, time.Local)
	}

	payload := service.BuildPayload(req.Data, req.LabFile)
	result, err := h.agent.Execute(c.Request.Context(), payload)
	if err != nil {
		var ae *service.AgentError
		if errors.As(err, &ae) {
			c.JSON(agentStatus(ae.Kind), gin.H{"error": ae.Kind, "details": ae.Detail})
			return
		}
		logger.Error("onboarding.failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.progress.Start(c.Request.Context(), result, start)
	if err != nil {
		logger.Error("onboarding.store_failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	token, err := middleware.IssueToken(h.secret, sess.ID, h.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logger.Info("onboarding.done", "session", sess.ID, "days", sess.Plan.DurationDays, "lab", payload.LabPDF != nil)
	c.JSON(http.StatusOK, model.OnboardingResponse{
		Token:            token,
		SessionID:        sess.ID,
		InterventionName: sess.InterventionName,
		Response:         sess.ResponseText,
		Plan:             sess.Plan,
	})
}

func (h *OnboardingHandler) bind(c *gin.Context) (*model.OnboardingRequest, int, error) {
	var req model.OnboardingRequest
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, http.StatusBadRequest, err
		}
		return &req, 0, nil
	}

	if raw := c.PostForm("data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Data); err != nil {
			return nil, http.StatusBadRequest, err
		}
	}
	req.StartDate = c.PostForm("start_date")
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return nil, http.StatusBadRequest, err
	}

	fh, err := c.FormFile("lab_file")
	if errors.Is(err, http.ErrMissingFile) {
		return &req, 0, nil
	}
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	if fh.Size > MaxLabFileBytes {
		return nil, http.StatusRequestEntityTooLarge, errors.New("lab file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, MaxLabFileBytes))
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType, _, _ = strings.Cut(mimetype.Detect(content).String(), ";")
	}
	req.LabFile = &model.LabFile{
		Filename: fh.Filename,
		MimeType: mimeType,
		Base64:   base64.StdEncoding.EncodeToString(content),
	}
	return &req, 0, nil
}

func agentStatus(kind service.Kind) int {
	switch kind {
	case service.KindBackendUnavailable:
		return http.StatusServiceUnavailable
	case service.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
