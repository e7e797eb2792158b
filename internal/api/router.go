// Package api serves the chat webhook and the operational endpoints.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/middleware"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/worker"
)

// Executor runs chat text on behalf of a requester and returns the reply
// segments.
type Executor interface {
	Execute(ctx context.Context, requesterID int64, text string) []string
}

// Submitter schedules background jobs.
type Submitter interface {
	Submit(name string, job worker.Job) (string, error)
}

// Update is the subset of a chat update the bot reads.
type Update struct {
	UpdateID int64          `json:"update_id"`
	Message  *UpdateMessage `json:"message"`
}

type UpdateMessage struct {
	From struct {
		ID int64 `json:"id"`
	} `json:"from"`
	Chat struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

// Handler holds the webhook dependencies.
type Handler struct {
	token    string
	executor Executor
	jobs     Submitter
	replies  ReplySender
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// Option customizes a Handler.
type Option func(*Handler)

// WithLogger overrides the handler logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithGatherer sets the registry exposed on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		if g != nil {
			h.gatherer = g
		}
	}
}

// NewHandler builds the webhook handler. token is the secret path segment
// the chat platform posts updates to.
func NewHandler(token string, executor Executor, jobs Submitter, replies ReplySender, opts ...Option) *Handler {
	h := &Handler{
		token:    token,
		executor: executor,
		jobs:     jobs,
		replies:  replies,
		gatherer: prometheus.DefaultGatherer,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Router returns the gin engine serving the webhook, /healthz and /metrics.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(h.logger), gin.Recovery())

	r.POST("/webhook/:token", h.handleWebhook)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	return r
}

func (h *Handler) validToken(got string) bool {
	return h.token != "" && subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

func (h *Handler) handleWebhook(c *gin.Context) {
	if !h.validToken(c.Param("token")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	var update Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update"})
		return
	}
	// Other update kinds (edits, callbacks) are acknowledged and dropped.
	if update.Message == nil || update.Message.Text == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	msg := *update.Message
	requestID := middleware.GetRequestID(c)
	jobID, err := h.jobs.Submit("chat-command", func(ctx context.Context) error {
		return h.process(ctx, requestID, msg)
	})
	switch {
	case errors.Is(err, worker.ErrFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Busy, retry later"})
		return
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Shutting down"})
		return
	}

	h.logger.Debug("update accepted",
		zap.String("request_id", requestID),
		zap.String("job_id", jobID),
		zap.Int64("update_id", update.UpdateID))
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (h *Handler) process(ctx context.Context, requestID string, msg UpdateMessage) error {
	chunks := h.executor.Execute(ctx, msg.From.ID, msg.Text)
	for i, chunk := range chunks {
		if err := h.replies.Send(ctx, msg.Chat.ID, chunk); err != nil {
			h.logger.Warn("reply failed",
				zap.String("request_id", requestID),
				zap.Int64("chat_id", msg.Chat.ID),
				zap.Int("segment", i),
				zap.Error(err))
			return err
		}
	}
	return nil
}
