package api

import (
	"errors"
	"net/http"
	"time"
	
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/katatrina/feedpush/internal/token"
	"github.com/katatrina/feedpush/internal/util"
	"github.com/katatrina/feedpush/internal/validator"
	"github.com/katatrina/feedpush/internal/worker"
	"github.com/rs/zerolog/log"
)

const (
	messageQueue     = worker.QueueCritical
	messageMaxRetry  = 5
	messageRetention = 24 * time.Hour
)

type sendMessageRequest struct {
	Token  string         `json:"token"`
	UserID string         `json:"user_id"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data"`
	// SendAt schedules the message. Scheduled messages can be cancelled until they run.
	SendAt *time.Time `json:"send_at"`
}

func (req *sendMessageRequest) validate() (violations []*FieldViolation) {
	switch {
	case req.Token == "" && req.UserID == "":
		violations = append(violations, fieldViolation("token", errors.New("either token or user_id is required")))
	case req.Token != "" && req.UserID != "":
		violations = append(violations, fieldViolation("user_id", errors.New("cannot be combined with token")))
	}
	
	if err := validator.ValidateTitle(req.Title); err != nil {
		violations = append(violations, fieldViolation("title", err))
	}
	if err := validator.ValidateBody(req.Body); err != nil {
		violations = append(violations, fieldViolation("body", err))
	}
	if err := validator.ValidatePayloadSize(req); err != nil {
		violations = append(violations, fieldViolation("data", err))
	}
	
	return violations
}

type sendMessageResponse struct {
	MessageID string `json:"message_id"`
}

// sendMessage queues a message for delivery to a token or to every token of a user.
func (server *Server) sendMessage(c *gin.Context) {
	authPayload := c.MustGet(authorizationPayloadKey).(*token.Payload)
	
	req := new(sendMessageRequest)
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	
	if violations := req.validate(); violations != nil {
		c.JSON(http.StatusBadRequest, failedValidationError(violations))
		return
	}
	
	messageID := util.NewMessageID()
	payload := &worker.PayloadSendNotification{
		MessageID: messageID,
		Token:     req.Token,
		UserID:    req.UserID,
		Title:     req.Title,
		Body:      req.Body,
		Data:      req.Data,
	}
	
	opts := []asynq.Option{
		asynq.TaskID(messageID),
		asynq.Queue(messageQueue),
		asynq.MaxRetry(messageMaxRetry),
		asynq.Retention(messageRetention),
	}
	if req.SendAt != nil {
		opts = append(opts, asynq.ProcessAt(*req.SendAt))
	}
	
	if err := server.taskDistributor.DistributeTaskSendNotification(c, payload, opts...); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("failed to distribute message")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}
	
	log.Info().Str("publisher", authPayload.Subject).Str("message_id", messageID).Msg("message accepted")
	c.JSON(http.StatusAccepted, sendMessageResponse{MessageID: messageID})
}

type messageResponse struct {
	MessageID     string     `json:"message_id"`
	State         string     `json:"state"`
	Retried       int        `json:"retried"`
	MaxRetry      int        `json:"max_retry"`
	LastError     string     `json:"last_error,omitempty"`
	NextProcessAt *time.Time `json:"next_process_at,omitempty"`
}

// getMessage reports the delivery state of a message.
func (server *Server) getMessage(c *gin.Context) {
	messageID := c.Param("messageID")
	
	info, err := server.taskInspector.GetTaskInfo(c, messageQueue, messageID)
	if err != nil {
		if isTaskNotFound(err) {
			c.JSON(http.StatusNotFound, errorResponse(ErrMessageNotFound))
			return
		}
		
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}
	
	resp := messageResponse{
		MessageID: info.ID,
		State:     info.State.String(),
		Retried:   info.Retried,
		MaxRetry:  info.MaxRetry,
		LastError: info.LastErr,
	}
	if !info.NextProcessAt.IsZero() {
		resp.NextProcessAt = &info.NextProcessAt
	}
	
	c.JSON(http.StatusOK, resp)
}

// cancelMessage removes a message that has not been processed yet.
func (server *Server) cancelMessage(c *gin.Context) {
	messageID := c.Param("messageID")
	
	err := server.taskInspector.DeleteTask(c, messageQueue, messageID)
	if err != nil {
		if isTaskNotFound(err) {
			c.JSON(http.StatusNotFound, errorResponse(ErrMessageNotFound))
			return
		}
		
		// asynq refuses to delete a task that is being processed.
		c.JSON(http.StatusConflict, errorResponse(err))
		return
	}
	
	c.Status(http.StatusNoContent)
}

func isTaskNotFound(err error) bool {
	return errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound)
}
