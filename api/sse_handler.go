package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	
	"github.com/gin-gonic/gin"
	"github.com/katatrina/feedpush/internal/event"
	"github.com/katatrina/feedpush/internal/registry"
	"github.com/rs/zerolog/log"
)

const streamKeepAliveInterval = 25 * time.Second

// streamRegistrationMessages streams foreground messages for a token as
// Server-Sent Events: "event: message\ndata: {payload}".
func (server *Server) streamRegistrationMessages(c *gin.Context) {
	token := c.Param("token")
	
	_, err := server.registrations.Get(c, token)
	if err != nil {
		if errors.Is(err, registry.ErrRegistrationNotFound) {
			c.JSON(http.StatusNotFound, errorResponse(err))
			return
		}
		
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}
	
	topic := event.RegistrationTopic(token)
	
	// Thiết lập header SSE
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()
	
	// Tạo channel cho client
	clientChan := make(chan event.Event, 8)
	server.eventSender.Register(topic, clientChan)
	defer server.eventSender.Unregister(topic, clientChan)
	
	keepAlive := time.NewTicker(streamKeepAliveInterval)
	defer keepAlive.Stop()
	
	// Gửi sự kiện tới client
	for {
		select {
		case event, ok := <-clientChan:
			if !ok {
				return
			}
			
			data, err := json.Marshal(event.Data)
			if err != nil {
				log.Error().Err(err).Str("topic", topic).Msg("failed to marshal event data")
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Type, data)
			c.Writer.Flush()
		case <-keepAlive.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
