package api

import (
	"net/http"
	
	"github.com/gin-gonic/gin"
)

type vapidPublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// getVAPIDPublicKey returns the application server key browsers subscribe with.
func (server *Server) getVAPIDPublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, vapidPublicKeyResponse{PublicKey: server.config.VAPIDPublicKey})
}
