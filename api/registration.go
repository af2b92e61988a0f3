package api

import (
	"bytes"
	"errors"
	"net/http"
	"time"
	
	"github.com/gin-gonic/gin"
	"github.com/katatrina/feedpush/internal/registry"
	"github.com/katatrina/feedpush/internal/vapid"
	"github.com/rs/zerolog/log"
)

type subscriptionKeysRequest struct {
	P256dh string `json:"p256dh" binding:"required"`
	Auth   string `json:"auth" binding:"required"`
}

type subscriptionRequest struct {
	Endpoint       string                  `json:"endpoint" binding:"required,url"`
	ExpirationTime *time.Time              `json:"expiration_time"`
	Keys           subscriptionKeysRequest `json:"keys"`
}

type createRegistrationRequest struct {
	VAPIDKey     string              `json:"vapid_key" binding:"required"`
	Subscription subscriptionRequest `json:"subscription"`
}

type createRegistrationResponse struct {
	Token string `json:"token"`
}

// createRegistration exchanges a push subscription for a messaging token.
func (server *Server) createRegistration(c *gin.Context) {
	req := new(createRegistrationRequest)
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	
	if err := server.checkVAPIDKey(req.VAPIDKey); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	
	registration, err := server.registrations.Issue(c, req.VAPIDKey, registry.Subscription{
		Endpoint:       req.Subscription.Endpoint,
		ExpirationTime: req.Subscription.ExpirationTime,
		Keys: registry.SubscriptionKeys{
			P256dh: req.Subscription.Keys.P256dh,
			Auth:   req.Subscription.Keys.Auth,
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to issue registration")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}
	
	c.JSON(http.StatusOK, createRegistrationResponse{Token: registration.Token})
}

// checkVAPIDKey compares decoded keys so padding and alphabet differences do
// not matter.
func (server *Server) checkVAPIDKey(key string) error {
	got, err := vapid.DecodeApplicationServerKey(key)
	if err != nil {
		return err
	}
	
	want, err := vapid.DecodeApplicationServerKey(server.config.VAPIDPublicKey)
	if err != nil {
		return err
	}
	
	if !bytes.Equal(got, want) {
		return ErrVAPIDKeyMismatch
	}
	return nil
}

func (server *Server) deleteRegistration(c *gin.Context) {
	err := server.registrations.Delete(c, c.Param("token"))
	if err != nil {
		if errors.Is(err, registry.ErrRegistrationNotFound) {
			c.JSON(http.StatusNotFound, errorResponse(err))
			return
		}
		
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}
	
	c.Status(http.StatusNoContent)
}
