package api

import (
	"context"
	"fmt"
	
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/katatrina/feedpush/internal/event"
	"github.com/katatrina/feedpush/internal/registry"
	"github.com/katatrina/feedpush/internal/token"
	"github.com/katatrina/feedpush/internal/util"
	"github.com/katatrina/feedpush/internal/worker"
	"github.com/rs/zerolog/log"
)

// RegistrationStore issues and resolves messaging tokens.
type RegistrationStore interface {
	Issue(ctx context.Context, vapidKey string, subscription registry.Subscription) (registry.Registration, error)
	Get(ctx context.Context, token string) (registry.Registration, error)
	Delete(ctx context.Context, token string) error
}

type Server struct {
	router          *gin.Engine
	config          *util.Config
	tokenMaker      token.Maker
	registrations   RegistrationStore
	taskDistributor worker.TaskDistributor
	taskInspector   worker.TaskInspector
	eventSender     event.EventSender
}

// NewServer creates a new HTTP server and set up routing.
func NewServer(config *util.Config, registrations RegistrationStore, taskDistributor worker.TaskDistributor, taskInspector worker.TaskInspector, eventSender event.EventSender) (*Server, error) {
	// Create a new JWT token maker
	tokenMaker, err := token.NewJWTMaker(config.TokenSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token maker: %w", err)
	}
	log.Info().Msg("Token maker created successfully ✅")
	
	server := &Server{
		config:          config,
		tokenMaker:      tokenMaker,
		registrations:   registrations,
		taskDistributor: taskDistributor,
		taskInspector:   taskInspector,
		eventSender:     eventSender,
	}
	
	server.setupRouter()
	return server, nil
}

// setupRouter configures the HTTP server routes.
func (server *Server) setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"},
		AllowCredentials: true,
	}))
	
	v1 := router.Group("/v1")
	
	v1.GET("/vapid-public-key", server.getVAPIDPublicKey)
	
	// API cho trình duyệt: cấp token và nhận tin nhắn foreground
	registrationGroup := v1.Group("/registrations")
	{
		registrationGroup.POST("", server.createRegistration)
		registrationGroup.DELETE(":token", server.deleteRegistration)
		registrationGroup.GET(":token/stream", server.streamRegistrationMessages)
	}
	
	// API cho publisher gửi tin nhắn
	messageGroup := v1.Group("/messages", authMiddleware(server.tokenMaker))
	{
		messageGroup.POST("", server.sendMessage)
		messageGroup.GET(":messageID", server.getMessage)
		messageGroup.DELETE(":messageID", server.cancelMessage)
	}
	
	server.router = router
	return router
}

func (server *Server) Start(address string) error {
	return server.router.Run(address)
}

// Handler exposes the router, e.g. for an http.Server with graceful shutdown.
func (server *Server) Handler() *gin.Engine {
	return server.router
}
