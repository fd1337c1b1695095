package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/JDEditz/Messaging-Web-App/internal/auth"
	"github.com/JDEditz/Messaging-Web-App/internal/chat"
	"github.com/JDEditz/Messaging-Web-App/internal/config"
	"github.com/JDEditz/Messaging-Web-App/internal/db"
	"github.com/JDEditz/Messaging-Web-App/internal/handlers"
	"github.com/JDEditz/Messaging-Web-App/internal/middleware"
	"github.com/JDEditz/Messaging-Web-App/internal/observability"
	"github.com/JDEditz/Messaging-Web-App/internal/rabbitmq"
	"github.com/JDEditz/Messaging-Web-App/internal/repositories"
	"github.com/JDEditz/Messaging-Web-App/internal/telemetry"
	"github.com/JDEditz/Messaging-Web-App/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found, using environment: %v", err)
	}
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing := observability.InitTracing(context.Background(), cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AuditExchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(auditPublisher))
	audit := telemetry.NewAuditEmitter(auditPublisher, cfg.AuditRouting, cfg.ServiceName, cfg.Environment)

	if eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.EventExchange); err != nil {
		log.Printf("ws event publishing disabled: %v", err)
	} else {
		observability.SetEventPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	userRepo := repositories.NewUserRepo(database)
	convRepo := repositories.NewConversationRepo(database)
	msgRepo := repositories.NewMessageRepo(database)

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	service := chat.NewService(convRepo, msgRepo, userRepo)
	hub := ws.NewHub()

	convHandler := handlers.NewConversationHandler(service, audit)
	msgHandler := handlers.NewMessageHandler(service, hub)
	wsHandler := ws.NewHandler(hub, service, userRepo, verifier)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	api := router.Group("/api")
	{
		chats := api.Group("/chats", authMiddleware)
		chats.GET("", convHandler.ListConversations)
		chats.POST("", convHandler.CreateConversation)
		chats.GET("/:chat_id", convHandler.GetConversation)
		chats.DELETE("/:chat_id", convHandler.DeleteConversation)
		chats.POST("/:chat_id/leave", convHandler.LeaveConversation)

		// GET/POST address the conversation, PUT/DELETE address the
		// message; gin requires one wildcard name per position.
		messages := api.Group("/messages", authMiddleware)
		messages.GET("/:id", msgHandler.ListMessages)
		messages.POST("/:id", msgHandler.SendMessage)
		messages.PUT("/:id", msgHandler.EditMessage)
		messages.DELETE("/:id", msgHandler.DeleteMessage)
	}

	router.GET("/ws", wsHandler.Handle)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	})

	log.Printf("listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, corsHandler.Handler(router)); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
