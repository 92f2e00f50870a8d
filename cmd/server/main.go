package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/majstri/messaging/internal/api"
	"github.com/majstri/messaging/internal/auth"
	"github.com/majstri/messaging/internal/chat"
	"github.com/majstri/messaging/internal/config"
	"github.com/majstri/messaging/internal/database"
	"github.com/majstri/messaging/internal/realtime"
	internalWs "github.com/majstri/messaging/internal/websocket"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	auth.InitJWTKey([]byte(cfg.JWTSecret))

	store, err := database.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	log.Println("Connected to database")

	// The broker carries row-change events from the mutation paths to
	// connected sessions; each session's supervisor subscribes on it.
	broker := realtime.NewBroker()

	wsManager := internalWs.NewManager(broker, realtime.Config{})
	go wsManager.Run()

	service := chat.NewService(store, wsManager, broker)
	messageHandler := api.NewMessageHandler(service)

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authorized := router.Group("/api")
	authorized.Use(api.AuthMiddleware())
	{
		authorized.GET("/contacts", messageHandler.GetContacts)
		authorized.GET("/conversations/:conversationID/messages", messageHandler.GetMessages)
		authorized.POST("/messages", messageHandler.SendMessage)
		authorized.PUT("/conversations/:conversationID/read", messageHandler.MarkConversationRead)
		authorized.PUT("/conversations/:conversationID/archive", messageHandler.ArchiveConversation)
		authorized.DELETE("/conversations/:conversationID", messageHandler.DeleteConversation)
	}

	// WebSocket route accepts the token in the query string since
	// browsers cannot set headers on WebSocket upgrades.
	router.GET("/ws", func(c *gin.Context) {
		tokenParam := c.Query("token")
		if tokenParam == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := auth.ValidateToken(tokenParam)
		if err != nil {
			log.Printf("[WebSocket] Token validation failed for %s: %v", c.Request.RemoteAddr, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		userUUID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set("userID", userUUID)
		c.Set("role", claims.Role)
		wsManager.HandleSession(c)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
