package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kconsul/babelrelay/internal/api"
	"github.com/kconsul/babelrelay/internal/config"
	"github.com/kconsul/babelrelay/internal/hub"
	"github.com/kconsul/babelrelay/internal/room"
	"github.com/kconsul/babelrelay/internal/translate"
	"github.com/kconsul/babelrelay/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Load configuration
	cfg := config.Load()

	log.Printf("Starting relay service...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Translation backend: %s (model %s)", cfg.OllamaURL, cfg.TranslateModel)

	// Initialize room registry
	registry := room.NewRegistry()

	// Initialize hub
	connectionHub := hub.NewHub()
	go connectionHub.Run()

	// Initialize translation client
	translator := translate.NewClient(cfg.OllamaURL, cfg.OllamaAPIKey, cfg.TranslateModel, cfg.TranslateTimeout)

	// Initialize WebSocket server
	wsServer := ws.NewServer(cfg, connectionHub, registry, translator)

	// Initialize HTTP handlers
	apiHandler := api.NewHandler(registry, connectionHub)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	apiHandler.RegisterRoutes(e)
	e.GET("/ws", wsServer.HandleWebSocket)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Relay listening on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down relay...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Relay stopped")
}
