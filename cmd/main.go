// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"github.com/Sujalbagavan/community-hub/internal/auth"
	"github.com/Sujalbagavan/community-hub/internal/database"
	"github.com/Sujalbagavan/community-hub/internal/handler"
	"github.com/Sujalbagavan/community-hub/internal/repository"
	"github.com/Sujalbagavan/community-hub/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	ctx := context.Background()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// ── 1. Connect to PostgreSQL and apply the schema ─────────────────────
	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	pool, err := database.NewPool(ctx, dbCfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("connected to postgres")

	// ── 2. Wire up layers ────────────────────────────────────────────────
	eventRepo := repository.NewEventRepository(pool)
	participationRepo := repository.NewParticipationRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)

	state := service.NewAppState(eventRepo, participationRepo, commentRepo, chatRepo)

	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	backend := auth.NewOAuthBackend(authCfg)
	sessions := auth.NewManager(backend, profileRepo, state.SetCurrentUser)
	if err := sessions.Start(ctx); err != nil {
		log.Printf("auth initialization: %v", err)
	}
	defer sessions.Dispose()

	eventHandler := handler.NewEventHandler(state, profileRepo)
	authHandler := handler.NewAuthHandler(backend, sessions, profileRepo)
	chatHandler := handler.NewChatHandler(state)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger)
	r.Use(handler.CORS)
	r.Use(handler.Authenticate(backend))

	r.Get("/health", handler.HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", eventHandler.ListEvents)
		r.Get("/{id}", eventHandler.GetEvent)

		r.Group(func(r chi.Router) {
			r.Use(handler.RequireUser)
			r.Post("/", eventHandler.CreateEvent)
			r.Patch("/{id}", eventHandler.UpdateEvent)
			r.Delete("/{id}", eventHandler.DeleteEvent)
			r.Post("/{id}/join", eventHandler.JoinEvent)
			r.Post("/{id}/volunteer", eventHandler.Volunteer)
			r.Post("/{id}/comments", eventHandler.AddComment)
		})
	})

	r.Route("/ai-chat", func(r chi.Router) {
		r.Post("/", chatHandler.Chat)
		r.With(handler.RequireUser).Get("/history", chatHandler.History)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/signin", authHandler.SignIn)
		r.Get("/callback", authHandler.Callback)
		r.Post("/signout", authHandler.SignOut)
		r.With(handler.RequireUser).Get("/me", authHandler.Me)
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}
